package services

import (
	"strings"

	"github.com/newsanalyzer/govkb/modules/govorg/domain/organization"
	"github.com/newsanalyzer/govkb/modules/govorg/infrastructure/federalregister"
)

// Import source tags stamped onto records for provenance.
const (
	SourceFederalRegister = "federal-register-sync"
	SourceCsvImport       = "csv-import"
)

// NormalizeAgency maps a raw Federal Register agency into an unsaved
// organization record. Pure: the same input always yields the same output
// (modulo the generated identity). The Federal Register only carries
// executive-branch agencies, so branch is fixed; orgType is inferred from
// the name.
func NormalizeAgency(agency federalregister.Agency) *organization.Organization {
	name := strings.TrimSpace(agency.Name)
	return organization.New(
		name,
		organization.BranchExecutive,
		organization.InferType(name),
		organization.WithAcronym(strings.TrimSpace(agency.ShortName)),
		organization.WithDescription(strings.TrimSpace(agency.Description)),
		organization.WithSource(organization.SourceRef{
			RegisterID:  agency.ID,
			RegisterURL: agency.URL,
			Slug:        agency.Slug,
		}),
		organization.WithImportSource(SourceFederalRegister),
	)
}
