package services

import (
	"slices"
	"time"

	"github.com/newsanalyzer/govkb/modules/govorg/domain/organization"
)

// Field names reported in differing-field lists and accepted by
// merge-selected-fields resolution.
const (
	FieldOfficialName      = "officialName"
	FieldAcronym           = "acronym"
	FieldOrgType           = "orgType"
	FieldBranch            = "branch"
	FieldParentID          = "parentId"
	FieldOrgLevel          = "orgLevel"
	FieldEstablishedDate   = "establishedDate"
	FieldDissolvedDate     = "dissolvedDate"
	FieldDescription       = "description"
	FieldMissionStatement  = "missionStatement"
	FieldWebsiteURL        = "websiteUrl"
	FieldJurisdictionAreas = "jurisdictionAreas"
	FieldSource            = "source"
)

// MergeOutcome is the result of merging an incoming record into a matched
// existing one. DifferingFields reports raw field differences computed before
// the merge policy was applied, so curated fields show up there even though
// they are never overwritten automatically. Changed reports whether the merge
// actually altered a field; a source-metadata refresh alone does not count.
type MergeOutcome struct {
	Org             *organization.Organization
	DifferingFields []string
	Changed         bool
}

func equalDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalSource(a, b organization.SourceRef) bool {
	if (a.RegisterID == nil) != (b.RegisterID == nil) {
		return false
	}
	if a.RegisterID != nil && *a.RegisterID != *b.RegisterID {
		return false
	}
	return a.RegisterURL == b.RegisterURL && a.Slug == b.Slug
}

// DiffFields compares every field of the two records and returns the names of
// those that differ. Comparison is raw (pre-policy) and case-sensitive.
func DiffFields(existing, incoming *organization.Organization) []string {
	var out []string
	add := func(field string, differs bool) {
		if differs {
			out = append(out, field)
		}
	}

	add(FieldOfficialName, existing.OfficialName() != incoming.OfficialName())
	add(FieldAcronym, existing.Acronym() != incoming.Acronym())
	add(FieldOrgType, existing.OrgType() != incoming.OrgType())
	add(FieldBranch, existing.Branch() != incoming.Branch())

	ep, ip := existing.ParentID(), incoming.ParentID()
	parentDiffers := (ep == nil) != (ip == nil) || (ep != nil && ip != nil && *ep != *ip)
	add(FieldParentID, parentDiffers)

	add(FieldOrgLevel, existing.OrgLevel() != incoming.OrgLevel())
	add(FieldEstablishedDate, !equalDate(existing.EstablishedDate(), incoming.EstablishedDate()))
	add(FieldDissolvedDate, !equalDate(existing.DissolvedDate(), incoming.DissolvedDate()))
	add(FieldDescription, existing.Description() != incoming.Description())
	add(FieldMissionStatement, existing.MissionStatement() != incoming.MissionStatement())
	add(FieldWebsiteURL, existing.WebsiteURL() != incoming.WebsiteURL())
	add(FieldJurisdictionAreas, !slices.Equal(existing.JurisdictionAreas(), incoming.JurisdictionAreas()))
	add(FieldSource, !equalSource(existing.Source(), incoming.Source()))

	return out
}

// Merge applies the field-level merge policy to the matched existing record:
//
//   - curated fields (parentId, branch, jurisdictionAreas, missionStatement)
//     are kept from existing, always;
//   - description and acronym are filled only when existing has none;
//   - derived fields (establishedDate, dissolvedDate, websiteUrl) take the
//     incoming value unconditionally — source truth wins, even when the source
//     supplies no value;
//   - source metadata refreshes whenever the incoming record carries any.
//
// The existing record is mutated in place and stamped with the import source.
func Merge(existing, incoming *organization.Organization, source string) MergeOutcome {
	differing := DiffFields(existing, incoming)
	changed := false

	if existing.Description() == "" && incoming.Description() != "" {
		existing.SetDescription(incoming.Description())
		changed = true
	}

	if existing.Acronym() == "" && incoming.Acronym() != "" {
		existing.SetAcronym(incoming.Acronym())
		changed = true
	}

	if !equalDate(existing.EstablishedDate(), incoming.EstablishedDate()) {
		existing.SetEstablishedDate(incoming.EstablishedDate())
		changed = true
	}

	if !equalDate(existing.DissolvedDate(), incoming.DissolvedDate()) {
		existing.SetDissolvedDate(incoming.DissolvedDate())
		changed = true
	}

	if existing.WebsiteURL() != incoming.WebsiteURL() {
		existing.SetWebsiteURL(incoming.WebsiteURL())
		changed = true
	}

	// Source metadata refreshes silently on every sync. An intake path that
	// carries no provenance of its own (CSV) must not erase what a sync
	// recorded, or register-id hierarchy lookups stop resolving.
	if !incoming.Source().IsZero() {
		existing.SetSource(incoming.Source())
	}
	existing.Stamp(source)

	return MergeOutcome{
		Org:             existing,
		DifferingFields: differing,
		Changed:         changed,
	}
}
