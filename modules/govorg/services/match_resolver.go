package services

import (
	"context"
	"errors"

	"github.com/newsanalyzer/govkb/modules/govorg/domain/organization"
)

// MatchResolver decides whether an incoming record corresponds to an existing
// one. Match precedence, first hit wins:
//
//  1. acronym, exact, case-insensitive, active records only
//  2. official name, exact, case-insensitive, active records only
//  3. no match (create path)
//
// Acronym goes first: it is the most collision-resistant signal, while full
// names carry minor formatting variance. This ordering changes dedup behavior
// materially; do not reorder.
type MatchResolver struct {
	repo organization.Repository
}

func NewMatchResolver(repo organization.Repository) *MatchResolver {
	return &MatchResolver{repo: repo}
}

// Resolve returns the matched existing record, or nil when the incoming
// record should be created.
func (r *MatchResolver) Resolve(ctx context.Context, incoming *organization.Organization) (*organization.Organization, error) {
	if acronym := incoming.Acronym(); acronym != "" {
		existing, err := r.repo.FindByAcronym(ctx, acronym)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, organization.ErrNotFound) {
			return nil, err
		}
	}

	existing, err := r.repo.FindByOfficialName(ctx, incoming.OfficialName())
	if err == nil {
		return existing, nil
	}
	if errors.Is(err, organization.ErrNotFound) {
		return nil, nil
	}
	return nil, err
}
