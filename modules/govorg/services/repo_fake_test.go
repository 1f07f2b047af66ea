package services

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/newsanalyzer/govkb/modules/govorg/domain/organization"
)

// memRepo is an in-memory Repository for service tests.
type memRepo struct {
	mu   sync.Mutex
	orgs map[uuid.UUID]*organization.Organization

	saveErr error
}

func newMemRepo() *memRepo {
	return &memRepo{orgs: map[uuid.UUID]*organization.Organization{}}
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*organization.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.orgs[id]
	if !ok {
		return nil, organization.ErrNotFound
	}
	return org, nil
}

func (r *memRepo) GetByRegisterID(_ context.Context, registerID int64) (*organization.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, org := range r.orgs {
		rid := org.Source().RegisterID
		if rid != nil && *rid == registerID {
			return org, nil
		}
	}
	return nil, organization.ErrNotFound
}

func (r *memRepo) FindByAcronym(_ context.Context, acronym string) (*organization.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, org := range r.orgs {
		if org.IsActive() && strings.EqualFold(org.Acronym(), acronym) {
			return org, nil
		}
	}
	return nil, organization.ErrNotFound
}

func (r *memRepo) FindByOfficialName(_ context.Context, name string) (*organization.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, org := range r.orgs {
		if org.IsActive() && strings.EqualFold(org.OfficialName(), name) {
			return org, nil
		}
	}
	return nil, organization.ErrNotFound
}

func (r *memRepo) GetAll(_ context.Context) ([]*organization.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*organization.Organization, 0, len(r.orgs))
	for _, org := range r.orgs {
		out = append(out, org)
	}
	return out, nil
}

func (r *memRepo) Save(_ context.Context, org *organization.Organization) (*organization.Organization, error) {
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orgs[org.ID()] = org
	return org, nil
}

func (r *memRepo) CountActive(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, org := range r.orgs {
		if org.IsActive() {
			count++
		}
	}
	return count, nil
}

func (r *memRepo) CountByBranch(_ context.Context) (map[organization.Branch]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[organization.Branch]int64{}
	for _, org := range r.orgs {
		if org.IsActive() {
			out[org.Branch()]++
		}
	}
	return out, nil
}
