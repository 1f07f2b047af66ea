package organization

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("organization not found")

// Repository is the record store the reconciliation engine runs against.
// Lookups by acronym and official name are case-insensitive and consider
// active (non-dissolved) records only.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetByRegisterID(ctx context.Context, registerID int64) (*Organization, error)
	FindByAcronym(ctx context.Context, acronym string) (*Organization, error)
	FindByOfficialName(ctx context.Context, name string) (*Organization, error)
	GetAll(ctx context.Context) ([]*Organization, error)
	Save(ctx context.Context, org *Organization) (*Organization, error)
	CountActive(ctx context.Context) (int64, error)
	CountByBranch(ctx context.Context) (map[Branch]int64, error)
}
