package services

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/newsanalyzer/govkb/modules/govorg/domain/organization"
)

// parentLink is a deferred parent assignment recorded during the first pass
// of a sync or import run and applied once every record exists.
type parentLink struct {
	ChildID   uuid.UUID
	ParentID  uuid.UUID
	ChildName string
}

// HierarchyLinker applies recorded parent links, refusing any link that
// would introduce a cycle or overwrite a manually curated parent.
type HierarchyLinker struct {
	repo organization.Repository
}

func NewHierarchyLinker(repo organization.Repository) *HierarchyLinker {
	return &HierarchyLinker{repo: repo}
}

// Link applies a single parent link. It returns a non-empty warning when the
// link was skipped; skips are never fatal to a run.
func (l *HierarchyLinker) Link(ctx context.Context, link parentLink) (string, error) {
	if link.ChildID == link.ParentID {
		return fmt.Sprintf("organization %q cannot be its own parent", link.ChildName), nil
	}

	child, err := l.repo.GetByID(ctx, link.ChildID)
	if err != nil {
		return "", err
	}

	// A parent placed by hand is curated; the source does not move it.
	if cur := child.ParentID(); cur != nil {
		if *cur == link.ParentID {
			return "", nil
		}
		return fmt.Sprintf("organization %q already has a curated parent; skipping link", link.ChildName), nil
	}

	cycle, err := l.wouldCreateCycle(ctx, link.ChildID, link.ParentID)
	if err != nil {
		return "", err
	}
	if cycle {
		return fmt.Sprintf("linking %q would create a hierarchy cycle", link.ChildName), nil
	}

	parentID := link.ParentID
	child.SetParentID(&parentID)
	if child.OrgLevel() < 2 {
		child.SetOrgLevel(2)
	}
	if _, err := l.repo.Save(ctx, child); err != nil {
		return "", err
	}
	return "", nil
}

// wouldCreateCycle walks the ancestor chain of the proposed parent and
// reports whether it reaches the child.
func (l *HierarchyLinker) wouldCreateCycle(ctx context.Context, childID, parentID uuid.UUID) (bool, error) {
	seen := map[uuid.UUID]struct{}{childID: {}}
	cur := parentID
	for {
		if _, ok := seen[cur]; ok {
			return true, nil
		}
		seen[cur] = struct{}{}

		org, err := l.repo.GetByID(ctx, cur)
		if err != nil {
			if errors.Is(err, organization.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		next := org.ParentID()
		if next == nil {
			return false, nil
		}
		cur = *next
	}
}
