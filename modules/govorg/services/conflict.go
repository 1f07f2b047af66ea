package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/wI2L/jsondiff"

	"github.com/newsanalyzer/govkb/modules/govorg/domain/organization"
)

// Resolution actions accepted by ResolveConflict.
const (
	ActionKeepExisting = "keep-existing"
	ActionUseIncoming  = "use-incoming"
	ActionMergeFields  = "merge-fields"
)

var ErrUnknownAction = errors.New("unknown resolution action")

// MergeConflict captures a match whose records disagreed on one or more
// fields, computed before the merge policy ran. Patch is a JSON Patch
// describing how the existing record would have to change to equal the
// incoming one.
type MergeConflict struct {
	OrgID           uuid.UUID             `json:"orgId"`
	OfficialName    string                `json:"officialName"`
	Source          string                `json:"source"`
	DifferingFields []string              `json:"differingFields"`
	Existing        organization.Snapshot `json:"existing"`
	Incoming        organization.Snapshot `json:"incoming"`
	Patch           jsondiff.Patch        `json:"patch,omitempty"`
}

// NewConflict builds a MergeConflict for a matched pair whose records differ
// on any field, or nil when they agree. The full pre-policy differing-field
// list is carried so the operator sees every disagreement, curated or not;
// only the source-metadata refresh is left out, since it changes on every
// sync and is never operator-resolvable.
func NewConflict(existing, incoming *organization.Organization, source string, differing []string) *MergeConflict {
	conflicting := make([]string, 0, len(differing))
	for _, f := range differing {
		if f != FieldSource {
			conflicting = append(conflicting, f)
		}
	}
	if len(conflicting) == 0 {
		return nil
	}

	exSnap := existing.Snapshot()
	inSnap := incoming.Snapshot()
	patch, err := jsondiff.Compare(exSnap, inSnap)
	if err != nil {
		// The snapshots always marshal; a diff failure is not worth
		// losing the conflict over.
		patch = nil
	}

	return &MergeConflict{
		OrgID:           existing.ID(),
		OfficialName:    existing.OfficialName(),
		Source:          source,
		DifferingFields: conflicting,
		Existing:        exSnap,
		Incoming:        inSnap,
		Patch:           patch,
	}
}

// ConflictResolver applies operator decisions to recorded conflicts.
type ConflictResolver struct {
	repo   organization.Repository
	linker *HierarchyLinker
}

func NewConflictResolver(repo organization.Repository) *ConflictResolver {
	return &ConflictResolver{repo: repo, linker: NewHierarchyLinker(repo)}
}

// Resolution is an operator's decision for a single conflicted record.
// Fields is consulted only for the merge-fields action and names which
// incoming values to take; every other field keeps the existing value.
type Resolution struct {
	OrgID  uuid.UUID `json:"orgId"`
	Action string    `json:"action"`
	Fields []string  `json:"fields,omitempty"`
}

// Resolve applies a resolution against the stored record using the incoming
// snapshot carried by the conflict.
func (r *ConflictResolver) Resolve(ctx context.Context, conflict *MergeConflict, res Resolution, resolvedBy string) (*organization.Organization, error) {
	existing, err := r.repo.GetByID(ctx, conflict.OrgID)
	if err != nil {
		return nil, errors.Wrap(err, "load conflicted organization")
	}

	switch res.Action {
	case ActionKeepExisting:
		return existing, nil
	case ActionUseIncoming:
		if err := r.applyFields(ctx, existing, conflict.Incoming, conflict.DifferingFields); err != nil {
			return nil, err
		}
	case ActionMergeFields:
		for _, f := range res.Fields {
			if !slices.Contains(conflict.DifferingFields, f) {
				return nil, fmt.Errorf("field %q is not in conflict", f)
			}
		}
		if err := r.applyFields(ctx, existing, conflict.Incoming, res.Fields); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Wrap(ErrUnknownAction, res.Action)
	}

	existing.Stamp(resolvedBy)
	if _, err := r.repo.Save(ctx, existing); err != nil {
		return nil, errors.Wrap(err, "save resolved organization")
	}
	return existing, nil
}

func (r *ConflictResolver) applyFields(ctx context.Context, existing *organization.Organization, incoming organization.Snapshot, fields []string) error {
	for _, f := range fields {
		switch f {
		case FieldOfficialName:
			if incoming.OfficialName == "" {
				return fmt.Errorf("official name must not be empty")
			}
			existing.SetOfficialName(incoming.OfficialName)
		case FieldAcronym:
			existing.SetAcronym(incoming.Acronym)
		case FieldOrgType:
			if !incoming.OrgType.IsValid() {
				return fmt.Errorf("invalid org type %q", incoming.OrgType)
			}
			existing.SetOrgType(incoming.OrgType)
		case FieldBranch:
			if !incoming.Branch.IsValid() {
				return fmt.Errorf("invalid branch %q", incoming.Branch)
			}
			existing.SetBranch(incoming.Branch)
		case FieldParentID:
			if err := r.checkParent(ctx, existing, incoming.ParentID); err != nil {
				return err
			}
			existing.SetParentID(incoming.ParentID)
		case FieldOrgLevel:
			if incoming.OrgLevel < 1 || incoming.OrgLevel > 10 {
				return fmt.Errorf("org level %d is out of range", incoming.OrgLevel)
			}
			existing.SetOrgLevel(incoming.OrgLevel)
		case FieldEstablishedDate:
			date, err := parseSnapshotDate(incoming.EstablishedDate)
			if err != nil {
				return err
			}
			existing.SetEstablishedDate(date)
		case FieldDissolvedDate:
			date, err := parseSnapshotDate(incoming.DissolvedDate)
			if err != nil {
				return err
			}
			existing.SetDissolvedDate(date)
		case FieldDescription:
			existing.SetDescription(incoming.Description)
		case FieldMissionStatement:
			existing.SetMissionStatement(incoming.MissionStatement)
		case FieldWebsiteURL:
			existing.SetWebsiteURL(incoming.WebsiteURL)
		case FieldJurisdictionAreas:
			existing.SetJurisdictionAreas(incoming.JurisdictionAreas)
		default:
			return fmt.Errorf("field %q cannot be resolved", f)
		}
	}
	return nil
}

// checkParent rejects a resolved parent that does not exist, points back at
// the record itself, or would close a hierarchy cycle.
func (r *ConflictResolver) checkParent(ctx context.Context, existing *organization.Organization, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}
	if *parentID == existing.ID() {
		return fmt.Errorf("organization cannot be its own parent")
	}
	if _, err := r.repo.GetByID(ctx, *parentID); err != nil {
		return errors.Wrap(err, "load resolved parent")
	}
	cycle, err := r.linker.wouldCreateCycle(ctx, existing.ID(), *parentID)
	if err != nil {
		return err
	}
	if cycle {
		return fmt.Errorf("resolved parent would create a hierarchy cycle")
	}
	return nil
}

func parseSnapshotDate(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	date, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", *value)
	}
	return &date, nil
}
