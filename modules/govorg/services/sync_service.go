package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/newsanalyzer/govkb/modules/govorg/domain/organization"
	"github.com/newsanalyzer/govkb/modules/govorg/infrastructure/federalregister"
	"github.com/newsanalyzer/govkb/pkg/eventbus"
)

// ErrSyncInProgress is returned when a sync run is requested while another
// one has not finished.
var ErrSyncInProgress = errors.New("synchronization already in progress")

// ErrSourceUnavailable is returned when the source fails its availability
// probe before a run starts.
var ErrSourceUnavailable = errors.New("source is not available")

// SourceClient is what the sync service needs from the Federal Register API.
type SourceClient interface {
	FetchAll(ctx context.Context) ([]federalregister.Agency, error)
	IsAvailable(ctx context.Context) bool
}

// SyncResult summarizes one completed run. Skipped counts matched records
// whose merge changed nothing beyond source metadata, so a clean re-run
// reports everything as skipped.
type SyncResult struct {
	StartedAt    time.Time       `json:"startedAt"`
	FinishedAt   time.Time       `json:"finishedAt"`
	Added        int             `json:"added"`
	Updated      int             `json:"updated"`
	Skipped      int             `json:"skipped"`
	Failed       int             `json:"failed"`
	LinkWarnings []string        `json:"linkWarnings,omitempty"`
	Conflicts    []MergeConflict `json:"conflicts,omitempty"`
	Errors       []string        `json:"errors,omitempty"`
}

// SyncStatus is the non-blocking view exposed over the API.
type SyncStatus struct {
	InProgress      bool                          `json:"inProgress"`
	LastSync        *time.Time                    `json:"lastSync,omitempty"`
	LastResult      *SyncResult                   `json:"lastResult,omitempty"`
	TotalRecords    int64                         `json:"totalRecords"`
	CountByBranch   map[organization.Branch]int64 `json:"countByBranch"`
	SourceAvailable bool                          `json:"sourceAvailable"`
}

// SyncCompletedEvent is published after every finished run.
type SyncCompletedEvent struct {
	Result SyncResult
}

// SyncService pulls the full agency list from the source, reconciles each
// record against the store, and links parent relationships in a second pass.
type SyncService struct {
	repo      organization.Repository
	client    SourceClient
	linker    *HierarchyLinker
	matcher   *MatchResolver
	publisher eventbus.EventBus
	log       *logrus.Logger

	inProgress atomic.Bool

	mu         sync.RWMutex
	lastSync   *time.Time
	lastResult *SyncResult
}

func NewSyncService(
	repo organization.Repository,
	client SourceClient,
	publisher eventbus.EventBus,
	log *logrus.Logger,
) *SyncService {
	return &SyncService{
		repo:      repo,
		client:    client,
		linker:    NewHierarchyLinker(repo),
		matcher:   NewMatchResolver(repo),
		publisher: publisher,
		log:       log,
	}
}

// Status never blocks on a running sync; count queries run against the store
// directly and failures degrade to zero values rather than erroring the read.
func (s *SyncService) Status(ctx context.Context) SyncStatus {
	s.mu.RLock()
	status := SyncStatus{
		InProgress: s.inProgress.Load(),
		LastSync:   s.lastSync,
		LastResult: s.lastResult,
	}
	s.mu.RUnlock()

	total, err := s.repo.CountActive(ctx)
	if err != nil {
		s.log.WithError(err).Warn("count active organizations")
	}
	status.TotalRecords = total

	byBranch, err := s.repo.CountByBranch(ctx)
	if err != nil {
		s.log.WithError(err).Warn("count organizations by branch")
		byBranch = map[organization.Branch]int64{}
	}
	status.CountByBranch = byBranch
	status.SourceAvailable = s.client.IsAvailable(ctx)

	return status
}

// Sync runs one full reconciliation pass. At most one run may be active;
// concurrent callers get ErrSyncInProgress instead of queueing.
func (s *SyncService) Sync(ctx context.Context) (*SyncResult, error) {
	if !s.inProgress.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer s.inProgress.Store(false)

	if !s.client.IsAvailable(ctx) {
		return nil, ErrSourceUnavailable
	}

	result := &SyncResult{StartedAt: time.Now()}

	agencies, err := s.client.FetchAll(ctx)
	if err != nil {
		// A mid-run outage is the same condition the pre-flight probe
		// guards against and maps to the same sentinel.
		if errors.Is(err, federalregister.ErrUnavailable) {
			return nil, ErrSourceUnavailable
		}
		return nil, errors.Wrap(err, "fetch agencies")
	}
	s.log.WithField("count", len(agencies)).Info("fetched agencies from source")

	idBySourceID := make(map[int64]uuid.UUID, len(agencies))

	for _, agency := range agencies {
		if agency.Name == "" {
			result.Failed++
			result.Errors = append(result.Errors, "agency without a name skipped")
			continue
		}

		orgID, conflict, err := s.upsert(ctx, agency, result)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err.Error())
			s.log.WithError(err).WithField("agency", agency.Name).Warn("agency sync failed")
			continue
		}
		if conflict != nil {
			result.Conflicts = append(result.Conflicts, *conflict)
			s.log.WithField("organization", conflict.OfficialName).
				WithField("fields", conflict.DifferingFields).
				Warn("merge conflict detected")
		}

		if agency.ID != nil {
			idBySourceID[*agency.ID] = orgID
		}
	}

	// Second pass: every record now exists, so parent links can resolve.
	var links []parentLink
	for _, agency := range agencies {
		if agency.ID == nil || agency.ParentID == nil {
			continue
		}
		childID, ok := idBySourceID[*agency.ID]
		if !ok {
			continue
		}
		parentID, ok := idBySourceID[*agency.ParentID]
		if !ok {
			parent, err := s.repo.GetByRegisterID(ctx, *agency.ParentID)
			if err != nil {
				result.LinkWarnings = append(result.LinkWarnings,
					"parent agency not found for "+agency.Name)
				continue
			}
			parentID = parent.ID()
		}
		links = append(links, parentLink{ChildID: childID, ParentID: parentID, ChildName: agency.Name})
	}

	for _, link := range links {
		warning, err := s.linker.Link(ctx, link)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		if warning != "" {
			result.LinkWarnings = append(result.LinkWarnings, warning)
		}
	}

	result.FinishedAt = time.Now()

	now := result.FinishedAt
	s.mu.Lock()
	s.lastSync = &now
	s.lastResult = result
	s.mu.Unlock()

	s.publisher.Publish(SyncCompletedEvent{Result: *result})
	s.log.WithFields(logrus.Fields{
		"added":   result.Added,
		"updated": result.Updated,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}).Info("synchronization finished")

	return result, nil
}

func (s *SyncService) upsert(ctx context.Context, agency federalregister.Agency, result *SyncResult) (uuid.UUID, *MergeConflict, error) {
	incoming := NormalizeAgency(agency)

	existing, err := s.matcher.Resolve(ctx, incoming)
	if err != nil {
		return uuid.Nil, nil, errors.Wrap(err, "match "+agency.Name)
	}

	if existing == nil {
		incoming.StampNew(SourceFederalRegister)
		if _, err := s.repo.Save(ctx, incoming); err != nil {
			return uuid.Nil, nil, errors.Wrap(err, "create "+agency.Name)
		}
		result.Added++
		s.publisher.Publish(organization.CreatedEvent{Result: incoming, Source: SourceFederalRegister})
		return incoming.ID(), nil, nil
	}

	// The conflict snapshots the records as they disagreed, so it has to be
	// taken before Merge mutates the existing one.
	conflict := NewConflict(existing, incoming, SourceFederalRegister, DiffFields(existing, incoming))
	outcome := Merge(existing, incoming, SourceFederalRegister)

	if _, err := s.repo.Save(ctx, existing); err != nil {
		return uuid.Nil, nil, errors.Wrap(err, "update "+agency.Name)
	}

	if outcome.Changed {
		result.Updated++
		s.publisher.Publish(organization.UpdatedEvent{
			Result:          existing,
			Source:          SourceFederalRegister,
			DifferingFields: outcome.DifferingFields,
		})
	} else {
		result.Skipped++
	}

	return existing.ID(), conflict, nil
}
