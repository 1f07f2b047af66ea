package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirupsen/logrus"

	"github.com/newsanalyzer/govkb/modules/govorg/infrastructure/federalregister"
	"github.com/newsanalyzer/govkb/pkg/eventbus"
)

type fakeSource struct {
	agencies  []federalregister.Agency
	fetchErr  error
	available bool

	mu      sync.Mutex
	fetches int
	block   chan struct{}
}

func (f *fakeSource) FetchAll(context.Context) ([]federalregister.Agency, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.agencies, nil
}

func (f *fakeSource) IsAvailable(context.Context) bool {
	return f.available
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestSyncService(repo *memRepo, source *fakeSource) *SyncService {
	logger := testLogger()
	return NewSyncService(repo, source, eventbus.NewEventPublisher(logger), logger)
}

func int64Ptr(v int64) *int64 { return &v }

func TestSyncService_CreatesAndLinksHierarchy(t *testing.T) {
	repo := newMemRepo()
	source := &fakeSource{
		available: true,
		agencies: []federalregister.Agency{
			// Child listed before its parent: only the second pass can
			// resolve the link.
			{
				ID:        int64Ptr(2),
				Name:      "Federal Bureau of Investigation",
				ShortName: "FBI",
				ParentID:  int64Ptr(1),
			},
			{
				ID:        int64Ptr(1),
				Name:      "Department of Justice",
				ShortName: "DOJ",
			},
		},
	}
	service := newTestSyncService(repo, source)

	result, err := service.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.LinkWarnings)

	child, err := repo.FindByAcronym(context.Background(), "FBI")
	require.NoError(t, err)
	parent, err := repo.FindByAcronym(context.Background(), "DOJ")
	require.NoError(t, err)

	require.NotNil(t, child.ParentID())
	assert.Equal(t, parent.ID(), *child.ParentID())
	assert.Equal(t, 2, child.OrgLevel())
	assert.Nil(t, parent.ParentID())
}

func TestSyncService_SecondIdenticalRunAddsNothing(t *testing.T) {
	repo := newMemRepo()
	source := &fakeSource{
		available: true,
		agencies: []federalregister.Agency{
			{ID: int64Ptr(1), Name: "Department of Justice", ShortName: "DOJ"},
			{ID: int64Ptr(2), Name: "Federal Bureau of Investigation", ShortName: "FBI", ParentID: int64Ptr(1)},
		},
	}
	service := newTestSyncService(repo, source)

	first, err := service.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Added)

	second, err := service.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 2, second.Skipped)
}

func TestSyncService_RejectsConcurrentRun(t *testing.T) {
	repo := newMemRepo()
	source := &fakeSource{
		available: true,
		block:     make(chan struct{}),
		agencies:  []federalregister.Agency{{ID: int64Ptr(1), Name: "Department of Justice"}},
	}
	service := newTestSyncService(repo, source)

	done := make(chan error, 1)
	go func() {
		_, err := service.Sync(context.Background())
		done <- err
	}()

	// Wait until the first run is inside FetchAll.
	for {
		source.mu.Lock()
		started := source.fetches > 0
		source.mu.Unlock()
		if started {
			break
		}
	}

	_, err := service.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(source.block)
	require.NoError(t, <-done)

	// The guard is released once the run finishes.
	_, err = service.Sync(context.Background())
	require.NoError(t, err)
}

func TestSyncService_SourceUnavailable(t *testing.T) {
	service := newTestSyncService(newMemRepo(), &fakeSource{available: false})

	_, err := service.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	status := service.Status(context.Background())
	assert.False(t, status.InProgress)
	assert.False(t, status.SourceAvailable)
	assert.Nil(t, status.LastSync)
}

func TestSyncService_MidRunOutageMapsToUnavailable(t *testing.T) {
	// The probe passes but the fetch itself exhausts its retries.
	source := &fakeSource{
		available: true,
		fetchErr:  fmt.Errorf("fetch agencies: %w", federalregister.ErrUnavailable),
	}
	service := newTestSyncService(newMemRepo(), source)

	_, err := service.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	// The guard is released after the failed run.
	source.fetchErr = nil
	_, err = service.Sync(context.Background())
	require.NoError(t, err)
}

func TestSyncService_PerRecordErrorsDoNotAbortTheBatch(t *testing.T) {
	repo := newMemRepo()
	source := &fakeSource{
		available: true,
		agencies: []federalregister.Agency{
			{ID: int64Ptr(1), Name: ""},
			{ID: int64Ptr(2), Name: "Department of Justice", ShortName: "DOJ"},
		},
	}
	service := newTestSyncService(repo, source)

	result, err := service.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Added)
	assert.Len(t, result.Errors, 1)
}

func TestSyncService_UnresolvableParentIsAWarning(t *testing.T) {
	repo := newMemRepo()
	source := &fakeSource{
		available: true,
		agencies: []federalregister.Agency{
			{ID: int64Ptr(2), Name: "Federal Bureau of Investigation", ShortName: "FBI", ParentID: int64Ptr(99)},
		},
	}
	service := newTestSyncService(repo, source)

	result, err := service.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.LinkWarnings, 1)

	child, err := repo.FindByAcronym(context.Background(), "FBI")
	require.NoError(t, err)
	assert.Nil(t, child.ParentID())
}

func TestSyncService_StatusReportsCounts(t *testing.T) {
	repo := newMemRepo()
	source := &fakeSource{
		available: true,
		agencies: []federalregister.Agency{
			{ID: int64Ptr(1), Name: "Department of Justice", ShortName: "DOJ"},
			{ID: int64Ptr(2), Name: "Department of State", ShortName: "DOS"},
		},
	}
	service := newTestSyncService(repo, source)

	_, err := service.Sync(context.Background())
	require.NoError(t, err)

	status := service.Status(context.Background())
	assert.Equal(t, int64(2), status.TotalRecords)
	assert.NotNil(t, status.LastSync)
	require.NotNil(t, status.LastResult)
	assert.Equal(t, 2, status.LastResult.Added)
	assert.True(t, status.SourceAvailable)
}
