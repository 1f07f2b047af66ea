package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

// SyncScheduler triggers a sync run on a fixed interval. A run that is still
// active when the ticker fires is left alone.
type SyncScheduler struct {
	service  *SyncService
	interval time.Duration
	log      *logrus.Logger
}

func NewSyncScheduler(service *SyncService, interval time.Duration, log *logrus.Logger) *SyncScheduler {
	return &SyncScheduler{service: service, interval: interval, log: log}
}

// Run blocks until the context is cancelled.
func (s *SyncScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.interval.String()).Info("sync scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sync scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.service.Sync(ctx); err != nil {
				if errors.Is(err, ErrSyncInProgress) {
					s.log.Info("scheduled sync skipped: run already in progress")
					continue
				}
				s.log.WithError(err).Error("scheduled sync failed")
			}
		}
	}
}
