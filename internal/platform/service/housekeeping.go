package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/crewbase/crewbase/internal/platform/metrics"
	"github.com/crewbase/crewbase/internal/platform/store"
)

// HousekeepingService periodically expires stale pending invites and
// deletes refresh sessions that have been dead long enough that nothing can
// reference them anymore.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Interval time.Duration

	// SessionRetention is how long revoked or expired sessions are kept
	// before physical deletion. Keeping them for a while preserves the
	// reuse-detection window across restarts.
	SessionRetention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewHousekeepingService(
	st store.Store,
	logger *slog.Logger,
	m *metrics.Metrics,
	interval, retention time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &HousekeepingService{
		Store:            st,
		Logger:           logger,
		Metrics:          m,
		Interval:         interval,
		SessionRetention: retention,
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to shut
// down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", slog.Duration("interval", s.Interval))
}

// Stop shuts the worker down and waits for any in-progress sweep.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one housekeeping pass. Each step is independent; a failure in
// one does not stop the others.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	if err := s.Store.Invites().ExpirePendingInvites(ctx, "", now); err != nil {
		s.Logger.Error("failed to expire pending invites", slog.Any("error", err))
	}

	cutoff := now.Add(-s.SessionRetention)
	if err := s.Store.Sessions().DeleteDefunctSessions(ctx, cutoff); err != nil {
		s.Logger.Error("failed to delete defunct sessions", slog.Any("error", err))
	}

	s.Metrics.HousekeepingRuns.Inc()
	s.Logger.Debug("housekeeping sweep completed")
}
