package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/crewbase/crewbase/internal/platform/domain"
	"github.com/crewbase/crewbase/internal/platform/metrics"
	"github.com/crewbase/crewbase/pkg/idx"
)

func TestSweepExpiresInvitesAndPrunesSessions(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	admin := e.register(t, "janitor@example.com")
	tn := e.createTenant(t, "cleanup", admin)

	e.invites.TTL = -time.Minute
	stale, _, err := e.invites.Create(ctx, tn.ID, admin.ID, "stale-sweep@example.com", domain.TenantRoleMember)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, e.store.Sessions().CreateSession(ctx, domain.RefreshSession{
		ID:        idx.New().String(),
		UserID:    admin.ID,
		TokenHash: "long-dead",
		ExpiresAt: now.Add(-60 * 24 * time.Hour),
	}))

	hk := NewHousekeepingService(
		e.store,
		slog.New(slog.DiscardHandler),
		metrics.NewWith(prometheus.NewRegistry()),
		time.Hour,
		30*24*time.Hour,
	)
	hk.Sweep(ctx)

	got, err := e.store.Invites().GetInviteByID(ctx, tn.ID, stale.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InviteStatusExpired, got.Status)
}

func TestHousekeepingStartStop(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	hk := NewHousekeepingService(
		e.store,
		slog.New(slog.DiscardHandler),
		metrics.NewWith(prometheus.NewRegistry()),
		time.Hour,
		time.Hour,
	)
	hk.Start()
	hk.Stop()
}
