package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crewbase/crewbase/internal/platform/domain"
	"github.com/crewbase/crewbase/internal/platform/store"
	"github.com/crewbase/crewbase/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())

	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s *Store, email string) domain.User {
	t.Helper()

	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		PlatformRole: domain.PlatformRoleUser,
		Active:       true,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func seedTenant(t *testing.T, s *Store, slug string) domain.Tenant {
	t.Helper()

	tn := domain.Tenant{
		ID:   idx.New().String(),
		Slug: slug,
		Name: "Test Tenant",
	}
	require.NoError(t, s.Tenants().CreateTenant(context.Background(), tn))
	return tn
}

func TestUsersUniqueEmail(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "dup@example.com")

	again := u
	again.ID = idx.New().String()
	err := s.Users().CreateUser(ctx, again)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := s.Users().GetUserByEmail(ctx, "dup@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}

func TestArchivedTenantIsInvisible(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	tn := seedTenant(t, s, "acme")

	got, err := s.Tenants().GetLiveTenantBySlug(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, tn.ID, got.ID)

	require.NoError(t, s.Tenants().ArchiveTenant(ctx, tn.ID))

	_, err = s.Tenants().GetLiveTenantBySlug(ctx, "acme")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Tenants().GetLiveTenantByID(ctx, tn.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Archiving twice behaves like archiving something absent.
	require.ErrorIs(t, s.Tenants().ArchiveTenant(ctx, tn.ID), store.ErrNotFound)
}

func TestSessionRotationIsConditional(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "rotate@example.com")

	now := time.Now().UTC()
	sess := domain.RefreshSession{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: "hash-1",
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, s.Sessions().CreateSession(ctx, sess))

	err := s.Sessions().RotateSession(ctx, sess.ID, u.ID, "hash-2", now.Add(2*time.Hour), now)
	require.NoError(t, err)

	got, err := s.Sessions().GetUsableSession(ctx, sess.ID, u.ID, now)
	require.NoError(t, err)
	require.Equal(t, "hash-2", got.TokenHash)
	require.NotNil(t, got.RotatedAt)

	// Once revoked, the conditional update no longer matches.
	require.NoError(t, s.Sessions().RevokeSession(ctx, sess.ID, u.ID, now))
	err = s.Sessions().RotateSession(ctx, sess.ID, u.ID, "hash-3", now.Add(3*time.Hour), now)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Sessions().GetUsableSession(ctx, sess.ID, u.ID, now)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRevokeAllUserSessions(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "wide@example.com")

	now := time.Now().UTC()
	ids := make([]string, 3)
	for i := range ids {
		ids[i] = idx.New().String()
		require.NoError(t, s.Sessions().CreateSession(ctx, domain.RefreshSession{
			ID:        ids[i],
			UserID:    u.ID,
			TokenHash: "h-" + ids[i],
			ExpiresAt: now.Add(time.Hour),
		}))
	}

	require.NoError(t, s.Sessions().RevokeAllUserSessions(ctx, u.ID, now))

	for _, id := range ids {
		_, err := s.Sessions().GetUsableSession(ctx, id, u.ID, now)
		require.ErrorIs(t, err, store.ErrNotFound)
	}
}

func TestDeleteDefunctSessions(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "sweep@example.com")

	now := time.Now().UTC()
	dead := domain.RefreshSession{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: "dead",
		ExpiresAt: now.Add(-48 * time.Hour),
	}
	live := domain.RefreshSession{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: "live",
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, s.Sessions().CreateSession(ctx, dead))
	require.NoError(t, s.Sessions().CreateSession(ctx, live))

	require.NoError(t, s.Sessions().DeleteDefunctSessions(ctx, now.Add(-24*time.Hour)))

	_, err := s.Sessions().GetUsableSession(ctx, live.ID, u.ID, now)
	require.NoError(t, err)

	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM refresh_sessions WHERE id = ?`, dead.ID).Scan(&count)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestMembershipUpsertKeepsOneRow(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "member@example.com")
	tn := seedTenant(t, s, "upsert")

	m := domain.Membership{
		TenantID: tn.ID,
		UserID:   u.ID,
		Role:     domain.TenantRoleMember,
		Status:   domain.MembershipStatusActive,
	}
	require.NoError(t, s.Memberships().UpsertMembership(ctx, m))

	m.Role = domain.TenantRoleAdmin
	require.NoError(t, s.Memberships().UpsertMembership(ctx, m))

	got, err := s.Memberships().GetActiveMembership(ctx, tn.ID, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TenantRoleAdmin, got.Role)

	n, err := s.Memberships().CountActiveMemberships(ctx, tn.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestMembershipStatusGatesActiveLookup(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "removed@example.com")
	tn := seedTenant(t, s, "gates")

	require.NoError(t, s.Memberships().UpsertMembership(ctx, domain.Membership{
		TenantID: tn.ID,
		UserID:   u.ID,
		Role:     domain.TenantRoleAdmin,
		Status:   domain.MembershipStatusActive,
	}))

	n, err := s.Memberships().CountActiveAdmins(ctx, tn.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, s.Memberships().SetMembershipStatus(ctx, tn.ID, u.ID, domain.MembershipStatusRemoved))

	_, err = s.Memberships().GetActiveMembership(ctx, tn.ID, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	// The row survives removal for the audit trail.
	got, err := s.Memberships().GetMembership(ctx, tn.ID, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MembershipStatusRemoved, got.Status)

	n, err = s.Memberships().CountActiveAdmins(ctx, tn.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestPendingInviteUniquePerEmail(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "inviter@example.com")
	tn := seedTenant(t, s, "invites")

	inv := domain.Invite{
		ID:        idx.New().String(),
		TenantID:  tn.ID,
		Email:     "invitee@example.com",
		Role:      domain.TenantRoleMember,
		TokenHash: "fp-1",
		Status:    domain.InviteStatusPending,
		ExpiresAt: time.Now().Add(time.Hour),
		InvitedBy: u.ID,
	}
	require.NoError(t, s.Invites().CreateInvite(ctx, inv))

	dup := inv
	dup.ID = idx.New().String()
	dup.TokenHash = "fp-2"
	require.ErrorIs(t, s.Invites().CreateInvite(ctx, dup), store.ErrAlreadyExists)

	// A terminal invite frees the (tenant, email) slot for a fresh one.
	require.NoError(t, s.Invites().TransitionInvite(ctx, tn.ID, inv.ID, domain.InviteStatusRevoked, nil))
	require.NoError(t, s.Invites().CreateInvite(ctx, dup))
}

func TestInviteTransitionOnlyLeavesPending(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "transit@example.com")
	tn := seedTenant(t, s, "transitions")

	inv := domain.Invite{
		ID:        idx.New().String(),
		TenantID:  tn.ID,
		Email:     "t@example.com",
		Role:      domain.TenantRoleMember,
		TokenHash: "fp-t",
		Status:    domain.InviteStatusPending,
		ExpiresAt: time.Now().Add(time.Hour),
		InvitedBy: u.ID,
	}
	require.NoError(t, s.Invites().CreateInvite(ctx, inv))

	accepter := u.ID
	require.NoError(t, s.Invites().TransitionInvite(ctx, tn.ID, inv.ID, domain.InviteStatusAccepted, &accepter))

	got, err := s.Invites().GetInviteByID(ctx, tn.ID, inv.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InviteStatusAccepted, got.Status)
	require.NotNil(t, got.AcceptedBy)
	require.Equal(t, u.ID, *got.AcceptedBy)

	// Terminal invites cannot transition again.
	err = s.Invites().TransitionInvite(ctx, tn.ID, inv.ID, domain.InviteStatusRevoked, nil)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Lookups are tenant scoped.
	_, err = s.Invites().GetInviteByID(ctx, "other-tenant", inv.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestExpirePendingInvites(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "expire@example.com")
	tn := seedTenant(t, s, "expiry")

	now := time.Now().UTC()
	stale := domain.Invite{
		ID:        idx.New().String(),
		TenantID:  tn.ID,
		Email:     "stale@example.com",
		Role:      domain.TenantRoleMember,
		TokenHash: "fp-stale",
		Status:    domain.InviteStatusPending,
		ExpiresAt: now.Add(-time.Minute),
		InvitedBy: u.ID,
	}
	fresh := domain.Invite{
		ID:        idx.New().String(),
		TenantID:  tn.ID,
		Email:     "fresh@example.com",
		Role:      domain.TenantRoleMember,
		TokenHash: "fp-fresh",
		Status:    domain.InviteStatusPending,
		ExpiresAt: now.Add(time.Hour),
		InvitedBy: u.ID,
	}
	require.NoError(t, s.Invites().CreateInvite(ctx, stale))
	require.NoError(t, s.Invites().CreateInvite(ctx, fresh))

	require.NoError(t, s.Invites().ExpirePendingInvites(ctx, tn.ID, now))

	got, err := s.Invites().GetInviteByID(ctx, tn.ID, stale.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InviteStatusExpired, got.Status)

	got, err = s.Invites().GetInviteByID(ctx, tn.ID, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InviteStatusPending, got.Status)
}

func TestListInvitesFilter(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "lister@example.com")
	tn := seedTenant(t, s, "listing")

	for i, email := range []string{"a@example.com", "b@example.com"} {
		require.NoError(t, s.Invites().CreateInvite(ctx, domain.Invite{
			ID:        idx.New().String(),
			TenantID:  tn.ID,
			Email:     email,
			Role:      domain.TenantRoleMember,
			TokenHash: "fp-" + email,
			Status:    domain.InviteStatusPending,
			ExpiresAt: time.Now().Add(time.Duration(i+1) * time.Hour),
			InvitedBy: u.ID,
		}))
	}

	all, err := s.Invites().ListInvites(ctx, tn.ID, store.InviteFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	one, err := s.Invites().ListInvites(ctx, tn.ID, store.InviteFilter{Email: "a@example.com"})
	require.NoError(t, err)
	require.Len(t, one, 1)
	require.Equal(t, "a@example.com", one[0].Email)

	none, err := s.Invites().ListInvites(ctx, tn.ID, store.InviteFilter{Status: domain.InviteStatusAccepted})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	tn := seedTenant(t, s, "txn")

	boom := context.Canceled
	err := s.WithTx(ctx, func(tx store.Tx) error {
		u := domain.User{
			ID:           idx.New().String(),
			Email:        "tx@example.com",
			Name:         "Tx User",
			PasswordHash: "x",
			PlatformRole: domain.PlatformRoleUser,
			Active:       true,
		}
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		if err := tx.Memberships().UpsertMembership(ctx, domain.Membership{
			TenantID: tn.ID,
			UserID:   u.ID,
			Role:     domain.TenantRoleMember,
			Status:   domain.MembershipStatusActive,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Users().GetUserByEmail(ctx, "tx@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	n, err := s.Memberships().CountActiveMemberships(ctx, tn.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}
