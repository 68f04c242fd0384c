package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crewbase/crewbase/internal/platform/domain"
)

func TestRequireChecksLiveState(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	admin := e.register(t, "admin@example.com")
	outsider := e.register(t, "outsider@example.com")
	tn := e.createTenant(t, "require", admin)

	_, err := e.members.Require(ctx, tn.ID, outsider.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = e.members.Require(ctx, tn.ID, admin.ID)
	require.NoError(t, err)

	_, err = e.members.RequireAdmin(ctx, tn.ID, admin.ID)
	require.NoError(t, err)
}

func TestRemovalTakesEffectImmediately(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	admin := e.register(t, "boss@example.com")
	member := e.register(t, "worker@example.com")
	tn := e.createTenant(t, "immediate", admin)

	require.NoError(t, e.store.Memberships().UpsertMembership(ctx, domain.Membership{
		TenantID: tn.ID,
		UserID:   member.ID,
		Role:     domain.TenantRoleMember,
		Status:   domain.MembershipStatusActive,
	}))

	_, err := e.members.Require(ctx, tn.ID, member.ID)
	require.NoError(t, err)

	require.NoError(t, e.members.Remove(ctx, tn.ID, member.ID, admin.ID))

	// No token expiry involved: the very next check fails.
	_, err = e.members.Require(ctx, tn.ID, member.ID)
	require.ErrorIs(t, err, ErrForbidden)

	// Removal is idempotent.
	require.NoError(t, e.members.Remove(ctx, tn.ID, member.ID, admin.ID))
}

func TestLastAdminCannotBeDemotedOrRemoved(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	admin := e.register(t, "solo@example.com")
	tn := e.createTenant(t, "lastadmin", admin)

	err := e.members.SetRole(ctx, tn.ID, admin.ID, domain.TenantRoleMember, admin.ID)
	require.ErrorIs(t, err, ErrLastAdmin)

	err = e.members.Remove(ctx, tn.ID, admin.ID, admin.ID)
	require.ErrorIs(t, err, ErrLastAdmin)

	// With a second admin in place both operations go through.
	second := e.register(t, "second@example.com")
	require.NoError(t, e.store.Memberships().UpsertMembership(ctx, domain.Membership{
		TenantID: tn.ID,
		UserID:   second.ID,
		Role:     domain.TenantRoleAdmin,
		Status:   domain.MembershipStatusActive,
	}))

	require.NoError(t, e.members.SetRole(ctx, tn.ID, admin.ID, domain.TenantRoleMember, admin.ID))

	// Now second is the sole admin and inherits the guard.
	err = e.members.Remove(ctx, tn.ID, second.ID, second.ID)
	require.ErrorIs(t, err, ErrLastAdmin)
}

func TestSetRoleValidatesInput(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	admin := e.register(t, "roles@example.com")
	tn := e.createTenant(t, "roles", admin)

	err := e.members.SetRole(ctx, tn.ID, admin.ID, domain.TenantRole("owner"), admin.ID)
	require.ErrorIs(t, err, ErrInvalidTenantRole)

	err = e.members.SetRole(ctx, tn.ID, "no-such-user", domain.TenantRoleMember, admin.ID)
	require.ErrorIs(t, err, ErrMemberNotFound)
}

func TestRestoreReactivatesWithPreviousRole(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	admin := e.register(t, "restorer@example.com")
	member := e.register(t, "restored@example.com")
	tn := e.createTenant(t, "restore", admin)

	require.NoError(t, e.store.Memberships().UpsertMembership(ctx, domain.Membership{
		TenantID: tn.ID,
		UserID:   member.ID,
		Role:     domain.TenantRoleMember,
		Status:   domain.MembershipStatusActive,
	}))
	require.NoError(t, e.members.Remove(ctx, tn.ID, member.ID, admin.ID))
	require.NoError(t, e.members.Restore(ctx, tn.ID, member.ID, admin.ID))

	m, err := e.members.Require(ctx, tn.ID, member.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TenantRoleMember, m.Role)
}

func TestListIncludesRemovedMembers(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	admin := e.register(t, "lister2@example.com")
	member := e.register(t, "listed@example.com")
	tn := e.createTenant(t, "memberlist", admin)

	require.NoError(t, e.store.Memberships().UpsertMembership(ctx, domain.Membership{
		TenantID: tn.ID,
		UserID:   member.ID,
		Role:     domain.TenantRoleMember,
		Status:   domain.MembershipStatusActive,
	}))
	require.NoError(t, e.members.Remove(ctx, tn.ID, member.ID, admin.ID))

	list, err := e.members.List(ctx, tn.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := map[string]Member{}
	for _, m := range list {
		byID[m.User.ID] = m
	}
	require.Equal(t, domain.MembershipStatusActive, byID[admin.ID].Status)
	require.Equal(t, domain.MembershipStatusRemoved, byID[member.ID].Status)
}
