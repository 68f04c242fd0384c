package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crewbase/crewbase/internal/platform/domain"
)

func TestCreateTenantMakesCreatorAdmin(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	u := e.register(t, "founder@example.com")

	tn := e.createTenant(t, "Acme", u)
	require.Equal(t, "acme", tn.Slug)

	m, err := e.members.RequireAdmin(ctx, tn.ID, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TenantRoleAdmin, m.Role)
}

func TestCreateTenantValidatesSlug(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	u := e.register(t, "slugs@example.com")

	for _, bad := range []string{"", "-leading", "trailing-", "has space", "UPPER CASE!", "a_b"} {
		_, err := e.tenants.Create(ctx, bad, "Bad", u.ID)
		require.ErrorIs(t, err, ErrInvalidSlug, "slug %q", bad)
	}

	_, err := e.tenants.Create(ctx, "good-slug-9", "Good", u.ID)
	require.NoError(t, err)

	_, err = e.tenants.Create(ctx, "good-slug-9", "Again", u.ID)
	require.ErrorIs(t, err, ErrSlugTaken)
}

func TestArchivedTenantIndistinguishableFromMissing(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	u := e.register(t, "opaque@example.com")
	tn := e.createTenant(t, "ghost", u)

	require.NoError(t, e.tenants.Archive(ctx, tn.ID, u.ID))

	_, errArchived := e.tenants.ResolveSlug(ctx, "ghost")
	_, errMissing := e.tenants.ResolveSlug(ctx, "never-existed")

	require.ErrorIs(t, errArchived, ErrTenantNotFound)
	require.ErrorIs(t, errMissing, ErrTenantNotFound)
	require.Equal(t, errMissing, errArchived)
}

type fixedCounter int

func (c fixedCounter) CountTenantDependencies(context.Context, string) (int, error) {
	return int(c), nil
}

func TestArchiveRefusedWhileDependenciesExist(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	u := e.register(t, "busy@example.com")
	tn := e.createTenant(t, "busy", u)

	e.tenants.Dependencies = fixedCounter(2)
	require.ErrorIs(t, e.tenants.Archive(ctx, tn.ID, u.ID), ErrTenantInUse)

	e.tenants.Dependencies = fixedCounter(0)
	require.NoError(t, e.tenants.Archive(ctx, tn.ID, u.ID))
}
