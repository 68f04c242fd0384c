package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crewbase/crewbase/internal/platform/domain"
)

func TestRegisterNormalizesEmail(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	u, err := e.users.Register(ctx, "  MixedCase@Example.COM ", "Mixed", "long enough password")
	require.NoError(t, err)
	require.Equal(t, "mixedcase@example.com", u.Email)
	require.Equal(t, domain.PlatformRoleUser, u.PlatformRole)
	require.True(t, u.Active)
	require.NotEqual(t, "long enough password", u.PasswordHash)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users.Register(ctx, "not-an-email", "X", "long enough password")
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = e.users.Register(ctx, "short@example.com", "X", "short")
	require.ErrorIs(t, err, ErrInvalidPassword)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users.Register(ctx, "taken@example.com", "First", "long enough password")
	require.NoError(t, err)

	// Case differences do not dodge the uniqueness check.
	_, err = e.users.Register(ctx, "Taken@Example.com", "Second", "long enough password")
	require.ErrorIs(t, err, ErrEmailTaken)
}
