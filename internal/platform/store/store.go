package store

import (
	"context"
	"errors"
	"time"

	"github.com/crewbase/crewbase/internal/platform/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Tenants() Tenants
	Sessions() Sessions
	Memberships() Memberships
	Invites() Invites

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back when fn returns
	// an error and committing otherwise. This is the recommended way to run
	// multi-step operations that must be atomic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying connection pool.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks a user up by lowercased email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
}

type Tenants interface {
	// CreateTenant inserts a new tenant. Returns ErrAlreadyExists when the
	// slug is taken.
	CreateTenant(ctx context.Context, t domain.Tenant) error

	// GetLiveTenantBySlug returns a tenant by slug, excluding archived and
	// soft-deleted rows. Archived tenants answer ErrNotFound so resolver
	// callers cannot distinguish "inactive" from "absent".
	GetLiveTenantBySlug(ctx context.Context, slug string) (domain.Tenant, error)

	// GetLiveTenantByID is GetLiveTenantBySlug keyed by id.
	GetLiveTenantByID(ctx context.Context, id string) (domain.Tenant, error)

	// ArchiveTenant flips archived on a live tenant; ErrNotFound when the
	// tenant is already archived or absent.
	ArchiveTenant(ctx context.Context, id string) error
}

type Sessions interface {
	// CreateSession inserts a refresh session row. The token hash may be a
	// placeholder; the row is created first so the refresh token can embed
	// the session id, then filled via FillSessionTokenHash.
	CreateSession(ctx context.Context, s domain.RefreshSession) error

	// FillSessionTokenHash sets the token hash and expiry on a session that
	// has not been revoked. ErrNotFound when no such usable row exists.
	FillSessionTokenHash(ctx context.Context, id, userID, tokenHash string, expiresAt time.Time) error

	// GetUsableSession returns the session with the given id and owner only
	// if it is unrevoked and unexpired at now.
	GetUsableSession(ctx context.Context, id, userID string, now time.Time) (domain.RefreshSession, error)

	// RotateSession atomically overwrites token hash, expiry and rotated_at,
	// conditioned on the session being unrevoked. ErrNotFound means the
	// condition failed (e.g. a concurrent revocation won) and the caller
	// must treat the rotation as a reuse signal.
	RotateSession(ctx context.Context, id, userID, tokenHash string, expiresAt, rotatedAt time.Time) error

	// RevokeSession sets revoked_at on a single session. Idempotent.
	RevokeSession(ctx context.Context, id, userID string, at time.Time) error

	// RevokeAllUserSessions revokes every unrevoked session owned by the
	// user. Used for reuse-detection wide revocation.
	RevokeAllUserSessions(ctx context.Context, userID string, at time.Time) error

	// DeleteDefunctSessions is housekeeping: physically removes sessions
	// revoked or expired before the cutoff.
	DeleteDefunctSessions(ctx context.Context, cutoff time.Time) error
}

type Memberships interface {
	// UpsertMembership inserts or updates the one membership row per
	// (tenant, user), relying on the storage-level uniqueness constraint
	// rather than check-then-insert.
	UpsertMembership(ctx context.Context, m domain.Membership) error

	// GetMembership returns the membership row regardless of status.
	GetMembership(ctx context.Context, tenantID, userID string) (domain.Membership, error)

	// GetActiveMembership returns the membership only when status is
	// active. This is the single RBAC primitive.
	GetActiveMembership(ctx context.Context, tenantID, userID string) (domain.Membership, error)

	// SetMembershipStatus transitions status on an existing row.
	SetMembershipStatus(ctx context.Context, tenantID, userID string, status domain.MembershipStatus) error

	// ListMemberships returns all membership rows for a tenant.
	ListMemberships(ctx context.Context, tenantID string) ([]domain.Membership, error)

	// CountActiveAdmins counts active tenantAdmin memberships; the
	// last-admin guard is built on this inside a transaction.
	CountActiveAdmins(ctx context.Context, tenantID string) (int, error)

	// CountActiveMemberships counts active memberships of any role.
	CountActiveMemberships(ctx context.Context, tenantID string) (int, error)
}

// InviteFilter narrows ListInvites. Zero values mean "no filter".
type InviteFilter struct {
	Status domain.InviteStatus
	Email  string
	Limit  int
	Offset int
}

type Invites interface {
	// CreateInvite writes a new invite (token_hash is the fingerprint of
	// the opaque invite token). ErrAlreadyExists when a pending invite for
	// (tenant, email) exists, enforced by a partial unique index.
	CreateInvite(ctx context.Context, inv domain.Invite) error

	// GetInviteByID is tenant-scoped by construction.
	GetInviteByID(ctx context.Context, tenantID, id string) (domain.Invite, error)

	// GetInviteByTokenHash looks an invite up by (tenant, fingerprint).
	GetInviteByTokenHash(ctx context.Context, tenantID, hash string) (domain.Invite, error)

	// ListInvites returns invites for a tenant, newest first.
	ListInvites(ctx context.Context, tenantID string, f InviteFilter) ([]domain.Invite, error)

	// TransitionInvite moves a pending invite to a terminal status,
	// recording the accepter when given. ErrNotFound means the invite was
	// not pending (already terminal, or absent).
	TransitionInvite(ctx context.Context, tenantID, id string, to domain.InviteStatus, acceptedBy *string) error

	// ExpirePendingInvites lazily transitions pending invites past their
	// expiry to expired. Empty tenantID sweeps all tenants.
	ExpirePendingInvites(ctx context.Context, tenantID string, now time.Time) error
}
