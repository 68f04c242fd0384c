package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/crewbase/crewbase/internal/platform/audit"
	"github.com/crewbase/crewbase/internal/platform/domain"
	"github.com/crewbase/crewbase/internal/platform/metrics"
	"github.com/crewbase/crewbase/internal/platform/store"
	"github.com/crewbase/crewbase/pkg/cryptox"
	"github.com/crewbase/crewbase/pkg/idx"
	"github.com/crewbase/crewbase/pkg/slogx"
)

// DefaultInviteTTL is how long an invite stays acceptable.
const DefaultInviteTTL = 168 * time.Hour

var (
	// ErrDuplicateInvite means a pending invite for that email already
	// exists in the tenant.
	ErrDuplicateInvite = errors.New("pending invite already exists")

	// ErrInvalidInvite covers unknown tokens, expired, revoked and
	// already-accepted invites, and email mismatches. One error for all so
	// the accept endpoint is not a probe.
	ErrInvalidInvite = errors.New("invite is not acceptable")

	ErrInviteNotPending = errors.New("invite is not pending")
)

type InviteService struct {
	Store   store.Store
	Audit   audit.Sink
	Metrics *metrics.Metrics

	// TTL defaults to DefaultInviteTTL when zero. Negative values are
	// honoured; the config layer rejects them before they get here.
	TTL time.Duration
}

func (s *InviteService) ttl() time.Duration {
	if s.TTL != 0 {
		return s.TTL
	}
	return DefaultInviteTTL
}

// Create mints an invite and returns it together with the raw token. The
// token is shown exactly once; only its fingerprint is stored.
//
// Stale pending invites are swept first so an invite that expired but was
// never touched since does not hold the (tenant, email) slot.
func (s *InviteService) Create(
	ctx context.Context,
	tenantID, actorID, email string,
	role domain.TenantRole,
) (domain.Invite, string, error) {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()

	email = NormalizeEmail(email)
	if !validEmail(email) {
		return domain.Invite{}, "", ErrInvalidEmail
	}
	if !role.Valid() {
		return domain.Invite{}, "", ErrInvalidTenantRole
	}

	if err := s.Store.Invites().ExpirePendingInvites(ctx, tenantID, now); err != nil {
		log.Error("failed to sweep expired invites", slog.Any("error", err))
		return domain.Invite{}, "", err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invite token", slog.Any("error", err))
		return domain.Invite{}, "", err
	}

	invite := domain.Invite{
		ID:        idx.New().String(),
		TenantID:  tenantID,
		Email:     email,
		Role:      role,
		TokenHash: cryptox.FingerprintToken(token),
		Status:    domain.InviteStatusPending,
		ExpiresAt: now.Add(s.ttl()),
		InvitedBy: actorID,
	}

	if err := s.Store.Invites().CreateInvite(ctx, invite); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Invite{}, "", ErrDuplicateInvite
		}
		log.Error("failed to create invite", slog.Any("error", err))
		return domain.Invite{}, "", err
	}

	s.Audit.Emit(audit.Event{
		Name:     audit.EventInviteCreated,
		At:       now,
		ActorID:  actorID,
		TenantID: tenantID,
		Subject:  invite.ID,
		Detail:   map[string]string{"email": email, "role": string(role)},
	})
	log.Info("invite created",
		slog.String("tenant_id", tenantID),
		slog.String("invite_id", invite.ID),
	)

	return invite, token, nil
}

// List returns the tenant's invites, sweeping stale pending rows to expired
// first so callers never see a pending invite that is past its expiry.
func (s *InviteService) List(ctx context.Context, tenantID string, f store.InviteFilter) ([]domain.Invite, error) {
	now := time.Now().UTC()
	if err := s.Store.Invites().ExpirePendingInvites(ctx, tenantID, now); err != nil {
		return nil, err
	}
	return s.Store.Invites().ListInvites(ctx, tenantID, f)
}

// Revoke cancels a pending invite. Terminal invites answer
// ErrInviteNotPending.
func (s *InviteService) Revoke(ctx context.Context, tenantID, inviteID, actorID string) error {
	err := s.Store.Invites().TransitionInvite(ctx, tenantID, inviteID, domain.InviteStatusRevoked, nil)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInviteNotPending
		}
		return err
	}

	s.Audit.Emit(audit.Event{
		Name:     audit.EventInviteRevoked,
		At:       time.Now().UTC(),
		ActorID:  actorID,
		TenantID: tenantID,
		Subject:  inviteID,
	})

	return nil
}

// Accept redeems an invite token for the authenticated user and
// materializes the membership, both in one transaction.
//
// Accepting is idempotent for the accepter: redeeming a token whose invite
// the same user already accepted reports success without touching state, so
// a retried request does not error.
func (s *InviteService) Accept(ctx context.Context, tenantID, rawToken string, user domain.User) error {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()
	hash := cryptox.FingerprintToken(rawToken)

	var accepted domain.Invite
	var replay bool

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		invite, err := tx.Invites().GetInviteByTokenHash(ctx, tenantID, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidInvite
			}
			return err
		}

		if invite.Status == domain.InviteStatusAccepted &&
			invite.AcceptedBy != nil && *invite.AcceptedBy == user.ID {
			accepted = invite
			replay = true
			return nil
		}
		if invite.Status != domain.InviteStatusPending {
			return ErrInvalidInvite
		}
		if invite.Email != NormalizeEmail(user.Email) {
			return ErrInvalidInvite
		}

		if now.After(invite.ExpiresAt) {
			if err := tx.Invites().TransitionInvite(ctx, tenantID, invite.ID, domain.InviteStatusExpired, nil); err != nil {
				return err
			}
			s.Audit.Emit(audit.Event{
				Name:     audit.EventInviteExpired,
				At:       now,
				TenantID: tenantID,
				Subject:  invite.ID,
			})
			return ErrInvalidInvite
		}

		accepter := user.ID
		if err := tx.Invites().TransitionInvite(ctx, tenantID, invite.ID, domain.InviteStatusAccepted, &accepter); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Lost a race against a concurrent accept or revoke.
				return ErrInvalidInvite
			}
			return err
		}

		if err := tx.Memberships().UpsertMembership(ctx, domain.Membership{
			TenantID: tenantID,
			UserID:   user.ID,
			Role:     invite.Role,
			Status:   domain.MembershipStatusActive,
		}); err != nil {
			return err
		}

		accepted = invite
		return nil
	})
	if err != nil {
		return err
	}
	if replay {
		return nil
	}

	s.Metrics.InvitesAccepted.Inc()
	s.Audit.Emit(audit.Event{
		Name:     audit.EventInviteAccepted,
		At:       now,
		ActorID:  user.ID,
		TenantID: tenantID,
		Subject:  accepted.ID,
	})
	log.Info("invite accepted",
		slog.String("tenant_id", tenantID),
		slog.String("invite_id", accepted.ID),
		slog.String("user_id", user.ID),
	)

	return nil
}
