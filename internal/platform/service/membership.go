package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/crewbase/crewbase/internal/platform/audit"
	"github.com/crewbase/crewbase/internal/platform/domain"
	"github.com/crewbase/crewbase/internal/platform/store"
	"github.com/crewbase/crewbase/pkg/slogx"
)

var (
	// ErrForbidden means the caller has no active membership in the tenant
	// or lacks the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrLastAdmin means the operation would leave the tenant without an
	// active admin and was refused.
	ErrLastAdmin = errors.New("cannot remove the last admin")

	ErrInvalidTenantRole = errors.New("invalid tenant role")
	ErrMemberNotFound    = errors.New("member not found")
)

// Member pairs a membership with the safe projection of its user for
// listing.
type Member struct {
	User      domain.PublicUser       `json:"user"`
	Role      domain.TenantRole       `json:"role"`
	Status    domain.MembershipStatus `json:"status"`
	JoinedAt  time.Time               `json:"joined_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

type MembershipService struct {
	Store store.Store
	Audit audit.Sink
}

// Require returns the caller's active membership in the tenant, or
// ErrForbidden. Authorization is always read live from storage; access
// tokens carry no roles, so a removal or demotion takes effect on the very
// next request.
func (s *MembershipService) Require(ctx context.Context, tenantID, userID string) (domain.Membership, error) {
	m, err := s.Store.Memberships().GetActiveMembership(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Membership{}, ErrForbidden
		}
		return domain.Membership{}, err
	}
	return m, nil
}

// RequireAdmin is Require plus a tenantAdmin role check.
func (s *MembershipService) RequireAdmin(ctx context.Context, tenantID, userID string) (domain.Membership, error) {
	m, err := s.Require(ctx, tenantID, userID)
	if err != nil {
		return domain.Membership{}, err
	}
	if m.Role != domain.TenantRoleAdmin {
		return domain.Membership{}, ErrForbidden
	}
	return m, nil
}

// SetRole assigns or changes a member's role. Demoting the last active
// admin is refused; the admin count and the demotion commit in the same
// transaction so two concurrent demotions cannot both slip past the guard.
func (s *MembershipService) SetRole(
	ctx context.Context,
	tenantID, userID string,
	role domain.TenantRole,
	actorID string,
) error {
	log := slogx.FromContext(ctx)

	if !role.Valid() {
		return ErrInvalidTenantRole
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.Memberships().GetMembership(ctx, tenantID, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrMemberNotFound
			}
			return err
		}

		demotingAdmin := current.Role == domain.TenantRoleAdmin &&
			current.Status == domain.MembershipStatusActive &&
			role != domain.TenantRoleAdmin
		if demotingAdmin {
			admins, err := tx.Memberships().CountActiveAdmins(ctx, tenantID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		current.Role = role
		return tx.Memberships().UpsertMembership(ctx, current)
	})
	if err != nil {
		return err
	}

	s.Audit.Emit(audit.Event{
		Name:     audit.EventMemberRoleChanged,
		At:       time.Now().UTC(),
		ActorID:  actorID,
		TenantID: tenantID,
		Subject:  userID,
		Detail:   map[string]string{"role": string(role)},
	})
	log.Info("member role changed",
		slog.String("tenant_id", tenantID),
		slog.String("user_id", userID),
		slog.String("role", string(role)),
	)

	return nil
}

// Remove soft-deletes a membership. The row survives with status removed so
// history stays reconstructable. Removing the last active admin is refused
// under the same transactional guard as SetRole.
func (s *MembershipService) Remove(ctx context.Context, tenantID, userID, actorID string) error {
	log := slogx.FromContext(ctx)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.Memberships().GetMembership(ctx, tenantID, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrMemberNotFound
			}
			return err
		}
		if current.Status == domain.MembershipStatusRemoved {
			// Already removed; idempotent.
			return nil
		}

		if current.Role == domain.TenantRoleAdmin && current.Status == domain.MembershipStatusActive {
			admins, err := tx.Memberships().CountActiveAdmins(ctx, tenantID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		return tx.Memberships().SetMembershipStatus(ctx, tenantID, userID, domain.MembershipStatusRemoved)
	})
	if err != nil {
		return err
	}

	s.Audit.Emit(audit.Event{
		Name:     audit.EventMemberRemoved,
		At:       time.Now().UTC(),
		ActorID:  actorID,
		TenantID: tenantID,
		Subject:  userID,
	})
	log.Info("member removed",
		slog.String("tenant_id", tenantID),
		slog.String("user_id", userID),
	)

	return nil
}

// Restore re-activates a removed membership with its previous role.
func (s *MembershipService) Restore(ctx context.Context, tenantID, userID, actorID string) error {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.Memberships().GetMembership(ctx, tenantID, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrMemberNotFound
			}
			return err
		}
		if current.Status == domain.MembershipStatusActive {
			return nil
		}
		return tx.Memberships().SetMembershipStatus(ctx, tenantID, userID, domain.MembershipStatusActive)
	})
	if err != nil {
		return err
	}

	s.Audit.Emit(audit.Event{
		Name:     audit.EventMemberRestored,
		At:       time.Now().UTC(),
		ActorID:  actorID,
		TenantID: tenantID,
		Subject:  userID,
	})

	return nil
}

// List returns every membership row of the tenant joined with its user,
// including removed members.
func (s *MembershipService) List(ctx context.Context, tenantID string) ([]Member, error) {
	memberships, err := s.Store.Memberships().ListMemberships(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out := make([]Member, 0, len(memberships))
	for _, m := range memberships {
		user, err := s.Store.Users().GetUserByID(ctx, m.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, Member{
			User:      user.Public(),
			Role:      m.Role,
			Status:    m.Status,
			JoinedAt:  m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		})
	}
	return out, nil
}
