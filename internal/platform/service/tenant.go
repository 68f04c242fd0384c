package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/crewbase/crewbase/internal/platform/audit"
	"github.com/crewbase/crewbase/internal/platform/domain"
	"github.com/crewbase/crewbase/internal/platform/store"
	"github.com/crewbase/crewbase/pkg/idx"
	"github.com/crewbase/crewbase/pkg/slogx"
)

var (
	// ErrTenantNotFound covers absent, archived and soft-deleted tenants
	// alike. Callers must not be able to tell which.
	ErrTenantNotFound = errors.New("tenant not found")

	ErrInvalidSlug = errors.New("invalid tenant slug")
	ErrSlugTaken   = errors.New("tenant slug already taken")
	ErrTenantInUse = errors.New("tenant has active dependencies")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// DependencyCounter reports how many external resources (projects, billing
// records, whatever the wider platform hangs off a tenant) still reference
// it. Archiving is refused while the count is nonzero.
type DependencyCounter interface {
	CountTenantDependencies(ctx context.Context, tenantID string) (int, error)
}

type TenantService struct {
	Store store.Store
	Audit audit.Sink

	// Dependencies is optional; nil means archiving is never blocked.
	Dependencies DependencyCounter
}

// Create provisions a tenant and makes the creator its first admin, in one
// transaction so a tenant can never exist without an admin.
func (s *TenantService) Create(ctx context.Context, slug, name, creatorID string) (domain.Tenant, error) {
	log := slogx.FromContext(ctx)

	slug = NormalizeSlug(slug)
	if !slugPattern.MatchString(slug) {
		return domain.Tenant{}, ErrInvalidSlug
	}

	tenant := domain.Tenant{
		ID:   idx.New().String(),
		Slug: slug,
		Name: strings.TrimSpace(name),
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Tenants().CreateTenant(ctx, tenant); err != nil {
			return err
		}
		return tx.Memberships().UpsertMembership(ctx, domain.Membership{
			TenantID: tenant.ID,
			UserID:   creatorID,
			Role:     domain.TenantRoleAdmin,
			Status:   domain.MembershipStatusActive,
		})
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Tenant{}, ErrSlugTaken
		}
		log.Error("failed to create tenant", slog.Any("error", err))
		return domain.Tenant{}, err
	}

	s.Audit.Emit(audit.Event{
		Name:     audit.EventTenantCreated,
		At:       time.Now().UTC(),
		ActorID:  creatorID,
		TenantID: tenant.ID,
		Subject:  tenant.Slug,
	})
	log.Info("tenant created", slog.String("tenant_id", tenant.ID), slog.String("slug", slug))

	return tenant, nil
}

// ResolveSlug maps a request's tenant slug to a live tenant. Archived and
// deleted tenants produce the same ErrTenantNotFound as a slug that never
// existed.
func (s *TenantService) ResolveSlug(ctx context.Context, slug string) (domain.Tenant, error) {
	tenant, err := s.Store.Tenants().GetLiveTenantBySlug(ctx, NormalizeSlug(slug))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Tenant{}, ErrTenantNotFound
		}
		return domain.Tenant{}, err
	}
	return tenant, nil
}

// Archive retires a tenant. From this point every resolver lookup answers
// as if the tenant never existed; memberships and invites stay behind for
// the audit trail.
func (s *TenantService) Archive(ctx context.Context, tenantID, actorID string) error {
	log := slogx.FromContext(ctx)

	// Archived and missing tenants answer identically before any
	// dependency counting happens.
	if _, err := s.Store.Tenants().GetLiveTenantByID(ctx, tenantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTenantNotFound
		}
		return err
	}

	if s.Dependencies != nil {
		n, err := s.Dependencies.CountTenantDependencies(ctx, tenantID)
		if err != nil {
			log.Error("failed to count tenant dependencies", slog.Any("error", err))
			return err
		}
		if n > 0 {
			return ErrTenantInUse
		}
	}

	if err := s.Store.Tenants().ArchiveTenant(ctx, tenantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTenantNotFound
		}
		return err
	}

	s.Audit.Emit(audit.Event{
		Name:     audit.EventTenantArchived,
		At:       time.Now().UTC(),
		ActorID:  actorID,
		TenantID: tenantID,
	})
	log.Info("tenant archived", slog.String("tenant_id", tenantID))

	return nil
}

// NormalizeSlug lowercases and trims a slug before matching or storing.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
