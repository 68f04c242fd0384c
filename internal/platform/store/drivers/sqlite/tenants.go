package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/crewbase/crewbase/internal/platform/domain"
)

type tenantsRepo struct {
	db dbtx
}

const tenantColumns = `id, slug, name, archived, deleted_at, created_at, updated_at`

// liveTenant restricts every lookup to tenants that behave as existing.
// Archived and soft-deleted rows fall out here so resolver queries cannot
// leak their presence.
const liveTenant = `archived = 0 AND deleted_at IS NULL`

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (id, slug, name, archived, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)`,
		t.ID, t.Slug, t.Name, now, now,
	)
	return mapConstraint(err)
}

func (r *tenantsRepo) GetLiveTenantBySlug(ctx context.Context, slug string) (domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE slug = ? AND `+liveTenant, slug)
	return scanTenant(row)
}

func (r *tenantsRepo) GetLiveTenantByID(ctx context.Context, id string) (domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ? AND `+liveTenant, id)
	return scanTenant(row)
}

func (r *tenantsRepo) ArchiveTenant(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE tenants SET archived = 1, updated_at = ?
		WHERE id = ? AND `+liveTenant,
		time.Now().UTC(), id,
	))
}

func scanTenant(row rowScanner) (domain.Tenant, error) {
	var t domain.Tenant
	var deletedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.Slug, &t.Name, &t.Archived, &deletedAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	t.DeletedAt = mapNullTimePtr(deletedAt)
	return t, nil
}
