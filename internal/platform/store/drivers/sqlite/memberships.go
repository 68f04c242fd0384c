package sqlite

import (
	"context"
	"time"

	"github.com/crewbase/crewbase/internal/platform/domain"
)

type membershipsRepo struct {
	db dbtx
}

const membershipColumns = `tenant_id, user_id, role, status, created_at, updated_at`

// UpsertMembership leans on the (tenant_id, user_id) primary key: a second
// assignment for the same pair updates the existing row instead of racing an
// application-level existence check.
func (r *membershipsRepo) UpsertMembership(ctx context.Context, m domain.Membership) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memberships (tenant_id, user_id, role, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, user_id) DO UPDATE
		SET role = excluded.role, status = excluded.status, updated_at = excluded.updated_at`,
		m.TenantID, m.UserID, string(m.Role), string(m.Status), now, now,
	)
	return err
}

func (r *membershipsRepo) GetMembership(ctx context.Context, tenantID, userID string) (domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+membershipColumns+` FROM memberships
		WHERE tenant_id = ? AND user_id = ?`,
		tenantID, userID,
	)
	return scanMembership(row)
}

func (r *membershipsRepo) GetActiveMembership(ctx context.Context, tenantID, userID string) (domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+membershipColumns+` FROM memberships
		WHERE tenant_id = ? AND user_id = ? AND status = 'active'`,
		tenantID, userID,
	)
	return scanMembership(row)
}

func (r *membershipsRepo) SetMembershipStatus(
	ctx context.Context,
	tenantID, userID string,
	status domain.MembershipStatus,
) error {
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE memberships SET status = ?, updated_at = ?
		WHERE tenant_id = ? AND user_id = ?`,
		string(status), time.Now().UTC(), tenantID, userID,
	))
}

func (r *membershipsRepo) ListMemberships(ctx context.Context, tenantID string) ([]domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+membershipColumns+` FROM memberships
		WHERE tenant_id = ? ORDER BY created_at`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *membershipsRepo) CountActiveAdmins(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memberships
		WHERE tenant_id = ? AND role = 'tenantAdmin' AND status = 'active'`,
		tenantID,
	).Scan(&n)
	return n, err
}

func (r *membershipsRepo) CountActiveMemberships(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memberships
		WHERE tenant_id = ? AND status = 'active'`,
		tenantID,
	).Scan(&n)
	return n, err
}

func scanMembership(row rowScanner) (domain.Membership, error) {
	var m domain.Membership
	var role, status string
	err := row.Scan(&m.TenantID, &m.UserID, &role, &status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return domain.Membership{}, mapNotFound(err)
	}
	m.Role = domain.TenantRole(role)
	m.Status = domain.MembershipStatus(status)
	return m, nil
}
