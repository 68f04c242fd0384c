package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/crewbase/crewbase/internal/platform/domain"
	"github.com/crewbase/crewbase/internal/platform/store"
)

type invitesRepo struct {
	db dbtx
}

const inviteColumns = `id, tenant_id, email, role, token_hash, status, expires_at, invited_by, accepted_by, created_at, updated_at`

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invites (id, tenant_id, email, role, token_hash, status, expires_at, invited_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.TenantID, inv.Email, string(inv.Role), inv.TokenHash,
		string(inv.Status), inv.ExpiresAt.UTC(), inv.InvitedBy, now, now,
	)
	return mapConstraint(err)
}

func (r *invitesRepo) GetInviteByID(ctx context.Context, tenantID, id string) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+inviteColumns+` FROM invites
		WHERE tenant_id = ? AND id = ?`,
		tenantID, id,
	)
	return scanInvite(row)
}

func (r *invitesRepo) GetInviteByTokenHash(ctx context.Context, tenantID, hash string) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+inviteColumns+` FROM invites
		WHERE tenant_id = ? AND token_hash = ?`,
		tenantID, hash,
	)
	return scanInvite(row)
}

func (r *invitesRepo) ListInvites(
	ctx context.Context,
	tenantID string,
	f store.InviteFilter,
) ([]domain.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE tenant_id = ?`
	args := []any{tenantID}

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.Email != "" {
		query += ` AND email = ?`
		args = append(args, f.Email)
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// TransitionInvite only ever leaves 'pending', so terminal states cannot be
// re-entered regardless of caller bugs or concurrent revokes.
func (r *invitesRepo) TransitionInvite(
	ctx context.Context,
	tenantID, id string,
	to domain.InviteStatus,
	acceptedBy *string,
) error {
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE invites SET status = ?, accepted_by = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND status = 'pending'`,
		string(to), mapOptionalString(acceptedBy), time.Now().UTC(), tenantID, id,
	))
}

func (r *invitesRepo) ExpirePendingInvites(ctx context.Context, tenantID string, now time.Time) error {
	query := `UPDATE invites SET status = 'expired', updated_at = ?
		WHERE status = 'pending' AND expires_at <= ?`
	args := []any{time.Now().UTC(), now.UTC()}

	if tenantID != "" {
		query += ` AND tenant_id = ?`
		args = append(args, tenantID)
	}

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func scanInvite(row rowScanner) (domain.Invite, error) {
	var inv domain.Invite
	var role, status string
	var acceptedBy sql.NullString
	err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.Email, &role, &inv.TokenHash, &status,
		&inv.ExpiresAt, &inv.InvitedBy, &acceptedBy, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	inv.Role = domain.TenantRole(role)
	inv.Status = domain.InviteStatus(status)
	inv.AcceptedBy = mapNullStringPtr(acceptedBy)
	return inv, nil
}
