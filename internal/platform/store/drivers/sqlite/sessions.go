package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/crewbase/crewbase/internal/platform/domain"
)

type sessionsRepo struct {
	db dbtx
}

const sessionColumns = `id, user_id, token_hash, expires_at, rotated_at, revoked_at, created_at, updated_at`

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.RefreshSession) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (id, user_id, token_hash, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.TokenHash, s.ExpiresAt.UTC(), now, now,
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) FillSessionTokenHash(
	ctx context.Context,
	id, userID, tokenHash string,
	expiresAt time.Time,
) error {
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE refresh_sessions
		SET token_hash = ?, expires_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND revoked_at IS NULL`,
		tokenHash, expiresAt.UTC(), time.Now().UTC(), id, userID,
	))
}

func (r *sessionsRepo) GetUsableSession(
	ctx context.Context,
	id, userID string,
	now time.Time,
) (domain.RefreshSession, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM refresh_sessions
		WHERE id = ? AND user_id = ? AND revoked_at IS NULL AND expires_at > ?`,
		id, userID, now.UTC(),
	)
	return scanSession(row)
}

// RotateSession is the single conditional statement the rotation protocol
// depends on: of two concurrent refreshes only one can see revoked_at IS
// NULL together with the old row version, commit, and win.
func (r *sessionsRepo) RotateSession(
	ctx context.Context,
	id, userID, tokenHash string,
	expiresAt, rotatedAt time.Time,
) error {
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE refresh_sessions
		SET token_hash = ?, expires_at = ?, rotated_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND revoked_at IS NULL`,
		tokenHash, expiresAt.UTC(), rotatedAt.UTC(), time.Now().UTC(), id, userID,
	))
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, id, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_sessions SET revoked_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND revoked_at IS NULL`,
		at.UTC(), time.Now().UTC(), id, userID,
	)
	return err
}

func (r *sessionsRepo) RevokeAllUserSessions(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_sessions SET revoked_at = ?, updated_at = ?
		WHERE user_id = ? AND revoked_at IS NULL`,
		at.UTC(), time.Now().UTC(), userID,
	)
	return err
}

func (r *sessionsRepo) DeleteDefunctSessions(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM refresh_sessions
		WHERE revoked_at < ? OR expires_at < ?`,
		cutoff.UTC(), cutoff.UTC(),
	)
	return err
}

func scanSession(row rowScanner) (domain.RefreshSession, error) {
	var s domain.RefreshSession
	var rotatedAt, revokedAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt,
		&rotatedAt, &revokedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.RefreshSession{}, mapNotFound(err)
	}
	s.RotatedAt = mapNullTimePtr(rotatedAt)
	s.RevokedAt = mapNullTimePtr(revokedAt)
	return s, nil
}
