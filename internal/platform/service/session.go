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
	"github.com/crewbase/crewbase/pkg/jwtx"
	"github.com/crewbase/crewbase/pkg/slogx"
)

var (
	// ErrInvalidCredentials is returned for every login failure: unknown
	// email, wrong password, deactivated account. One error, one status
	// code, no oracle.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRefreshRejected is returned for every refresh failure for the
	// same reason.
	ErrRefreshRejected = errors.New("refresh token rejected")
)

// dummyHash keeps the password verification cost on the unknown-email path
// comparable to the known-email path.
const dummyHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

type SessionService struct {
	Store   store.Store
	Codec   *jwtx.Codec
	Audit   audit.Sink
	Metrics *metrics.Metrics
}

// Login verifies credentials and opens a refresh session.
//
// The session row is created before the refresh token is signed so the token
// can embed the session id; the row's token hash is filled in afterwards.
// Between the two writes the placeholder hash matches no fingerprint, so a
// half-created session cannot be refreshed.
func (s *SessionService) Login(ctx context.Context, email, password string) (domain.User, domain.TokenPair, error) {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()

	user, err := s.Store.Users().GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.VerifyPassword(password, dummyHash)
			return s.loginFailed(ctx, "invalid_credentials", email)
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return s.loginFailed(ctx, "invalid_credentials", email)
	}
	if !user.Active {
		return s.loginFailed(ctx, "inactive", email)
	}

	sessionID := idx.New().String()
	err = s.Store.Sessions().CreateSession(ctx, domain.RefreshSession{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: "pending:" + sessionID,
		ExpiresAt: now.Add(s.Codec.RefreshTTL),
	})
	if err != nil {
		log.Error("failed to create refresh session", slog.Any("error", err))
		return domain.User{}, domain.TokenPair{}, err
	}

	pair, err := s.issuePair(ctx, user, sessionID, func(hash string, expiresAt time.Time) error {
		return s.Store.Sessions().FillSessionTokenHash(ctx, sessionID, user.ID, hash, expiresAt)
	})
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	s.Metrics.LoginsTotal.WithLabelValues("ok").Inc()
	s.Audit.Emit(audit.Event{
		Name:    audit.EventSessionLogin,
		At:      now,
		ActorID: user.ID,
		Subject: sessionID,
	})
	log.Info("login succeeded", slog.String("user_id", user.ID), slog.String("session_id", sessionID))

	return user, pair, nil
}

func (s *SessionService) loginFailed(ctx context.Context, outcome, email string) (domain.User, domain.TokenPair, error) {
	s.Metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	s.Audit.Emit(audit.Event{
		Name:    audit.EventSessionLoginFailed,
		At:      time.Now().UTC(),
		Subject: NormalizeEmail(email),
	})
	slogx.FromContext(ctx).Info("login failed", slog.String("outcome", outcome))
	return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
}

// Refresh rotates a refresh session.
//
// A structurally valid token whose session is unusable, whose fingerprint
// does not match the stored one, or that loses the conditional rotation is
// treated as evidence of theft: every session the user owns is revoked.
func (s *SessionService) Refresh(ctx context.Context, rawRefresh string) (domain.User, domain.TokenPair, error) {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()

	id, err := s.Codec.VerifyRefresh(rawRefresh)
	if err != nil {
		s.Metrics.RefreshesTotal.WithLabelValues("rejected").Inc()
		return domain.User{}, domain.TokenPair{}, ErrRefreshRejected
	}

	sess, err := s.Store.Sessions().GetUsableSession(ctx, id.SessionID, id.UserID, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.reuseDetected(ctx, id.UserID, id.SessionID, now)
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	if !cryptox.FingerprintEqual(rawRefresh, sess.TokenHash) {
		return s.reuseDetected(ctx, id.UserID, id.SessionID, now)
	}

	user, err := s.Store.Users().GetUserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Metrics.RefreshesTotal.WithLabelValues("rejected").Inc()
			return domain.User{}, domain.TokenPair{}, ErrRefreshRejected
		}
		return domain.User{}, domain.TokenPair{}, err
	}
	if !user.Active {
		s.Metrics.RefreshesTotal.WithLabelValues("rejected").Inc()
		return domain.User{}, domain.TokenPair{}, ErrRefreshRejected
	}

	pair, err := s.issuePair(ctx, user, id.SessionID, func(hash string, expiresAt time.Time) error {
		err := s.Store.Sessions().RotateSession(ctx, id.SessionID, user.ID, hash, expiresAt, now)
		if errors.Is(err, store.ErrNotFound) {
			// A concurrent rotation or revocation won the conditional
			// update between our read and this write.
			return errConcurrentRotation
		}
		return err
	})
	if errors.Is(err, errConcurrentRotation) {
		return s.reuseDetected(ctx, user.ID, id.SessionID, now)
	}
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	s.Metrics.RefreshesTotal.WithLabelValues("ok").Inc()
	s.Audit.Emit(audit.Event{
		Name:    audit.EventSessionRefreshed,
		At:      now,
		ActorID: user.ID,
		Subject: id.SessionID,
	})
	log.Debug("refresh rotated", slog.String("user_id", user.ID), slog.String("session_id", id.SessionID))

	return user, pair, nil
}

var errConcurrentRotation = errors.New("concurrent rotation")

func (s *SessionService) reuseDetected(ctx context.Context, userID, sessionID string, now time.Time) (domain.User, domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	if err := s.Store.Sessions().RevokeAllUserSessions(ctx, userID, now); err != nil {
		log.Error("failed to revoke sessions after reuse detection",
			slog.String("user_id", userID), slog.Any("error", err))
	}

	s.Metrics.RefreshesTotal.WithLabelValues("rejected").Inc()
	s.Metrics.ReuseDetections.Inc()
	s.Audit.Emit(audit.Event{
		Name:    audit.EventSessionReuse,
		At:      now,
		ActorID: userID,
		Subject: sessionID,
	})
	log.Warn("refresh token reuse detected, all sessions revoked",
		slog.String("user_id", userID), slog.String("session_id", sessionID))

	return domain.User{}, domain.TokenPair{}, ErrRefreshRejected
}

// Logout revokes the session behind a refresh token. Best effort: an
// invalid or already-revoked token still yields success so logout is
// idempotent and leaks nothing.
func (s *SessionService) Logout(ctx context.Context, rawRefresh string) {
	now := time.Now().UTC()

	id, err := s.Codec.VerifyRefresh(rawRefresh)
	if err != nil {
		return
	}

	if err := s.Store.Sessions().RevokeSession(ctx, id.SessionID, id.UserID, now); err != nil {
		slogx.FromContext(ctx).Error("failed to revoke session on logout",
			slog.String("session_id", id.SessionID), slog.Any("error", err))
		return
	}

	s.Audit.Emit(audit.Event{
		Name:    audit.EventSessionLogout,
		At:      now,
		ActorID: id.UserID,
		Subject: id.SessionID,
	})
}

// issuePair signs a fresh token pair and persists the refresh fingerprint
// via commit (FillSessionTokenHash on login, RotateSession on refresh).
func (s *SessionService) issuePair(
	ctx context.Context,
	user domain.User,
	sessionID string,
	commit func(hash string, expiresAt time.Time) error,
) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	refresh, err := s.Codec.SignRefresh(user.ID, sessionID)
	if err != nil {
		log.Error("failed to sign refresh token", slog.Any("error", err))
		return domain.TokenPair{}, err
	}

	expiresAt := time.Now().UTC().Add(s.Codec.RefreshTTL)
	if err := commit(cryptox.FingerprintToken(refresh), expiresAt); err != nil {
		return domain.TokenPair{}, err
	}

	access, err := s.Codec.SignAccess(user.ID, user.Email)
	if err != nil {
		log.Error("failed to sign access token", slog.Any("error", err))
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.Codec.AccessTTL,
	}, nil
}
