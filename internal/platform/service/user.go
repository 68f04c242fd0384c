package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/crewbase/crewbase/internal/platform/audit"
	"github.com/crewbase/crewbase/internal/platform/domain"
	"github.com/crewbase/crewbase/internal/platform/store"
	"github.com/crewbase/crewbase/pkg/cryptox"
	"github.com/crewbase/crewbase/pkg/idx"
	"github.com/crewbase/crewbase/pkg/slogx"
)

const minPasswordLength = 8

var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidPassword = errors.New("password does not meet requirements")
)

type UserService struct {
	Store store.Store
	Audit audit.Sink
}

// Register creates a platform user. Email is the login identifier and is
// normalized to lowercase before storage so lookups stay case-insensitive.
func (s *UserService) Register(ctx context.Context, email, name, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	email = NormalizeEmail(email)
	if !validEmail(email) {
		return domain.User{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return domain.User{}, ErrInvalidPassword
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		PlatformRole: domain.PlatformRoleUser,
		Active:       true,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		log.Error("failed to create user", slog.Any("error", err))
		return domain.User{}, err
	}

	s.Audit.Emit(audit.Event{
		Name:    audit.EventUserRegistered,
		At:      time.Now().UTC(),
		ActorID: user.ID,
		Subject: user.Email,
	})

	log.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// GetByID returns the user or store.ErrNotFound.
func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, id)
}

// NormalizeEmail lowercases and trims an address. All email comparisons in
// the system go through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}
