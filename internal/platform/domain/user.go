package domain

import "time"

// PlatformRole is the global role a user holds across the whole platform,
// independent of any tenant.
type PlatformRole string

const (
	PlatformRoleUser  PlatformRole = "user"
	PlatformRoleAdmin PlatformRole = "platformAdmin"
)

func (r PlatformRole) Valid() bool {
	return r == PlatformRoleUser || r == PlatformRoleAdmin
}

type User struct {
	ID           string
	Email        string // stored lowercase, unique
	Name         string
	PasswordHash string // argon2id, PHC encoded
	PlatformRole PlatformRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the projection of a user that is safe to return to clients.
type PublicUser struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	PlatformRole PlatformRole `json:"platform_role"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PlatformRole: u.PlatformRole,
	}
}
