package domain

import "time"

// InviteStatus tracks the invite state machine:
//
//	pending → accepted | revoked | expired
//
// All three right-hand states are terminal.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusRevoked  InviteStatus = "revoked"
	InviteStatusExpired  InviteStatus = "expired"
)

// Invite is a single-use, tenant-scoped invitation. The raw token is shown
// to the inviter exactly once; only its fingerprint is persisted, so a lost
// token can only be replaced by revoking and recreating the invite.
type Invite struct {
	ID         string
	TenantID   string
	Email      string // lowercased invitee address
	Role       TenantRole
	TokenHash  string
	Status     InviteStatus
	ExpiresAt  time.Time
	InvitedBy  string
	AcceptedBy *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
