// Package audit records security-relevant events. Emission is fire and
// forget: a slow or unavailable sink must never delay or fail the request
// that produced the event.
package audit

import "time"

// Event names. Dot-separated, subject first.
const (
	EventUserRegistered     = "user.registered"
	EventSessionLogin       = "session.login"
	EventSessionLoginFailed = "session.login_failed"
	EventSessionRefreshed   = "session.refreshed"
	EventSessionReuse       = "session.reuse_detected"
	EventSessionLogout      = "session.logout"
	EventTenantCreated      = "tenant.created"
	EventTenantArchived     = "tenant.archived"
	EventMemberRoleChanged  = "member.role_changed"
	EventMemberRemoved      = "member.removed"
	EventMemberRestored     = "member.restored"
	EventInviteCreated      = "invite.created"
	EventInviteRevoked      = "invite.revoked"
	EventInviteAccepted     = "invite.accepted"
	EventInviteExpired      = "invite.expired"
)

// Event is one audit record. TenantID and ActorID are empty for events
// outside a tenant or actor context (registration, housekeeping).
type Event struct {
	Name     string            `json:"name"`
	At       time.Time         `json:"at"`
	ActorID  string            `json:"actor_id,omitempty"`
	TenantID string            `json:"tenant_id,omitempty"`
	Subject  string            `json:"subject,omitempty"`
	Detail   map[string]string `json:"detail,omitempty"`
}

// Sink receives events. Implementations must be non-blocking from the
// caller's perspective and must swallow their own errors.
type Sink interface {
	Emit(e Event)
}
