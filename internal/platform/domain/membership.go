package domain

import "time"

// TenantRole is a user's role inside a single tenant.
type TenantRole string

const (
	TenantRoleAdmin  TenantRole = "tenantAdmin"
	TenantRoleMember TenantRole = "member"
)

func (r TenantRole) Valid() bool {
	return r == TenantRoleAdmin || r == TenantRoleMember
}

// MembershipStatus tracks the lifecycle of a membership. Removal is a soft
// delete: the row stays behind for the audit trail and is never physically
// deleted.
type MembershipStatus string

const (
	MembershipStatusInvited MembershipStatus = "invited"
	MembershipStatusActive  MembershipStatus = "active"
	MembershipStatusRemoved MembershipStatus = "removed"
)

// Membership is the join record between a user and a tenant, and the sole
// source of truth for tenant-level authorization. A (tenant, user) pair has
// at most one membership row at any time; re-inviting or re-promoting
// mutates the existing row.
type Membership struct {
	TenantID  string
	UserID    string
	Role      TenantRole
	Status    MembershipStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
