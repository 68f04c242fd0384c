package domain

import "time"

// Tenant is an isolated customer organization. The slug is the canonical
// routing key: lowercase, URL-safe, unique.
//
// Archived or soft-deleted tenants must behave as if they do not exist to
// every resolver query, so probes cannot confirm a tenant's existence or
// state.
type Tenant struct {
	ID        string
	Slug      string
	Name      string
	Archived  bool
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
