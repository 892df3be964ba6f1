package models

import "time"

// Tenant is an isolated customer organization; every other record is
// partitioned by tenant_id.
type Tenant struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
