package models

import "time"

// Lead. StageID is the single source of truth for pipeline position;
// Status is the legacy display string kept for back-compat (mirrors the
// stage slug on every stage move).
type Lead struct {
	ID           int       `json:"id"`
	TenantID     int       `json:"tenant_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ContactName  string    `json:"contact_name"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone"`
	Source       string    `json:"source"`
	OwnerID      int       `json:"owner_id"` // 0 = unassigned
	StageID      int       `json:"stage_id"`
	Status       string    `json:"status"`
	CreatedBy    int       `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
