package models

import "time"

// Deal mirrors a converted lead. StageID must reference a stage whose
// type accepts deals.
type Deal struct {
	ID        int       `json:"id"`
	TenantID  int       `json:"tenant_id"`
	LeadID    int       `json:"lead_id"`
	OwnerID   int       `json:"owner_id"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	StageID   int       `json:"stage_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
