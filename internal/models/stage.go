package models

import "time"

// Stage types. "both" stages can hold leads and deals.
const (
	StageTypeLead = "lead"
	StageTypeDeal = "deal"
	StageTypeBoth = "both"
)

// Stage roles settable through MarkRole.
const (
	StageRoleNewLead = "new_lead"
	StageRoleWon     = "won"
	StageRoleLost    = "lost"
)

// PipelineStage is one step of a tenant's pipeline. Slug is unique per
// tenant. Role flags are plain booleans: the store does not force a single
// stage per role (last write wins, ResolveDefaultStage picks the
// lowest-ordered flagged stage).
type PipelineStage struct {
	ID              int       `json:"id"`
	TenantID        int       `json:"tenant_id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Color           string    `json:"color"`
	SortOrder       int       `json:"sort_order"`
	StageType       string    `json:"stage_type"`
	IsSystemDefault bool      `json:"is_system_default"`
	IsNewLeadStage  bool      `json:"is_new_lead_stage"`
	IsWonStage      bool      `json:"is_won_stage"`
	IsLostStage     bool      `json:"is_lost_stage"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// AcceptsLeads reports whether a lead may reference this stage.
func (s *PipelineStage) AcceptsLeads() bool {
	return s.StageType == StageTypeLead || s.StageType == StageTypeBoth
}

// AcceptsDeals reports whether a deal may reference this stage.
func (s *PipelineStage) AcceptsDeals() bool {
	return s.StageType == StageTypeDeal || s.StageType == StageTypeBoth
}
