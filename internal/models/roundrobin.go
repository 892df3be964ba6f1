package models

import "time"

// Assignment scopes for RoundRobinConfig.
const (
	ScopeAll        = "all"
	ScopeTeam       = "team"
	ScopeDepartment = "department"
	ScopeCustom     = "custom"
)

// Assignment reasons recorded on the result and in the audit log.
const (
	ReasonRotation        = "round_robin_rotation"
	ReasonDisabled        = "round_robin_disabled"
	ReasonFallbackCreator = "pool_empty_fallback_creator"
	ReasonFallbackUser    = "pool_empty_fallback_user"
)

// WorkingHours is an advisory pool filter: assignments outside the window
// skip the whole pool and fall through to the fallback rules.
type WorkingHours struct {
	Start string `json:"start"` // "09:00"
	End   string `json:"end"`   // "18:00"
	Days  []int  `json:"days"`  // time.Weekday values, 0=Sunday
}

// RoundRobinConfig is the per-tenant assignment policy. Mutated only
// through the settings endpoints.
type RoundRobinConfig struct {
	TenantID          int           `json:"tenant_id"`
	IsEnabled         bool          `json:"is_enabled"`
	AssignmentScope   string        `json:"assignment_scope"`
	TeamID            *int          `json:"team_id,omitempty"`
	DepartmentID      *int          `json:"department_id,omitempty"`
	CustomUserIDs     []int         `json:"custom_user_ids,omitempty"`
	WorkingHours      *WorkingHours `json:"working_hours,omitempty"`
	Timezone          string        `json:"timezone,omitempty"`
	MaxLeadsPerDay    *int          `json:"max_leads_per_day,omitempty"`
	MaxLeadsPerWeek   *int          `json:"max_leads_per_week,omitempty"`
	FallbackToCreator bool          `json:"fallback_to_creator"`
	FallbackUserID    *int          `json:"fallback_user_id,omitempty"`
	SkipInactiveUsers bool          `json:"skip_inactive_users"`
	SkipFullAgents    bool          `json:"skip_full_agents"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// RoundRobinState is the per-tenant rotation cursor. Invariant: the next
// assignee is the pool member right after LastAssignedUserID, wrapping to
// index 0 and bumping RotationCycle on wrap. Mutated exactly once per
// successful rotation, under a row lock.
type RoundRobinState struct {
	TenantID           int        `json:"tenant_id"`
	LastAssignedUserID *int       `json:"last_assigned_user_id,omitempty"`
	LastAssignedName   string     `json:"last_assigned_user_name,omitempty"`
	LastAssignedAt     *time.Time `json:"last_assigned_at,omitempty"`
	AssignmentCount    int        `json:"assignment_count"`
	RotationCycle      int        `json:"rotation_cycle"`
	UserPool           []int      `json:"user_pool"` // eligible ids as of last rotation
}

// RoundRobinAssignment is one row of the append-only assignment log.
type RoundRobinAssignment struct {
	ID            int       `json:"id"`
	TenantID      int       `json:"tenant_id"`
	LeadID        int       `json:"lead_id"`
	UserID        int       `json:"user_id"`
	UserName      string    `json:"user_name"`
	AssignedAt    time.Time `json:"assigned_at"`
	Reason        string    `json:"assignment_reason"`
	RotationCycle int       `json:"rotation_cycle"`
}

// AssignmentResult is what the assigner hands back to lead creation.
type AssignmentResult struct {
	UserID   int    `json:"user_id"`
	UserName string `json:"user_name"`
	Reason   string `json:"reason"`
}
