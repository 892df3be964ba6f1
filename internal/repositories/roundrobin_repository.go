package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"leadflow/internal/models"
)

// RotationPick chooses the next assignee while the tenant's state row is
// locked. It gets the current state and returns the chosen user, the new
// rotation cycle and the pool snapshot to persist.
type RotationPick func(st *models.RoundRobinState) (user models.PoolUser, newCycle int, poolIDs []int)

type RoundRobinRepository interface {
	GetConfig(tenantID int) (*models.RoundRobinConfig, error)
	SaveConfig(cfg *models.RoundRobinConfig) error
	GetState(tenantID int) (*models.RoundRobinState, error)
	CountAssignmentsSince(tenantID, userID int, since time.Time) (int, error)
	ListAssignments(tenantID, limit, offset int) ([]*models.RoundRobinAssignment, error)
	Advance(tenantID, leadID int, reason string, pick RotationPick) (*models.RoundRobinAssignment, error)
}

type roundRobinRepository struct {
	db *sql.DB
}

func NewRoundRobinRepository(db *sql.DB) RoundRobinRepository {
	return &roundRobinRepository{db: db}
}

// GetConfig returns (nil, nil) when the tenant never saved a config.
func (r *roundRobinRepository) GetConfig(tenantID int) (*models.RoundRobinConfig, error) {
	const q = `
		SELECT tenant_id, is_enabled, assignment_scope, team_id, department_id,
		       custom_user_ids, working_hours, timezone,
		       max_leads_per_day, max_leads_per_week,
		       fallback_to_creator, fallback_user_id,
		       skip_inactive_users, skip_full_agents, updated_at
		FROM round_robin_configs
		WHERE tenant_id=$1
	`
	cfg := &models.RoundRobinConfig{}
	var customIDs pq.Int64Array
	var hoursJSON []byte
	err := r.db.QueryRow(q, tenantID).Scan(
		&cfg.TenantID, &cfg.IsEnabled, &cfg.AssignmentScope, &cfg.TeamID, &cfg.DepartmentID,
		&customIDs, &hoursJSON, &cfg.Timezone,
		&cfg.MaxLeadsPerDay, &cfg.MaxLeadsPerWeek,
		&cfg.FallbackToCreator, &cfg.FallbackUserID,
		&cfg.SkipInactiveUsers, &cfg.SkipFullAgents, &cfg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cfg.CustomUserIDs = ints(customIDs)
	if len(hoursJSON) > 0 {
		var wh models.WorkingHours
		if err := json.Unmarshal(hoursJSON, &wh); err != nil {
			return nil, fmt.Errorf("decode working_hours: %w", err)
		}
		cfg.WorkingHours = &wh
	}
	return cfg, nil
}

func (r *roundRobinRepository) SaveConfig(cfg *models.RoundRobinConfig) error {
	var hoursJSON []byte
	if cfg.WorkingHours != nil {
		b, err := json.Marshal(cfg.WorkingHours)
		if err != nil {
			return fmt.Errorf("encode working_hours: %w", err)
		}
		hoursJSON = b
	}
	const q = `
		INSERT INTO round_robin_configs (
			tenant_id, is_enabled, assignment_scope, team_id, department_id,
			custom_user_ids, working_hours, timezone,
			max_leads_per_day, max_leads_per_week,
			fallback_to_creator, fallback_user_id,
			skip_inactive_users, skip_full_agents, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET
			is_enabled=EXCLUDED.is_enabled,
			assignment_scope=EXCLUDED.assignment_scope,
			team_id=EXCLUDED.team_id,
			department_id=EXCLUDED.department_id,
			custom_user_ids=EXCLUDED.custom_user_ids,
			working_hours=EXCLUDED.working_hours,
			timezone=EXCLUDED.timezone,
			max_leads_per_day=EXCLUDED.max_leads_per_day,
			max_leads_per_week=EXCLUDED.max_leads_per_week,
			fallback_to_creator=EXCLUDED.fallback_to_creator,
			fallback_user_id=EXCLUDED.fallback_user_id,
			skip_inactive_users=EXCLUDED.skip_inactive_users,
			skip_full_agents=EXCLUDED.skip_full_agents,
			updated_at=NOW()
	`
	_, err := r.db.Exec(q,
		cfg.TenantID, cfg.IsEnabled, cfg.AssignmentScope, cfg.TeamID, cfg.DepartmentID,
		pq.Array(int64s(cfg.CustomUserIDs)), hoursJSON, cfg.Timezone,
		cfg.MaxLeadsPerDay, cfg.MaxLeadsPerWeek,
		cfg.FallbackToCreator, cfg.FallbackUserID,
		cfg.SkipInactiveUsers, cfg.SkipFullAgents,
	)
	return err
}

// GetState returns (nil, nil) when no rotation has ever run for the tenant.
func (r *roundRobinRepository) GetState(tenantID int) (*models.RoundRobinState, error) {
	const q = `
		SELECT tenant_id, last_assigned_user_id, last_assigned_user_name,
		       last_assigned_at, assignment_count, rotation_cycle, user_pool
		FROM round_robin_states
		WHERE tenant_id=$1
	`
	st, err := scanState(r.db.QueryRow(q, tenantID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return st, err
}

func scanState(row interface{ Scan(...interface{}) error }) (*models.RoundRobinState, error) {
	st := &models.RoundRobinState{}
	var pool pq.Int64Array
	err := row.Scan(
		&st.TenantID, &st.LastAssignedUserID, &st.LastAssignedName,
		&st.LastAssignedAt, &st.AssignmentCount, &st.RotationCycle, &pool,
	)
	if err != nil {
		return nil, err
	}
	st.UserPool = ints(pool)
	return st, nil
}

// CountAssignmentsSince counts log rows for the user from `since` on.
// Feeds the max-leads-per-day/week caps.
func (r *roundRobinRepository) CountAssignmentsSince(tenantID, userID int, since time.Time) (int, error) {
	const q = `
		SELECT COUNT(*) FROM round_robin_assignments
		WHERE tenant_id=$1 AND user_id=$2 AND assigned_at >= $3
	`
	var count int
	err := r.db.QueryRow(q, tenantID, userID, since).Scan(&count)
	return count, err
}

func (r *roundRobinRepository) ListAssignments(tenantID, limit, offset int) ([]*models.RoundRobinAssignment, error) {
	const q = `
		SELECT id, tenant_id, lead_id, user_id, user_name, assigned_at, assignment_reason, rotation_cycle
		FROM round_robin_assignments
		WHERE tenant_id=$1
		ORDER BY assigned_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(q, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.RoundRobinAssignment
	for rows.Next() {
		a := &models.RoundRobinAssignment{}
		if err := rows.Scan(&a.ID, &a.TenantID, &a.LeadID, &a.UserID, &a.UserName,
			&a.AssignedAt, &a.Reason, &a.RotationCycle); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Advance performs the rotation read-modify-write for one tenant inside a
// single transaction, holding FOR UPDATE on the state row so concurrent
// lead creation for the same tenant serializes. Persists the new state and
// appends the audit-log row; rolls back as one unit on any error.
func (r *roundRobinRepository) Advance(tenantID, leadID int, reason string, pick RotationPick) (*models.RoundRobinAssignment, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin rotation tx: %w", err)
	}
	defer tx.Rollback()

	// Make sure the state row exists so FOR UPDATE has something to lock.
	const ensure = `
		INSERT INTO round_robin_states (tenant_id, assignment_count, rotation_cycle, user_pool)
		VALUES ($1, 0, 0, '{}')
		ON CONFLICT (tenant_id) DO NOTHING
	`
	if _, err := tx.Exec(ensure, tenantID); err != nil {
		return nil, fmt.Errorf("ensure state row: %w", err)
	}

	const lock = `
		SELECT tenant_id, last_assigned_user_id, last_assigned_user_name,
		       last_assigned_at, assignment_count, rotation_cycle, user_pool
		FROM round_robin_states
		WHERE tenant_id=$1
		FOR UPDATE
	`
	st, err := scanState(tx.QueryRow(lock, tenantID))
	if err != nil {
		return nil, fmt.Errorf("lock state row: %w", err)
	}

	user, newCycle, poolIDs := pick(st)
	now := time.Now()

	const update = `
		UPDATE round_robin_states
		SET last_assigned_user_id=$1, last_assigned_user_name=$2, last_assigned_at=$3,
		    assignment_count=assignment_count+1, rotation_cycle=$4, user_pool=$5
		WHERE tenant_id=$6
	`
	if _, err := tx.Exec(update, user.ID, user.Name, now, newCycle, pq.Array(int64s(poolIDs)), tenantID); err != nil {
		return nil, fmt.Errorf("update state: %w", err)
	}

	assignment := &models.RoundRobinAssignment{
		TenantID:      tenantID,
		LeadID:        leadID,
		UserID:        user.ID,
		UserName:      user.Name,
		AssignedAt:    now,
		Reason:        reason,
		RotationCycle: newCycle,
	}
	const insert = `
		INSERT INTO round_robin_assignments (tenant_id, lead_id, user_id, user_name, assigned_at, assignment_reason, rotation_cycle)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`
	if err := tx.QueryRow(insert, tenantID, leadID, user.ID, user.Name, now, reason, newCycle).Scan(&assignment.ID); err != nil {
		return nil, fmt.Errorf("append assignment log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rotation tx: %w", err)
	}
	return assignment, nil
}

func int64s(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func ints(in pq.Int64Array) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
