package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"leadflow/internal/models"
)

// StatsRepository is the read side behind the conversion calculator.
// Everything is re-derived per call; no caching.
type StatsRepository interface {
	CountNewLeads(tenantID int, from, to time.Time) (int, error)
	CountLeadsWithRole(tenantID int, role string, from, to time.Time) (int, error)
	CountDealsWithRole(tenantID int, role string, from, to time.Time) (int, error)
}

type statsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) StatsRepository {
	return &statsRepository{db: db}
}

// CountNewLeads counts leads created in the window. Every lead enters the
// pipeline through the new-lead stage, so creation time stands in for
// stage history (there is no per-lead stage history table).
func (r *statsRepository) CountNewLeads(tenantID int, from, to time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM leads WHERE tenant_id=$1 AND created_at BETWEEN $2 AND $3`
	var count int
	err := r.db.QueryRow(q, tenantID, from, to).Scan(&count)
	return count, err
}

func (r *statsRepository) CountLeadsWithRole(tenantID int, role string, from, to time.Time) (int, error) {
	col, err := roleColumn(role)
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM leads l
		JOIN pipeline_stages s ON s.id = l.stage_id AND s.tenant_id = l.tenant_id
		WHERE l.tenant_id=$1 AND l.created_at BETWEEN $2 AND $3 AND s.%s
	`, col)
	var count int
	err = r.db.QueryRow(q, tenantID, from, to).Scan(&count)
	return count, err
}

func (r *statsRepository) CountDealsWithRole(tenantID int, role string, from, to time.Time) (int, error) {
	col, err := roleColumn(role)
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM deals d
		JOIN pipeline_stages s ON s.id = d.stage_id AND s.tenant_id = d.tenant_id
		WHERE d.tenant_id=$1 AND d.created_at BETWEEN $2 AND $3 AND s.%s
	`, col)
	var count int
	err = r.db.QueryRow(q, tenantID, from, to).Scan(&count)
	return count, err
}

func roleColumn(role string) (string, error) {
	switch role {
	case models.StageRoleNewLead:
		return "is_new_lead_stage", nil
	case models.StageRoleWon:
		return "is_won_stage", nil
	case models.StageRoleLost:
		return "is_lost_stage", nil
	}
	return "", fmt.Errorf("unknown stage role %q", role)
}
