package repositories

import (
	"database/sql"
	"fmt"

	"leadflow/internal/models"
)

type StageRepository interface {
	Create(stage *models.PipelineStage) error
	Update(stage *models.PipelineStage) error
	GetByID(tenantID, id int) (*models.PipelineStage, error)
	GetBySlug(tenantID int, slug string) (*models.PipelineStage, error)
	List(tenantID int, stageType string) ([]*models.PipelineStage, error)
	SetRole(tenantID, stageID int, role string, value bool) error
	SetActive(tenantID, stageID int, active bool) error
	Delete(tenantID, stageID int) error
	CountReferences(tenantID, stageID int) (int, error)
}

type stageRepository struct {
	db *sql.DB
}

func NewStageRepository(db *sql.DB) StageRepository {
	return &stageRepository{db: db}
}

const stageColumns = `id, tenant_id, name, slug, color, sort_order, stage_type,
	is_system_default, is_new_lead_stage, is_won_stage, is_lost_stage, is_active, created_at`

func scanStage(row interface{ Scan(...interface{}) error }) (*models.PipelineStage, error) {
	s := &models.PipelineStage{}
	err := row.Scan(
		&s.ID, &s.TenantID, &s.Name, &s.Slug, &s.Color, &s.SortOrder, &s.StageType,
		&s.IsSystemDefault, &s.IsNewLeadStage, &s.IsWonStage, &s.IsLostStage, &s.IsActive, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *stageRepository) Create(stage *models.PipelineStage) error {
	const q = `
		INSERT INTO pipeline_stages (
			tenant_id, name, slug, color, sort_order, stage_type,
			is_system_default, is_new_lead_stage, is_won_stage, is_lost_stage, is_active
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(q,
		stage.TenantID, stage.Name, stage.Slug, stage.Color, stage.SortOrder, stage.StageType,
		stage.IsSystemDefault, stage.IsNewLeadStage, stage.IsWonStage, stage.IsLostStage, stage.IsActive,
	).Scan(&stage.ID, &stage.CreatedAt)
	if err != nil {
		return fmt.Errorf("create stage: %w", err)
	}
	return nil
}

func (r *stageRepository) Update(stage *models.PipelineStage) error {
	const q = `
		UPDATE pipeline_stages
		SET name=$1, slug=$2, color=$3, sort_order=$4, stage_type=$5
		WHERE tenant_id=$6 AND id=$7
	`
	_, err := r.db.Exec(q, stage.Name, stage.Slug, stage.Color, stage.SortOrder, stage.StageType,
		stage.TenantID, stage.ID)
	return err
}

// GetByID returns (nil, nil) when the stage does not exist.
func (r *stageRepository) GetByID(tenantID, id int) (*models.PipelineStage, error) {
	q := `SELECT ` + stageColumns + ` FROM pipeline_stages WHERE tenant_id=$1 AND id=$2`
	s, err := scanStage(r.db.QueryRow(q, tenantID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *stageRepository) GetBySlug(tenantID int, slug string) (*models.PipelineStage, error) {
	q := `SELECT ` + stageColumns + ` FROM pipeline_stages WHERE tenant_id=$1 AND slug=$2`
	s, err := scanStage(r.db.QueryRow(q, tenantID, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// List returns the tenant's stages ordered by sort_order. stageType "lead"
// or "deal" narrows to stages that accept that kind ("both" included);
// empty returns everything.
func (r *stageRepository) List(tenantID int, stageType string) ([]*models.PipelineStage, error) {
	q := `SELECT ` + stageColumns + ` FROM pipeline_stages WHERE tenant_id=$1`
	args := []interface{}{tenantID}
	if stageType == models.StageTypeLead || stageType == models.StageTypeDeal {
		q += ` AND stage_type IN ($2, 'both')`
		args = append(args, stageType)
	}
	q += ` ORDER BY sort_order ASC, id ASC`

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.PipelineStage
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SetRole flips one role flag. Column name goes through a whitelist, never
// through user input directly.
func (r *stageRepository) SetRole(tenantID, stageID int, role string, value bool) error {
	columns := map[string]string{
		models.StageRoleNewLead: "is_new_lead_stage",
		models.StageRoleWon:     "is_won_stage",
		models.StageRoleLost:    "is_lost_stage",
	}
	col, ok := columns[role]
	if !ok {
		return fmt.Errorf("unknown stage role %q", role)
	}
	q := fmt.Sprintf(`UPDATE pipeline_stages SET %s=$1 WHERE tenant_id=$2 AND id=$3`, col)
	_, err := r.db.Exec(q, value, tenantID, stageID)
	return err
}

func (r *stageRepository) SetActive(tenantID, stageID int, active bool) error {
	const q = `UPDATE pipeline_stages SET is_active=$1 WHERE tenant_id=$2 AND id=$3`
	_, err := r.db.Exec(q, active, tenantID, stageID)
	return err
}

func (r *stageRepository) Delete(tenantID, stageID int) error {
	const q = `DELETE FROM pipeline_stages WHERE tenant_id=$1 AND id=$2`
	_, err := r.db.Exec(q, tenantID, stageID)
	return err
}

// CountReferences counts leads and deals still pointing at the stage.
func (r *stageRepository) CountReferences(tenantID, stageID int) (int, error) {
	const q = `
		SELECT
			(SELECT COUNT(*) FROM leads WHERE tenant_id=$1 AND stage_id=$2) +
			(SELECT COUNT(*) FROM deals WHERE tenant_id=$1 AND stage_id=$2)
	`
	var count int
	err := r.db.QueryRow(q, tenantID, stageID).Scan(&count)
	return count, err
}
