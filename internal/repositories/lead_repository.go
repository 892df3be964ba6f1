package repositories

import (
	"database/sql"
	"fmt"

	"leadflow/internal/models"
)

type LeadRepository interface {
	Create(lead *models.Lead) error
	Update(lead *models.Lead) error
	UpdateStage(tenantID, id, stageID int, status string) error
	UpdateOwner(tenantID, id, ownerID int) error
	GetByID(tenantID, id int) (*models.Lead, error)
	Delete(tenantID, id int) error
	ListPaginated(tenantID, limit, offset int) ([]*models.Lead, error)
	ListByOwner(tenantID, ownerID, limit, offset int) ([]*models.Lead, error)
	Filter(tenantID, stageID, ownerID int, sortBy, order string, limit, offset int) ([]*models.Lead, error)
	Count(tenantID int) (int, error)
}

type leadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) LeadRepository {
	return &leadRepository{db: db}
}

const leadColumns = `id, tenant_id, title, description, contact_name, contact_email, contact_phone,
	source, owner_id, stage_id, status, created_by, created_at, updated_at`

func scanLead(row interface{ Scan(...interface{}) error }) (*models.Lead, error) {
	l := &models.Lead{}
	err := row.Scan(
		&l.ID, &l.TenantID, &l.Title, &l.Description, &l.ContactName, &l.ContactEmail, &l.ContactPhone,
		&l.Source, &l.OwnerID, &l.StageID, &l.Status, &l.CreatedBy, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *leadRepository) Create(lead *models.Lead) error {
	const q = `
		INSERT INTO leads (
			tenant_id, title, description, contact_name, contact_email, contact_phone,
			source, owner_id, stage_id, status, created_by
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(q,
		lead.TenantID, lead.Title, lead.Description, lead.ContactName, lead.ContactEmail, lead.ContactPhone,
		lead.Source, lead.OwnerID, lead.StageID, lead.Status, lead.CreatedBy,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

func (r *leadRepository) Update(lead *models.Lead) error {
	const q = `
		UPDATE leads
		SET title=$1, description=$2, contact_name=$3, contact_email=$4, contact_phone=$5,
		    source=$6, owner_id=$7, status=$8, updated_at=NOW()
		WHERE tenant_id=$9 AND id=$10
	`
	_, err := r.db.Exec(q,
		lead.Title, lead.Description, lead.ContactName, lead.ContactEmail, lead.ContactPhone,
		lead.Source, lead.OwnerID, lead.Status, lead.TenantID, lead.ID,
	)
	return err
}

// UpdateStage moves the lead; status mirrors the stage slug for display.
func (r *leadRepository) UpdateStage(tenantID, id, stageID int, status string) error {
	const q = `UPDATE leads SET stage_id=$1, status=$2, updated_at=NOW() WHERE tenant_id=$3 AND id=$4`
	_, err := r.db.Exec(q, stageID, status, tenantID, id)
	return err
}

func (r *leadRepository) UpdateOwner(tenantID, id, ownerID int) error {
	const q = `UPDATE leads SET owner_id=$1, updated_at=NOW() WHERE tenant_id=$2 AND id=$3`
	_, err := r.db.Exec(q, ownerID, tenantID, id)
	return err
}

// GetByID returns (nil, nil) when the lead does not exist.
func (r *leadRepository) GetByID(tenantID, id int) (*models.Lead, error) {
	q := `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id=$1 AND id=$2`
	l, err := scanLead(r.db.QueryRow(q, tenantID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

func (r *leadRepository) Delete(tenantID, id int) error {
	const q = `DELETE FROM leads WHERE tenant_id=$1 AND id=$2`
	_, err := r.db.Exec(q, tenantID, id)
	return err
}

func (r *leadRepository) ListPaginated(tenantID, limit, offset int) ([]*models.Lead, error) {
	q := `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.queryLeads(q, tenantID, limit, offset)
}

func (r *leadRepository) ListByOwner(tenantID, ownerID, limit, offset int) ([]*models.Lead, error) {
	q := `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id=$1 AND owner_id=$2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	return r.queryLeads(q, tenantID, ownerID, limit, offset)
}

func (r *leadRepository) Filter(tenantID, stageID, ownerID int, sortBy, order string, limit, offset int) ([]*models.Lead, error) {
	if order != "asc" && order != "desc" {
		order = "desc"
	}
	allowed := map[string]bool{"created_at": true, "updated_at": true, "owner_id": true, "stage_id": true}
	if !allowed[sortBy] {
		sortBy = "created_at"
	}

	q := `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id=$1`
	args := []interface{}{tenantID}
	i := 2

	if stageID > 0 {
		q += fmt.Sprintf(" AND stage_id=$%d", i)
		args = append(args, stageID)
		i++
	}
	if ownerID > 0 {
		q += fmt.Sprintf(" AND owner_id=$%d", i)
		args = append(args, ownerID)
		i++
	}
	q += fmt.Sprintf(" ORDER BY %s %s LIMIT $%d OFFSET $%d", sortBy, order, i, i+1)
	args = append(args, limit, offset)

	return r.queryLeads(q, args...)
}

func (r *leadRepository) Count(tenantID int) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM leads WHERE tenant_id=$1`, tenantID).Scan(&count)
	return count, err
}

func (r *leadRepository) queryLeads(q string, args ...interface{}) ([]*models.Lead, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
