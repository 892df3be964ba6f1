package repositories

import (
	"database/sql"
	"fmt"

	"leadflow/internal/models"
)

type DealRepository interface {
	Create(deal *models.Deal) error
	Update(deal *models.Deal) error
	UpdateStage(tenantID, id, stageID int, status string) error
	GetByID(tenantID, id int) (*models.Deal, error)
	GetByLeadID(tenantID, leadID int) (*models.Deal, error)
	Delete(tenantID, id int) error
	ListPaginated(tenantID, limit, offset int) ([]*models.Deal, error)
	ListByOwner(tenantID, ownerID, limit, offset int) ([]*models.Deal, error)
	Count(tenantID int) (int, error)
}

type dealRepository struct {
	db *sql.DB
}

func NewDealRepository(db *sql.DB) DealRepository {
	return &dealRepository{db: db}
}

const dealColumns = `id, tenant_id, lead_id, owner_id, amount, currency, stage_id, status, created_at, updated_at`

func scanDeal(row interface{ Scan(...interface{}) error }) (*models.Deal, error) {
	d := &models.Deal{}
	err := row.Scan(&d.ID, &d.TenantID, &d.LeadID, &d.OwnerID, &d.Amount, &d.Currency,
		&d.StageID, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *dealRepository) Create(deal *models.Deal) error {
	const q = `
		INSERT INTO deals (tenant_id, lead_id, owner_id, amount, currency, stage_id, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(q,
		deal.TenantID, deal.LeadID, deal.OwnerID, deal.Amount, deal.Currency, deal.StageID, deal.Status,
	).Scan(&deal.ID, &deal.CreatedAt, &deal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create deal: %w", err)
	}
	return nil
}

func (r *dealRepository) Update(deal *models.Deal) error {
	const q = `
		UPDATE deals
		SET owner_id=$1, amount=$2, currency=$3, status=$4, updated_at=NOW()
		WHERE tenant_id=$5 AND id=$6
	`
	_, err := r.db.Exec(q, deal.OwnerID, deal.Amount, deal.Currency, deal.Status, deal.TenantID, deal.ID)
	return err
}

func (r *dealRepository) UpdateStage(tenantID, id, stageID int, status string) error {
	const q = `UPDATE deals SET stage_id=$1, status=$2, updated_at=NOW() WHERE tenant_id=$3 AND id=$4`
	_, err := r.db.Exec(q, stageID, status, tenantID, id)
	return err
}

// GetByID returns (nil, nil) when the deal does not exist.
func (r *dealRepository) GetByID(tenantID, id int) (*models.Deal, error) {
	q := `SELECT ` + dealColumns + ` FROM deals WHERE tenant_id=$1 AND id=$2`
	d, err := scanDeal(r.db.QueryRow(q, tenantID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// GetByLeadID returns (nil, nil) when the lead was never converted —
// convert uses this as its idempotency check.
func (r *dealRepository) GetByLeadID(tenantID, leadID int) (*models.Deal, error) {
	q := `SELECT ` + dealColumns + ` FROM deals WHERE tenant_id=$1 AND lead_id=$2`
	d, err := scanDeal(r.db.QueryRow(q, tenantID, leadID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

func (r *dealRepository) Delete(tenantID, id int) error {
	const q = `DELETE FROM deals WHERE tenant_id=$1 AND id=$2`
	_, err := r.db.Exec(q, tenantID, id)
	return err
}

func (r *dealRepository) ListPaginated(tenantID, limit, offset int) ([]*models.Deal, error) {
	q := `SELECT ` + dealColumns + ` FROM deals WHERE tenant_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.queryDeals(q, tenantID, limit, offset)
}

func (r *dealRepository) ListByOwner(tenantID, ownerID, limit, offset int) ([]*models.Deal, error) {
	q := `SELECT ` + dealColumns + ` FROM deals WHERE tenant_id=$1 AND owner_id=$2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	return r.queryDeals(q, tenantID, ownerID, limit, offset)
}

func (r *dealRepository) Count(tenantID int) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM deals WHERE tenant_id=$1`, tenantID).Scan(&count)
	return count, err
}

func (r *dealRepository) queryDeals(q string, args ...interface{}) ([]*models.Deal, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
