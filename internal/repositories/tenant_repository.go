package repositories

import (
	"database/sql"
	"fmt"

	"leadflow/internal/models"
)

type TenantRepository interface {
	Create(tenant *models.Tenant) error
	GetByID(id int) (*models.Tenant, error)
	GetBySlug(slug string) (*models.Tenant, error)
}

type tenantRepository struct {
	db *sql.DB
}

func NewTenantRepository(db *sql.DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) Create(tenant *models.Tenant) error {
	const q = `
		INSERT INTO tenants (name, slug, is_active)
		VALUES ($1,$2,TRUE)
		RETURNING id, created_at
	`
	if err := r.db.QueryRow(q, tenant.Name, tenant.Slug).Scan(&tenant.ID, &tenant.CreatedAt); err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	tenant.IsActive = true
	return nil
}

func (r *tenantRepository) GetByID(id int) (*models.Tenant, error) {
	const q = `SELECT id, name, slug, is_active, created_at FROM tenants WHERE id=$1`
	t := &models.Tenant{}
	err := r.db.QueryRow(q, id).Scan(&t.ID, &t.Name, &t.Slug, &t.IsActive, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *tenantRepository) GetBySlug(slug string) (*models.Tenant, error) {
	const q = `SELECT id, name, slug, is_active, created_at FROM tenants WHERE slug=$1`
	t := &models.Tenant{}
	err := r.db.QueryRow(q, slug).Scan(&t.ID, &t.Name, &t.Slug, &t.IsActive, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
