package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"leadflow/internal/models"
)

type UserRepository interface {
	Create(user *models.User) error
	GetByID(tenantID, id int) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(tenantID, id int) error
	List(tenantID, limit, offset int) ([]*models.User, error)
	Count(tenantID int) (int, error)

	// pool sources for round-robin scopes; results ordered by id so the
	// rotation order is stable between runs
	ListPool(tenantID int, onlyActive bool) ([]models.PoolUser, error)
	ListPoolByTeam(tenantID, teamID int, onlyActive bool) ([]models.PoolUser, error)
	ListPoolByDepartment(tenantID, departmentID int, onlyActive bool) ([]models.PoolUser, error)
	ListPoolByIDs(tenantID int, ids []int, onlyActive bool) ([]models.PoolUser, error)

	// refresh helpers
	UpdateRefresh(userID int, token string, expiresAt time.Time) error
	RotateRefresh(oldToken, newToken string, newExpiresAt time.Time) (*models.User, error)
	ClearRefresh(userID int) error
	GetByRefreshToken(token string) (*models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, tenant_id, name, email, password_hash, role_id,
	team_id, department_id, is_active, telegram_chat_id, notify_telegram,
	refresh_token, refresh_expires_at, refresh_revoked, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.TenantID, &u.Name, &u.Email, &u.PasswordHash, &u.RoleID,
		&u.TeamID, &u.DepartmentID, &u.IsActive, &u.TelegramChatID, &u.NotifyTelegram,
		&u.RefreshToken, &u.RefreshExpiresAt, &u.RefreshRevoked, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Create(user *models.User) error {
	const q = `
		INSERT INTO users (
			tenant_id, name, email, password_hash, role_id,
			team_id, department_id, is_active, telegram_chat_id, notify_telegram,
			refresh_token, refresh_expires_at, refresh_revoked
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NULL,NULL,FALSE)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(q,
		user.TenantID, user.Name, user.Email, user.PasswordHash, user.RoleID,
		user.TeamID, user.DepartmentID, user.IsActive, user.TelegramChatID, user.NotifyTelegram,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID returns (nil, nil) when the user does not exist in the tenant.
func (r *userRepository) GetByID(tenantID, id int) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE tenant_id=$1 AND id=$2`
	u, err := scanUser(r.db.QueryRow(q, tenantID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetByEmail is global: email is unique across tenants and is the login key.
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	u, err := scanUser(r.db.QueryRow(q, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) Update(user *models.User) error {
	const q = `
		UPDATE users
		SET name=$1, email=$2, role_id=$3, team_id=$4, department_id=$5,
		    is_active=$6, telegram_chat_id=$7, notify_telegram=$8
		WHERE tenant_id=$9 AND id=$10
	`
	_, err := r.db.Exec(q,
		user.Name, user.Email, user.RoleID, user.TeamID, user.DepartmentID,
		user.IsActive, user.TelegramChatID, user.NotifyTelegram,
		user.TenantID, user.ID,
	)
	return err
}

func (r *userRepository) Delete(tenantID, id int) error {
	const q = `DELETE FROM users WHERE tenant_id=$1 AND id=$2`
	_, err := r.db.Exec(q, tenantID, id)
	return err
}

func (r *userRepository) List(tenantID, limit, offset int) ([]*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE tenant_id=$1 ORDER BY id ASC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(q, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *userRepository) Count(tenantID int) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE tenant_id=$1`, tenantID).Scan(&count)
	return count, err
}

func (r *userRepository) ListPool(tenantID int, onlyActive bool) ([]models.PoolUser, error) {
	q := `SELECT id, name FROM users WHERE tenant_id=$1`
	if onlyActive {
		q += ` AND is_active`
	}
	q += ` ORDER BY id ASC`
	return r.queryPool(q, tenantID)
}

func (r *userRepository) ListPoolByTeam(tenantID, teamID int, onlyActive bool) ([]models.PoolUser, error) {
	q := `SELECT id, name FROM users WHERE tenant_id=$1 AND team_id=$2`
	if onlyActive {
		q += ` AND is_active`
	}
	q += ` ORDER BY id ASC`
	return r.queryPool(q, tenantID, teamID)
}

func (r *userRepository) ListPoolByDepartment(tenantID, departmentID int, onlyActive bool) ([]models.PoolUser, error) {
	q := `SELECT id, name FROM users WHERE tenant_id=$1 AND department_id=$2`
	if onlyActive {
		q += ` AND is_active`
	}
	q += ` ORDER BY id ASC`
	return r.queryPool(q, tenantID, departmentID)
}

func (r *userRepository) ListPoolByIDs(tenantID int, ids []int, onlyActive bool) ([]models.PoolUser, error) {
	q := `SELECT id, name FROM users WHERE tenant_id=$1 AND id = ANY($2)`
	if onlyActive {
		q += ` AND is_active`
	}
	q += ` ORDER BY id ASC`
	return r.queryPool(q, tenantID, pq.Array(int64s(ids)))
}

func (r *userRepository) queryPool(q string, args ...interface{}) ([]models.PoolUser, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PoolUser
	for rows.Next() {
		var u models.PoolUser
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *userRepository) UpdateRefresh(userID int, token string, expiresAt time.Time) error {
	const q = `
		UPDATE users
		SET refresh_token=$1, refresh_expires_at=$2, refresh_revoked=FALSE
		WHERE id=$3
	`
	_, err := r.db.Exec(q, token, expiresAt, userID)
	return err
}

// RotateRefresh swaps tokens atomically and returns the owning user, or
// (nil, nil) when the old token is unknown, expired or revoked.
func (r *userRepository) RotateRefresh(oldToken, newToken string, newExpiresAt time.Time) (*models.User, error) {
	q := `
		UPDATE users
		SET refresh_token=$1, refresh_expires_at=$2
		WHERE refresh_token=$3 AND NOT refresh_revoked AND refresh_expires_at > NOW()
		RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRow(q, newToken, newExpiresAt, oldToken))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) ClearRefresh(userID int) error {
	const q = `UPDATE users SET refresh_token=NULL, refresh_expires_at=NULL, refresh_revoked=TRUE WHERE id=$1`
	_, err := r.db.Exec(q, userID)
	return err
}

func (r *userRepository) GetByRefreshToken(token string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE refresh_token=$1 AND NOT refresh_revoked`
	u, err := scanUser(r.db.QueryRow(q, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}
