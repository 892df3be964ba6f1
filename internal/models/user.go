package models

import "time"

type User struct {
	ID           int    `json:"id"`
	TenantID     int    `json:"tenant_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	RoleID       int    `json:"role_id"`

	// pool scoping for round-robin assignment
	TeamID       *int `json:"team_id,omitempty"`
	DepartmentID *int `json:"department_id,omitempty"`
	IsActive     bool `json:"is_active"`

	// notification channels
	TelegramChatID int64 `json:"-"`
	NotifyTelegram bool  `json:"notify_telegram"`

	// refresh token storage
	RefreshToken     *string    `json:"-"`
	RefreshExpiresAt *time.Time `json:"-"`
	RefreshRevoked   bool       `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// PoolUser is the slice of a user the round-robin rotation works with.
type PoolUser struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
