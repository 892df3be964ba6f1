package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"leadflow/internal/authz"
	"leadflow/internal/models"
	"leadflow/internal/repositories"
)

type UserService interface {
	RegisterTenant(tenantName, userName, email, password string) (*models.Tenant, *models.User, error)
	CreateUserWithPassword(user *models.User, plainPassword string) error
	GetByID(tenantID, id int) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(tenantID, id int) error
	List(tenantID, limit, offset int) ([]*models.User, error)
	Count(tenantID int) (int, error)
}

type userService struct {
	repo         repositories.UserRepository
	tenantRepo   repositories.TenantRepository
	stages       *StageService
	emailService EmailService
	authService  AuthService
}

func NewUserService(repo repositories.UserRepository, tenantRepo repositories.TenantRepository, stages *StageService, emailService EmailService, authService AuthService) UserService {
	return &userService{
		repo:         repo,
		tenantRepo:   tenantRepo,
		stages:       stages,
		emailService: emailService,
		authService:  authService,
	}
}

// RegisterTenant bootstraps a new organization: tenant row, admin user,
// and the system-default pipeline stages.
func (s *userService) RegisterTenant(tenantName, userName, email, password string) (*models.Tenant, *models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, nil, errors.New("email and password are required")
	}
	existing, err := s.repo.GetByEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, errors.New("email already registered")
	}

	tenant := &models.Tenant{Name: tenantName, Slug: slugify(tenantName)}
	if err := s.tenantRepo.Create(tenant); err != nil {
		return nil, nil, err
	}

	if err := s.stages.ProvisionDefaults(tenant.ID); err != nil {
		return nil, nil, fmt.Errorf("provision default stages: %w", err)
	}

	// first user of a tenant is its admin
	user := &models.User{
		TenantID: tenant.ID,
		Name:     userName,
		Email:    email,
		RoleID:   authz.RoleAdmin,
		IsActive: true,
	}
	if err := s.CreateUserWithPassword(user, password); err != nil {
		return nil, nil, err
	}
	return tenant, user, nil
}

func (s *userService) CreateUserWithPassword(user *models.User, plainPassword string) error {
	if strings.TrimSpace(plainPassword) == "" {
		return errors.New("password is required")
	}
	hashed, err := s.authService.HashPassword(plainPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed

	if err := s.repo.Create(user); err != nil {
		return err
	}

	if s.emailService != nil {
		if err := s.emailService.SendWelcomeEmail(user.Email, user.Name); err != nil {
			// warn but do not fail creation
			log.Printf("[user][create] warning: welcome email to %s failed: %v", user.Email, err)
		}
	}
	return nil
}

func (s *userService) GetByID(tenantID, id int) (*models.User, error) {
	return s.repo.GetByID(tenantID, id)
}

func (s *userService) GetByEmail(email string) (*models.User, error) {
	return s.repo.GetByEmail(strings.TrimSpace(strings.ToLower(email)))
}

func (s *userService) Update(user *models.User) error {
	return s.repo.Update(user)
}

func (s *userService) Delete(tenantID, id int) error {
	return s.repo.Delete(tenantID, id)
}

func (s *userService) List(tenantID, limit, offset int) ([]*models.User, error) {
	return s.repo.List(tenantID, limit, offset)
}

func (s *userService) Count(tenantID int) (int, error) {
	return s.repo.Count(tenantID)
}

// slugify keeps it boring: lowercase, spaces to dashes, drop the rest.
func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
