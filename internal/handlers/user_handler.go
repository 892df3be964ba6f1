package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"leadflow/internal/authz"
	"leadflow/internal/models"
	"leadflow/internal/services"
)

type UserHandler struct {
	service services.UserService
}

func NewUserHandler(service services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

type registerRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
}

type createUserRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	RoleID       int    `json:"role_id"`
	TeamID       *int   `json:"team_id"`
	DepartmentID *int   `json:"department_id"`
}

// @Summary      Register a company
// @Description  Creates a tenant with its admin user and default pipeline stages
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        register  body      registerRequest  true  "Company and admin account"
// @Success      201       {object}  map[string]interface{}
// @Failure      400       {object}  map[string]string
// @Router       /register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenant, user, err := h.service.RegisterTenant(req.CompanyName, req.Name, req.Email, req.Password)
	if err != nil {
		log.Printf("[user][register] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tenant": tenant, "user": user})
}

// CreateUser adds a teammate to the caller's tenant. Admin only; role
// defaults to sales.
func (h *UserHandler) CreateUser(c *gin.Context) {
	tenantID, _, roleID := getIdentity(c)
	if roleID != authz.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "only admin can create users"})
		return
	}

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	newRole := req.RoleID
	if newRole == 0 {
		newRole = authz.RoleSales
	}

	user := &models.User{
		TenantID:     tenantID,
		Name:         req.Name,
		Email:        req.Email,
		RoleID:       newRole,
		TeamID:       req.TeamID,
		DepartmentID: req.DepartmentID,
		IsActive:     true,
	}
	if err := h.service.CreateUserWithPassword(user, req.Password); err != nil {
		log.Printf("[user][create] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) GetUserByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tenantID, _, _ := getIdentity(c)

	user, err := h.service.GetByID(tenantID, id)
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tenantID, userID, roleID := getIdentity(c)

	target, err := h.service.GetByID(tenantID, id)
	if err != nil || target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	var body models.User
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body.ID = id
	body.TenantID = tenantID
	body.PasswordHash = target.PasswordHash // password changes go through a separate flow

	if roleID != authz.RoleAdmin {
		// non-admins can only edit themselves, and never their own role
		if userID != id {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		body.RoleID = target.RoleID
		body.IsActive = target.IsActive
	}

	if err := h.service.Update(&body); err != nil {
		log.Printf("[user][update] id=%d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		return
	}
	updated, _ := h.service.GetByID(tenantID, id)
	c.JSON(http.StatusOK, updated)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tenantID, _, roleID := getIdentity(c)
	if roleID != authz.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "only admin can delete users"})
		return
	}
	if err := h.service.Delete(tenantID, id); err != nil {
		log.Printf("[user][delete] id=%d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	tenantID, _, roleID := getIdentity(c)
	if !authz.IsElevated(roleID) && roleID != authz.RoleAudit {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	limit, offset := pageParams(c)

	users, err := h.service.List(tenantID, limit, offset)
	if err != nil {
		log.Printf("[user][list] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) GetUserCount(c *gin.Context) {
	tenantID, _, roleID := getIdentity(c)
	if !authz.IsElevated(roleID) && roleID != authz.RoleAudit {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	count, err := h.service.Count(tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
