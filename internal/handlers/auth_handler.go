package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"leadflow/internal/middleware"
	"leadflow/internal/models"
	"leadflow/internal/repositories"
	"leadflow/internal/services"
	"leadflow/internal/utils"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

type AuthHandler struct {
	userService services.UserService
	authService services.AuthService
	users       repositories.UserRepository // refresh token storage
}

func NewAuthHandler(userService services.UserService, authService services.AuthService, users repositories.UserRepository) *AuthHandler {
	return &AuthHandler{userService: userService, authService: authService, users: users}
}

// @Summary      Log in
// @Description  Authenticates a user and returns access and refresh tokens
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Credentials"
// @Success      200    {object}  map[string]interface{}
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.TrimSpace(req.Email)

	user, err := h.userService.GetByEmail(email)
	if err != nil || user == nil {
		log.Printf("[auth][login] unknown email=%q: %v", email, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is disabled"})
		return
	}
	if err := h.authService.CheckPassword(user.PasswordHash, strings.TrimSpace(req.Password)); err != nil {
		log.Printf("[auth][login] password mismatch user=%d", user.ID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	access, err := issueAccessToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	refresh, err := utils.NewRefreshToken(32)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue refresh token"})
		return
	}
	if err := h.users.UpdateRefresh(user.ID, refresh, time.Now().Add(refreshTokenTTL)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          user,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// @Summary      Refresh tokens
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        refresh  body      refreshRequest  true  "Refresh token"
// @Success      200      {object}  map[string]interface{}
// @Failure      401      {object}  map[string]string
// @Router       /refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	next, err := utils.NewRefreshToken(32)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue refresh token"})
		return
	}
	user, err := h.users.RotateRefresh(req.RefreshToken, next, time.Now().Add(refreshTokenTTL))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	access, err := issueAccessToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": next,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	_, userID, _ := getIdentity(c)
	if userID != 0 {
		if err := h.users.ClearRefresh(userID); err != nil {
			log.Printf("[auth][logout] clear refresh user=%d: %v", userID, err)
		}
	}
	c.Status(http.StatusNoContent)
}

func issueAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &middleware.Claims{
		UserID:   user.ID,
		TenantID: user.TenantID,
		RoleID:   user.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(middleware.JWTKey())
}
