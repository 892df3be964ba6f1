package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leadflow/internal/models"
	"leadflow/internal/services"
)

// SettingsHandler exposes the round-robin policy and its rotation state.
type SettingsHandler struct {
	Assigner *services.AssignmentService
}

func NewSettingsHandler(assigner *services.AssignmentService) *SettingsHandler {
	return &SettingsHandler{Assigner: assigner}
}

// @Summary      Get round-robin config
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  models.RoundRobinConfig
// @Router       /settings/round-robin [get]
func (h *SettingsHandler) GetRoundRobin(c *gin.Context) {
	tenantID, _, _ := getIdentity(c)
	cfg, err := h.Assigner.Config(tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cfg == nil {
		// never configured: report the effective default (disabled)
		cfg = &models.RoundRobinConfig{
			TenantID:        tenantID,
			AssignmentScope: models.ScopeAll,
		}
	}
	c.JSON(http.StatusOK, cfg)
}

// @Summary      Update round-robin config
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Param        config  body      models.RoundRobinConfig  true  "Policy"
// @Success      200     {object}  models.RoundRobinConfig
// @Router       /settings/round-robin [put]
func (h *SettingsHandler) PutRoundRobin(c *gin.Context) {
	var cfg models.RoundRobinConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenantID, _, _ := getIdentity(c)
	cfg.TenantID = tenantID

	if err := h.Assigner.SaveConfig(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, err := h.Assigner.Config(tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved)
}

// GetState shows the rotation cursor (read-only, for inspection).
func (h *SettingsHandler) GetState(c *gin.Context) {
	tenantID, _, _ := getIdentity(c)
	st, err := h.Assigner.State(tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if st == nil {
		st = &models.RoundRobinState{TenantID: tenantID, UserPool: []int{}}
	}
	c.JSON(http.StatusOK, st)
}

// ListAssignments pages through the append-only assignment log.
func (h *SettingsHandler) ListAssignments(c *gin.Context) {
	limit, offset := pageParams(c)
	tenantID, _, _ := getIdentity(c)
	log, err := h.Assigner.ListAssignments(tenantID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, log)
}
