package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"leadflow/internal/models"
	"leadflow/internal/services"
)

// StageHandler manages the tenant's pipeline taxonomy. Role guards are on
// the route group (management/admin only for writes).
type StageHandler struct {
	Service *services.StageService
}

func NewStageHandler(service *services.StageService) *StageHandler {
	return &StageHandler{Service: service}
}

// @Summary      List pipeline stages
// @Tags         Stages
// @Produce      json
// @Param        type  query     string  false  "lead or deal"
// @Success      200   {array}   models.PipelineStage
// @Router       /stages [get]
func (h *StageHandler) List(c *gin.Context) {
	tenantID, _, _ := getIdentity(c)
	stages, err := h.Service.ListStages(tenantID, c.Query("type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list stages"})
		return
	}
	c.JSON(http.StatusOK, stages)
}

func (h *StageHandler) Create(c *gin.Context) {
	var stage models.PipelineStage
	if err := c.ShouldBindJSON(&stage); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenantID, _, _ := getIdentity(c)
	stage.TenantID = tenantID
	stage.IsSystemDefault = false

	if err := h.Service.CreateStage(&stage); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, stage)
}

func (h *StageHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var stage models.PipelineStage
	if err := c.ShouldBindJSON(&stage); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenantID, _, _ := getIdentity(c)
	stage.ID = id
	stage.TenantID = tenantID

	if err := h.Service.UpdateStage(&stage); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, _ := h.Service.GetByID(tenantID, id)
	c.JSON(http.StatusOK, updated)
}

// @Summary      Delete a stage
// @Description  Refused with 409 while any lead or deal still references the stage
// @Tags         Stages
// @Param        id  path  int  true  "Stage id"
// @Success      204
// @Failure      409  {object}  map[string]string
// @Router       /stages/{id} [delete]
func (h *StageHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tenantID, _, _ := getIdentity(c)

	if err := h.Service.DeleteStage(tenantID, id); err != nil {
		if errors.Is(err, services.ErrStageInUse) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StageHandler) Deactivate(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tenantID, _, _ := getIdentity(c)
	if err := h.Service.DeactivateStage(tenantID, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type markRoleRequest struct {
	Role  string `json:"role" binding:"required"` // new_lead | won | lost
	Value bool   `json:"value"`
}

// @Summary      Mark or clear a stage role
// @Description  Idempotent toggle of new_lead/won/lost; does not clear the role on other stages
// @Tags         Stages
// @Accept       json
// @Param        id    path  int              true  "Stage id"
// @Param        role  body  markRoleRequest  true  "Role toggle"
// @Success      204
// @Router       /stages/{id}/role [post]
func (h *StageHandler) MarkRole(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req markRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenantID, _, _ := getIdentity(c)
	if err := h.Service.MarkRole(tenantID, id, req.Role, req.Value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ImportLegacyRoles runs the slug-substring heuristic once over the
// tenant's stages.
func (h *StageHandler) ImportLegacyRoles(c *gin.Context) {
	tenantID, _, _ := getIdentity(c)
	tagged, err := h.Service.ImportLegacyStageRoles(tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flags_set": tagged})
}
