package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"leadflow/internal/authz"
	"leadflow/internal/models"
	"leadflow/internal/services"
)

type LeadHandler struct {
	Service *services.LeadService
}

func NewLeadHandler(service *services.LeadService) *LeadHandler {
	return &LeadHandler{Service: service}
}

// @Summary      Create a lead
// @Description  Stores the lead in the tenant's new-lead stage and runs round-robin assignment
// @Tags         Leads
// @Accept       json
// @Produce      json
// @Param        lead  body      models.Lead  true  "Lead"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Router       /leads [post]
func (h *LeadHandler) Create(c *gin.Context) {
	var lead models.Lead
	if err := c.ShouldBindJSON(&lead); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID, userID, roleID := getIdentity(c)
	if authz.IsReadOnly(roleID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "read-only role"})
		return
	}

	// tenant and creator come from the token, never from the body
	lead.TenantID = tenantID
	lead.OwnerID = 0

	assignment, err := h.Service.Create(&lead, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// assignment may be nil: the lead is created either way
	c.JSON(http.StatusCreated, gin.H{"lead": lead, "assignment": assignment})
}

func (h *LeadHandler) GetByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tenantID, userID, roleID := getIdentity(c)

	lead, err := h.Service.GetByID(tenantID, id)
	if err != nil || lead == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	if lead.OwnerID != userID && !authz.IsElevated(roleID) && roleID != authz.RoleAudit {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, lead)
}

func (h *LeadHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tenantID, userID, roleID := getIdentity(c)
	if authz.IsReadOnly(roleID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "read-only role"})
		return
	}

	current, err := h.Service.GetByID(tenantID, id)
	if err != nil || current == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	// sales edit their own; elevated edit anything
	if current.OwnerID != userID && !authz.IsElevated(roleID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var body models.Lead
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body.ID = id
	body.TenantID = tenantID
	body.StageID = current.StageID // stage moves go through /stage only
	if !authz.IsElevated(roleID) {
		body.OwnerID = current.OwnerID
	}

	if err := h.Service.Update(&body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	updated, _ := h.Service.GetByID(tenantID, id)
	c.JSON(http.StatusOK, updated)
}

func (h *LeadHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tenantID, userID, roleID := getIdentity(c)

	lead, err := h.Service.GetByID(tenantID, id)
	if err != nil || lead == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	if lead.OwnerID != userID && !authz.IsElevated(roleID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if err := h.Service.Delete(tenantID, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LeadHandler) List(c *gin.Context) {
	limit, offset := pageParams(c)
	tenantID, userID, roleID := getIdentity(c)

	var leads []*models.Lead
	var err error
	if authz.IsElevated(roleID) || roleID == authz.RoleAudit {
		leads, err = h.Service.ListPaginated(tenantID, limit, offset)
	} else {
		leads, err = h.Service.ListMy(tenantID, userID, limit, offset)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list leads"})
		return
	}
	c.JSON(http.StatusOK, leads)
}

type stageMoveRequest struct {
	StageID int `json:"stage_id" binding:"required"`
}

// @Summary      Move a lead to another stage
// @Tags         Leads
// @Accept       json
// @Produce      json
// @Param        id    path      int               true  "Lead id"
// @Param        move  body      stageMoveRequest  true  "Target stage"
// @Success      200   {object}  models.Lead
// @Failure      422   {object}  map[string]string
// @Router       /leads/{id}/stage [post]
func (h *LeadHandler) UpdateStage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tenantID, userID, roleID := getIdentity(c)

	var req stageMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	current, err := h.Service.GetByID(tenantID, id)
	if err != nil || current == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	if current.OwnerID != userID && !authz.IsElevated(roleID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	lead, err := h.Service.UpdateStage(tenantID, id, req.StageID)
	if err != nil {
		if errors.Is(err, services.ErrStageReferenceInvalid) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "stage does not accept leads"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lead)
}

type assignRequest struct {
	UserID int `json:"user_id" binding:"required"`
}

// Assign sets the owner manually, outside the rotation.
func (h *LeadHandler) Assign(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tenantID, _, roleID := getIdentity(c)
	if !authz.IsElevated(roleID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Service.AssignOwner(tenantID, id, req.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ConvertLeadRequest — request body for conversion (also used by Swagger).
type ConvertLeadRequest struct {
	Amount   string `json:"amount" example:"50000"`
	Currency string `json:"currency" example:"USD"`
}

// @Summary      Convert a lead into a deal
// @Tags         Leads
// @Accept       json
// @Produce      json
// @Param        id       path      int                 true  "Lead id"
// @Param        convert  body      ConvertLeadRequest  true  "Deal terms"
// @Success      201      {object}  models.Deal
// @Failure      409      {object}  map[string]string
// @Router       /leads/{id}/convert [put]
func (h *LeadHandler) ConvertToDeal(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tenantID, userID, roleID := getIdentity(c)

	lead, err := h.Service.GetByID(tenantID, id)
	if err != nil || lead == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	if lead.OwnerID != userID && !authz.IsElevated(roleID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var req ConvertLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deal, convErr := h.Service.ConvertToDeal(tenantID, id, req.Amount, req.Currency, lead.OwnerID)
	if convErr != nil {
		switch convErr.Error() {
		case "lead not found":
			c.JSON(http.StatusNotFound, gin.H{"error": convErr.Error()})
		case "deal already exists for this lead":
			c.JSON(http.StatusConflict, gin.H{"error": convErr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": convErr.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, deal)
}
