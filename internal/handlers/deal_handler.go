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

type DealHandler struct {
	Service *services.DealService
}

func NewDealHandler(service *services.DealService) *DealHandler {
	return &DealHandler{Service: service}
}

func (h *DealHandler) GetByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tenantID, userID, roleID := getIdentity(c)

	deal, err := h.Service.GetByID(tenantID, id)
	if err != nil || deal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "deal not found"})
		return
	}
	if deal.OwnerID != userID && !authz.IsElevated(roleID) && roleID != authz.RoleAudit {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, deal)
}

func (h *DealHandler) Update(c *gin.Context) {
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
		c.JSON(http.StatusNotFound, gin.H{"error": "deal not found"})
		return
	}
	if current.OwnerID != userID && !authz.IsElevated(roleID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var body models.Deal
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body.ID = id
	body.TenantID = tenantID
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

func (h *DealHandler) Delete(c *gin.Context) {
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
	if err := h.Service.Delete(tenantID, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DealHandler) List(c *gin.Context) {
	limit, offset := pageParams(c)
	tenantID, userID, roleID := getIdentity(c)

	var deals []*models.Deal
	var err error
	if authz.IsElevated(roleID) || roleID == authz.RoleAudit {
		deals, err = h.Service.ListPaginated(tenantID, limit, offset)
	} else {
		deals, err = h.Service.ListMy(tenantID, userID, limit, offset)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list deals"})
		return
	}
	c.JSON(http.StatusOK, deals)
}

// @Summary      Move a deal to another stage
// @Tags         Deals
// @Accept       json
// @Produce      json
// @Param        id    path      int               true  "Deal id"
// @Param        move  body      stageMoveRequest  true  "Target stage"
// @Success      200   {object}  models.Deal
// @Failure      422   {object}  map[string]string
// @Router       /deals/{id}/stage [post]
func (h *DealHandler) UpdateStage(c *gin.Context) {
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
		c.JSON(http.StatusNotFound, gin.H{"error": "deal not found"})
		return
	}
	if current.OwnerID != userID && !authz.IsElevated(roleID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	deal, err := h.Service.UpdateStage(tenantID, id, req.StageID)
	if err != nil {
		if errors.Is(err, services.ErrStageReferenceInvalid) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "stage does not accept deals"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, deal)
}
