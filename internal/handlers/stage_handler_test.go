package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow/internal/models"
	"leadflow/internal/services"
)

// memStageRepo is a minimal in-memory StageRepository for handler tests.
type memStageRepo struct {
	stages []*models.PipelineStage
	nextID int
	refs   int
}

func (m *memStageRepo) Create(stage *models.PipelineStage) error {
	m.nextID++
	stage.ID = m.nextID
	cp := *stage
	m.stages = append(m.stages, &cp)
	return nil
}

func (m *memStageRepo) Update(stage *models.PipelineStage) error {
	for i, st := range m.stages {
		if st.TenantID == stage.TenantID && st.ID == stage.ID {
			cp := *stage
			m.stages[i] = &cp
		}
	}
	return nil
}

func (m *memStageRepo) GetByID(tenantID, id int) (*models.PipelineStage, error) {
	for _, st := range m.stages {
		if st.TenantID == tenantID && st.ID == id {
			cp := *st
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStageRepo) GetBySlug(tenantID int, slug string) (*models.PipelineStage, error) {
	for _, st := range m.stages {
		if st.TenantID == tenantID && st.Slug == slug {
			cp := *st
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStageRepo) List(tenantID int, stageType string) ([]*models.PipelineStage, error) {
	var out []*models.PipelineStage
	for _, st := range m.stages {
		if st.TenantID != tenantID {
			continue
		}
		cp := *st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m *memStageRepo) SetRole(tenantID, stageID int, role string, value bool) error {
	for _, st := range m.stages {
		if st.TenantID != tenantID || st.ID != stageID {
			continue
		}
		switch role {
		case models.StageRoleNewLead:
			st.IsNewLeadStage = value
		case models.StageRoleWon:
			st.IsWonStage = value
		case models.StageRoleLost:
			st.IsLostStage = value
		}
	}
	return nil
}

func (m *memStageRepo) SetActive(tenantID, stageID int, active bool) error { return nil }

func (m *memStageRepo) Delete(tenantID, stageID int) error {
	out := m.stages[:0]
	for _, st := range m.stages {
		if st.TenantID == tenantID && st.ID == stageID {
			continue
		}
		out = append(out, st)
	}
	m.stages = out
	return nil
}

func (m *memStageRepo) CountReferences(tenantID, stageID int) (int, error) { return m.refs, nil }

// testIdentity injects the context values AuthMiddleware would set.
func testIdentity(tenantID, userID, roleID int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("tenant_id", tenantID)
		c.Set("user_id", userID)
		c.Set("role_id", roleID)
		c.Next()
	}
}

func newStageRouter(repo *memStageRepo) (*gin.Engine, *services.StageService) {
	gin.SetMode(gin.TestMode)
	svc := services.NewStageService(repo)
	h := NewStageHandler(svc)

	r := gin.New()
	r.Use(testIdentity(1, 42, 50))
	r.GET("/stages", h.List)
	r.POST("/stages", h.Create)
	r.POST("/stages/:id/role", h.MarkRole)
	r.DELETE("/stages/:id", h.Delete)
	r.POST("/stages/import-roles", h.ImportLegacyRoles)
	return r, svc
}

func TestStageHandlerList(t *testing.T) {
	repo := &memStageRepo{}
	r, svc := newStageRouter(repo)
	require.NoError(t, svc.ProvisionDefaults(1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stages", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var stages []models.PipelineStage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stages))
	require.Len(t, stages, 3)
	assert.Equal(t, "lead", stages[0].Slug, "ordered by sort_order")
}

func TestStageHandlerCreate(t *testing.T) {
	repo := &memStageRepo{}
	r, _ := newStageRouter(repo)

	body, _ := json.Marshal(models.PipelineStage{
		Name: "Qualified", Slug: "qualified", SortOrder: 10, StageType: models.StageTypeLead,
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/stages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var created models.PipelineStage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 1, created.TenantID, "tenant comes from the token, not the body")
	assert.False(t, created.IsSystemDefault, "clients cannot mint system defaults")
	assert.True(t, created.IsActive)
}

func TestStageHandlerMarkRole(t *testing.T) {
	repo := &memStageRepo{}
	r, svc := newStageRouter(repo)
	require.NoError(t, svc.ProvisionDefaults(1))
	lead, _ := svc.Repo.GetBySlug(1, "lead")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/stages/1/role",
		bytes.NewReader([]byte(`{"role":"won","value":true}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	updated, _ := svc.Repo.GetByID(1, lead.ID)
	assert.True(t, updated.IsWonStage)
}

func TestStageHandlerDeleteConflictWhileReferenced(t *testing.T) {
	repo := &memStageRepo{}
	r, svc := newStageRouter(repo)
	require.NoError(t, svc.ProvisionDefaults(1))

	repo.refs = 3
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/stages/1", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	repo.refs = 0
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/stages/1", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestStageHandlerImportLegacyRoles(t *testing.T) {
	repo := &memStageRepo{}
	r, svc := newStageRouter(repo)
	require.NoError(t, svc.CreateStage(&models.PipelineStage{
		TenantID: 1, Name: "Won't Proceed", Slug: "wont-proceed", StageType: models.StageTypeLead,
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/stages/import-roles", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp["flags_set"], "substring heuristic tags wont-proceed as won")
}
