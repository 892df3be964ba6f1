package services

import (
	"sort"
	"time"

	"leadflow/internal/models"
	"leadflow/internal/repositories"
)

// In-memory repository fakes for service tests.

type fakeRoundRobinRepo struct {
	config *models.RoundRobinConfig
	state  *models.RoundRobinState
	log    []*models.RoundRobinAssignment

	advanceCalls int
}

func (f *fakeRoundRobinRepo) GetConfig(tenantID int) (*models.RoundRobinConfig, error) {
	return f.config, nil
}

func (f *fakeRoundRobinRepo) SaveConfig(cfg *models.RoundRobinConfig) error {
	f.config = cfg
	return nil
}

func (f *fakeRoundRobinRepo) GetState(tenantID int) (*models.RoundRobinState, error) {
	return f.state, nil
}

func (f *fakeRoundRobinRepo) CountAssignmentsSince(tenantID, userID int, since time.Time) (int, error) {
	n := 0
	for _, a := range f.log {
		if a.UserID == userID && !a.AssignedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRoundRobinRepo) ListAssignments(tenantID, limit, offset int) ([]*models.RoundRobinAssignment, error) {
	return f.log, nil
}

func (f *fakeRoundRobinRepo) Advance(tenantID, leadID int, reason string, pick repositories.RotationPick) (*models.RoundRobinAssignment, error) {
	f.advanceCalls++
	if f.state == nil {
		f.state = &models.RoundRobinState{TenantID: tenantID, UserPool: []int{}}
	}
	user, cycle, pool := pick(f.state)
	now := time.Now()

	f.state.LastAssignedUserID = &user.ID
	f.state.LastAssignedName = user.Name
	f.state.LastAssignedAt = &now
	f.state.AssignmentCount++
	f.state.RotationCycle = cycle
	f.state.UserPool = pool

	a := &models.RoundRobinAssignment{
		ID:            len(f.log) + 1,
		TenantID:      tenantID,
		LeadID:        leadID,
		UserID:        user.ID,
		UserName:      user.Name,
		AssignedAt:    now,
		Reason:        reason,
		RotationCycle: cycle,
	}
	f.log = append(f.log, a)
	return a, nil
}

type fakeUserRepo struct {
	users []*models.User
}

func (f *fakeUserRepo) Create(u *models.User) error {
	u.ID = len(f.users) + 1
	f.users = append(f.users, u)
	return nil
}

func (f *fakeUserRepo) GetByID(tenantID, id int) (*models.User, error) {
	for _, u := range f.users {
		if u.TenantID == tenantID && u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) Update(u *models.User) error { return nil }
func (f *fakeUserRepo) Delete(tenantID, id int) error {
	return nil
}
func (f *fakeUserRepo) List(tenantID, limit, offset int) ([]*models.User, error) { return f.users, nil }
func (f *fakeUserRepo) Count(tenantID int) (int, error)                          { return len(f.users), nil }

func (f *fakeUserRepo) pool(tenantID int, onlyActive bool, match func(*models.User) bool) []models.PoolUser {
	var out []models.PoolUser
	for _, u := range f.users {
		if u.TenantID != tenantID {
			continue
		}
		if onlyActive && !u.IsActive {
			continue
		}
		if match != nil && !match(u) {
			continue
		}
		out = append(out, models.PoolUser{ID: u.ID, Name: u.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeUserRepo) ListPool(tenantID int, onlyActive bool) ([]models.PoolUser, error) {
	return f.pool(tenantID, onlyActive, nil), nil
}

func (f *fakeUserRepo) ListPoolByTeam(tenantID, teamID int, onlyActive bool) ([]models.PoolUser, error) {
	return f.pool(tenantID, onlyActive, func(u *models.User) bool {
		return u.TeamID != nil && *u.TeamID == teamID
	}), nil
}

func (f *fakeUserRepo) ListPoolByDepartment(tenantID, departmentID int, onlyActive bool) ([]models.PoolUser, error) {
	return f.pool(tenantID, onlyActive, func(u *models.User) bool {
		return u.DepartmentID != nil && *u.DepartmentID == departmentID
	}), nil
}

func (f *fakeUserRepo) ListPoolByIDs(tenantID int, ids []int, onlyActive bool) ([]models.PoolUser, error) {
	want := map[int]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return f.pool(tenantID, onlyActive, func(u *models.User) bool { return want[u.ID] }), nil
}

func (f *fakeUserRepo) UpdateRefresh(userID int, token string, expiresAt time.Time) error { return nil }
func (f *fakeUserRepo) RotateRefresh(oldToken, newToken string, newExpiresAt time.Time) (*models.User, error) {
	return nil, nil
}
func (f *fakeUserRepo) ClearRefresh(userID int) error { return nil }
func (f *fakeUserRepo) GetByRefreshToken(token string) (*models.User, error) {
	return nil, nil
}

type fakeStageRepo struct {
	stages []*models.PipelineStage
	nextID int
}

func (f *fakeStageRepo) Create(stage *models.PipelineStage) error {
	f.nextID++
	stage.ID = f.nextID
	cp := *stage
	f.stages = append(f.stages, &cp)
	return nil
}

func (f *fakeStageRepo) Update(stage *models.PipelineStage) error {
	for i, st := range f.stages {
		if st.TenantID == stage.TenantID && st.ID == stage.ID {
			cp := *stage
			f.stages[i] = &cp
			return nil
		}
	}
	return nil
}

func (f *fakeStageRepo) GetByID(tenantID, id int) (*models.PipelineStage, error) {
	for _, st := range f.stages {
		if st.TenantID == tenantID && st.ID == id {
			cp := *st
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStageRepo) GetBySlug(tenantID int, slug string) (*models.PipelineStage, error) {
	for _, st := range f.stages {
		if st.TenantID == tenantID && st.Slug == slug {
			cp := *st
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStageRepo) List(tenantID int, stageType string) ([]*models.PipelineStage, error) {
	var out []*models.PipelineStage
	for _, st := range f.stages {
		if st.TenantID != tenantID {
			continue
		}
		if stageType == models.StageTypeLead && !st.AcceptsLeads() {
			continue
		}
		if stageType == models.StageTypeDeal && !st.AcceptsDeals() {
			continue
		}
		cp := *st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (f *fakeStageRepo) SetRole(tenantID, stageID int, role string, value bool) error {
	for _, st := range f.stages {
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

func (f *fakeStageRepo) SetActive(tenantID, stageID int, active bool) error {
	for _, st := range f.stages {
		if st.TenantID == tenantID && st.ID == stageID {
			st.IsActive = active
		}
	}
	return nil
}

func (f *fakeStageRepo) Delete(tenantID, stageID int) error {
	out := f.stages[:0]
	for _, st := range f.stages {
		if st.TenantID == tenantID && st.ID == stageID {
			continue
		}
		out = append(out, st)
	}
	f.stages = out
	return nil
}

func (f *fakeStageRepo) CountReferences(tenantID, stageID int) (int, error) {
	return 0, nil
}

type fakeLeadRepo struct {
	leads  []*models.Lead
	nextID int
}

func (f *fakeLeadRepo) Create(lead *models.Lead) error {
	f.nextID++
	lead.ID = f.nextID
	cp := *lead
	f.leads = append(f.leads, &cp)
	return nil
}

func (f *fakeLeadRepo) Update(lead *models.Lead) error {
	for i, l := range f.leads {
		if l.TenantID == lead.TenantID && l.ID == lead.ID {
			cp := *lead
			f.leads[i] = &cp
		}
	}
	return nil
}

func (f *fakeLeadRepo) UpdateStage(tenantID, id, stageID int, status string) error {
	for _, l := range f.leads {
		if l.TenantID == tenantID && l.ID == id {
			l.StageID = stageID
			l.Status = status
		}
	}
	return nil
}

func (f *fakeLeadRepo) UpdateOwner(tenantID, id, ownerID int) error {
	for _, l := range f.leads {
		if l.TenantID == tenantID && l.ID == id {
			l.OwnerID = ownerID
		}
	}
	return nil
}

func (f *fakeLeadRepo) GetByID(tenantID, id int) (*models.Lead, error) {
	for _, l := range f.leads {
		if l.TenantID == tenantID && l.ID == id {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeLeadRepo) Delete(tenantID, id int) error { return nil }
func (f *fakeLeadRepo) ListPaginated(tenantID, limit, offset int) ([]*models.Lead, error) {
	return f.leads, nil
}
func (f *fakeLeadRepo) ListByOwner(tenantID, ownerID, limit, offset int) ([]*models.Lead, error) {
	return nil, nil
}
func (f *fakeLeadRepo) Filter(tenantID, stageID, ownerID int, sortBy, order string, limit, offset int) ([]*models.Lead, error) {
	return nil, nil
}
func (f *fakeLeadRepo) Count(tenantID int) (int, error) { return len(f.leads), nil }

type fakeDealRepo struct {
	deals  []*models.Deal
	nextID int
}

func (f *fakeDealRepo) Create(deal *models.Deal) error {
	f.nextID++
	deal.ID = f.nextID
	cp := *deal
	f.deals = append(f.deals, &cp)
	return nil
}

func (f *fakeDealRepo) Update(deal *models.Deal) error { return nil }
func (f *fakeDealRepo) UpdateStage(tenantID, id, stageID int, status string) error {
	for _, d := range f.deals {
		if d.TenantID == tenantID && d.ID == id {
			d.StageID = stageID
			d.Status = status
		}
	}
	return nil
}

func (f *fakeDealRepo) GetByID(tenantID, id int) (*models.Deal, error) {
	for _, d := range f.deals {
		if d.TenantID == tenantID && d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDealRepo) GetByLeadID(tenantID, leadID int) (*models.Deal, error) {
	for _, d := range f.deals {
		if d.TenantID == tenantID && d.LeadID == leadID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDealRepo) Delete(tenantID, id int) error {
	out := f.deals[:0]
	for _, d := range f.deals {
		if d.TenantID == tenantID && d.ID == id {
			continue
		}
		out = append(out, d)
	}
	f.deals = out
	return nil
}

func (f *fakeDealRepo) ListPaginated(tenantID, limit, offset int) ([]*models.Deal, error) {
	return f.deals, nil
}
func (f *fakeDealRepo) ListByOwner(tenantID, ownerID, limit, offset int) ([]*models.Deal, error) {
	return nil, nil
}
func (f *fakeDealRepo) Count(tenantID int) (int, error) { return len(f.deals), nil }

type fakeStatsRepo struct {
	newLeads  int
	wonLeads  int
	wonDeals  int
	lostLeads int
	lostDeals int
}

func (f *fakeStatsRepo) CountNewLeads(tenantID int, from, to time.Time) (int, error) {
	return f.newLeads, nil
}

func (f *fakeStatsRepo) CountLeadsWithRole(tenantID int, role string, from, to time.Time) (int, error) {
	if role == models.StageRoleWon {
		return f.wonLeads, nil
	}
	return f.lostLeads, nil
}

func (f *fakeStatsRepo) CountDealsWithRole(tenantID int, role string, from, to time.Time) (int, error) {
	if role == models.StageRoleWon {
		return f.wonDeals, nil
	}
	return f.lostDeals, nil
}
