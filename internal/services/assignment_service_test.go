package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow/internal/models"
)

func intPtr(v int) *int { return &v }

// Wednesday 2025-06-11 10:30 UTC, inside a 09:00-18:00 window.
var testNow = time.Date(2025, 6, 11, 10, 30, 0, 0, time.UTC)

func newAssignmentFixture(users ...*models.User) (*AssignmentService, *fakeRoundRobinRepo, *fakeUserRepo) {
	rr := &fakeRoundRobinRepo{}
	ur := &fakeUserRepo{users: users}
	svc := NewAssignmentService(rr, ur)
	svc.now = func() time.Time { return testNow }
	return svc, rr, ur
}

func poolUsers(tenantID int, n int) []*models.User {
	out := make([]*models.User, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, &models.User{
			ID:       i,
			TenantID: tenantID,
			Name:     string(rune('A' - 1 + i)),
			IsActive: true,
		})
	}
	return out
}

func TestNextAssignee(t *testing.T) {
	pool := []models.PoolUser{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}}

	tests := []struct {
		name      string
		lastID    int
		cycle     int
		wantID    int
		wantCycle int
	}{
		{"middle of pool", 2, 2, 3, 2},
		{"wrap bumps cycle", 3, 2, 1, 3},
		{"no previous assignee", 0, 0, 1, 0},
		{"last user left the pool", 99, 4, 1, 4},
		{"first of pool", 1, 1, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, cycle := nextAssignee(pool, tt.lastID, tt.cycle)
			assert.Equal(t, tt.wantID, user.ID)
			assert.Equal(t, tt.wantCycle, cycle)
		})
	}
}

func TestNextAssigneeSingleUserPool(t *testing.T) {
	pool := []models.PoolUser{{ID: 7, Name: "Solo"}}

	user, cycle := nextAssignee(pool, 7, 0)
	assert.Equal(t, 7, user.ID)
	assert.Equal(t, 1, cycle, "every assignment wraps with one user")

	user, cycle = nextAssignee(pool, 7, cycle)
	assert.Equal(t, 7, user.ID)
	assert.Equal(t, 2, cycle)
}

func TestAssignRotatesFairly(t *testing.T) {
	svc, rr, _ := newAssignmentFixture(poolUsers(1, 3)...)
	rr.config = &models.RoundRobinConfig{
		TenantID:        1,
		IsEnabled:       true,
		AssignmentScope: models.ScopeAll,
	}

	const k = 10
	counts := map[int]int{}
	for lead := 1; lead <= k; lead++ {
		res, err := svc.Assign(1, lead, 42)
		require.NoError(t, err)
		require.Equal(t, models.ReasonRotation, res.Reason)
		counts[res.UserID]++
	}

	// K assignments across N users: every user gets floor(K/N) or ceil(K/N)
	for id, n := range counts {
		assert.GreaterOrEqual(t, n, k/3, "user %d under-assigned", id)
		assert.LessOrEqual(t, n, k/3+1, "user %d over-assigned", id)
	}
	assert.Len(t, rr.log, k, "one log row per rotation")
	assert.Equal(t, k, rr.state.AssignmentCount)
	assert.Equal(t, 3, rr.state.RotationCycle, "10 assignments over 3 users wrap three times")
}

func TestAssignResumesAfterLastAssigned(t *testing.T) {
	svc, rr, _ := newAssignmentFixture(poolUsers(1, 3)...)
	rr.config = &models.RoundRobinConfig{TenantID: 1, IsEnabled: true, AssignmentScope: models.ScopeAll}
	rr.state = &models.RoundRobinState{
		TenantID:           1,
		LastAssignedUserID: intPtr(2),
		RotationCycle:      2,
		UserPool:           []int{1, 2, 3},
	}

	res, err := svc.Assign(1, 100, 42)
	require.NoError(t, err)
	assert.Equal(t, 3, res.UserID)
	assert.Equal(t, 2, rr.state.RotationCycle, "no wrap, cycle unchanged")

	res, err = svc.Assign(1, 101, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, res.UserID)
	assert.Equal(t, 3, rr.state.RotationCycle, "wrapped past the end")
}

func TestAssignStaleCursorRestartsAtPoolStart(t *testing.T) {
	svc, rr, _ := newAssignmentFixture(poolUsers(1, 3)...)
	rr.config = &models.RoundRobinConfig{TenantID: 1, IsEnabled: true, AssignmentScope: models.ScopeAll}
	rr.state = &models.RoundRobinState{
		TenantID:           1,
		LastAssignedUserID: intPtr(99), // deleted since last rotation
		RotationCycle:      5,
		UserPool:           []int{1, 2, 3, 99},
	}

	res, err := svc.Assign(1, 100, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, res.UserID)
	assert.Equal(t, 5, rr.state.RotationCycle, "restart does not count as a wrap")
	assert.Equal(t, []int{1, 2, 3}, rr.state.UserPool, "pool snapshot refreshed")
}

func TestAssignMissingConfigActsDisabled(t *testing.T) {
	creator := &models.User{ID: 42, TenantID: 1, Name: "Creator", IsActive: true}
	svc, rr, _ := newAssignmentFixture(creator)

	res, err := svc.Assign(1, 1, 42)
	require.NoError(t, err)
	assert.Equal(t, 42, res.UserID)
	assert.Equal(t, "Creator", res.UserName)
	assert.Equal(t, models.ReasonDisabled, res.Reason)

	assert.Zero(t, rr.advanceCalls, "disabled path must not touch rotation state")
	assert.Empty(t, rr.log)
	assert.Nil(t, rr.state)
}

func TestAssignDisabledConfig(t *testing.T) {
	svc, rr, _ := newAssignmentFixture(poolUsers(1, 3)...)
	rr.config = &models.RoundRobinConfig{TenantID: 1, IsEnabled: false, AssignmentScope: models.ScopeAll}

	res, err := svc.Assign(1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.UserID)
	assert.Equal(t, models.ReasonDisabled, res.Reason)
	assert.Zero(t, rr.advanceCalls)
}

func TestAssignCapsEmptyPoolFallsBackToCreator(t *testing.T) {
	users := poolUsers(1, 2)
	svc, rr, _ := newAssignmentFixture(users...)
	rr.config = &models.RoundRobinConfig{
		TenantID:          1,
		IsEnabled:         true,
		AssignmentScope:   models.ScopeAll,
		SkipFullAgents:    true,
		MaxLeadsPerDay:    intPtr(1),
		FallbackToCreator: true,
	}
	// both users already at today's cap
	for _, u := range users {
		rr.log = append(rr.log, &models.RoundRobinAssignment{
			TenantID: 1, UserID: u.ID, AssignedAt: testNow.Add(-time.Hour),
		})
	}
	logLen := len(rr.log)

	res, err := svc.Assign(1, 10, 42)
	require.NoError(t, err)
	assert.Equal(t, 42, res.UserID)
	assert.Equal(t, models.ReasonFallbackCreator, res.Reason)
	assert.Zero(t, rr.advanceCalls, "fallback must not rotate")
	assert.Len(t, rr.log, logLen, "fallback never appends to the rotation log")
}

func TestAssignFallbackUser(t *testing.T) {
	fallback := &models.User{ID: 9, TenantID: 1, Name: "Catcher", IsActive: true}
	svc, rr, _ := newAssignmentFixture(fallback)
	rr.config = &models.RoundRobinConfig{
		TenantID:        1,
		IsEnabled:       true,
		AssignmentScope: models.ScopeCustom,
		CustomUserIDs:   []int{}, // empty scope, pool always empty
		FallbackUserID:  intPtr(9),
	}

	res, err := svc.Assign(1, 10, 42)
	require.NoError(t, err)
	assert.Equal(t, 9, res.UserID)
	assert.Equal(t, "Catcher", res.UserName)
	assert.Equal(t, models.ReasonFallbackUser, res.Reason)
}

func TestAssignNoEligibleUsers(t *testing.T) {
	svc, rr, _ := newAssignmentFixture() // nobody in the tenant
	rr.config = &models.RoundRobinConfig{TenantID: 1, IsEnabled: true, AssignmentScope: models.ScopeAll}

	res, err := svc.Assign(1, 10, 42)
	require.ErrorIs(t, err, ErrNoEligibleUsers)
	assert.Nil(t, res)
	assert.Zero(t, rr.advanceCalls)
}

func TestAssignSkipsInactiveUsers(t *testing.T) {
	users := poolUsers(1, 3)
	users[1].IsActive = false
	svc, rr, _ := newAssignmentFixture(users...)
	rr.config = &models.RoundRobinConfig{
		TenantID:          1,
		IsEnabled:         true,
		AssignmentScope:   models.ScopeAll,
		SkipInactiveUsers: true,
	}

	seen := map[int]bool{}
	for lead := 1; lead <= 4; lead++ {
		res, err := svc.Assign(1, lead, 42)
		require.NoError(t, err)
		seen[res.UserID] = true
	}
	assert.False(t, seen[2], "inactive user must never be picked")
}

func TestAssignTeamScope(t *testing.T) {
	users := poolUsers(1, 3)
	users[0].TeamID = intPtr(5)
	users[2].TeamID = intPtr(5)
	svc, rr, _ := newAssignmentFixture(users...)
	rr.config = &models.RoundRobinConfig{
		TenantID:        1,
		IsEnabled:       true,
		AssignmentScope: models.ScopeTeam,
		TeamID:          intPtr(5),
	}

	res, err := svc.Assign(1, 1, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, res.UserID)

	res, err = svc.Assign(1, 2, 42)
	require.NoError(t, err)
	assert.Equal(t, 3, res.UserID, "user 2 is outside the team")
}

func TestAssignOutsideWorkingHours(t *testing.T) {
	svc, rr, _ := newAssignmentFixture(poolUsers(1, 3)...)
	rr.config = &models.RoundRobinConfig{
		TenantID:          1,
		IsEnabled:         true,
		AssignmentScope:   models.ScopeAll,
		WorkingHours:      &models.WorkingHours{Start: "09:00", End: "18:00"},
		FallbackToCreator: true,
	}
	svc.now = func() time.Time {
		return time.Date(2025, 6, 11, 22, 0, 0, 0, time.UTC) // after hours
	}

	res, err := svc.Assign(1, 1, 42)
	require.NoError(t, err)
	assert.Equal(t, models.ReasonFallbackCreator, res.Reason)
	assert.Zero(t, rr.advanceCalls)
}

func TestWithinWorkingHours(t *testing.T) {
	wed := time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		name string
		cfg  models.RoundRobinConfig
		now  time.Time
		want bool
	}{
		{"no window configured", models.RoundRobinConfig{}, wed, true},
		{
			"inside window",
			models.RoundRobinConfig{WorkingHours: &models.WorkingHours{Start: "09:00", End: "18:00"}},
			wed, true,
		},
		{
			"before start",
			models.RoundRobinConfig{WorkingHours: &models.WorkingHours{Start: "09:00", End: "18:00"}},
			time.Date(2025, 6, 11, 8, 59, 0, 0, time.UTC), false,
		},
		{
			"end is exclusive",
			models.RoundRobinConfig{WorkingHours: &models.WorkingHours{Start: "09:00", End: "18:00"}},
			time.Date(2025, 6, 11, 18, 0, 0, 0, time.UTC), false,
		},
		{
			"wrong weekday",
			models.RoundRobinConfig{WorkingHours: &models.WorkingHours{Start: "09:00", End: "18:00", Days: []int{1, 2}}},
			wed, false,
		},
		{
			"unparseable times disable the filter",
			models.RoundRobinConfig{WorkingHours: &models.WorkingHours{Start: "morning", End: "evening"}},
			wed, true,
		},
		{
			"unknown timezone falls back to UTC",
			models.RoundRobinConfig{
				Timezone:     "Mars/Olympus",
				WorkingHours: &models.WorkingHours{Start: "09:00", End: "18:00"},
			},
			wed, true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, withinWorkingHours(&tt.cfg, tt.now))
		})
	}
}

func TestSaveConfigScopeValidation(t *testing.T) {
	svc, rr, _ := newAssignmentFixture()

	err := svc.SaveConfig(&models.RoundRobinConfig{TenantID: 1, AssignmentScope: "everyone"})
	require.Error(t, err)
	assert.Nil(t, rr.config)

	cfg := &models.RoundRobinConfig{TenantID: 1}
	require.NoError(t, svc.SaveConfig(cfg))
	assert.Equal(t, models.ScopeAll, cfg.AssignmentScope, "empty scope normalizes to all")
}
