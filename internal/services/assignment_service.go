package services

import (
	"fmt"
	"log"
	"time"

	"leadflow/internal/models"
	"leadflow/internal/repositories"
)

// AssignmentService rotates new-lead ownership across the tenant's
// eligible user pool: scope, working hours and caps narrow the pool,
// fallbacks cover the empty case, and the state advance runs under the
// repository's per-tenant row lock.
type AssignmentService struct {
	Repo     repositories.RoundRobinRepository
	UserRepo repositories.UserRepository

	now func() time.Time
}

func NewAssignmentService(repo repositories.RoundRobinRepository, userRepo repositories.UserRepository) *AssignmentService {
	return &AssignmentService{Repo: repo, UserRepo: userRepo, now: time.Now}
}

// Assign picks the owner for a new lead. A missing config counts as
// disabled; disabled and fallback paths return without touching rotation
// state or the assignment log.
func (s *AssignmentService) Assign(tenantID, leadID, creatorID int) (*models.AssignmentResult, error) {
	cfg, err := s.Repo.GetConfig(tenantID)
	if err != nil {
		return nil, fmt.Errorf("load round-robin config: %w", err)
	}
	if cfg == nil || !cfg.IsEnabled {
		return s.creatorResult(tenantID, creatorID, models.ReasonDisabled), nil
	}

	now := s.now()
	pool, err := s.eligiblePool(tenantID, cfg, now)
	if err != nil {
		return nil, fmt.Errorf("compute assignment pool: %w", err)
	}
	if len(pool) == 0 {
		return s.fallback(tenantID, cfg, creatorID)
	}

	assignment, err := s.Repo.Advance(tenantID, leadID, models.ReasonRotation,
		func(st *models.RoundRobinState) (models.PoolUser, int, []int) {
			last := 0
			if st.LastAssignedUserID != nil {
				last = *st.LastAssignedUserID
			}
			user, cycle := nextAssignee(pool, last, st.RotationCycle)
			return user, cycle, poolIDs(pool)
		})
	if err != nil {
		return nil, err
	}
	log.Printf("[assign][rotate] tenant=%d lead=%d -> user=%d cycle=%d pool=%d",
		tenantID, leadID, assignment.UserID, assignment.RotationCycle, len(pool))
	return &models.AssignmentResult{
		UserID:   assignment.UserID,
		UserName: assignment.UserName,
		Reason:   assignment.Reason,
	}, nil
}

// Config returns the tenant's policy, nil when never configured.
func (s *AssignmentService) Config(tenantID int) (*models.RoundRobinConfig, error) {
	return s.Repo.GetConfig(tenantID)
}

func (s *AssignmentService) SaveConfig(cfg *models.RoundRobinConfig) error {
	switch cfg.AssignmentScope {
	case models.ScopeAll, models.ScopeTeam, models.ScopeDepartment, models.ScopeCustom:
	case "":
		cfg.AssignmentScope = models.ScopeAll
	default:
		return fmt.Errorf("invalid assignment_scope %q", cfg.AssignmentScope)
	}
	return s.Repo.SaveConfig(cfg)
}

// State exposes the rotation cursor for settings inspection (read-only).
func (s *AssignmentService) State(tenantID int) (*models.RoundRobinState, error) {
	return s.Repo.GetState(tenantID)
}

func (s *AssignmentService) ListAssignments(tenantID, limit, offset int) ([]*models.RoundRobinAssignment, error) {
	return s.Repo.ListAssignments(tenantID, limit, offset)
}

// nextAssignee is the rotation rule. The pool may have changed since the
// last run: when the last-assigned user is no longer in it, rotation
// restarts at index 0 without bumping the cycle. Wrapping past the end of
// the pool increments the cycle.
func nextAssignee(pool []models.PoolUser, lastID, cycle int) (models.PoolUser, int) {
	idx := -1
	for i, u := range pool {
		if u.ID == lastID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return pool[0], cycle
	}
	next := idx + 1
	if next >= len(pool) {
		return pool[0], cycle + 1
	}
	return pool[next], cycle
}

func poolIDs(pool []models.PoolUser) []int {
	ids := make([]int, len(pool))
	for i, u := range pool {
		ids[i] = u.ID
	}
	return ids
}

// eligiblePool narrows tenant users to the ones rotation may pick:
// assignment scope, then working hours, then per-day/week caps.
func (s *AssignmentService) eligiblePool(tenantID int, cfg *models.RoundRobinConfig, now time.Time) ([]models.PoolUser, error) {
	if !withinWorkingHours(cfg, now) {
		return nil, nil
	}

	onlyActive := cfg.SkipInactiveUsers
	var pool []models.PoolUser
	var err error
	switch cfg.AssignmentScope {
	case models.ScopeTeam:
		if cfg.TeamID == nil {
			return nil, nil
		}
		pool, err = s.UserRepo.ListPoolByTeam(tenantID, *cfg.TeamID, onlyActive)
	case models.ScopeDepartment:
		if cfg.DepartmentID == nil {
			return nil, nil
		}
		pool, err = s.UserRepo.ListPoolByDepartment(tenantID, *cfg.DepartmentID, onlyActive)
	case models.ScopeCustom:
		if len(cfg.CustomUserIDs) == 0 {
			return nil, nil
		}
		pool, err = s.UserRepo.ListPoolByIDs(tenantID, cfg.CustomUserIDs, onlyActive)
	default: // "all"
		pool, err = s.UserRepo.ListPool(tenantID, onlyActive)
	}
	if err != nil {
		return nil, err
	}

	if cfg.SkipFullAgents && (cfg.MaxLeadsPerDay != nil || cfg.MaxLeadsPerWeek != nil) {
		pool, err = s.dropCappedUsers(tenantID, cfg, pool, now)
		if err != nil {
			return nil, err
		}
	}
	return pool, nil
}

// dropCappedUsers removes users already at their daily or weekly cap.
// Counts come from the append-only assignment log.
func (s *AssignmentService) dropCappedUsers(tenantID int, cfg *models.RoundRobinConfig, pool []models.PoolUser, now time.Time) ([]models.PoolUser, error) {
	loc := configLocation(cfg)
	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	weekStart := startOfWeek(local)

	var out []models.PoolUser
	for _, u := range pool {
		if cfg.MaxLeadsPerDay != nil {
			n, err := s.Repo.CountAssignmentsSince(tenantID, u.ID, dayStart)
			if err != nil {
				return nil, err
			}
			if n >= *cfg.MaxLeadsPerDay {
				continue
			}
		}
		if cfg.MaxLeadsPerWeek != nil {
			n, err := s.Repo.CountAssignmentsSince(tenantID, u.ID, weekStart)
			if err != nil {
				return nil, err
			}
			if n >= *cfg.MaxLeadsPerWeek {
				continue
			}
		}
		out = append(out, u)
	}
	return out, nil
}

// fallback applies when the pool came up empty. Creator first, then the
// configured fallback user, then ErrNoEligibleUsers for the caller to
// resolve (lead proceeds unassigned).
func (s *AssignmentService) fallback(tenantID int, cfg *models.RoundRobinConfig, creatorID int) (*models.AssignmentResult, error) {
	if cfg.FallbackToCreator {
		return s.creatorResult(tenantID, creatorID, models.ReasonFallbackCreator), nil
	}
	if cfg.FallbackUserID != nil {
		u, err := s.UserRepo.GetByID(tenantID, *cfg.FallbackUserID)
		if err != nil {
			return nil, err
		}
		if u != nil {
			return &models.AssignmentResult{UserID: u.ID, UserName: u.Name, Reason: models.ReasonFallbackUser}, nil
		}
		log.Printf("[assign][fallback] tenant=%d fallback user %d not found", tenantID, *cfg.FallbackUserID)
	}
	return nil, ErrNoEligibleUsers
}

func (s *AssignmentService) creatorResult(tenantID, creatorID int, reason string) *models.AssignmentResult {
	name := ""
	if u, err := s.UserRepo.GetByID(tenantID, creatorID); err == nil && u != nil {
		name = u.Name
	}
	return &models.AssignmentResult{UserID: creatorID, UserName: name, Reason: reason}
}

// withinWorkingHours checks the advisory window in the configured
// timezone. No window, an unknown timezone or an unparseable time all
// disable the filter rather than fail the assignment.
func withinWorkingHours(cfg *models.RoundRobinConfig, now time.Time) bool {
	wh := cfg.WorkingHours
	if wh == nil {
		return true
	}
	t := now.In(configLocation(cfg))

	if len(wh.Days) > 0 {
		ok := false
		for _, d := range wh.Days {
			if d == int(t.Weekday()) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	start, err1 := parseClock(wh.Start)
	end, err2 := parseClock(wh.End)
	if err1 != nil || err2 != nil {
		return true
	}
	cur := t.Hour()*60 + t.Minute()
	return cur >= start && cur < end
}

func configLocation(cfg *models.RoundRobinConfig) *time.Location {
	if cfg.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("[assign][hours] unknown timezone %q, working-hours filter disabled", cfg.Timezone)
		return time.UTC
	}
	return loc
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// startOfWeek: Monday 00:00 in t's location.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -offset)
}
