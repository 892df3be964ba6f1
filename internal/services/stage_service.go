package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"leadflow/internal/models"
	"leadflow/internal/repositories"
)

// StageService is the single source of truth for what stage a lead or deal
// is in: ordered tenant-scoped stages, role flags, system defaults.
type StageService struct {
	Repo repositories.StageRepository
}

func NewStageService(repo repositories.StageRepository) *StageService {
	return &StageService{Repo: repo}
}

// System default stages, provisioned once per tenant (idempotent by slug).
var systemDefaultStages = []models.PipelineStage{
	{Name: "Lead", Slug: "lead", Color: "#3b82f6", SortOrder: 0, StageType: models.StageTypeBoth, IsNewLeadStage: true},
	{Name: "Closed Won", Slug: "closed-won", Color: "#22c55e", SortOrder: 90, StageType: models.StageTypeBoth, IsWonStage: true},
	{Name: "Closed Lost", Slug: "closed-lost", Color: "#ef4444", SortOrder: 100, StageType: models.StageTypeBoth, IsLostStage: true},
}

func (s *StageService) ListStages(tenantID int, stageType string) ([]*models.PipelineStage, error) {
	return s.Repo.List(tenantID, stageType)
}

func (s *StageService) GetByID(tenantID, stageID int) (*models.PipelineStage, error) {
	return s.Repo.GetByID(tenantID, stageID)
}

func (s *StageService) CreateStage(stage *models.PipelineStage) error {
	switch stage.StageType {
	case models.StageTypeLead, models.StageTypeDeal, models.StageTypeBoth:
	default:
		return fmt.Errorf("invalid stage_type %q", stage.StageType)
	}
	if strings.TrimSpace(stage.Slug) == "" {
		return errors.New("slug is required")
	}
	existing, err := s.Repo.GetBySlug(stage.TenantID, stage.Slug)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("stage slug %q already exists", stage.Slug)
	}
	stage.IsActive = true
	return s.Repo.Create(stage)
}

func (s *StageService) UpdateStage(stage *models.PipelineStage) error {
	current, err := s.Repo.GetByID(stage.TenantID, stage.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return errors.New("stage not found")
	}
	return s.Repo.Update(stage)
}

// ResolveDefaultStage returns the stage a new entity lands in. For leads:
// the lowest-ordered active stage flagged is_new_lead_stage. For deals: the
// lowest-ordered active stage accepting deals. ErrNotConfigured when the
// tenant has no match; callers fall back to ProvisionDefaults.
func (s *StageService) ResolveDefaultStage(tenantID int, kind string) (*models.PipelineStage, error) {
	stages, err := s.Repo.List(tenantID, kind)
	if err != nil {
		return nil, err
	}
	for _, st := range stages { // already ordered by sort_order
		if !st.IsActive {
			continue
		}
		if kind == models.StageTypeLead && !st.IsNewLeadStage {
			continue
		}
		return st, nil
	}
	return nil, ErrNotConfigured
}

// DefaultStage is ResolveDefaultStage with the provisioning fallback:
// a tenant with no matching stage gets the system defaults, idempotently.
func (s *StageService) DefaultStage(tenantID int, kind string) (*models.PipelineStage, error) {
	stage, err := s.ResolveDefaultStage(tenantID, kind)
	if errors.Is(err, ErrNotConfigured) {
		if err := s.ProvisionDefaults(tenantID); err != nil {
			return nil, err
		}
		return s.ResolveDefaultStage(tenantID, kind)
	}
	return stage, err
}

// ProvisionDefaults creates the three system-default stages for a tenant.
// Idempotent: checked by tenant+slug before each insert, never duplicates.
func (s *StageService) ProvisionDefaults(tenantID int) error {
	for _, def := range systemDefaultStages {
		existing, err := s.Repo.GetBySlug(tenantID, def.Slug)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		stage := def // copy
		stage.TenantID = tenantID
		stage.IsSystemDefault = true
		stage.IsActive = true
		if err := s.Repo.Create(&stage); err != nil {
			return err
		}
		log.Printf("[stage][provision] tenant=%d slug=%s created", tenantID, stage.Slug)
	}
	return nil
}

// MarkRole toggles one role flag on a stage. Idempotent. It deliberately
// does NOT clear the flag on other stages: several stages may carry the
// same role and ResolveDefaultStage picks the lowest-ordered one
// (last-write-wins policy).
func (s *StageService) MarkRole(tenantID, stageID int, role string, value bool) error {
	stage, err := s.Repo.GetByID(tenantID, stageID)
	if err != nil {
		return err
	}
	if stage == nil {
		return errors.New("stage not found")
	}
	return s.Repo.SetRole(tenantID, stageID, role, value)
}

// ImportLegacyStageRoles tags stages by slug substring: "won" marks a won
// stage, "lost" a lost one, "new" (or the bare "lead" slug) the new-lead
// stage. This is a heuristic one-shot import for stages migrated from the
// legacy status strings; it can mis-tag (a stage slugged "wont-proceed"
// gets is_won_stage). The flags stay editable through MarkRole afterwards
// and are the only thing consulted from then on. Only sets flags, never
// clears them. Returns how many flags were set.
func (s *StageService) ImportLegacyStageRoles(tenantID int) (int, error) {
	stages, err := s.Repo.List(tenantID, "")
	if err != nil {
		return 0, err
	}
	tagged := 0
	for _, st := range stages {
		slug := strings.ToLower(st.Slug)
		if strings.Contains(slug, "won") && !st.IsWonStage {
			if err := s.Repo.SetRole(tenantID, st.ID, models.StageRoleWon, true); err != nil {
				return tagged, err
			}
			tagged++
		}
		if strings.Contains(slug, "lost") && !st.IsLostStage {
			if err := s.Repo.SetRole(tenantID, st.ID, models.StageRoleLost, true); err != nil {
				return tagged, err
			}
			tagged++
		}
		if (strings.Contains(slug, "new") || slug == "lead") && !st.IsNewLeadStage {
			if err := s.Repo.SetRole(tenantID, st.ID, models.StageRoleNewLead, true); err != nil {
				return tagged, err
			}
			tagged++
		}
	}
	log.Printf("[stage][import] tenant=%d legacy role flags set: %d", tenantID, tagged)
	return tagged, nil
}

// DeactivateStage hides a stage from new assignments without breaking
// existing references.
func (s *StageService) DeactivateStage(tenantID, stageID int) error {
	return s.Repo.SetActive(tenantID, stageID, false)
}

// DeleteStage physically removes a stage. Refused while any lead or deal
// still references it.
func (s *StageService) DeleteStage(tenantID, stageID int) error {
	refs, err := s.Repo.CountReferences(tenantID, stageID)
	if err != nil {
		return err
	}
	if refs > 0 {
		return ErrStageInUse
	}
	return s.Repo.Delete(tenantID, stageID)
}
