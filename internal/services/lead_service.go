package services

import (
	"errors"
	"log"

	"leadflow/internal/models"
	"leadflow/internal/repositories"
)

// Assigner picks the owner of a freshly created lead.
type Assigner interface {
	Assign(tenantID, leadID, creatorID int) (*models.AssignmentResult, error)
}

// Notifier fans out "lead assigned" notifications. Implementations must
// never fail the request; they log and move on.
type Notifier interface {
	LeadAssigned(lead *models.Lead, res *models.AssignmentResult)
}

type LeadService struct {
	Repo     repositories.LeadRepository
	DealRepo repositories.DealRepository
	Stages   *StageService
	Assigner Assigner // nil = assignment off
	Notifier Notifier // nil = notifications off
}

func NewLeadService(repo repositories.LeadRepository, dealRepo repositories.DealRepository, stages *StageService, assigner Assigner, notifier Notifier) *LeadService {
	return &LeadService{Repo: repo, DealRepo: dealRepo, Stages: stages, Assigner: assigner, Notifier: notifier}
}

// Create stores the lead in the tenant's new-lead stage and runs
// round-robin assignment. Assignment failures never block creation: the
// lead stays unassigned and the result reflects what happened.
func (s *LeadService) Create(lead *models.Lead, creatorID int) (*models.AssignmentResult, error) {
	lead.CreatedBy = creatorID

	stage, err := s.Stages.DefaultStage(lead.TenantID, models.StageTypeLead)
	if err != nil {
		return nil, err
	}
	lead.StageID = stage.ID
	if lead.Status == "" {
		lead.Status = stage.Slug
	}

	// persist first: the assignment log references the lead id
	if err := s.Repo.Create(lead); err != nil {
		return nil, err
	}

	if s.Assigner == nil {
		return nil, nil
	}
	res, err := s.Assigner.Assign(lead.TenantID, lead.ID, creatorID)
	switch {
	case errors.Is(err, ErrNoEligibleUsers):
		log.Printf("[lead][create] tenant=%d lead=%d no eligible users, left unassigned", lead.TenantID, lead.ID)
		return nil, nil
	case err != nil:
		log.Printf("[lead][create] tenant=%d lead=%d assignment failed: %v", lead.TenantID, lead.ID, err)
		return nil, nil
	}

	if res.UserID != 0 {
		if err := s.Repo.UpdateOwner(lead.TenantID, lead.ID, res.UserID); err != nil {
			return nil, err
		}
		lead.OwnerID = res.UserID
	}
	if s.Notifier != nil && res.UserID != 0 && res.UserID != creatorID {
		s.Notifier.LeadAssigned(lead, res)
	}
	return res, nil
}

func (s *LeadService) Update(lead *models.Lead) error {
	return s.Repo.Update(lead)
}

func (s *LeadService) GetByID(tenantID, id int) (*models.Lead, error) {
	return s.Repo.GetByID(tenantID, id)
}

func (s *LeadService) Delete(tenantID, id int) error {
	return s.Repo.Delete(tenantID, id)
}

func (s *LeadService) ListPaginated(tenantID, limit, offset int) ([]*models.Lead, error) {
	return s.Repo.ListPaginated(tenantID, limit, offset)
}

func (s *LeadService) ListMy(tenantID, ownerID, limit, offset int) ([]*models.Lead, error) {
	return s.Repo.ListByOwner(tenantID, ownerID, limit, offset)
}

func (s *LeadService) AssignOwner(tenantID, id, assigneeID int) error {
	return s.Repo.UpdateOwner(tenantID, id, assigneeID)
}

// UpdateStage moves a lead to another stage. The target must exist, be
// active and accept leads; otherwise the write is rejected with
// ErrStageReferenceInvalid before anything is persisted.
func (s *LeadService) UpdateStage(tenantID, leadID, stageID int) (*models.Lead, error) {
	lead, err := s.Repo.GetByID(tenantID, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, errors.New("lead not found")
	}

	stage, err := s.Stages.GetByID(tenantID, stageID)
	if err != nil {
		return nil, err
	}
	if stage == nil || !stage.IsActive || !stage.AcceptsLeads() {
		return nil, ErrStageReferenceInvalid
	}

	if err := s.Repo.UpdateStage(tenantID, leadID, stageID, stage.Slug); err != nil {
		return nil, err
	}
	return s.Repo.GetByID(tenantID, leadID)
}

// ConvertToDeal creates the companion deal for a lead. Idempotent: a lead
// converts at most once. The deal lands in the tenant's default deal
// stage; the lead keeps its stage and gets the legacy "converted" status.
func (s *LeadService) ConvertToDeal(tenantID, leadID int, amount, currency string, ownerID int) (*models.Deal, error) {
	lead, err := s.Repo.GetByID(tenantID, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, errors.New("lead not found")
	}

	existing, err := s.DealRepo.GetByLeadID(tenantID, leadID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("deal already exists for this lead")
	}

	stage, err := s.Stages.DefaultStage(tenantID, models.StageTypeDeal)
	if err != nil {
		return nil, err
	}

	if ownerID == 0 {
		ownerID = lead.OwnerID
	}
	deal := &models.Deal{
		TenantID: tenantID,
		LeadID:   lead.ID,
		OwnerID:  ownerID,
		Amount:   amount,
		Currency: currency,
		StageID:  stage.ID,
		Status:   stage.Slug,
	}
	if err := s.DealRepo.Create(deal); err != nil {
		return nil, err
	}

	lead.Status = "converted"
	if err := s.Repo.Update(lead); err != nil {
		_ = s.DealRepo.Delete(tenantID, deal.ID) // best-effort rollback
		return nil, err
	}
	return deal, nil
}
