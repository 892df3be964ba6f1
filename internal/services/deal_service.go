package services

import (
	"errors"

	"leadflow/internal/models"
	"leadflow/internal/repositories"
)

type DealService struct {
	Repo   repositories.DealRepository
	Stages *StageService
}

func NewDealService(repo repositories.DealRepository, stages *StageService) *DealService {
	return &DealService{Repo: repo, Stages: stages}
}

func (s *DealService) Update(deal *models.Deal) error {
	return s.Repo.Update(deal)
}

func (s *DealService) GetByID(tenantID, id int) (*models.Deal, error) {
	return s.Repo.GetByID(tenantID, id)
}

func (s *DealService) Delete(tenantID, id int) error {
	return s.Repo.Delete(tenantID, id)
}

func (s *DealService) ListPaginated(tenantID, limit, offset int) ([]*models.Deal, error) {
	return s.Repo.ListPaginated(tenantID, limit, offset)
}

func (s *DealService) ListMy(tenantID, ownerID, limit, offset int) ([]*models.Deal, error) {
	return s.Repo.ListByOwner(tenantID, ownerID, limit, offset)
}

// UpdateStage moves a deal. Same guard as leads, against the deal side of
// the stage type.
func (s *DealService) UpdateStage(tenantID, dealID, stageID int) (*models.Deal, error) {
	deal, err := s.Repo.GetByID(tenantID, dealID)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, errors.New("deal not found")
	}

	stage, err := s.Stages.GetByID(tenantID, stageID)
	if err != nil {
		return nil, err
	}
	if stage == nil || !stage.IsActive || !stage.AcceptsDeals() {
		return nil, ErrStageReferenceInvalid
	}

	if err := s.Repo.UpdateStage(tenantID, dealID, stageID, stage.Slug); err != nil {
		return nil, err
	}
	return s.Repo.GetByID(tenantID, dealID)
}
