package services

import (
	"time"

	"leadflow/internal/models"
	"leadflow/internal/repositories"
)

// ConversionReport is the win/loss summary for a date range.
type ConversionReport struct {
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	NewLeadCount int       `json:"new_lead_count"`
	WonCount     int       `json:"won_count"`
	LostCount    int       `json:"lost_count"`
	Rate         float64   `json:"rate"`
}

// ConversionService derives conversion metrics by joining current stage
// references against the stage role flags. Pure read-side aggregation,
// re-derived on every call.
type ConversionService struct {
	Stats repositories.StatsRepository
}

func NewConversionService(stats repositories.StatsRepository) *ConversionService {
	return &ConversionService{Stats: stats}
}

// ComputeConversionRate: rate = won / (won + lost), counting both leads
// and deals sitting in a won/lost-flagged stage. Zero denominator yields
// rate 0, not an error.
func (s *ConversionService) ComputeConversionRate(tenantID int, from, to time.Time) (*ConversionReport, error) {
	newLeads, err := s.Stats.CountNewLeads(tenantID, from, to)
	if err != nil {
		return nil, err
	}

	wonLeads, err := s.Stats.CountLeadsWithRole(tenantID, models.StageRoleWon, from, to)
	if err != nil {
		return nil, err
	}
	wonDeals, err := s.Stats.CountDealsWithRole(tenantID, models.StageRoleWon, from, to)
	if err != nil {
		return nil, err
	}
	lostLeads, err := s.Stats.CountLeadsWithRole(tenantID, models.StageRoleLost, from, to)
	if err != nil {
		return nil, err
	}
	lostDeals, err := s.Stats.CountDealsWithRole(tenantID, models.StageRoleLost, from, to)
	if err != nil {
		return nil, err
	}

	report := &ConversionReport{
		From:         from,
		To:           to,
		NewLeadCount: newLeads,
		WonCount:     wonLeads + wonDeals,
		LostCount:    lostLeads + lostDeals,
	}
	if denom := report.WonCount + report.LostCount; denom > 0 {
		report.Rate = float64(report.WonCount) / float64(denom)
	}
	return report, nil
}
