package dto

import (
	"time"

	"github.com/dojobill/dojobill/internal/domain/dunning"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/shopspring/decimal"
)

// ResolveCaseRequest closes a dunning case manually
type ResolveCaseRequest struct {
	// Outcome is paid (settled out-of-band) or waived (written off)
	Outcome types.DunningOutcome `json:"outcome" binding:"required" example:"paid"`
}

// Validate checks the requested outcome
func (r *ResolveCaseRequest) Validate() error {
	switch r.Outcome {
	case types.DunningOutcomePaid, types.DunningOutcomeWaived:
		return nil
	default:
		return ierr.NewError("invalid dunning outcome").
			WithHint("Outcome must be paid or waived").
			WithReportableDetails(map[string]any{
				"outcome": r.Outcome,
			}).
			Mark(ierr.ErrValidation)
	}
}

// DunningCaseResponse represents the dunning case response structure
type DunningCaseResponse struct {
	ID             string                  `json:"id"`
	ChargeID       string                  `json:"charge_id"`
	ContractID     string                  `json:"contract_id"`
	MemberID       string                  `json:"member_id"`
	Level          int                     `json:"level"`
	NextActionDate time.Time               `json:"next_action_date"`
	AccumulatedFee decimal.Decimal         `json:"accumulated_fee"`
	FeeApplied     bool                    `json:"fee_applied"`
	CaseState      types.DunningCaseStatus `json:"case_state"`
	Outcome        *types.DunningOutcome   `json:"outcome,omitempty"`
	ClosedAt       *time.Time              `json:"closed_at,omitempty"`
	TenantID       string                  `json:"tenant_id"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// ToDunningCaseResponse converts a domain case to its response shape
func ToDunningCaseResponse(c *dunning.Case) *DunningCaseResponse {
	return &DunningCaseResponse{
		ID:             c.ID,
		ChargeID:       c.ChargeID,
		ContractID:     c.ContractID,
		MemberID:       c.MemberID,
		Level:          c.Level,
		NextActionDate: c.NextActionDate,
		AccumulatedFee: c.AccumulatedFee,
		FeeApplied:     c.FeeApplied,
		CaseState:      c.CaseState,
		Outcome:        c.Outcome,
		ClosedAt:       c.ClosedAt,
		TenantID:       c.TenantID,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
