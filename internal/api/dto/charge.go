package dto

import (
	"time"

	"github.com/dojobill/dojobill/internal/domain/charge"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/shopspring/decimal"
)

// ChargeResponse represents the charge response structure
type ChargeResponse struct {
	ID            string               `json:"id"`
	ContractID    string               `json:"contract_id"`
	MemberID      string               `json:"member_id"`
	MandateID     *string              `json:"mandate_id,omitempty"`
	Amount        decimal.Decimal      `json:"amount"`
	DueDate       time.Time            `json:"due_date"`
	PeriodStart   time.Time            `json:"period_start"`
	PeriodEnd     time.Time            `json:"period_end"`
	ChargeState   types.ChargeStatus   `json:"charge_state"`
	DunningLevel  int                  `json:"dunning_level"`
	Attempts      int                  `json:"attempts"`
	FailureReason *types.FailureReason `json:"failure_reason,omitempty"`
	RunID         *string              `json:"run_id,omitempty"`
	EndToEndID    string               `json:"end_to_end_id,omitempty"`
	SubmittedAt   *time.Time           `json:"submitted_at,omitempty"`
	SettledAt     *time.Time           `json:"settled_at,omitempty"`
	TenantID      string               `json:"tenant_id"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// ToChargeResponse converts a domain charge to its response shape
func ToChargeResponse(c *charge.Charge) *ChargeResponse {
	return &ChargeResponse{
		ID:            c.ID,
		ContractID:    c.ContractID,
		MemberID:      c.MemberID,
		MandateID:     c.MandateID,
		Amount:        c.Amount,
		DueDate:       c.DueDate,
		PeriodStart:   c.Period.Start,
		PeriodEnd:     c.Period.End,
		ChargeState:   c.ChargeState,
		DunningLevel:  c.DunningLevel,
		Attempts:      c.Attempts,
		FailureReason: c.FailureReason,
		RunID:         c.RunID,
		EndToEndID:    c.EndToEndID,
		SubmittedAt:   c.SubmittedAt,
		SettledAt:     c.SettledAt,
		TenantID:      c.TenantID,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// ToChargeResponses converts a list of charges
func ToChargeResponses(charges []*charge.Charge) []*ChargeResponse {
	out := make([]*ChargeResponse, 0, len(charges))
	for _, c := range charges {
		out = append(out, ToChargeResponse(c))
	}
	return out
}

// ListChargesResponse represents a list of charges
type ListChargesResponse struct {
	Items []*ChargeResponse `json:"items"`
	Total int               `json:"total"`
}
