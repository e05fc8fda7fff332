package charge

import (
	"time"

	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/shopspring/decimal"
)

// Charge is one billable obligation for one contract for one billing
// period. The (ContractID, Period) pair is unique; a contract is never
// double-billed for the same period.
type Charge struct {
	ID         string              `db:"id" json:"id"`
	ContractID string              `db:"contract_id" json:"contract_id"`
	MemberID   string              `db:"member_id" json:"member_id"`
	MandateID  *string             `db:"mandate_id" json:"mandate_id,omitempty"`
	Amount     decimal.Decimal     `db:"amount" json:"amount"`
	DueDate    time.Time           `db:"due_date" json:"due_date"`
	Period     types.BillingPeriod `json:"period"`

	ChargeState types.ChargeStatus `db:"charge_state" json:"charge_state"`
	// DunningLevel mirrors the open dunning case level, 0 when none
	DunningLevel int `db:"dunning_level" json:"dunning_level"`
	// Attempts counts collection attempts that ended in a retryable failure
	Attempts      int                  `db:"attempts" json:"attempts"`
	FailureReason *types.FailureReason `db:"failure_reason" json:"failure_reason,omitempty"`

	// RunID is set while the charge belongs to a non-terminal collection run
	RunID *string `db:"run_id" json:"run_id,omitempty"`
	// EndToEndID identifies the charge in the bank's result feed
	EndToEndID string `db:"end_to_end_id" json:"end_to_end_id,omitempty"`

	// Version guards concurrent writes; Update fails with a stale state
	// error when the stored version differs.
	Version int `db:"version" json:"version"`

	SubmittedAt *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	SettledAt   *time.Time `db:"settled_at" json:"settled_at,omitempty"`

	types.BaseModel
}

// PeriodKey returns the uniqueness key for (contract, period)
func (c *Charge) PeriodKey() string {
	return c.Period.Key()
}

// Validate checks the charge shape
func (c *Charge) Validate() error {
	if c.ContractID == "" {
		return ierr.NewError("charge contract id cannot be empty").
			WithHint("Contract ID is required").
			Mark(ierr.ErrValidation)
	}
	if c.MemberID == "" {
		return ierr.NewError("charge member id cannot be empty").
			WithHint("Member ID is required").
			Mark(ierr.ErrValidation)
	}
	if c.Amount.IsNegative() {
		return ierr.NewError("charge amount cannot be negative").
			WithHint("Amount must be zero or positive").
			WithReportableDetails(map[string]any{
				"charge_id": c.ID,
				"amount":    c.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if c.Period.Start.IsZero() || !c.Period.End.After(c.Period.Start) {
		return ierr.NewError("charge period is invalid").
			WithHint("Billing period end must be after its start").
			WithReportableDetails(map[string]any{
				"charge_id": c.ID,
				"period":    c.Period.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return c.ChargeState.Validate()
}
