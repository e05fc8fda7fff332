package dunning

import (
	"time"

	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/shopspring/decimal"
)

// Case tracks the escalation state of one charge once collection has
// failed past its retry budget. Level only ever increases; reaching the
// configured max level writes the charge off and closes the case.
type Case struct {
	ID         string `db:"id" json:"id"`
	ChargeID   string `db:"charge_id" json:"charge_id"`
	ContractID string `db:"contract_id" json:"contract_id"`
	MemberID   string `db:"member_id" json:"member_id"`

	Level          int       `db:"level" json:"level"`
	NextActionDate time.Time `db:"next_action_date" json:"next_action_date"`
	// AccumulatedFee is the sum of level fees incurred so far. It is
	// charged on the member's next materialized charge, never retroactively
	// added to the failed one.
	AccumulatedFee decimal.Decimal `db:"accumulated_fee" json:"accumulated_fee"`
	// FeeApplied is set once the accumulated fee has been folded into a
	// subsequent charge
	FeeApplied bool `db:"fee_applied" json:"fee_applied"`

	CaseState types.DunningCaseStatus `db:"case_state" json:"case_state"`
	Outcome   *types.DunningOutcome   `db:"outcome" json:"outcome,omitempty"`
	ClosedAt  *time.Time              `db:"closed_at" json:"closed_at,omitempty"`

	// Version guards concurrent writes
	Version int `db:"version" json:"version"`

	types.BaseModel
}

// Validate checks the case shape
func (c *Case) Validate() error {
	if c.ChargeID == "" {
		return ierr.NewError("dunning case charge id cannot be empty").
			WithHint("Charge ID is required").
			Mark(ierr.ErrValidation)
	}
	if c.Level < 1 {
		return ierr.NewError("dunning case level must be at least 1").
			WithHint("Level starts at 1").
			WithReportableDetails(map[string]any{
				"case_id": c.ID,
				"level":   c.Level,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsOpen reports whether the case still escalates automatically
func (c *Case) IsOpen() bool {
	return c.CaseState == types.DunningCaseStatusOpen
}
