package directory

import (
	"time"

	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/shopspring/decimal"
)

// Member is the membership directory's view of a member. Only the fields the
// billing core consumes are modeled here.
type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`

	types.BaseModel
}

// PauseInterval is a half-open [From, Until) window during which a contract
// produces no charges
type PauseInterval struct {
	From  time.Time `json:"from"`
	Until time.Time `json:"until"`
}

// Covers reports whether the pause fully covers the given billing period
func (p PauseInterval) Covers(period types.BillingPeriod) bool {
	return !period.Start.Before(p.From) && !period.End.After(p.Until)
}

// Discount is a percentage reduction valid for billing periods starting
// inside its validity window. Validity is checked against the billing
// period, not wall clock.
type Discount struct {
	Percent    decimal.Decimal `json:"percent"`
	ValidFrom  time.Time       `json:"valid_from"`
	ValidUntil time.Time       `json:"valid_until"`
}

// AppliesTo reports whether the discount is valid for the given period
func (d Discount) AppliesTo(period types.BillingPeriod) bool {
	return !period.Start.Before(d.ValidFrom) && period.Start.Before(d.ValidUntil)
}

// Contract is the membership directory's view of a membership contract.
// Contracts are owned by the directory; the billing core only reads them.
type Contract struct {
	ID            string               `json:"id"`
	MemberID      string               `json:"member_id"`
	StartDate     time.Time            `json:"start_date"`
	EndDate       *time.Time           `json:"end_date,omitempty"`
	MonthlyAmount decimal.Decimal      `json:"monthly_amount"`
	BillingCycle  types.BillingCycle   `json:"billing_cycle"`
	ContractState types.ContractStatus `json:"contract_state"`
	// BillingDay, when set, overrides the due date to this day of the
	// period's first month, clamped to the last valid day of that month.
	BillingDay *int            `json:"billing_day,omitempty"`
	Pauses     []PauseInterval `json:"pauses,omitempty"`
	Discounts  []Discount      `json:"discounts,omitempty"`

	types.BaseModel
}

// Validate checks the contract shape before it is fed to the schedule engine
func (c *Contract) Validate() error {
	if c.ID == "" {
		return ierr.NewError("contract id cannot be empty").
			WithHint("Contract ID is required").
			Mark(ierr.ErrValidation)
	}
	if c.MemberID == "" {
		return ierr.NewError("contract member id cannot be empty").
			WithHint("Member ID is required").
			Mark(ierr.ErrValidation)
	}
	if c.MonthlyAmount.IsNegative() {
		return ierr.NewError("contract monthly amount cannot be negative").
			WithHint("Monthly amount must be zero or positive").
			WithReportableDetails(map[string]any{
				"contract_id": c.ID,
				"amount":      c.MonthlyAmount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if err := c.BillingCycle.Validate(); err != nil {
		return err
	}
	if err := c.ContractState.Validate(); err != nil {
		return err
	}
	if c.BillingDay != nil && (*c.BillingDay < 1 || *c.BillingDay > 31) {
		return ierr.NewError("billing day out of range").
			WithHint("Billing day must be between 1 and 31").
			WithReportableDetails(map[string]any{
				"contract_id": c.ID,
				"billing_day": *c.BillingDay,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PausedDuring reports whether any pause interval fully covers the period
func (c *Contract) PausedDuring(period types.BillingPeriod) bool {
	for _, pause := range c.Pauses {
		if pause.Covers(period) {
			return true
		}
	}
	return false
}

// DiscountPercent returns the percentage discount active for the period.
// Overlapping discounts do not stack; the largest one wins.
func (c *Contract) DiscountPercent(period types.BillingPeriod) decimal.Decimal {
	best := decimal.Zero
	for _, d := range c.Discounts {
		if d.AppliesTo(period) && d.Percent.GreaterThan(best) {
			best = d.Percent
		}
	}
	return best
}

// StoppedBefore reports whether the contract produces no charges for periods
// starting at or after t (terminated with an effective end before t).
func (c *Contract) StoppedBefore(t time.Time) bool {
	if c.ContractState != types.ContractStatusTerminated || c.EndDate == nil {
		return false
	}
	return !c.EndDate.After(t)
}
