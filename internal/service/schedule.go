package service

import (
	"context"
	"time"

	"github.com/dojobill/dojobill/internal/domain/charge"
	"github.com/dojobill/dojobill/internal/domain/directory"
	"github.com/dojobill/dojobill/internal/domain/dunning"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ScheduleService derives charges from active contracts. For each contract
// it walks billing periods from the last materialized charge (or contract
// start) up to the horizon, skipping paused periods and periods already
// billed. Materialization is idempotent: re-running it for the same horizon
// creates nothing new.
type ScheduleService interface {
	// MaterializeTenant materializes charges for every billable contract
	// of the tenant as of the given date. One bad contract is isolated
	// and reported in the summary, not allowed to abort the batch.
	MaterializeTenant(ctx context.Context, tenantID string, asOf time.Time) (*BatchSummary, error)

	// MaterializeContract materializes the missing charges for one
	// contract up to the horizon and returns the charges it created.
	MaterializeContract(ctx context.Context, tenantID string, contract *directory.Contract, horizon time.Time) ([]*charge.Charge, error)
}

type scheduleService struct {
	ServiceParams
	guard TenantGuardService
}

// NewScheduleService creates the billing schedule engine
func NewScheduleService(params ServiceParams) ScheduleService {
	return &scheduleService{
		ServiceParams: params,
		guard:         NewTenantGuardService(params),
	}
}

func (s *scheduleService) MaterializeTenant(ctx context.Context, tenantID string, asOf time.Time) (*BatchSummary, error) {
	if err := s.guard.RequireScope(tenantID); err != nil {
		return nil, err
	}

	contracts, err := s.Directory.GetActiveContracts(ctx, tenantID, asOf)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Membership directory did not return contracts").
			Mark(ierr.ErrSystem)
	}

	horizon := asOf.AddDate(0, 0, s.Config.Billing.LeadTimeDays)
	summary := &BatchSummary{TenantID: tenantID}

	for _, contract := range contracts {
		summary.Processed++
		created, err := s.MaterializeContract(ctx, tenantID, contract, horizon)
		if err != nil {
			summary.fail(contract.ID, err)
			s.Logger.Errorw("contract materialization failed",
				"tenant_id", tenantID,
				"contract_id", contract.ID,
				"error", err,
			)
			continue
		}
		summary.Created += len(created)
	}

	s.Logger.Infow("materialized tenant charges",
		"tenant_id", tenantID,
		"as_of", asOf,
		"processed", summary.Processed,
		"created", summary.Created,
		"failed", len(summary.Failed),
	)
	return summary, nil
}

func (s *scheduleService) MaterializeContract(ctx context.Context, tenantID string, contract *directory.Contract, horizon time.Time) ([]*charge.Charge, error) {
	if err := contract.Validate(); err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, tenantID, contract); err != nil {
		return nil, err
	}

	// a contract must belong to the same tenant as its member
	member, err := s.Directory.GetMember(ctx, contract.MemberID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, tenantID, member); err != nil {
		return nil, err
	}

	cursor, err := s.scheduleStart(ctx, tenantID, contract)
	if err != nil {
		return nil, err
	}

	var created []*charge.Charge
	for cursor.Before(horizon) {
		period := s.periodAt(contract, cursor)

		if contract.StoppedBefore(period.Start) {
			break
		}

		terminal := contract.EndDate != nil && period.Contains(*contract.EndDate)

		if contract.PausedDuring(period) {
			cursor = period.End
			continue
		}

		existing, err := s.ChargeRepo.GetByContractAndPeriod(ctx, tenantID, contract.ID, period.Key())
		if err != nil && !ierr.IsNotFound(err) {
			return created, err
		}
		if existing != nil {
			// already billed for this period, scheduling again is a no-op
			cursor = period.End
			if terminal {
				break
			}
			continue
		}

		amount := s.periodAmount(contract, period)
		if terminal && s.Config.Billing.TerminationPolicy == types.TerminationPolicyProrate {
			amount = prorate(amount, period, *contract.EndDate)
		}

		c, err := s.buildCharge(ctx, tenantID, contract, period, amount)
		if err != nil {
			return created, err
		}
		fees, err := s.foldPendingFees(ctx, tenantID, contract.ID, c)
		if err != nil {
			return created, err
		}
		if err := s.ChargeRepo.Create(ctx, c); err != nil {
			if ierr.IsAlreadyExists(err) {
				// lost a race with a concurrent materialization; the
				// folded fees stay unapplied and ride the next charge
				cursor = period.End
				continue
			}
			return created, err
		}
		if err := s.markFeesApplied(ctx, tenantID, c, fees); err != nil {
			return created, err
		}
		created = append(created, c)

		cursor = period.End
		if terminal {
			break
		}
	}

	return created, nil
}

// scheduleStart returns the first unbilled period start: the later of the
// contract start (snapped to the billing-day override when configured) and
// the end of the last materialized period.
func (s *scheduleService) scheduleStart(ctx context.Context, tenantID string, contract *directory.Contract) (time.Time, error) {
	start := contract.StartDate
	if contract.BillingDay != nil {
		// with a billing-day anchor there is no partial first period; the
		// schedule begins at the first anchor day on or after the start
		snapped := types.ClampedDayOfMonth(start, *contract.BillingDay)
		if snapped.Before(start) {
			snapped = types.ClampedDayOfMonth(types.AddClampedDate(start, 0, 1, 0), *contract.BillingDay)
		}
		start = snapped
	}

	charges, err := s.ChargeRepo.ListByContract(ctx, tenantID, contract.ID)
	if err != nil {
		return time.Time{}, err
	}
	for _, c := range charges {
		if c.Period.End.After(start) {
			start = c.Period.End
		}
	}
	return start, nil
}

// periodAt derives the billing period starting at cursor. With a billing-day
// override the period end is re-anchored to the override day so that a
// clamped month (day 31 in February) does not shift all later periods.
func (s *scheduleService) periodAt(contract *directory.Contract, cursor time.Time) types.BillingPeriod {
	end := types.AddClampedDate(cursor, 0, contract.BillingCycle.Months(), 0)
	if contract.BillingDay != nil {
		end = types.ClampedDayOfMonth(end, *contract.BillingDay)
	}
	return types.BillingPeriod{Start: cursor, End: end}
}

// periodAmount is the cycle price minus the active percentage discount.
// Discount validity is checked against the billing period, not wall clock.
func (s *scheduleService) periodAmount(contract *directory.Contract, period types.BillingPeriod) decimal.Decimal {
	amount := contract.MonthlyAmount.Mul(decimal.NewFromInt(int64(contract.BillingCycle.Months())))
	discount := contract.DiscountPercent(period)
	if discount.IsPositive() {
		amount = amount.Sub(amount.Mul(discount).Div(decimal.NewFromInt(100)))
	}
	return amount.Round(2)
}

// prorate scales the final charge by the fraction of the period covered
// before the termination date
func prorate(amount decimal.Decimal, period types.BillingPeriod, end time.Time) decimal.Decimal {
	total := period.Days()
	if total <= 0 {
		return amount
	}
	covered := int(end.Sub(period.Start).Hours() / 24)
	if covered <= 0 {
		return decimal.Zero
	}
	if covered >= total {
		return amount
	}
	return amount.Mul(decimal.NewFromInt(int64(covered))).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}

func (s *scheduleService) buildCharge(ctx context.Context, tenantID string, contract *directory.Contract, period types.BillingPeriod, amount decimal.Decimal) (*charge.Charge, error) {
	c := &charge.Charge{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHARGE),
		ContractID:  contract.ID,
		MemberID:    contract.MemberID,
		Amount:      amount,
		DueDate:     period.Start,
		Period:      period,
		ChargeState: types.ChargeStatusPending,
		EndToEndID:  types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_END_TO_END),
		BaseModel:   types.NewBaseModel(ctx, tenantID),
	}

	// a charge may reference a mandate only while it is active at
	// schedule time; without one the run builder will flag the charge
	active, err := s.MandateRepo.GetActiveByMember(ctx, tenantID, contract.MemberID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if active != nil {
		c.MandateID = lo.ToPtr(active.ID)
	}

	if err := s.guard.Authorize(ctx, tenantID, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// foldPendingFees adds unapplied dunning fees of the contract to the charge
// amount and returns the cases they came from. Fees ride on the next charge,
// never retroactively on the failed one. The cases are flagged applied only
// once the charge is persisted, so a failed create cannot lose a fee.
func (s *scheduleService) foldPendingFees(ctx context.Context, tenantID, contractID string, c *charge.Charge) ([]*dunning.Case, error) {
	cases, err := s.DunningRepo.ListUnappliedFees(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}
	var folded []*dunning.Case
	for _, dc := range cases {
		if !dc.AccumulatedFee.IsPositive() {
			continue
		}
		c.Amount = c.Amount.Add(dc.AccumulatedFee)
		folded = append(folded, dc)
	}
	return folded, nil
}

func (s *scheduleService) markFeesApplied(ctx context.Context, tenantID string, c *charge.Charge, cases []*dunning.Case) error {
	for _, dc := range cases {
		dc.FeeApplied = true
		dc.UpdatedAt = time.Now().UTC()
		if err := s.DunningRepo.Update(ctx, dc); err != nil {
			return err
		}
		s.Logger.Infow("applied dunning fee to next charge",
			"tenant_id", tenantID,
			"contract_id", dc.ContractID,
			"charge_id", c.ID,
			"case_id", dc.ID,
			"fee", dc.AccumulatedFee,
		)
	}
	return nil
}
