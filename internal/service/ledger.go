package service

import (
	"context"
	"time"

	"github.com/dojobill/dojobill/internal/domain/charge"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/samber/lo"
)

// LedgerService is the authoritative charge state machine. All charge state
// changes flow through it; the transition table in internal/types is the
// single source of truth for which moves are legal.
type LedgerService interface {
	Get(ctx context.Context, tenantID, chargeID string) (*charge.Charge, error)
	// ListContractCharges returns the contract's charges, newest period first
	ListContractCharges(ctx context.Context, tenantID, contractID string) ([]*charge.Charge, error)

	// IncludeInRun moves a pending charge into a building collection run
	IncludeInRun(ctx context.Context, tenantID string, c *charge.Charge, runID string) error
	// ReleaseFromRun returns an included charge to pending when a building
	// run is aborted
	ReleaseFromRun(ctx context.Context, tenantID string, c *charge.Charge) error
	// MarkSubmitted records that the charge went out in a bank file
	MarkSubmitted(ctx context.Context, tenantID string, c *charge.Charge, at time.Time) error

	// Settle settles a submitted or escalating charge. Idempotent: settling
	// an already-settled charge is a no-op, since bank callbacks duplicate.
	Settle(ctx context.Context, tenantID, chargeID string, settledAt time.Time) (*charge.Charge, error)
	// Fail records a bank failure or return. Retryable reasons requeue the
	// charge up to the configured retry budget; non-retryable reasons and
	// exhausted budgets move it to escalating.
	Fail(ctx context.Context, tenantID, chargeID string, reason types.FailureReason) (*charge.Charge, error)

	// WriteOff terminally abandons collection on an escalating charge.
	// Reaching this state always requires manual accounting follow-up.
	WriteOff(ctx context.Context, tenantID, chargeID string) (*charge.Charge, error)

	// FlagNeedsMandate marks a charge whose mandate was revoked or expired
	// underneath it. The charge is excluded from runs until a new mandate
	// is attached; it is never silently cancelled.
	FlagNeedsMandate(ctx context.Context, tenantID, chargeID string) (*charge.Charge, error)
	// AttachMandate re-attaches a fresh active mandate to a flagged charge
	AttachMandate(ctx context.Context, tenantID, chargeID, mandateID string) (*charge.Charge, error)

	// FlagOverdueSubmissions returns charges submitted longer ago than the
	// reconciliation SLA with no callback. They are surfaced for manual
	// review, never guessed into success or failure.
	FlagOverdueSubmissions(ctx context.Context, tenantID string, asOf time.Time) ([]*charge.Charge, error)
}

type ledgerService struct {
	ServiceParams
	guard TenantGuardService
}

// NewLedgerService creates the charge ledger
func NewLedgerService(params ServiceParams) LedgerService {
	return &ledgerService{
		ServiceParams: params,
		guard:         NewTenantGuardService(params),
	}
}

func (s *ledgerService) Get(ctx context.Context, tenantID, chargeID string) (*charge.Charge, error) {
	if err := s.guard.RequireScope(tenantID); err != nil {
		return nil, err
	}
	c, err := s.ChargeRepo.Get(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, tenantID, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ledgerService) ListContractCharges(ctx context.Context, tenantID, contractID string) ([]*charge.Charge, error) {
	if err := s.guard.RequireScope(tenantID); err != nil {
		return nil, err
	}
	return s.ChargeRepo.ListByContract(ctx, tenantID, contractID)
}

// transition validates and applies one state change, persisting through the
// versioned update. A version mismatch surfaces as ErrStaleState; the caller
// re-reads and decides whether to retry.
func (s *ledgerService) transition(ctx context.Context, tenantID string, c *charge.Charge, target types.ChargeStatus) error {
	if err := s.guard.Authorize(ctx, tenantID, c); err != nil {
		return err
	}
	if !c.ChargeState.CanTransition(target) {
		return ierr.NewError("illegal charge transition").
			WithHintf("Charge cannot move from %s to %s", c.ChargeState, target).
			WithReportableDetails(map[string]any{
				"charge_id": c.ID,
				"from":      c.ChargeState,
				"to":        target,
			}).
			Mark(ierr.ErrInvalidTransition)
	}
	c.ChargeState = target
	c.UpdatedAt = time.Now().UTC()
	c.UpdatedBy = types.GetUserID(ctx)
	return s.ChargeRepo.Update(ctx, c)
}

func (s *ledgerService) IncludeInRun(ctx context.Context, tenantID string, c *charge.Charge, runID string) error {
	if c.MandateID == nil {
		return ierr.NewError("charge has no mandate").
			WithHint("Only charges with an active mandate can join a run").
			WithReportableDetails(map[string]any{"charge_id": c.ID}).
			Mark(ierr.ErrInvalidOperation)
	}
	c.RunID = lo.ToPtr(runID)
	return s.transition(ctx, tenantID, c, types.ChargeStatusIncludedInRun)
}

func (s *ledgerService) ReleaseFromRun(ctx context.Context, tenantID string, c *charge.Charge) error {
	c.RunID = nil
	return s.transition(ctx, tenantID, c, types.ChargeStatusPending)
}

func (s *ledgerService) MarkSubmitted(ctx context.Context, tenantID string, c *charge.Charge, at time.Time) error {
	c.SubmittedAt = lo.ToPtr(at.UTC())
	return s.transition(ctx, tenantID, c, types.ChargeStatusSubmitted)
}

func (s *ledgerService) Settle(ctx context.Context, tenantID, chargeID string, settledAt time.Time) (*charge.Charge, error) {
	c, err := s.Get(ctx, tenantID, chargeID)
	if err != nil {
		return nil, err
	}

	if c.ChargeState == types.ChargeStatusSettled {
		// duplicate bank callback, nothing to do
		return c, nil
	}

	c.SettledAt = lo.ToPtr(settledAt.UTC())
	c.FailureReason = nil
	if err := s.transition(ctx, tenantID, c, types.ChargeStatusSettled); err != nil {
		return nil, err
	}

	s.Logger.Infow("charge settled",
		"charge_id", c.ID,
		"tenant_id", tenantID,
		"settled_at", c.SettledAt,
	)
	return c, nil
}

func (s *ledgerService) Fail(ctx context.Context, tenantID, chargeID string, reason types.FailureReason) (*charge.Charge, error) {
	if err := reason.Validate(); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, tenantID, chargeID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, tenantID, c, types.ChargeStatusFailed); err != nil {
		return nil, err
	}
	c.FailureReason = lo.ToPtr(reason)
	if reason.Retryable() {
		c.Attempts++
	}

	// requeue policy: non-retryable reasons skip any remaining retry
	// budget and escalate immediately
	next := types.ChargeStatusPending
	if !reason.Retryable() || c.Attempts >= s.Config.Billing.MaxAttempts {
		next = types.ChargeStatusEscalating
	}
	if next == types.ChargeStatusPending {
		c.RunID = nil
	}
	if err := s.transition(ctx, tenantID, c, next); err != nil {
		return nil, err
	}

	s.Logger.Infow("charge failed",
		"charge_id", c.ID,
		"tenant_id", tenantID,
		"reason", reason,
		"attempts", c.Attempts,
		"state", c.ChargeState,
	)
	return c, nil
}

func (s *ledgerService) WriteOff(ctx context.Context, tenantID, chargeID string) (*charge.Charge, error) {
	c, err := s.Get(ctx, tenantID, chargeID)
	if err != nil {
		return nil, err
	}
	if c.ChargeState == types.ChargeStatusWrittenOff {
		return c, nil
	}
	c.RunID = nil
	if err := s.transition(ctx, tenantID, c, types.ChargeStatusWrittenOff); err != nil {
		return nil, err
	}
	s.Logger.Warnw("charge written off",
		"charge_id", c.ID,
		"tenant_id", tenantID,
		"amount", c.Amount,
	)
	return c, nil
}

func (s *ledgerService) FlagNeedsMandate(ctx context.Context, tenantID, chargeID string) (*charge.Charge, error) {
	c, err := s.Get(ctx, tenantID, chargeID)
	if err != nil {
		return nil, err
	}
	if c.ChargeState == types.ChargeStatusNeedsMandate {
		return c, nil
	}
	c.MandateID = nil
	c.RunID = nil
	if err := s.transition(ctx, tenantID, c, types.ChargeStatusNeedsMandate); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ledgerService) AttachMandate(ctx context.Context, tenantID, chargeID, mandateID string) (*charge.Charge, error) {
	c, err := s.Get(ctx, tenantID, chargeID)
	if err != nil {
		return nil, err
	}
	c.MandateID = lo.ToPtr(mandateID)
	if err := s.transition(ctx, tenantID, c, types.ChargeStatusPending); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ledgerService) FlagOverdueSubmissions(ctx context.Context, tenantID string, asOf time.Time) ([]*charge.Charge, error) {
	if err := s.guard.RequireScope(tenantID); err != nil {
		return nil, err
	}

	submitted, err := s.ChargeRepo.ListByState(ctx, tenantID, types.ChargeStatusSubmitted)
	if err != nil {
		return nil, err
	}

	deadline := asOf.AddDate(0, 0, -s.Config.Billing.ReconcileSLADays)
	var overdue []*charge.Charge
	for _, c := range submitted {
		if c.SubmittedAt != nil && c.SubmittedAt.Before(deadline) {
			overdue = append(overdue, c)
			s.Logger.Warnw("charge past reconciliation SLA",
				"charge_id", c.ID,
				"tenant_id", tenantID,
				"submitted_at", c.SubmittedAt,
			)
			// surfaced for manual review; the outcome is never guessed
			if err := s.Notify.Publish(ctx, &types.NotificationEvent{
				EventName: types.NotificationEventAmbiguousSubmission,
				TenantID:  tenantID,
				MemberID:  c.MemberID,
				ChargeID:  c.ID,
			}); err != nil {
				s.Logger.Errorw("failed to publish ambiguous submission event",
					"charge_id", c.ID,
					"error", err,
				)
			}
		}
	}
	return overdue, nil
}
