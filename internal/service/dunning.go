package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dojobill/dojobill/internal/config"
	"github.com/dojobill/dojobill/internal/domain/charge"
	"github.com/dojobill/dojobill/internal/domain/dunning"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/samber/lo"
)

// DunningService escalates unpaid charges through the configured reminder
// ladder. Levels only ever increase; the max level writes the charge off and
// closes the case.
type DunningService interface {
	// EnsureCase opens a level-1 case for a charge that entered
	// escalating, or returns the already-open case
	EnsureCase(ctx context.Context, tenantID string, c *charge.Charge) (*dunning.Case, error)

	// Tick is the scheduled entry point: every open case whose next
	// action date has passed either advances one level or, at max level,
	// writes the charge off
	Tick(ctx context.Context, tenantID string, asOf time.Time) (*BatchSummary, error)

	// ResolveCase closes a case manually: paid settles the charge
	// out-of-band, waived writes it off. Resolving a closed case is an
	// invalid transition.
	ResolveCase(ctx context.Context, tenantID, caseID string, outcome types.DunningOutcome) (*dunning.Case, error)

	// HandleSettled closes the open case of a charge the bank settled
	// after escalation had already begun
	HandleSettled(ctx context.Context, tenantID, chargeID string) error

	Get(ctx context.Context, tenantID, caseID string) (*dunning.Case, error)
}

type dunningService struct {
	ServiceParams
	guard  TenantGuardService
	ledger LedgerService
}

// NewDunningService creates the dunning escalator
func NewDunningService(params ServiceParams) DunningService {
	return &dunningService{
		ServiceParams: params,
		guard:         NewTenantGuardService(params),
		ledger:        NewLedgerService(params),
	}
}

// levels returns the configured ladder, falling back to the default one
func (s *dunningService) levels() []config.DunningLevel {
	if len(s.Config.Dunning.Levels) > 0 {
		return s.Config.Dunning.Levels
	}
	return config.DefaultDunningLevels()
}

func (s *dunningService) EnsureCase(ctx context.Context, tenantID string, c *charge.Charge) (*dunning.Case, error) {
	if err := s.guard.Authorize(ctx, tenantID, c); err != nil {
		return nil, err
	}
	if c.ChargeState != types.ChargeStatusEscalating {
		return nil, ierr.NewError("charge is not escalating").
			WithHint("Dunning cases track escalating charges only").
			WithReportableDetails(map[string]any{
				"charge_id": c.ID,
				"state":     c.ChargeState,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	existing, err := s.DunningRepo.GetOpenByCharge(ctx, tenantID, c.ID)
	if err == nil {
		return existing, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	levels := s.levels()
	first := levels[0]
	now := time.Now().UTC()
	dc := &dunning.Case{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DUNNING_CASE),
		ChargeID:       c.ID,
		ContractID:     c.ContractID,
		MemberID:       c.MemberID,
		Level:          1,
		NextActionDate: now.AddDate(0, 0, first.GraceDays),
		AccumulatedFee: first.Fee,
		CaseState:      types.DunningCaseStatusOpen,
		BaseModel:      types.NewBaseModel(ctx, tenantID),
	}
	if err := dc.Validate(); err != nil {
		return nil, err
	}
	if err := s.DunningRepo.Create(ctx, dc); err != nil {
		return nil, err
	}

	if err := s.syncChargeLevel(ctx, tenantID, c, dc.Level); err != nil {
		return nil, err
	}
	s.publishReminder(ctx, dc, first.Template)

	s.Logger.Infow("dunning case opened",
		"case_id", dc.ID,
		"charge_id", c.ID,
		"tenant_id", tenantID,
		"next_action", dc.NextActionDate,
	)
	return dc, nil
}

func (s *dunningService) Tick(ctx context.Context, tenantID string, asOf time.Time) (*BatchSummary, error) {
	if err := s.guard.RequireScope(tenantID); err != nil {
		return nil, err
	}

	// escalating charges without a case yet (e.g. after a crash between
	// Fail and EnsureCase) are picked up first, keeping Tick idempotent
	escalating, err := s.ChargeRepo.ListByState(ctx, tenantID, types.ChargeStatusEscalating)
	if err != nil {
		return nil, err
	}
	for _, c := range escalating {
		if _, err := s.EnsureCase(ctx, tenantID, c); err != nil {
			s.Logger.Errorw("failed to ensure dunning case",
				"charge_id", c.ID,
				"error", err,
			)
		}
	}

	due, err := s.DunningRepo.ListDue(ctx, tenantID, asOf)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{TenantID: tenantID}
	for _, dc := range due {
		summary.Processed++
		if err := s.advance(ctx, tenantID, dc, asOf); err != nil {
			summary.fail(dc.ID, err)
			s.Logger.Errorw("dunning advance failed",
				"case_id", dc.ID,
				"error", err,
			)
			continue
		}
		summary.Created++
	}

	s.Logger.Infow("dunning tick complete",
		"tenant_id", tenantID,
		"as_of", asOf,
		"advanced", summary.Created,
		"failed", len(summary.Failed),
	)
	return summary, nil
}

// advance moves one due case a single rung up the ladder, or writes the
// charge off at the top
func (s *dunningService) advance(ctx context.Context, tenantID string, dc *dunning.Case, asOf time.Time) error {
	levels := s.levels()
	if dc.Level >= len(levels) {
		// top of the ladder: abandon collection
		if _, err := s.ledger.WriteOff(ctx, tenantID, dc.ChargeID); err != nil {
			return err
		}
		dc.CaseState = types.DunningCaseStatusClosed
		dc.Outcome = lo.ToPtr(types.DunningOutcomeWrittenOff)
		dc.ClosedAt = lo.ToPtr(time.Now().UTC())
		dc.UpdatedAt = time.Now().UTC()
		if err := s.DunningRepo.Update(ctx, dc); err != nil {
			return err
		}
		s.publishWriteOff(ctx, dc)
		return nil
	}

	dc.Level++
	level := levels[dc.Level-1]
	dc.NextActionDate = asOf.AddDate(0, 0, level.GraceDays)
	if level.Fee.IsPositive() {
		if dc.FeeApplied {
			// the earlier fee already rode out on a charge; this level
			// starts a fresh unapplied balance
			dc.AccumulatedFee = level.Fee
			dc.FeeApplied = false
		} else {
			dc.AccumulatedFee = dc.AccumulatedFee.Add(level.Fee)
		}
	}
	dc.UpdatedAt = time.Now().UTC()
	dc.UpdatedBy = types.GetUserID(ctx)
	if err := s.DunningRepo.Update(ctx, dc); err != nil {
		return err
	}

	c, err := s.ledger.Get(ctx, tenantID, dc.ChargeID)
	if err != nil {
		return err
	}
	if err := s.syncChargeLevel(ctx, tenantID, c, dc.Level); err != nil {
		return err
	}

	s.publishReminder(ctx, dc, level.Template)
	return nil
}

func (s *dunningService) ResolveCase(ctx context.Context, tenantID, caseID string, outcome types.DunningOutcome) (*dunning.Case, error) {
	if err := outcome.Validate(); err != nil {
		return nil, err
	}
	dc, err := s.Get(ctx, tenantID, caseID)
	if err != nil {
		return nil, err
	}
	if dc.CaseState == types.DunningCaseStatusClosed {
		return nil, ierr.NewError("dunning case already closed").
			WithHint("A closed case cannot be resolved again").
			WithReportableDetails(map[string]any{
				"case_id": dc.ID,
				"outcome": dc.Outcome,
			}).
			Mark(ierr.ErrInvalidTransition)
	}

	switch outcome {
	case types.DunningOutcomePaid:
		if _, err := s.ledger.Settle(ctx, tenantID, dc.ChargeID, time.Now().UTC()); err != nil {
			return nil, err
		}
	case types.DunningOutcomeWaived:
		if _, err := s.ledger.WriteOff(ctx, tenantID, dc.ChargeID); err != nil {
			return nil, err
		}
	default:
		return nil, ierr.NewError("unsupported manual outcome").
			WithHint("Manual resolution is paid or waived").
			WithReportableDetails(map[string]any{"outcome": outcome}).
			Mark(ierr.ErrInvalidOperation)
	}

	dc.CaseState = types.DunningCaseStatusClosed
	dc.Outcome = lo.ToPtr(outcome)
	dc.ClosedAt = lo.ToPtr(time.Now().UTC())
	dc.UpdatedAt = time.Now().UTC()
	dc.UpdatedBy = types.GetUserID(ctx)
	if err := s.DunningRepo.Update(ctx, dc); err != nil {
		return nil, err
	}

	s.Logger.Infow("dunning case resolved",
		"case_id", dc.ID,
		"tenant_id", tenantID,
		"outcome", outcome,
		"resolved_by", types.GetUserID(ctx),
	)
	return dc, nil
}

func (s *dunningService) HandleSettled(ctx context.Context, tenantID, chargeID string) error {
	dc, err := s.DunningRepo.GetOpenByCharge(ctx, tenantID, chargeID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil
		}
		return err
	}
	dc.CaseState = types.DunningCaseStatusClosed
	dc.Outcome = lo.ToPtr(types.DunningOutcomePaid)
	dc.ClosedAt = lo.ToPtr(time.Now().UTC())
	dc.UpdatedAt = time.Now().UTC()
	return s.DunningRepo.Update(ctx, dc)
}

func (s *dunningService) Get(ctx context.Context, tenantID, caseID string) (*dunning.Case, error) {
	if err := s.guard.RequireScope(tenantID); err != nil {
		return nil, err
	}
	dc, err := s.DunningRepo.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, tenantID, dc); err != nil {
		return nil, err
	}
	return dc, nil
}

// syncChargeLevel mirrors the case level onto the charge for reporting
func (s *dunningService) syncChargeLevel(ctx context.Context, tenantID string, c *charge.Charge, level int) error {
	c.DunningLevel = level
	c.UpdatedAt = time.Now().UTC()
	return s.ChargeRepo.Update(ctx, c)
}

func (s *dunningService) publishReminder(ctx context.Context, dc *dunning.Case, template string) {
	payload, err := json.Marshal(map[string]any{
		"case_id":  dc.ID,
		"level":    dc.Level,
		"template": template,
		"fee":      dc.AccumulatedFee,
	})
	if err != nil {
		return
	}
	if err := s.Notify.Publish(ctx, &types.NotificationEvent{
		EventName: types.NotificationEventReminderLevel(dc.Level),
		TenantID:  dc.TenantID,
		MemberID:  dc.MemberID,
		ChargeID:  dc.ChargeID,
		Payload:   payload,
	}); err != nil {
		s.Logger.Errorw("failed to publish dunning reminder",
			"case_id", dc.ID,
			"error", err,
		)
	}
}

func (s *dunningService) publishWriteOff(ctx context.Context, dc *dunning.Case) {
	payload, err := json.Marshal(map[string]any{
		"case_id": dc.ID,
		"level":   dc.Level,
	})
	if err != nil {
		return
	}
	if err := s.Notify.Publish(ctx, &types.NotificationEvent{
		EventName: types.NotificationEventWriteOff,
		TenantID:  dc.TenantID,
		MemberID:  dc.MemberID,
		ChargeID:  dc.ChargeID,
		Payload:   payload,
	}); err != nil {
		s.Logger.Errorw("failed to publish write-off event",
			"case_id", dc.ID,
			"error", err,
		)
	}
}
