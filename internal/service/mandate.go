package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dojobill/dojobill/internal/domain/mandate"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/samber/lo"
)

// MandateService is the SEPA mandate registry. It owns the mandate
// lifecycle and the at-most-one-active-per-member invariant.
type MandateService interface {
	// CreateMandate registers a new mandate in created state. An existing
	// active mandate for the same member is revoked in the same step
	// (supersession).
	CreateMandate(ctx context.Context, tenantID, memberID, ibanReference string) (*mandate.Mandate, error)

	// Activate moves a created mandate to active and re-attaches it to
	// the member's charges waiting on a mandate
	Activate(ctx context.Context, tenantID, mandateID string) (*mandate.Mandate, error)

	// Revoke moves any non-terminal mandate to revoked. Idempotent when
	// the mandate is already revoked.
	Revoke(ctx context.Context, tenantID, mandateID, reason string) (*mandate.Mandate, error)

	// ExpireStale expires created mandates that have sat unactivated
	// longer than the configured retention
	ExpireStale(ctx context.Context, tenantID string, asOf time.Time) (*BatchSummary, error)

	Get(ctx context.Context, tenantID, mandateID string) (*mandate.Mandate, error)
}

type mandateService struct {
	ServiceParams
	guard  TenantGuardService
	ledger LedgerService
}

// NewMandateService creates the mandate registry
func NewMandateService(params ServiceParams) MandateService {
	return &mandateService{
		ServiceParams: params,
		guard:         NewTenantGuardService(params),
		ledger:        NewLedgerService(params),
	}
}

func (s *mandateService) CreateMandate(ctx context.Context, tenantID, memberID, ibanReference string) (*mandate.Mandate, error) {
	member, err := s.Directory.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, tenantID, member); err != nil {
		return nil, err
	}

	m := &mandate.Mandate{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_MANDATE),
		MemberID:      memberID,
		IBANReference: ibanReference,
		MandateState:  types.MandateStatusCreated,
		BaseModel:     types.NewBaseModel(ctx, tenantID),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, tenantID, m); err != nil {
		return nil, err
	}

	// supersession: the previous active mandate is revoked so the member
	// never holds two active mandates in the same tenant
	prev, err := s.MandateRepo.GetActiveByMember(ctx, tenantID, memberID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if prev != nil {
		if _, err := s.revoke(ctx, tenantID, prev, "superseded"); err != nil {
			return nil, err
		}
	}

	if err := s.MandateRepo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.Logger.Infow("mandate created",
		"mandate_id", m.ID,
		"tenant_id", tenantID,
		"member_id", memberID,
		"superseded", prev != nil,
	)
	return m, nil
}

func (s *mandateService) Activate(ctx context.Context, tenantID, mandateID string) (*mandate.Mandate, error) {
	m, err := s.Get(ctx, tenantID, mandateID)
	if err != nil {
		return nil, err
	}

	if !m.MandateState.CanTransition(types.MandateStatusActive) {
		return nil, ierr.NewError("mandate cannot be activated").
			WithHintf("Only a created mandate can be activated, not %s", m.MandateState).
			WithReportableDetails(map[string]any{
				"mandate_id": m.ID,
				"state":      m.MandateState,
			}).
			Mark(ierr.ErrInvalidTransition)
	}

	m.MandateState = types.MandateStatusActive
	m.ActivatedAt = lo.ToPtr(time.Now().UTC())
	m.UpdatedAt = time.Now().UTC()
	m.UpdatedBy = types.GetUserID(ctx)
	if err := s.MandateRepo.Update(ctx, m); err != nil {
		return nil, err
	}

	// charges flagged needs_mandate for this member become collectible again
	flagged, err := s.ChargeRepo.ListByState(ctx, tenantID, types.ChargeStatusNeedsMandate)
	if err != nil {
		return nil, err
	}
	for _, c := range flagged {
		if c.MemberID != m.MemberID {
			continue
		}
		if _, err := s.ledger.AttachMandate(ctx, tenantID, c.ID, m.ID); err != nil {
			s.Logger.Errorw("failed to re-attach mandate to charge",
				"mandate_id", m.ID,
				"charge_id", c.ID,
				"error", err,
			)
		}
	}

	s.Logger.Infow("mandate activated", "mandate_id", m.ID, "tenant_id", tenantID)
	return m, nil
}

func (s *mandateService) Revoke(ctx context.Context, tenantID, mandateID, reason string) (*mandate.Mandate, error) {
	m, err := s.Get(ctx, tenantID, mandateID)
	if err != nil {
		return nil, err
	}
	return s.revoke(ctx, tenantID, m, reason)
}

func (s *mandateService) revoke(ctx context.Context, tenantID string, m *mandate.Mandate, reason string) (*mandate.Mandate, error) {
	if m.MandateState == types.MandateStatusRevoked {
		// revoking twice is a no-op
		return m, nil
	}
	if !m.MandateState.CanTransition(types.MandateStatusRevoked) {
		return nil, ierr.NewError("mandate cannot be revoked").
			WithHintf("Mandate in state %s is terminal", m.MandateState).
			WithReportableDetails(map[string]any{
				"mandate_id": m.ID,
				"state":      m.MandateState,
			}).
			Mark(ierr.ErrInvalidTransition)
	}

	m.MandateState = types.MandateStatusRevoked
	m.RevokedAt = lo.ToPtr(time.Now().UTC())
	m.RevokeReason = reason
	m.UpdatedAt = time.Now().UTC()
	m.UpdatedBy = types.GetUserID(ctx)
	if err := s.MandateRepo.Update(ctx, m); err != nil {
		return nil, err
	}

	if err := s.flagDependentCharges(ctx, tenantID, m); err != nil {
		return nil, err
	}

	s.Logger.Infow("mandate revoked",
		"mandate_id", m.ID,
		"tenant_id", tenantID,
		"reason", reason,
	)
	return m, nil
}

func (s *mandateService) ExpireStale(ctx context.Context, tenantID string, asOf time.Time) (*BatchSummary, error) {
	if err := s.guard.RequireScope(tenantID); err != nil {
		return nil, err
	}

	cutoff := asOf.AddDate(0, 0, -s.Config.Billing.MandateRetentionDays)
	stale, err := s.MandateRepo.ListStale(ctx, tenantID, cutoff)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{TenantID: tenantID}
	for _, m := range stale {
		summary.Processed++
		if !m.MandateState.CanTransition(types.MandateStatusExpired) {
			summary.skip(m.ID, "not expirable from state "+m.MandateState.String())
			continue
		}
		m.MandateState = types.MandateStatusExpired
		m.UpdatedAt = time.Now().UTC()
		m.UpdatedBy = types.GetUserID(ctx)
		if err := s.MandateRepo.Update(ctx, m); err != nil {
			summary.fail(m.ID, err)
			continue
		}
		if err := s.flagDependentCharges(ctx, tenantID, m); err != nil {
			summary.fail(m.ID, err)
			continue
		}
		summary.Created++
	}

	s.Logger.Infow("expired stale mandates",
		"tenant_id", tenantID,
		"expired", summary.Created,
		"skipped", len(summary.Skipped),
	)
	return summary, nil
}

func (s *mandateService) Get(ctx context.Context, tenantID, mandateID string) (*mandate.Mandate, error) {
	if err := s.guard.RequireScope(tenantID); err != nil {
		return nil, err
	}
	m, err := s.MandateRepo.Get(ctx, mandateID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, tenantID, m); err != nil {
		return nil, err
	}
	return m, nil
}

// flagDependentCharges marks charges referencing a revoked or expired
// mandate as needs_mandate instead of cancelling them. Fail-safe, not
// fail-silent: each flagged charge is published for operator review.
func (s *mandateService) flagDependentCharges(ctx context.Context, tenantID string, m *mandate.Mandate) error {
	charges, err := s.ChargeRepo.ListByMandate(ctx, tenantID, m.ID)
	if err != nil {
		return err
	}
	for _, c := range charges {
		if c.ChargeState != types.ChargeStatusPending && c.ChargeState != types.ChargeStatusIncludedInRun {
			continue
		}
		flagged, err := s.ledger.FlagNeedsMandate(ctx, tenantID, c.ID)
		if err != nil {
			s.Logger.Errorw("failed to flag charge after mandate loss",
				"mandate_id", m.ID,
				"charge_id", c.ID,
				"error", err,
			)
			continue
		}
		payload, _ := json.Marshal(map[string]string{
			"mandate_id": m.ID,
			"reason":     "mandate no longer active",
		})
		if err := s.Notify.Publish(ctx, &types.NotificationEvent{
			EventName: types.NotificationEventNeedsMandateReview,
			TenantID:  tenantID,
			MemberID:  flagged.MemberID,
			ChargeID:  flagged.ID,
			Payload:   payload,
		}); err != nil {
			s.Logger.Errorw("failed to publish needs-mandate event",
				"charge_id", flagged.ID,
				"error", err,
			)
		}
	}
	return nil
}
