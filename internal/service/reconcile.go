package service

import (
	"context"
	"time"

	"github.com/dojobill/dojobill/internal/domain/charge"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/samber/lo"
)

// ReconcileResult is one entry of the bank's inbound result feed
type ReconcileResult struct {
	ChargeID   string                 `json:"charge_id,omitempty"`
	EndToEndID string                 `json:"end_to_end_id,omitempty"`
	Outcome    types.ReconcileOutcome `json:"outcome"`
	ReasonCode types.FailureReason    `json:"reason_code,omitempty"`
	SettledAt  *time.Time             `json:"settled_at,omitempty"`
}

// ReconcileSummary reports one reconciliation pass
type ReconcileSummary struct {
	RunID      string `json:"run_id"`
	Processed  int    `json:"processed"`
	Settled    int    `json:"settled"`
	Failed     int    `json:"failed"`
	Unmatched  int    `json:"unmatched"`
	Errors     []FailedItem `json:"errors,omitempty"`
	Reconciled bool   `json:"reconciled"`
}

// ReconcileService ingests bank result feeds and routes each outcome to the
// charge ledger. It is thin on purpose; the ledger owns all state rules.
type ReconcileService interface {
	// Reconcile applies a batch of results to a submitted run. Results
	// for charges not in the run are logged and ignored (malformed
	// provider files must not corrupt the ledger). Settlement may arrive
	// in several partial batches; the run flips to reconciled only once
	// every charge has left the submitted state.
	Reconcile(ctx context.Context, tenantID, runID string, results []ReconcileResult) (*ReconcileSummary, error)
}

type reconcileService struct {
	ServiceParams
	guard   TenantGuardService
	ledger  LedgerService
	dunning DunningService
	runs    CollectionRunService
}

// NewReconcileService creates the run reconciler
func NewReconcileService(params ServiceParams) ReconcileService {
	return &reconcileService{
		ServiceParams: params,
		guard:         NewTenantGuardService(params),
		ledger:        NewLedgerService(params),
		dunning:       NewDunningService(params),
		runs:          NewCollectionRunService(params),
	}
}

func (s *reconcileService) Reconcile(ctx context.Context, tenantID, runID string, results []ReconcileResult) (*ReconcileSummary, error) {
	if err := s.guard.RequireScope(tenantID); err != nil {
		return nil, err
	}

	// reconciliation and run building must not interleave for one tenant
	unlock := s.TenantLocks.Lock(tenantID)
	defer unlock()

	run, err := s.runs.Get(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	if run.RunState != types.CollectionRunStatusSubmitted {
		return nil, ierr.NewError("run is not awaiting reconciliation").
			WithHintf("Only a submitted run can be reconciled, not %s", run.RunState).
			WithReportableDetails(map[string]any{
				"run_id": run.ID,
				"state":  run.RunState,
			}).
			Mark(ierr.ErrInvalidTransition)
	}

	charges, err := s.ChargeRepo.ListByRun(ctx, tenantID, run.ID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*charge.Charge, len(charges))
	byEndToEnd := make(map[string]*charge.Charge, len(charges))
	for _, c := range charges {
		byID[c.ID] = c
		if c.EndToEndID != "" {
			byEndToEnd[c.EndToEndID] = c
		}
	}

	summary := &ReconcileSummary{RunID: run.ID}
	for _, result := range results {
		summary.Processed++

		c := byID[result.ChargeID]
		if c == nil {
			c = byEndToEnd[result.EndToEndID]
		}
		if c == nil {
			summary.Unmatched++
			s.Logger.Warnw("reconcile result matches no charge in run",
				"run_id", run.ID,
				"charge_id", result.ChargeID,
				"end_to_end_id", result.EndToEndID,
			)
			continue
		}

		if err := s.apply(ctx, tenantID, c, result); err != nil {
			summary.Errors = append(summary.Errors, FailedItem{ID: c.ID, Error: err.Error()})
			s.Logger.Errorw("failed to apply reconcile result",
				"run_id", run.ID,
				"charge_id", c.ID,
				"outcome", result.Outcome,
				"error", err,
			)
			continue
		}

		// counted from the outcomes applied in this pass, not from run
		// membership: a retryable failure requeues the charge out of the
		// run and must still show up as failed
		switch result.Outcome {
		case types.ReconcileOutcomeSettled:
			summary.Settled++
		case types.ReconcileOutcomeFailed, types.ReconcileOutcomeReturned:
			summary.Failed++
		}
	}

	reconciled, err := s.tryCloseRun(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	summary.Reconciled = reconciled

	s.Logger.Infow("run reconciliation pass complete",
		"tenant_id", tenantID,
		"run_id", run.ID,
		"processed", summary.Processed,
		"settled", summary.Settled,
		"failed", summary.Failed,
		"unmatched", summary.Unmatched,
		"reconciled", summary.Reconciled,
	)
	return summary, nil
}

func (s *reconcileService) apply(ctx context.Context, tenantID string, c *charge.Charge, result ReconcileResult) error {
	if err := result.Outcome.Validate(); err != nil {
		return err
	}

	switch result.Outcome {
	case types.ReconcileOutcomeSettled:
		settledAt := time.Now().UTC()
		if result.SettledAt != nil {
			settledAt = *result.SettledAt
		}
		settled, err := s.ledger.Settle(ctx, tenantID, c.ID, settledAt)
		if err != nil {
			return err
		}
		// a late settlement closes any dunning case opened meanwhile
		if err := s.dunning.HandleSettled(ctx, tenantID, settled.ID); err != nil {
			return err
		}
		return nil
	case types.ReconcileOutcomePending:
		// never guessed to success or failure
		return ierr.NewError("bank has not reported a final outcome").
			WithHint("The charge needs manual review before it can be resolved").
			WithReportableDetails(map[string]any{
				"charge_id":     c.ID,
				"end_to_end_id": c.EndToEndID,
			}).
			Mark(ierr.ErrAmbiguousOutcome)
	case types.ReconcileOutcomeFailed, types.ReconcileOutcomeReturned:
		reason := result.ReasonCode
		if reason == "" {
			reason = types.FailureReasonTemporaryBankError
		}
		failed, err := s.ledger.Fail(ctx, tenantID, c.ID, reason)
		if err != nil {
			return err
		}
		if failed.ChargeState == types.ChargeStatusEscalating {
			if _, err := s.dunning.EnsureCase(ctx, tenantID, failed); err != nil {
				return err
			}
		}
		return nil
	default:
		return ierr.NewError("unhandled reconcile outcome").
			WithReportableDetails(map[string]any{"outcome": result.Outcome}).
			Mark(ierr.ErrInvalidOperation)
	}
}

// tryCloseRun flips the run to reconciled once no charge is still waiting on
// the bank
func (s *reconcileService) tryCloseRun(ctx context.Context, tenantID, runID string) (bool, error) {
	run, err := s.runs.Get(ctx, tenantID, runID)
	if err != nil {
		return false, err
	}
	charges, err := s.ChargeRepo.ListByRun(ctx, tenantID, runID)
	if err != nil {
		return false, err
	}
	for _, c := range charges {
		if c.ChargeState == types.ChargeStatusSubmitted || c.ChargeState == types.ChargeStatusIncludedInRun {
			return false, nil
		}
	}

	run.RunState = types.CollectionRunStatusReconciled
	run.ReconciledAt = lo.ToPtr(time.Now().UTC())
	run.UpdatedAt = time.Now().UTC()
	if err := s.RunRepo.Update(ctx, run); err != nil {
		return false, err
	}
	return true, nil
}
