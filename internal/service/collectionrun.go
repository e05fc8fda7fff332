package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/dojobill/dojobill/internal/domain/charge"
	"github.com/dojobill/dojobill/internal/domain/collectionrun"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/sepa"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/samber/lo"
)

// CollectionRunService batches due charges into direct-debit collection
// runs. Building and submitting are separate steps: a building run can still
// be aborted; once submitted to the bank it can only be reconciled.
type CollectionRunService interface {
	// BuildRun groups the tenant's due charges as of the cutoff date into
	// a run. An empty run is a valid result. Re-invoking for the same
	// cutoff returns the existing open run instead of building a second
	// one. The summary reports every charge skipped and why.
	BuildRun(ctx context.Context, tenantID string, cutoff time.Time) (*collectionrun.CollectionRun, *BatchSummary, error)

	// SubmitRun marks the run submitted and renders the outbound bank
	// file tuples
	SubmitRun(ctx context.Context, tenantID, runID string) (*sepa.ExportFile, error)

	// AbortRun abandons a building run and returns its charges to pending
	AbortRun(ctx context.Context, tenantID, runID string) (*collectionrun.CollectionRun, error)

	Get(ctx context.Context, tenantID, runID string) (*collectionrun.CollectionRun, error)
}

type collectionRunService struct {
	ServiceParams
	guard  TenantGuardService
	ledger LedgerService
}

// NewCollectionRunService creates the run builder
func NewCollectionRunService(params ServiceParams) CollectionRunService {
	return &collectionRunService{
		ServiceParams: params,
		guard:         NewTenantGuardService(params),
		ledger:        NewLedgerService(params),
	}
}

func (s *collectionRunService) BuildRun(ctx context.Context, tenantID string, cutoff time.Time) (*collectionrun.CollectionRun, *BatchSummary, error) {
	if err := s.guard.RequireScope(tenantID); err != nil {
		return nil, nil, err
	}

	// building and reconciling must not interleave for one tenant
	unlock := s.TenantLocks.Lock(tenantID)
	defer unlock()

	// two same-day invocations must hit the same run regardless of the
	// clock time they carry
	cutoff = types.DateOf(cutoff)

	// safe to re-run after a crash: an open run for this cutoff is reused
	if existing, err := s.RunRepo.GetOpenByCutoff(ctx, tenantID, cutoff); err == nil {
		s.Logger.Infow("reusing open collection run",
			"tenant_id", tenantID,
			"run_id", existing.ID,
			"cutoff", cutoff,
		)
		return existing, &BatchSummary{TenantID: tenantID}, nil
	} else if !ierr.IsNotFound(err) {
		return nil, nil, err
	}

	due, err := s.ChargeRepo.ListDue(ctx, tenantID, types.ChargeStatusPending, cutoff)
	if err != nil {
		return nil, nil, err
	}

	// deterministic order for audit reproducibility
	sort.Slice(due, func(i, j int) bool {
		if !due[i].DueDate.Equal(due[j].DueDate) {
			return due[i].DueDate.Before(due[j].DueDate)
		}
		if due[i].MemberID != due[j].MemberID {
			return due[i].MemberID < due[j].MemberID
		}
		return due[i].ContractID < due[j].ContractID
	})

	run := &collectionrun.CollectionRun{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_COLLECTION_RUN),
		Reference:  types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_RUN),
		CutoffDate: cutoff,
		RunState:   types.CollectionRunStatusBuilding,
		BaseModel:  types.NewBaseModel(ctx, tenantID),
	}
	if err := s.guard.Authorize(ctx, tenantID, run); err != nil {
		return nil, nil, err
	}
	if err := s.RunRepo.Create(ctx, run); err != nil {
		return nil, nil, err
	}

	summary := &BatchSummary{TenantID: tenantID}
	for _, c := range due {
		summary.Processed++
		if reason, ok := s.includable(ctx, tenantID, c); !ok {
			summary.skip(c.ID, reason)
			run.Skipped = append(run.Skipped, collectionrun.SkippedCharge{ChargeID: c.ID, Reason: reason})
			continue
		}
		// a charge failing inclusion is skipped and flagged, not allowed
		// to abort the whole run
		if err := s.ledger.IncludeInRun(ctx, tenantID, c, run.ID); err != nil {
			summary.fail(c.ID, err)
			run.Skipped = append(run.Skipped, collectionrun.SkippedCharge{ChargeID: c.ID, Reason: err.Error()})
			s.Logger.Errorw("charge inclusion failed",
				"run_id", run.ID,
				"charge_id", c.ID,
				"error", err,
			)
			continue
		}
		run.ChargeIDs = append(run.ChargeIDs, c.ID)
		summary.Created++
	}

	run.UpdatedAt = time.Now().UTC()
	if err := s.RunRepo.Update(ctx, run); err != nil {
		return nil, nil, err
	}

	s.publishRunSummary(ctx, run, summary)
	s.Logger.Infow("collection run built",
		"tenant_id", tenantID,
		"run_id", run.ID,
		"cutoff", cutoff,
		"included", len(run.ChargeIDs),
		"skipped", len(run.Skipped),
	)
	return run, summary, nil
}

// includable re-checks a charge's mandate right before inclusion. The
// mandate must still be active; needs_mandate charges were already excluded
// by the pending-state query.
func (s *collectionRunService) includable(ctx context.Context, tenantID string, c *charge.Charge) (string, bool) {
	if c.MandateID == nil {
		return "no active mandate", false
	}
	m, err := s.MandateRepo.Get(ctx, *c.MandateID)
	if err != nil {
		return "mandate lookup failed: " + err.Error(), false
	}
	if m.TenantID != tenantID {
		return "mandate belongs to a different tenant", false
	}
	if m.MandateState != types.MandateStatusActive {
		return "mandate not active: " + m.MandateState.String(), false
	}
	return "", true
}

func (s *collectionRunService) SubmitRun(ctx context.Context, tenantID, runID string) (*sepa.ExportFile, error) {
	run, err := s.Get(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	if !run.RunState.CanTransition(types.CollectionRunStatusSubmitted) {
		return nil, ierr.NewError("run cannot be submitted").
			WithHintf("Only a building run can be submitted, not %s", run.RunState).
			WithReportableDetails(map[string]any{
				"run_id": run.ID,
				"state":  run.RunState,
			}).
			Mark(ierr.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	charges, err := s.ChargeRepo.ListByRun(ctx, tenantID, run.ID)
	if err != nil {
		return nil, err
	}
	for _, c := range charges {
		if err := s.ledger.MarkSubmitted(ctx, tenantID, c, now); err != nil {
			return nil, err
		}
	}

	run.RunState = types.CollectionRunStatusSubmitted
	run.SubmittedAt = lo.ToPtr(now)
	run.UpdatedAt = now
	if err := s.RunRepo.Update(ctx, run); err != nil {
		return nil, err
	}

	file, err := sepa.ExportRun(run, charges)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("collection run submitted",
		"tenant_id", tenantID,
		"run_id", run.ID,
		"transactions", len(file.Transactions),
		"total", file.Total,
	)
	return file, nil
}

func (s *collectionRunService) AbortRun(ctx context.Context, tenantID, runID string) (*collectionrun.CollectionRun, error) {
	run, err := s.Get(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	if !run.RunState.CanTransition(types.CollectionRunStatusAborted) {
		return nil, ierr.NewError("run cannot be aborted").
			WithHint("A run already sent to the bank can only be reconciled").
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
	for _, c := range charges {
		if err := s.ledger.ReleaseFromRun(ctx, tenantID, c); err != nil {
			return nil, err
		}
	}

	run.RunState = types.CollectionRunStatusAborted
	run.UpdatedAt = time.Now().UTC()
	if err := s.RunRepo.Update(ctx, run); err != nil {
		return nil, err
	}

	s.Logger.Infow("collection run aborted",
		"tenant_id", tenantID,
		"run_id", run.ID,
		"released", len(charges),
	)
	return run, nil
}

func (s *collectionRunService) Get(ctx context.Context, tenantID, runID string) (*collectionrun.CollectionRun, error) {
	if err := s.guard.RequireScope(tenantID); err != nil {
		return nil, err
	}
	run, err := s.RunRepo.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, tenantID, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *collectionRunService) publishRunSummary(ctx context.Context, run *collectionrun.CollectionRun, summary *BatchSummary) {
	payload, err := json.Marshal(map[string]any{
		"run_id":    run.ID,
		"reference": run.Reference,
		"cutoff":    run.CutoffDate,
		"included":  len(run.ChargeIDs),
		"skipped":   run.Skipped,
	})
	if err != nil {
		return
	}
	if err := s.Notify.Publish(ctx, &types.NotificationEvent{
		EventName: types.NotificationEventRunSummary,
		TenantID:  run.TenantID,
		Payload:   payload,
	}); err != nil {
		s.Logger.Errorw("failed to publish run summary", "run_id", run.ID, "error", err)
	}
}
