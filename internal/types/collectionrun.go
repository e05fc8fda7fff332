package types

import (
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/samber/lo"
)

// CollectionRunStatus is the lifecycle status of a direct-debit collection
// run (Lastschriftlauf)
type CollectionRunStatus string

const (
	CollectionRunStatusBuilding   CollectionRunStatus = "building"
	CollectionRunStatusSubmitted  CollectionRunStatus = "submitted"
	CollectionRunStatusReconciled CollectionRunStatus = "reconciled"
	CollectionRunStatusAborted    CollectionRunStatus = "aborted"
)

func (s CollectionRunStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the run can accept no further charges or
// reconciliation results
func (s CollectionRunStatus) IsTerminal() bool {
	return s == CollectionRunStatusReconciled || s == CollectionRunStatusAborted
}

var collectionRunTransitions = map[CollectionRunStatus][]CollectionRunStatus{
	CollectionRunStatusBuilding:   {CollectionRunStatusSubmitted, CollectionRunStatusAborted},
	CollectionRunStatusSubmitted:  {CollectionRunStatusReconciled},
	CollectionRunStatusReconciled: {},
	CollectionRunStatusAborted:    {},
}

// CanTransition reports whether the run may move from s to target
func (s CollectionRunStatus) CanTransition(target CollectionRunStatus) bool {
	return lo.Contains(collectionRunTransitions[s], target)
}

func (s CollectionRunStatus) Validate() error {
	allowed := []CollectionRunStatus{
		CollectionRunStatusBuilding,
		CollectionRunStatusSubmitted,
		CollectionRunStatusReconciled,
		CollectionRunStatusAborted,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid collection run status").
			WithHint("Invalid collection run status").
			WithReportableDetails(map[string]any{
				"allowed_values": allowed,
				"provided_value": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ReconcileOutcome is the per-charge outcome reported by the bank result feed
type ReconcileOutcome string

const (
	ReconcileOutcomeSettled  ReconcileOutcome = "settled"
	ReconcileOutcomeFailed   ReconcileOutcome = "failed"
	ReconcileOutcomeReturned ReconcileOutcome = "returned"
	// ReconcileOutcomePending means the bank has not reported a final
	// outcome yet. The charge stays submitted.
	ReconcileOutcomePending ReconcileOutcome = "pending"
)

func (o ReconcileOutcome) String() string {
	return string(o)
}

func (o ReconcileOutcome) Validate() error {
	allowed := []ReconcileOutcome{
		ReconcileOutcomeSettled,
		ReconcileOutcomeFailed,
		ReconcileOutcomeReturned,
		ReconcileOutcomePending,
	}
	if !lo.Contains(allowed, o) {
		return ierr.NewError("invalid reconcile outcome").
			WithHint("Invalid reconcile outcome").
			WithReportableDetails(map[string]any{
				"allowed_values": allowed,
				"provided_value": o,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
