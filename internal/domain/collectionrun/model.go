package collectionrun

import (
	"time"

	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
)

// SkippedCharge records a charge that was considered for a run but not
// included, with the reason an operator needs to review it
type SkippedCharge struct {
	ChargeID string `json:"charge_id"`
	Reason   string `json:"reason"`
}

// CollectionRun is a batch of charges for one tenant submitted together to
// the bank on one cutoff date (Lastschriftlauf)
type CollectionRun struct {
	ID string `db:"id" json:"id"`
	// Reference is the short human-facing run identifier carried into the
	// bank file
	Reference  string                    `db:"reference" json:"reference"`
	CutoffDate time.Time                 `db:"cutoff_date" json:"cutoff_date"`
	RunState   types.CollectionRunStatus `db:"run_state" json:"run_state"`
	// ChargeIDs preserves the deterministic build order (due date, member,
	// contract) for audit reproducibility
	ChargeIDs []string        `json:"charge_ids"`
	Skipped   []SkippedCharge `json:"skipped,omitempty"`

	SubmittedAt  *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	ReconciledAt *time.Time `db:"reconciled_at" json:"reconciled_at,omitempty"`

	// Version guards concurrent writes
	Version int `db:"version" json:"version"`

	types.BaseModel
}

// Validate checks the run shape
func (r *CollectionRun) Validate() error {
	if r.CutoffDate.IsZero() {
		return ierr.NewError("collection run cutoff date cannot be zero").
			WithHint("Cutoff date is required").
			Mark(ierr.ErrValidation)
	}
	return r.RunState.Validate()
}

// Contains reports whether the charge is part of the run
func (r *CollectionRun) Contains(chargeID string) bool {
	for _, id := range r.ChargeIDs {
		if id == chargeID {
			return true
		}
	}
	return false
}
