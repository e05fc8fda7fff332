package dto

import (
	"time"

	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/service"
	"github.com/dojobill/dojobill/internal/types"
)

// ReconcileResultEntry is one line of the bank's result feed as posted by
// the bank gateway. A charge is matched by charge id when present, else by
// end-to-end id.
type ReconcileResultEntry struct {
	ChargeID   string                 `json:"charge_id,omitempty"`
	EndToEndID string                 `json:"end_to_end_id,omitempty"`
	Outcome    types.ReconcileOutcome `json:"outcome" binding:"required"`
	ReasonCode types.FailureReason    `json:"reason_code,omitempty"`
	SettledAt  *time.Time             `json:"settled_at,omitempty"`
}

// ReconcileRequest represents the inbound result feed for one run
type ReconcileRequest struct {
	Results []ReconcileResultEntry `json:"results" binding:"required"`
}

// Validate checks the feed shape
func (r *ReconcileRequest) Validate() error {
	if len(r.Results) == 0 {
		return ierr.NewError("result feed cannot be empty").
			WithHint("At least one result entry is required").
			Mark(ierr.ErrValidation)
	}
	for i, entry := range r.Results {
		if entry.ChargeID == "" && entry.EndToEndID == "" {
			return ierr.NewError("result entry has no charge reference").
				WithHint("Each result needs a charge id or an end-to-end id").
				WithReportableDetails(map[string]any{
					"index": i,
				}).
				Mark(ierr.ErrValidation)
		}
		if err := entry.Outcome.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ToServiceResults converts the feed entries to the reconciler's input
func (r *ReconcileRequest) ToServiceResults() []service.ReconcileResult {
	results := make([]service.ReconcileResult, 0, len(r.Results))
	for _, entry := range r.Results {
		results = append(results, service.ReconcileResult{
			ChargeID:   entry.ChargeID,
			EndToEndID: entry.EndToEndID,
			Outcome:    entry.Outcome,
			ReasonCode: entry.ReasonCode,
			SettledAt:  entry.SettledAt,
		})
	}
	return results
}
