package dto

import (
	"time"

	"github.com/dojobill/dojobill/internal/domain/collectionrun"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
)

// BuildRunRequest represents the request payload for building a collection run
type BuildRunRequest struct {
	// CutoffDate in YYYY-MM-DD form. Charges due on or before it are
	// collected.
	CutoffDate string `json:"cutoff_date" binding:"required" example:"2026-02-01"`
}

// ParseCutoff parses the cutoff date
func (r *BuildRunRequest) ParseCutoff() (time.Time, error) {
	cutoff, err := time.Parse(time.DateOnly, r.CutoffDate)
	if err != nil {
		return time.Time{}, ierr.WithError(err).
			WithHint("Cutoff date must be in YYYY-MM-DD form").
			WithReportableDetails(map[string]any{
				"cutoff_date": r.CutoffDate,
			}).
			Mark(ierr.ErrValidation)
	}
	return cutoff, nil
}

// CollectionRunResponse represents the collection run response structure
type CollectionRunResponse struct {
	ID           string                          `json:"id"`
	Reference    string                          `json:"reference"`
	CutoffDate   time.Time                       `json:"cutoff_date"`
	RunState     types.CollectionRunStatus       `json:"run_state"`
	ChargeIDs    []string                        `json:"charge_ids"`
	Skipped      []collectionrun.SkippedCharge   `json:"skipped,omitempty"`
	SubmittedAt  *time.Time                      `json:"submitted_at,omitempty"`
	ReconciledAt *time.Time                      `json:"reconciled_at,omitempty"`
	TenantID     string                          `json:"tenant_id"`
	CreatedAt    time.Time                       `json:"created_at"`
	UpdatedAt    time.Time                       `json:"updated_at"`
}

// ToCollectionRunResponse converts a domain run to its response shape
func ToCollectionRunResponse(r *collectionrun.CollectionRun) *CollectionRunResponse {
	return &CollectionRunResponse{
		ID:           r.ID,
		Reference:    r.Reference,
		CutoffDate:   r.CutoffDate,
		RunState:     r.RunState,
		ChargeIDs:    r.ChargeIDs,
		Skipped:      r.Skipped,
		SubmittedAt:  r.SubmittedAt,
		ReconciledAt: r.ReconciledAt,
		TenantID:     r.TenantID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
