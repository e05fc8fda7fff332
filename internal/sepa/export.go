package sepa

import (
	"time"

	"github.com/dojobill/dojobill/internal/domain/charge"
	"github.com/dojobill/dojobill/internal/domain/collectionrun"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/shopspring/decimal"
)

// Transaction is the logical shape of one direct-debit instruction in the
// outbound bank file. The full pain.008 XML rendering is the bank gateway's
// concern; the core only guarantees these tuples.
type Transaction struct {
	MandateReference string          `json:"mandate_reference"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          time.Time       `json:"due_date"`
	EndToEndID       string          `json:"end_to_end_id"`
}

// ExportFile is the outbound batch for one collection run
type ExportFile struct {
	RunID        string          `json:"run_id"`
	RunReference string          `json:"run_reference"`
	TenantID     string          `json:"tenant_id"`
	CutoffDate   time.Time       `json:"cutoff_date"`
	Total        decimal.Decimal `json:"total"`
	Transactions []Transaction   `json:"transactions"`
}

// ExportRun renders the run's charges into bank-file tuples, preserving the
// run's deterministic charge order. Charges without a mandate reference
// cannot be exported; the run builder excludes them before submission, so
// hitting one here is an invariant violation.
func ExportRun(run *collectionrun.CollectionRun, charges []*charge.Charge) (*ExportFile, error) {
	byID := make(map[string]*charge.Charge, len(charges))
	for _, c := range charges {
		byID[c.ID] = c
	}

	file := &ExportFile{
		RunID:        run.ID,
		RunReference: run.Reference,
		TenantID:     run.TenantID,
		CutoffDate:   run.CutoffDate,
		Total:        decimal.Zero,
		Transactions: make([]Transaction, 0, len(run.ChargeIDs)),
	}

	for _, chargeID := range run.ChargeIDs {
		c, ok := byID[chargeID]
		if !ok {
			return nil, ierr.NewError("run references unknown charge").
				WithHint("Collection run contains a charge that could not be loaded").
				WithReportableDetails(map[string]any{
					"run_id":    run.ID,
					"charge_id": chargeID,
				}).
				Mark(ierr.ErrSystem)
		}
		if c.MandateID == nil {
			return nil, ierr.NewError("charge has no mandate reference").
				WithHint("Charges without an active mandate must not reach export").
				WithReportableDetails(map[string]any{
					"run_id":    run.ID,
					"charge_id": c.ID,
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		file.Transactions = append(file.Transactions, Transaction{
			MandateReference: *c.MandateID,
			Amount:           c.Amount,
			DueDate:          c.DueDate,
			EndToEndID:       c.EndToEndID,
		})
		file.Total = file.Total.Add(c.Amount)
	}

	return file, nil
}
