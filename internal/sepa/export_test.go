package sepa

import (
	"testing"
	"time"

	"github.com/dojobill/dojobill/internal/domain/charge"
	"github.com/dojobill/dojobill/internal/domain/collectionrun"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportCharge(id, mandateID, amount string) *charge.Charge {
	due := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	return &charge.Charge{
		ID:          id,
		ContractID:  "contract-1",
		MemberID:    "member-1",
		MandateID:   lo.ToPtr(mandateID),
		Amount:      decimal.RequireFromString(amount),
		DueDate:     due,
		Period:      types.NewBillingPeriod(due, types.BillingCycleMonthly),
		ChargeState: types.ChargeStatusIncludedInRun,
		EndToEndID:  "e2e-" + id,
	}
}

func exportRun(chargeIDs ...string) *collectionrun.CollectionRun {
	return &collectionrun.CollectionRun{
		ID:         "run-1",
		Reference:  "RUN-2024-02",
		CutoffDate: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		RunState:   types.CollectionRunStatusBuilding,
		ChargeIDs:  chargeIDs,
		BaseModel:  types.BaseModel{TenantID: "tenant_a"},
	}
}

func TestExportRunPreservesOrderAndTotals(t *testing.T) {
	run := exportRun("charge-2", "charge-1", "charge-3")
	charges := []*charge.Charge{
		exportCharge("charge-1", "mandate-1", "49.90"),
		exportCharge("charge-2", "mandate-2", "25.00"),
		exportCharge("charge-3", "mandate-3", "10.10"),
	}

	file, err := ExportRun(run, charges)
	require.NoError(t, err)

	assert.Equal(t, "run-1", file.RunID)
	assert.Equal(t, "RUN-2024-02", file.RunReference)
	assert.Equal(t, "tenant_a", file.TenantID)
	assert.Equal(t, "85", file.Total.String())

	// transactions follow the run's charge order, not the load order
	require.Len(t, file.Transactions, 3)
	assert.Equal(t, "e2e-charge-2", file.Transactions[0].EndToEndID)
	assert.Equal(t, "e2e-charge-1", file.Transactions[1].EndToEndID)
	assert.Equal(t, "e2e-charge-3", file.Transactions[2].EndToEndID)
	assert.Equal(t, "mandate-2", file.Transactions[0].MandateReference)
}

func TestExportRunEmptyRun(t *testing.T) {
	file, err := ExportRun(exportRun(), nil)
	require.NoError(t, err)
	assert.Empty(t, file.Transactions)
	assert.True(t, file.Total.IsZero())
}

func TestExportRunUnknownChargeFails(t *testing.T) {
	run := exportRun("charge-1", "charge-missing")
	charges := []*charge.Charge{exportCharge("charge-1", "mandate-1", "49.90")}

	_, err := ExportRun(run, charges)
	require.Error(t, err)
	assert.True(t, ierr.IsSystem(err))
}

func TestExportRunChargeWithoutMandateFails(t *testing.T) {
	c := exportCharge("charge-1", "mandate-1", "49.90")
	c.MandateID = nil
	run := exportRun("charge-1")

	_, err := ExportRun(run, []*charge.Charge{c})
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidOperation(err))
}
