package service

import (
	"context"
	"time"

	"github.com/dojobill/dojobill/internal/domain/charge"
	"github.com/dojobill/dojobill/internal/domain/directory"
	"github.com/dojobill/dojobill/internal/domain/mandate"
	"github.com/dojobill/dojobill/internal/testutil"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// testParams wires a ServiceParams from the suite's in-memory stores
func testParams(base *testutil.BaseServiceTestSuite) ServiceParams {
	stores := base.GetStores()
	return ServiceParams{
		Logger:      base.GetLogger(),
		Config:      base.GetConfig(),
		Directory:   base.GetDirectory(),
		Notify:      base.GetNotify(),
		TenantRepo:  stores.TenantRepo,
		MandateRepo: stores.MandateRepo,
		ChargeRepo:  stores.ChargeRepo,
		RunRepo:     stores.RunRepo,
		DunningRepo: stores.DunningRepo,
		TenantLocks: NewTenantLockRegistry(),
	}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestMember(ctx context.Context, dir *testutil.InMemoryDirectory, tenantID, id string) *directory.Member {
	m := &directory.Member{
		ID:        id,
		Name:      "Member " + id,
		BaseModel: types.NewBaseModel(ctx, tenantID),
	}
	dir.AddMember(m)
	return m
}

func newTestContract(ctx context.Context, dir *testutil.InMemoryDirectory, tenantID, id, memberID string, start time.Time, monthly string) *directory.Contract {
	c := &directory.Contract{
		ID:            id,
		MemberID:      memberID,
		StartDate:     start,
		MonthlyAmount: amount(monthly),
		BillingCycle:  types.BillingCycleMonthly,
		ContractState: types.ContractStatusActive,
		BaseModel:     types.NewBaseModel(ctx, tenantID),
	}
	dir.AddContract(c)
	return c
}

func newDiscount(percent string, from, until time.Time) directory.Discount {
	return directory.Discount{
		Percent:    amount(percent),
		ValidFrom:  from,
		ValidUntil: until,
	}
}

func newTestMandate(ctx context.Context, repo mandate.Repository, tenantID, id, memberID string, state types.MandateStatus) *mandate.Mandate {
	m := &mandate.Mandate{
		ID:            id,
		MemberID:      memberID,
		IBANReference: "iban-ref-" + memberID,
		MandateState:  state,
		BaseModel:     types.NewBaseModel(ctx, tenantID),
	}
	if state == types.MandateStatusActive {
		m.ActivatedAt = lo.ToPtr(time.Now().UTC())
	}
	_ = repo.Create(ctx, m)
	return m
}

func newTestCharge(ctx context.Context, repo charge.Repository, tenantID, id, contractID, memberID string, mandateID *string, due time.Time, amt string, state types.ChargeStatus) *charge.Charge {
	c := &charge.Charge{
		ID:          id,
		ContractID:  contractID,
		MemberID:    memberID,
		MandateID:   mandateID,
		Amount:      amount(amt),
		DueDate:     due,
		Period:      types.BillingPeriod{Start: due, End: due.AddDate(0, 1, 0)},
		ChargeState: state,
		EndToEndID:  "e2e-" + id,
		BaseModel:   types.NewBaseModel(ctx, tenantID),
	}
	_ = repo.Create(ctx, c)
	return c
}
