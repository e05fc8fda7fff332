package service

import (
	"context"
	"testing"
	"time"

	"github.com/dojobill/dojobill/internal/domain/charge"
	"github.com/dojobill/dojobill/internal/domain/directory"
	"github.com/dojobill/dojobill/internal/domain/dunning"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/testutil"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type ScheduleServiceSuite struct {
	testutil.BaseServiceTestSuite
	params  ServiceParams
	service ScheduleService
}

func TestScheduleService(t *testing.T) {
	suite.Run(t, new(ScheduleServiceSuite))
}

func (s *ScheduleServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = testParams(&s.BaseServiceTestSuite)
	s.service = NewScheduleService(s.params)
}

func (s *ScheduleServiceSuite) TestBillingDayOverrideSkipsPartialFirstMonth() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	contract := newTestContract(ctx, s.GetDirectory(), testutil.TenantA, "contract-1", "member-1", date(2024, time.January, 15), "49.90")
	contract.BillingDay = lo.ToPtr(1)

	created, err := s.service.MaterializeContract(ctx, testutil.TenantA, contract, date(2024, time.February, 2))
	s.NoError(err)
	s.Len(created, 1)

	c := created[0]
	s.Equal(date(2024, time.February, 1), c.DueDate)
	s.Equal("49.9", c.Amount.String())
	s.Equal(date(2024, time.February, 1), c.Period.Start)
	s.Equal(date(2024, time.March, 1), c.Period.End)
	s.Equal(types.ChargeStatusPending, c.ChargeState)
}

func (s *ScheduleServiceSuite) TestMaterializationIsIdempotent() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	contract := newTestContract(ctx, s.GetDirectory(), testutil.TenantA, "contract-1", "member-1", date(2024, time.January, 1), "50.00")

	horizon := date(2024, time.March, 15)
	first, err := s.service.MaterializeContract(ctx, testutil.TenantA, contract, horizon)
	s.NoError(err)
	s.Len(first, 3)

	second, err := s.service.MaterializeContract(ctx, testutil.TenantA, contract, horizon)
	s.NoError(err)
	s.Len(second, 0)

	all, err := s.GetStores().ChargeRepo.ListByContract(ctx, testutil.TenantA, contract.ID)
	s.NoError(err)
	s.Len(all, 3)
}

func (s *ScheduleServiceSuite) TestMonthEndClampingKeepsAnchor() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	contract := newTestContract(ctx, s.GetDirectory(), testutil.TenantA, "contract-1", "member-1", date(2024, time.January, 31), "30.00")
	contract.BillingDay = lo.ToPtr(31)

	created, err := s.service.MaterializeContract(ctx, testutil.TenantA, contract, date(2024, time.April, 2))
	s.NoError(err)
	s.Len(created, 3)

	// February clamps to its last day, March snaps back to the 31st
	s.Equal(date(2024, time.January, 31), created[0].DueDate)
	s.Equal(date(2024, time.February, 29), created[1].DueDate)
	s.Equal(date(2024, time.March, 31), created[2].DueDate)
}

func (s *ScheduleServiceSuite) TestPausedPeriodProducesNoCharge() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	contract := newTestContract(ctx, s.GetDirectory(), testutil.TenantA, "contract-1", "member-1", date(2024, time.January, 1), "50.00")
	contract.Pauses = append(contract.Pauses, directory.PauseInterval{
		From:  date(2024, time.February, 1),
		Until: date(2024, time.March, 1),
	})

	created, err := s.service.MaterializeContract(ctx, testutil.TenantA, contract, date(2024, time.March, 15))
	s.NoError(err)
	s.Len(created, 2)
	s.Equal(date(2024, time.January, 1), created[0].DueDate)
	s.Equal(date(2024, time.March, 1), created[1].DueDate)
}

func (s *ScheduleServiceSuite) TestLargestDiscountWinsWithoutStacking() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	contract := newTestContract(ctx, s.GetDirectory(), testutil.TenantA, "contract-1", "member-1", date(2024, time.January, 1), "50.00")
	contract.Discounts = append(contract.Discounts,
		newDiscount("10", date(2024, time.January, 1), date(2025, time.January, 1)),
		newDiscount("25", date(2024, time.January, 1), date(2025, time.January, 1)),
	)

	created, err := s.service.MaterializeContract(ctx, testutil.TenantA, contract, date(2024, time.January, 15))
	s.NoError(err)
	s.Len(created, 1)
	s.Equal("37.5", created[0].Amount.String())
}

func (s *ScheduleServiceSuite) TestTerminationFullPeriodBillsWholeMonth() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	contract := newTestContract(ctx, s.GetDirectory(), testutil.TenantA, "contract-1", "member-1", date(2024, time.January, 1), "62.00")
	contract.EndDate = lo.ToPtr(date(2024, time.January, 16))

	created, err := s.service.MaterializeContract(ctx, testutil.TenantA, contract, date(2024, time.March, 15))
	s.NoError(err)
	s.Len(created, 1)
	s.Equal("62", created[0].Amount.String())
}

func (s *ScheduleServiceSuite) TestTerminationProratesFinalPeriod() {
	cfg := *s.GetConfig()
	cfg.Billing.TerminationPolicy = types.TerminationPolicyProrate
	s.params.Config = &cfg
	s.service = NewScheduleService(s.params)

	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	contract := newTestContract(ctx, s.GetDirectory(), testutil.TenantA, "contract-1", "member-1", date(2024, time.January, 1), "62.00")
	contract.EndDate = lo.ToPtr(date(2024, time.January, 16))

	created, err := s.service.MaterializeContract(ctx, testutil.TenantA, contract, date(2024, time.March, 15))
	s.NoError(err)
	s.Len(created, 1)
	// 15 of 31 days covered
	s.Equal("30", created[0].Amount.String())
}

func (s *ScheduleServiceSuite) TestDunningFeeRidesOnNextCharge() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	contract := newTestContract(ctx, s.GetDirectory(), testutil.TenantA, "contract-1", "member-1", date(2024, time.January, 1), "50.00")

	dc := &dunning.Case{
		ID:             "case-1",
		ChargeID:       "charge-old",
		ContractID:     contract.ID,
		MemberID:       "member-1",
		Level:          2,
		NextActionDate: date(2024, time.January, 20),
		AccumulatedFee: amount("15.00"),
		CaseState:      types.DunningCaseStatusOpen,
		BaseModel:      types.NewBaseModel(ctx, testutil.TenantA),
	}
	s.NoError(s.GetStores().DunningRepo.Create(ctx, dc))

	created, err := s.service.MaterializeContract(ctx, testutil.TenantA, contract, date(2024, time.January, 15))
	s.NoError(err)
	s.Len(created, 1)
	s.Equal("65", created[0].Amount.String())

	stored, err := s.GetStores().DunningRepo.Get(ctx, dc.ID)
	s.NoError(err)
	s.True(stored.FeeApplied)

	// the fee is charged once, not on every later charge
	more, err := s.service.MaterializeContract(ctx, testutil.TenantA, contract, date(2024, time.February, 15))
	s.NoError(err)
	s.Len(more, 1)
	s.Equal("50", more[0].Amount.String())
}

// chargeStoreWithDuplicateCreate reports an existing row on the first
// Create, as a concurrent materialization of the same period would
type chargeStoreWithDuplicateCreate struct {
	charge.Repository
	rejected bool
}

func (r *chargeStoreWithDuplicateCreate) Create(ctx context.Context, c *charge.Charge) error {
	if !r.rejected {
		r.rejected = true
		return ierr.NewError("charge already exists").Mark(ierr.ErrAlreadyExists)
	}
	return r.Repository.Create(ctx, c)
}

func (s *ScheduleServiceSuite) TestFeeSurvivesLostCreateRace() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	contract := newTestContract(ctx, s.GetDirectory(), testutil.TenantA, "contract-1", "member-1", date(2024, time.January, 1), "50.00")

	dc := &dunning.Case{
		ID:             "case-1",
		ChargeID:       "charge-old",
		ContractID:     contract.ID,
		MemberID:       "member-1",
		Level:          2,
		NextActionDate: date(2024, time.January, 20),
		AccumulatedFee: amount("15.00"),
		CaseState:      types.DunningCaseStatusOpen,
		BaseModel:      types.NewBaseModel(ctx, testutil.TenantA),
	}
	s.NoError(s.GetStores().DunningRepo.Create(ctx, dc))

	params := s.params
	params.ChargeRepo = &chargeStoreWithDuplicateCreate{Repository: s.GetStores().ChargeRepo}
	racing := NewScheduleService(params)

	created, err := racing.MaterializeContract(ctx, testutil.TenantA, contract, date(2024, time.January, 15))
	s.NoError(err)
	s.Empty(created)

	// the charge was never persisted, so the fee must still be pending
	stored, err := s.GetStores().DunningRepo.Get(ctx, dc.ID)
	s.NoError(err)
	s.False(stored.FeeApplied)

	// the next materialization bills it
	more, err := s.service.MaterializeContract(ctx, testutil.TenantA, contract, date(2024, time.January, 15))
	s.NoError(err)
	s.Len(more, 1)
	s.Equal("65", more[0].Amount.String())

	stored, err = s.GetStores().DunningRepo.Get(ctx, dc.ID)
	s.NoError(err)
	s.True(stored.FeeApplied)
}

func (s *ScheduleServiceSuite) TestChargeWithoutMandateStaysPending() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	contract := newTestContract(ctx, s.GetDirectory(), testutil.TenantA, "contract-1", "member-1", date(2024, time.January, 1), "50.00")

	created, err := s.service.MaterializeContract(ctx, testutil.TenantA, contract, date(2024, time.January, 15))
	s.NoError(err)
	s.Len(created, 1)
	s.Nil(created[0].MandateID)
	s.Equal(types.ChargeStatusPending, created[0].ChargeState)
}

func (s *ScheduleServiceSuite) TestActiveMandateIsAttachedAtScheduleTime() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	contract := newTestContract(ctx, s.GetDirectory(), testutil.TenantA, "contract-1", "member-1", date(2024, time.January, 1), "50.00")
	m := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-1", "member-1", types.MandateStatusActive)

	created, err := s.service.MaterializeContract(ctx, testutil.TenantA, contract, date(2024, time.January, 15))
	s.NoError(err)
	s.Len(created, 1)
	s.NotNil(created[0].MandateID)
	s.Equal(m.ID, *created[0].MandateID)
}

func (s *ScheduleServiceSuite) TestContractOfForeignMemberIsRejected() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantB, "member-b")
	contract := newTestContract(ctx, s.GetDirectory(), testutil.TenantA, "contract-1", "member-b", date(2024, time.January, 1), "50.00")

	_, err := s.service.MaterializeContract(ctx, testutil.TenantA, contract, date(2024, time.January, 15))
	s.Error(err)
	s.True(ierr.IsMixedTenant(err))
}

func (s *ScheduleServiceSuite) TestMaterializeTenantIsolatesBadContracts() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	newTestContract(ctx, s.GetDirectory(), testutil.TenantA, "contract-good", "member-1", date(2024, time.January, 1), "50.00")
	// member missing from the directory
	newTestContract(ctx, s.GetDirectory(), testutil.TenantA, "contract-bad", "member-ghost", date(2024, time.January, 1), "50.00")

	summary, err := s.service.MaterializeTenant(ctx, testutil.TenantA, date(2024, time.January, 10))
	s.NoError(err)
	s.Equal(2, summary.Processed)
	s.GreaterOrEqual(summary.Created, 1)
	s.Len(summary.Failed, 1)
	s.Equal("contract-bad", summary.Failed[0].ID)
}
