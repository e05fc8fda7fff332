package service

import (
	"testing"
	"time"

	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/testutil"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type LedgerServiceSuite struct {
	testutil.BaseServiceTestSuite
	params  ServiceParams
	service LedgerService
}

func TestLedgerService(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = testParams(&s.BaseServiceTestSuite)
	s.service = NewLedgerService(s.params)
}

func (s *LedgerServiceSuite) submittedCharge(id string) string {
	ctx := s.GetContext()
	m := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-"+id, "member-1", types.MandateStatusActive)
	c := newTestCharge(ctx, s.GetStores().ChargeRepo, testutil.TenantA, id, "contract-"+id, "member-1",
		lo.ToPtr(m.ID), date(2024, time.February, 1), "50.00", types.ChargeStatusPending)

	s.NoError(s.service.IncludeInRun(ctx, testutil.TenantA, c, "run-1"))
	s.NoError(s.service.MarkSubmitted(ctx, testutil.TenantA, c, time.Now().UTC()))
	return c.ID
}

func (s *LedgerServiceSuite) TestSettleIsIdempotent() {
	ctx := s.GetContext()
	id := s.submittedCharge("charge-1")

	settledAt := date(2024, time.February, 3)
	first, err := s.service.Settle(ctx, testutil.TenantA, id, settledAt)
	s.NoError(err)
	s.Equal(types.ChargeStatusSettled, first.ChargeState)
	s.Equal(settledAt, first.SettledAt.UTC())

	again, err := s.service.Settle(ctx, testutil.TenantA, id, date(2024, time.February, 9))
	s.NoError(err)
	s.Equal(types.ChargeStatusSettled, again.ChargeState)
	// the original settlement timestamp survives the duplicate callback
	s.Equal(settledAt, again.SettledAt.UTC())
}

func (s *LedgerServiceSuite) TestRetryableFailureRequeuesUntilBudgetExhausted() {
	ctx := s.GetContext()
	id := s.submittedCharge("charge-1")

	failed, err := s.service.Fail(ctx, testutil.TenantA, id, types.FailureReasonInsufficientFunds)
	s.NoError(err)
	s.Equal(types.ChargeStatusPending, failed.ChargeState)
	s.Equal(1, failed.Attempts)
	s.Nil(failed.RunID)
	s.Equal(types.FailureReasonInsufficientFunds, *failed.FailureReason)
}

func (s *LedgerServiceSuite) TestNonRetryableFailureEscalatesImmediately() {
	ctx := s.GetContext()
	id := s.submittedCharge("charge-1")

	failed, err := s.service.Fail(ctx, testutil.TenantA, id, types.FailureReasonAccountClosed)
	s.NoError(err)
	s.Equal(types.ChargeStatusEscalating, failed.ChargeState)
	s.Equal(0, failed.Attempts)
}

func (s *LedgerServiceSuite) TestExhaustedRetryBudgetEscalates() {
	ctx := s.GetContext()
	id := s.submittedCharge("charge-1")

	for i := 0; i < 2; i++ {
		failed, err := s.service.Fail(ctx, testutil.TenantA, id, types.FailureReasonInsufficientFunds)
		s.NoError(err)
		s.Equal(types.ChargeStatusPending, failed.ChargeState)

		s.NoError(s.service.IncludeInRun(ctx, testutil.TenantA, failed, "run-retry"))
		s.NoError(s.service.MarkSubmitted(ctx, testutil.TenantA, failed, time.Now().UTC()))
	}

	// third retryable failure hits MaxAttempts
	failed, err := s.service.Fail(ctx, testutil.TenantA, id, types.FailureReasonInsufficientFunds)
	s.NoError(err)
	s.Equal(types.ChargeStatusEscalating, failed.ChargeState)
	s.Equal(3, failed.Attempts)
}

func (s *LedgerServiceSuite) TestIncludeRequiresMandate() {
	ctx := s.GetContext()
	c := newTestCharge(ctx, s.GetStores().ChargeRepo, testutil.TenantA, "charge-1", "contract-1", "member-1",
		nil, date(2024, time.February, 1), "50.00", types.ChargeStatusPending)

	err := s.service.IncludeInRun(ctx, testutil.TenantA, c, "run-1")
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *LedgerServiceSuite) TestSettlingPendingChargeIsInvalid() {
	ctx := s.GetContext()
	c := newTestCharge(ctx, s.GetStores().ChargeRepo, testutil.TenantA, "charge-1", "contract-1", "member-1",
		nil, date(2024, time.February, 1), "50.00", types.ChargeStatusPending)

	_, err := s.service.Settle(ctx, testutil.TenantA, c.ID, time.Now().UTC())
	s.Error(err)
	s.True(ierr.IsInvalidTransition(err))
}

func (s *LedgerServiceSuite) TestFlagNeedsMandateClearsAttachment() {
	ctx := s.GetContext()
	m := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-1", "member-1", types.MandateStatusActive)
	c := newTestCharge(ctx, s.GetStores().ChargeRepo, testutil.TenantA, "charge-1", "contract-1", "member-1",
		lo.ToPtr(m.ID), date(2024, time.February, 1), "50.00", types.ChargeStatusPending)

	flagged, err := s.service.FlagNeedsMandate(ctx, testutil.TenantA, c.ID)
	s.NoError(err)
	s.Equal(types.ChargeStatusNeedsMandate, flagged.ChargeState)
	s.Nil(flagged.MandateID)

	restored, err := s.service.AttachMandate(ctx, testutil.TenantA, c.ID, "mandate-2")
	s.NoError(err)
	s.Equal(types.ChargeStatusPending, restored.ChargeState)
	s.Equal("mandate-2", *restored.MandateID)
}

func (s *LedgerServiceSuite) TestWriteOffIsTerminalAndIdempotent() {
	ctx := s.GetContext()
	id := s.submittedCharge("charge-1")
	_, err := s.service.Fail(ctx, testutil.TenantA, id, types.FailureReasonRefusedByDebtor)
	s.NoError(err)

	off, err := s.service.WriteOff(ctx, testutil.TenantA, id)
	s.NoError(err)
	s.Equal(types.ChargeStatusWrittenOff, off.ChargeState)

	again, err := s.service.WriteOff(ctx, testutil.TenantA, id)
	s.NoError(err)
	s.Equal(types.ChargeStatusWrittenOff, again.ChargeState)

	// terminal means terminal
	_, err = s.service.Settle(ctx, testutil.TenantA, id, time.Now().UTC())
	s.Error(err)
	s.True(ierr.IsInvalidTransition(err))
}

func (s *LedgerServiceSuite) TestFlagOverdueSubmissions() {
	ctx := s.GetContext()
	id := s.submittedCharge("charge-1")

	// freshly submitted, not overdue yet
	overdue, err := s.service.FlagOverdueSubmissions(ctx, testutil.TenantA, time.Now().UTC())
	s.NoError(err)
	s.Len(overdue, 0)

	// well past the reconciliation SLA
	overdue, err = s.service.FlagOverdueSubmissions(ctx, testutil.TenantA, time.Now().UTC().AddDate(0, 0, 10))
	s.NoError(err)
	s.Len(overdue, 1)
	s.Equal(id, overdue[0].ID)

	events := s.GetNotify().EventsByName(types.NotificationEventAmbiguousSubmission)
	s.Len(events, 1)
	s.Equal(id, events[0].ChargeID)
}

func (s *LedgerServiceSuite) TestCrossTenantAccessIsRejected() {
	ctx := s.GetContext()
	c := newTestCharge(ctx, s.GetStores().ChargeRepo, testutil.TenantA, "charge-1", "contract-1", "member-1",
		nil, date(2024, time.February, 1), "50.00", types.ChargeStatusPending)

	_, err := s.service.Get(ctx, testutil.TenantB, c.ID)
	s.Error(err)
	s.True(ierr.IsMixedTenant(err))

	_, err = s.service.Get(ctx, "", c.ID)
	s.Error(err)
}
