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

type CollectionRunServiceSuite struct {
	testutil.BaseServiceTestSuite
	params  ServiceParams
	service CollectionRunService
}

func TestCollectionRunService(t *testing.T) {
	suite.Run(t, new(CollectionRunServiceSuite))
}

func (s *CollectionRunServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = testParams(&s.BaseServiceTestSuite)
	s.service = NewCollectionRunService(s.params)
}

func (s *CollectionRunServiceSuite) TestBuildRunCollectsOnlyDueCharges() {
	ctx := s.GetContext()
	repo := s.GetStores().ChargeRepo
	m := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-1", "member-1", types.MandateStatusActive)

	cutoff := date(2024, time.February, 5)
	newTestCharge(ctx, repo, testutil.TenantA, "charge-1", "contract-1", "member-1", lo.ToPtr(m.ID), date(2024, time.February, 1), "50.00", types.ChargeStatusPending)
	newTestCharge(ctx, repo, testutil.TenantA, "charge-2", "contract-2", "member-1", lo.ToPtr(m.ID), date(2024, time.February, 3), "30.00", types.ChargeStatusPending)
	newTestCharge(ctx, repo, testutil.TenantA, "charge-3", "contract-3", "member-1", lo.ToPtr(m.ID), date(2024, time.February, 5), "20.00", types.ChargeStatusPending)
	// due after the cutoff, must stay out
	newTestCharge(ctx, repo, testutil.TenantA, "charge-4", "contract-4", "member-1", lo.ToPtr(m.ID), date(2024, time.March, 1), "20.00", types.ChargeStatusPending)

	run, summary, err := s.service.BuildRun(ctx, testutil.TenantA, cutoff)
	s.NoError(err)
	s.Equal(types.CollectionRunStatusBuilding, run.RunState)
	s.Equal([]string{"charge-1", "charge-2", "charge-3"}, run.ChargeIDs)
	s.Equal(3, summary.Created)

	for _, id := range run.ChargeIDs {
		c, err := repo.Get(ctx, id)
		s.NoError(err)
		s.Equal(types.ChargeStatusIncludedInRun, c.ChargeState)
		s.Equal(run.ID, *c.RunID)
	}

	left, err := repo.Get(ctx, "charge-4")
	s.NoError(err)
	s.Equal(types.ChargeStatusPending, left.ChargeState)
}

func (s *CollectionRunServiceSuite) TestBuildRunSkipsChargesWithoutActiveMandate() {
	ctx := s.GetContext()
	repo := s.GetStores().ChargeRepo
	active := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-1", "member-1", types.MandateStatusActive)
	revoked := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-2", "member-2", types.MandateStatusRevoked)

	newTestCharge(ctx, repo, testutil.TenantA, "charge-ok", "contract-1", "member-1", lo.ToPtr(active.ID), date(2024, time.February, 1), "50.00", types.ChargeStatusPending)
	newTestCharge(ctx, repo, testutil.TenantA, "charge-revoked", "contract-2", "member-2", lo.ToPtr(revoked.ID), date(2024, time.February, 1), "30.00", types.ChargeStatusPending)
	newTestCharge(ctx, repo, testutil.TenantA, "charge-none", "contract-3", "member-3", nil, date(2024, time.February, 1), "30.00", types.ChargeStatusPending)

	run, summary, err := s.service.BuildRun(ctx, testutil.TenantA, date(2024, time.February, 5))
	s.NoError(err)
	s.Equal([]string{"charge-ok"}, run.ChargeIDs)
	s.Len(run.Skipped, 2)
	s.Len(summary.Skipped, 2)
}

func (s *CollectionRunServiceSuite) TestBuildRunIsIdempotentPerCutoff() {
	ctx := s.GetContext()
	cutoff := date(2024, time.February, 5)

	first, _, err := s.service.BuildRun(ctx, testutil.TenantA, cutoff)
	s.NoError(err)
	second, _, err := s.service.BuildRun(ctx, testutil.TenantA, cutoff)
	s.NoError(err)
	s.Equal(first.ID, second.ID)

	// the clock time of the invocation does not split the day into
	// separate runs
	later, _, err := s.service.BuildRun(ctx, testutil.TenantA, cutoff.Add(9*time.Hour+30*time.Minute))
	s.NoError(err)
	s.Equal(first.ID, later.ID)
	s.Equal(cutoff, later.CutoffDate)
}

func (s *CollectionRunServiceSuite) TestEmptyRunIsValid() {
	ctx := s.GetContext()
	run, summary, err := s.service.BuildRun(ctx, testutil.TenantA, date(2024, time.February, 5))
	s.NoError(err)
	s.Len(run.ChargeIDs, 0)
	s.Equal(0, summary.Processed)
}

func (s *CollectionRunServiceSuite) TestSubmitRunExportsBankFile() {
	ctx := s.GetContext()
	m := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-1", "member-1", types.MandateStatusActive)
	newTestCharge(ctx, s.GetStores().ChargeRepo, testutil.TenantA, "charge-1", "contract-1", "member-1", lo.ToPtr(m.ID), date(2024, time.February, 1), "50.00", types.ChargeStatusPending)
	newTestCharge(ctx, s.GetStores().ChargeRepo, testutil.TenantA, "charge-2", "contract-2", "member-1", lo.ToPtr(m.ID), date(2024, time.February, 2), "30.00", types.ChargeStatusPending)

	run, _, err := s.service.BuildRun(ctx, testutil.TenantA, date(2024, time.February, 5))
	s.NoError(err)

	file, err := s.service.SubmitRun(ctx, testutil.TenantA, run.ID)
	s.NoError(err)
	s.Equal(run.ID, file.RunID)
	s.Len(file.Transactions, 2)
	s.Equal("80", file.Total.String())

	submitted, err := s.service.Get(ctx, testutil.TenantA, run.ID)
	s.NoError(err)
	s.Equal(types.CollectionRunStatusSubmitted, submitted.RunState)
	s.NotNil(submitted.SubmittedAt)

	c, err := s.GetStores().ChargeRepo.Get(ctx, "charge-1")
	s.NoError(err)
	s.Equal(types.ChargeStatusSubmitted, c.ChargeState)
	s.NotNil(c.SubmittedAt)
}

func (s *CollectionRunServiceSuite) TestSubmittedRunCannotBeSubmittedAgain() {
	ctx := s.GetContext()
	run, _, err := s.service.BuildRun(ctx, testutil.TenantA, date(2024, time.February, 5))
	s.NoError(err)
	_, err = s.service.SubmitRun(ctx, testutil.TenantA, run.ID)
	s.NoError(err)

	_, err = s.service.SubmitRun(ctx, testutil.TenantA, run.ID)
	s.Error(err)
	s.True(ierr.IsInvalidTransition(err))
}

func (s *CollectionRunServiceSuite) TestAbortRestoresChargesToPending() {
	ctx := s.GetContext()
	m := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-1", "member-1", types.MandateStatusActive)
	newTestCharge(ctx, s.GetStores().ChargeRepo, testutil.TenantA, "charge-1", "contract-1", "member-1", lo.ToPtr(m.ID), date(2024, time.February, 1), "50.00", types.ChargeStatusPending)

	run, _, err := s.service.BuildRun(ctx, testutil.TenantA, date(2024, time.February, 5))
	s.NoError(err)

	aborted, err := s.service.AbortRun(ctx, testutil.TenantA, run.ID)
	s.NoError(err)
	s.Equal(types.CollectionRunStatusAborted, aborted.RunState)

	c, err := s.GetStores().ChargeRepo.Get(ctx, "charge-1")
	s.NoError(err)
	s.Equal(types.ChargeStatusPending, c.ChargeState)
	s.Nil(c.RunID)

	// the aborted run no longer blocks a rebuild for the same cutoff
	rebuilt, _, err := s.service.BuildRun(ctx, testutil.TenantA, date(2024, time.February, 5))
	s.NoError(err)
	s.NotEqual(run.ID, rebuilt.ID)
	s.Equal([]string{"charge-1"}, rebuilt.ChargeIDs)
}

func (s *CollectionRunServiceSuite) TestSubmittedRunCannotBeAborted() {
	ctx := s.GetContext()
	run, _, err := s.service.BuildRun(ctx, testutil.TenantA, date(2024, time.February, 5))
	s.NoError(err)
	_, err = s.service.SubmitRun(ctx, testutil.TenantA, run.ID)
	s.NoError(err)

	_, err = s.service.AbortRun(ctx, testutil.TenantA, run.ID)
	s.Error(err)
	s.True(ierr.IsInvalidTransition(err))
}

func (s *CollectionRunServiceSuite) TestRunsNeverMixTenants() {
	ctx := s.GetContext()
	mA := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-a", "member-a", types.MandateStatusActive)
	mB := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantB, "mandate-b", "member-b", types.MandateStatusActive)
	newTestCharge(ctx, s.GetStores().ChargeRepo, testutil.TenantA, "charge-a", "contract-a", "member-a", lo.ToPtr(mA.ID), date(2024, time.February, 1), "50.00", types.ChargeStatusPending)
	newTestCharge(ctx, s.GetStores().ChargeRepo, testutil.TenantB, "charge-b", "contract-b", "member-b", lo.ToPtr(mB.ID), date(2024, time.February, 1), "30.00", types.ChargeStatusPending)

	runA, _, err := s.service.BuildRun(ctx, testutil.TenantA, date(2024, time.February, 5))
	s.NoError(err)
	s.Equal([]string{"charge-a"}, runA.ChargeIDs)

	runB, _, err := s.service.BuildRun(ctx, testutil.TenantB, date(2024, time.February, 5))
	s.NoError(err)
	s.Equal([]string{"charge-b"}, runB.ChargeIDs)

	// neither tenant can read the other's run
	_, err = s.service.Get(ctx, testutil.TenantB, runA.ID)
	s.Error(err)
	s.True(ierr.IsMixedTenant(err))
}

func (s *CollectionRunServiceSuite) TestRunSummaryEventIsPublished() {
	ctx := s.GetContext()
	m := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-1", "member-1", types.MandateStatusActive)
	newTestCharge(ctx, s.GetStores().ChargeRepo, testutil.TenantA, "charge-1", "contract-1", "member-1", lo.ToPtr(m.ID), date(2024, time.February, 1), "50.00", types.ChargeStatusPending)

	_, _, err := s.service.BuildRun(ctx, testutil.TenantA, date(2024, time.February, 5))
	s.NoError(err)

	events := s.GetNotify().EventsByName(types.NotificationEventRunSummary)
	s.Len(events, 1)
	s.Equal(testutil.TenantA, events[0].TenantID)
}
