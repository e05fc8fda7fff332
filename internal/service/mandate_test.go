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

type MandateServiceSuite struct {
	testutil.BaseServiceTestSuite
	params  ServiceParams
	service MandateService
}

func TestMandateService(t *testing.T) {
	suite.Run(t, new(MandateServiceSuite))
}

func (s *MandateServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = testParams(&s.BaseServiceTestSuite)
	s.service = NewMandateService(s.params)
}

func (s *MandateServiceSuite) TestCreateAndActivate() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")

	m, err := s.service.CreateMandate(ctx, testutil.TenantA, "member-1", "DE-REF-001")
	s.NoError(err)
	s.Equal(types.MandateStatusCreated, m.MandateState)
	s.Nil(m.ActivatedAt)

	activated, err := s.service.Activate(ctx, testutil.TenantA, m.ID)
	s.NoError(err)
	s.Equal(types.MandateStatusActive, activated.MandateState)
	s.NotNil(activated.ActivatedAt)
}

func (s *MandateServiceSuite) TestNewMandateSupersedesActiveOne() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")

	first, err := s.service.CreateMandate(ctx, testutil.TenantA, "member-1", "DE-REF-001")
	s.NoError(err)
	_, err = s.service.Activate(ctx, testutil.TenantA, first.ID)
	s.NoError(err)

	second, err := s.service.CreateMandate(ctx, testutil.TenantA, "member-1", "DE-REF-002")
	s.NoError(err)
	s.Equal(types.MandateStatusCreated, second.MandateState)

	old, err := s.service.Get(ctx, testutil.TenantA, first.ID)
	s.NoError(err)
	s.Equal(types.MandateStatusRevoked, old.MandateState)
	s.Equal("superseded", old.RevokeReason)

	// no active mandate until the replacement is activated
	_, err = s.GetStores().MandateRepo.GetActiveByMember(ctx, testutil.TenantA, "member-1")
	s.True(ierr.IsNotFound(err))

	_, err = s.service.Activate(ctx, testutil.TenantA, second.ID)
	s.NoError(err)
	active, err := s.GetStores().MandateRepo.GetActiveByMember(ctx, testutil.TenantA, "member-1")
	s.NoError(err)
	s.Equal(second.ID, active.ID)
}

func (s *MandateServiceSuite) TestRevokeFlagsDependentCharges() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	m := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-1", "member-1", types.MandateStatusActive)
	c := newTestCharge(ctx, s.GetStores().ChargeRepo, testutil.TenantA, "charge-1", "contract-1", "member-1",
		lo.ToPtr(m.ID), date(2024, time.February, 1), "50.00", types.ChargeStatusPending)

	revoked, err := s.service.Revoke(ctx, testutil.TenantA, m.ID, "account closed")
	s.NoError(err)
	s.Equal(types.MandateStatusRevoked, revoked.MandateState)

	flagged, err := s.GetStores().ChargeRepo.Get(ctx, c.ID)
	s.NoError(err)
	s.Equal(types.ChargeStatusNeedsMandate, flagged.ChargeState)
	s.Nil(flagged.MandateID)

	events := s.GetNotify().EventsByName(types.NotificationEventNeedsMandateReview)
	s.Len(events, 1)
	s.Equal(c.ID, events[0].ChargeID)
}

func (s *MandateServiceSuite) TestRevokeIsIdempotent() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	m := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-1", "member-1", types.MandateStatusActive)

	_, err := s.service.Revoke(ctx, testutil.TenantA, m.ID, "member request")
	s.NoError(err)
	again, err := s.service.Revoke(ctx, testutil.TenantA, m.ID, "member request")
	s.NoError(err)
	s.Equal(types.MandateStatusRevoked, again.MandateState)
	s.Equal("member request", again.RevokeReason)
}

func (s *MandateServiceSuite) TestActivateReattachesFlaggedCharges() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	c := newTestCharge(ctx, s.GetStores().ChargeRepo, testutil.TenantA, "charge-1", "contract-1", "member-1",
		nil, date(2024, time.February, 1), "50.00", types.ChargeStatusNeedsMandate)

	m, err := s.service.CreateMandate(ctx, testutil.TenantA, "member-1", "DE-REF-001")
	s.NoError(err)
	_, err = s.service.Activate(ctx, testutil.TenantA, m.ID)
	s.NoError(err)

	restored, err := s.GetStores().ChargeRepo.Get(ctx, c.ID)
	s.NoError(err)
	s.Equal(types.ChargeStatusPending, restored.ChargeState)
	s.NotNil(restored.MandateID)
	s.Equal(m.ID, *restored.MandateID)
}

func (s *MandateServiceSuite) TestActivateRevokedMandateFails() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	m := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-1", "member-1", types.MandateStatusRevoked)

	_, err := s.service.Activate(ctx, testutil.TenantA, m.ID)
	s.Error(err)
	s.True(ierr.IsInvalidTransition(err))
}

func (s *MandateServiceSuite) TestExpireStaleMandates() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-2")

	stale := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-old", "member-1", types.MandateStatusCreated)
	stale.CreatedAt = time.Now().UTC().AddDate(0, 0, -120)
	s.NoError(s.GetStores().MandateRepo.Update(ctx, stale))

	fresh := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-new", "member-2", types.MandateStatusCreated)

	summary, err := s.service.ExpireStale(ctx, testutil.TenantA, time.Now().UTC())
	s.NoError(err)
	s.Equal(1, summary.Processed)
	s.Equal(1, summary.Created)

	expired, err := s.GetStores().MandateRepo.Get(ctx, stale.ID)
	s.NoError(err)
	s.Equal(types.MandateStatusExpired, expired.MandateState)

	kept, err := s.GetStores().MandateRepo.Get(ctx, fresh.ID)
	s.NoError(err)
	s.Equal(types.MandateStatusCreated, kept.MandateState)
}

func (s *MandateServiceSuite) TestGetRejectsForeignTenant() {
	ctx := s.GetContext()
	newTestMember(ctx, s.GetDirectory(), testutil.TenantA, "member-1")
	m := newTestMandate(ctx, s.GetStores().MandateRepo, testutil.TenantA, "mandate-1", "member-1", types.MandateStatusActive)

	_, err := s.service.Get(ctx, testutil.TenantB, m.ID)
	s.Error(err)
	s.True(ierr.IsMixedTenant(err))
}
