package service

import (
	"testing"
	"time"

	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/testutil"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/stretchr/testify/suite"
)

type TenantGuardSuite struct {
	testutil.BaseServiceTestSuite
	guard TenantGuardService
}

func TestTenantGuard(t *testing.T) {
	suite.Run(t, new(TenantGuardSuite))
}

func (s *TenantGuardSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.guard = NewTenantGuardService(testParams(&s.BaseServiceTestSuite))
}

func (s *TenantGuardSuite) TestAuthorizeMatchingTenant() {
	ctx := s.GetContext()
	c := newTestCharge(ctx, s.GetStores().ChargeRepo, testutil.TenantA, "charge-1", "contract-1", "member-1",
		nil, date(2024, time.February, 1), "50.00", types.ChargeStatusPending)
	s.NoError(s.guard.Authorize(ctx, testutil.TenantA, c))
}

func (s *TenantGuardSuite) TestAuthorizeFailsClosed() {
	ctx := s.GetContext()
	c := newTestCharge(ctx, s.GetStores().ChargeRepo, testutil.TenantA, "charge-1", "contract-1", "member-1",
		nil, date(2024, time.February, 1), "50.00", types.ChargeStatusPending)

	err := s.guard.Authorize(ctx, testutil.TenantB, c)
	s.Error(err)
	s.True(ierr.IsMixedTenant(err))

	err = s.guard.Authorize(ctx, "", c)
	s.Error(err)
	s.True(ierr.IsMixedTenant(err))

	// an entity that never got a tenant id is rejected, not attributed
	orphan := &types.BaseModel{}
	err = s.guard.Authorize(ctx, testutil.TenantA, orphan)
	s.Error(err)
	s.True(ierr.IsMixedTenant(err))
}

func (s *TenantGuardSuite) TestRequireScopeRejectsUnscopedReads() {
	s.NoError(s.guard.RequireScope(testutil.TenantA))

	err := s.guard.RequireScope("")
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
