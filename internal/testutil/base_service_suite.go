package testutil

import (
	"context"
	"time"

	"github.com/dojobill/dojobill/internal/config"
	"github.com/dojobill/dojobill/internal/domain/charge"
	"github.com/dojobill/dojobill/internal/domain/collectionrun"
	"github.com/dojobill/dojobill/internal/domain/dunning"
	"github.com/dojobill/dojobill/internal/domain/mandate"
	"github.com/dojobill/dojobill/internal/domain/tenant"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	TenantRepo  tenant.Repository
	MandateRepo mandate.Repository
	ChargeRepo  charge.Repository
	RunRepo     collectionrun.Repository
	DunningRepo dunning.Repository
}

// BaseServiceTestSuite provides common functionality for all service test
// suites: in-memory stores, a fixture directory, a capturing notification
// publisher, and a test configuration
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	stores    Stores
	directory *InMemoryDirectory
	notify    *InMemoryNotifyPublisher
	logger    *logger.Logger
	config    *config.Configuration
	now       time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	cfg := &config.Configuration{
		Logging: config.LoggingConfig{
			Level: types.LogLevelInfo,
		},
		Billing: config.BillingConfig{
			LeadTimeDays:         14,
			TerminationPolicy:    types.TerminationPolicyFullPeriod,
			MaxAttempts:          3,
			ReconcileSLADays:     5,
			MandateRetentionDays: 90,
		},
		Dunning: config.DunningConfig{
			Levels: config.DefaultDunningLevels(),
		},
	}
	s.config = cfg

	var err error
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.ClearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		TenantRepo:  NewInMemoryTenantStore(),
		MandateRepo: NewInMemoryMandateStore(),
		ChargeRepo:  NewInMemoryChargeStore(),
		RunRepo:     NewInMemoryCollectionRunStore(),
		DunningRepo: NewInMemoryDunningStore(),
	}
	s.directory = NewInMemoryDirectory()
	s.notify = NewInMemoryNotifyPublisher()
}

// ClearStores wipes every store between tests
func (s *BaseServiceTestSuite) ClearStores() {
	s.stores.TenantRepo.(*InMemoryTenantStore).Clear()
	s.stores.MandateRepo.(*InMemoryMandateStore).Clear()
	s.stores.ChargeRepo.(*InMemoryChargeStore).Clear()
	s.stores.RunRepo.(*InMemoryCollectionRunStore).Clear()
	s.stores.DunningRepo.(*InMemoryDunningStore).Clear()
	s.directory.Clear()
	s.notify.Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDirectory returns the fixture membership directory
func (s *BaseServiceTestSuite) GetDirectory() *InMemoryDirectory {
	return s.directory
}

// GetNotify returns the capturing notification publisher
func (s *BaseServiceTestSuite) GetNotify() *InMemoryNotifyPublisher {
	return s.notify
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
