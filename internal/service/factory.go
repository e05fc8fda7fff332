package service

import (
	"sync"

	"github.com/dojobill/dojobill/internal/config"
	"github.com/dojobill/dojobill/internal/domain/charge"
	"github.com/dojobill/dojobill/internal/domain/collectionrun"
	"github.com/dojobill/dojobill/internal/domain/directory"
	"github.com/dojobill/dojobill/internal/domain/dunning"
	"github.com/dojobill/dojobill/internal/domain/mandate"
	"github.com/dojobill/dojobill/internal/domain/tenant"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/notify"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration

	// Collaborators
	Directory directory.Directory
	Notify    notify.Publisher

	// Repositories
	TenantRepo  tenant.Repository
	MandateRepo mandate.Repository
	ChargeRepo  charge.Repository
	RunRepo     collectionrun.Repository
	DunningRepo dunning.Repository

	// TenantLocks serializes the billing pipeline per tenant. BuildRun and
	// Reconcile both mutate charge state and must not interleave for the
	// same tenant; different tenants proceed in parallel.
	TenantLocks *TenantLockRegistry
}

// TenantLockRegistry hands out one mutex per tenant id
type TenantLockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTenantLockRegistry creates an empty registry
func NewTenantLockRegistry() *TenantLockRegistry {
	return &TenantLockRegistry{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the tenant's pipeline lock and returns the unlock function
func (r *TenantLockRegistry) Lock(tenantID string) func() {
	r.mu.Lock()
	lock, ok := r.locks[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[tenantID] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
