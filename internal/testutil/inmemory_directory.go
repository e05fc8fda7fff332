package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/dojobill/dojobill/internal/domain/directory"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
)

// InMemoryDirectory is a fixture membership directory for tests. Tests seed
// it with members and contracts; the billing core only ever reads from it.
type InMemoryDirectory struct {
	mu        sync.RWMutex
	members   map[string]*directory.Member
	contracts map[string]*directory.Contract
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		members:   make(map[string]*directory.Member),
		contracts: make(map[string]*directory.Contract),
	}
}

// AddMember seeds a member fixture
func (d *InMemoryDirectory) AddMember(m *directory.Member) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members[m.ID] = m
}

// AddContract seeds a contract fixture
func (d *InMemoryDirectory) AddContract(c *directory.Contract) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contracts[c.ID] = c
}

func (d *InMemoryDirectory) GetActiveContracts(ctx context.Context, tenantID string, asOf time.Time) ([]*directory.Contract, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*directory.Contract
	for _, c := range d.contracts {
		if c.TenantID != tenantID {
			continue
		}
		if c.ContractState == types.ContractStatusPaused {
			continue
		}
		// terminated contracts stay visible until past their end date so
		// a final charge can still materialize
		if c.ContractState == types.ContractStatusTerminated &&
			c.EndDate != nil && c.EndDate.Before(asOf.AddDate(0, -1, 0)) {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

func (d *InMemoryDirectory) GetMember(ctx context.Context, memberID string) (*directory.Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if m, exists := d.members[memberID]; exists {
		return m, nil
	}
	return nil, ierr.NewError("member not found").
		WithReportableDetails(map[string]any{"member_id": memberID}).
		Mark(ierr.ErrNotFound)
}

func (d *InMemoryDirectory) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members = make(map[string]*directory.Member)
	d.contracts = make(map[string]*directory.Contract)
}
