package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dojobill/dojobill/internal/domain/charge"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
)

// InMemoryChargeStore implements charge.Repository in memory, including the
// (contract, period) uniqueness constraint of the postgres schema
type InMemoryChargeStore struct {
	mu      sync.RWMutex
	charges map[string]*charge.Charge
}

func NewInMemoryChargeStore() *InMemoryChargeStore {
	return &InMemoryChargeStore{
		charges: make(map[string]*charge.Charge),
	}
}

func copyCharge(c *charge.Charge) *charge.Charge {
	cp := *c
	return &cp
}

func (s *InMemoryChargeStore) Create(ctx context.Context, c *charge.Charge) error {
	if c == nil {
		return ierr.NewError("charge cannot be nil").Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.charges[c.ID]; exists {
		return ierr.NewError("charge already exists").
			WithReportableDetails(map[string]any{"charge_id": c.ID}).
			Mark(ierr.ErrAlreadyExists)
	}
	for _, existing := range s.charges {
		if existing.TenantID == c.TenantID &&
			existing.ContractID == c.ContractID &&
			existing.PeriodKey() == c.PeriodKey() {
			return ierr.NewError("charge already exists for contract and period").
				WithReportableDetails(map[string]any{
					"contract_id": c.ContractID,
					"period":      c.PeriodKey(),
				}).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	s.charges[c.ID] = copyCharge(c)
	return nil
}

func (s *InMemoryChargeStore) Get(ctx context.Context, id string) (*charge.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, exists := s.charges[id]; exists {
		return copyCharge(c), nil
	}
	return nil, ierr.NewError("charge not found").
		WithReportableDetails(map[string]any{"charge_id": id}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryChargeStore) Update(ctx context.Context, c *charge.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.charges[c.ID]
	if !exists {
		return ierr.NewError("charge not found").
			WithReportableDetails(map[string]any{"charge_id": c.ID}).
			Mark(ierr.ErrNotFound)
	}
	if existing.Version != c.Version {
		return ierr.NewError("charge was modified concurrently").
			WithReportableDetails(map[string]any{
				"charge_id":      c.ID,
				"stored_version": existing.Version,
				"given_version":  c.Version,
			}).
			Mark(ierr.ErrStaleState)
	}
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	s.charges[c.ID] = copyCharge(c)
	return nil
}

func (s *InMemoryChargeStore) GetByContractAndPeriod(ctx context.Context, tenantID, contractID, periodKey string) (*charge.Charge, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.charges {
		if c.TenantID == tenantID && c.ContractID == contractID && c.PeriodKey() == periodKey {
			return copyCharge(c), nil
		}
	}
	return nil, ierr.NewError("charge not found for contract and period").
		WithReportableDetails(map[string]any{
			"contract_id": contractID,
			"period":      periodKey,
		}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryChargeStore) ListDue(ctx context.Context, tenantID string, state types.ChargeStatus, cutoff time.Time) ([]*charge.Charge, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*charge.Charge
	for _, c := range s.charges {
		if c.TenantID == tenantID && c.ChargeState == state && !c.DueDate.After(cutoff) {
			result = append(result, copyCharge(c))
		}
	}
	return result, nil
}

func (s *InMemoryChargeStore) ListByState(ctx context.Context, tenantID string, state types.ChargeStatus) ([]*charge.Charge, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*charge.Charge
	for _, c := range s.charges {
		if c.TenantID == tenantID && c.ChargeState == state {
			result = append(result, copyCharge(c))
		}
	}
	return result, nil
}

func (s *InMemoryChargeStore) ListByRun(ctx context.Context, tenantID, runID string) ([]*charge.Charge, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*charge.Charge
	for _, c := range s.charges {
		if c.TenantID == tenantID && c.RunID != nil && *c.RunID == runID {
			result = append(result, copyCharge(c))
		}
	}
	return result, nil
}

func (s *InMemoryChargeStore) ListByMandate(ctx context.Context, tenantID, mandateID string) ([]*charge.Charge, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*charge.Charge
	for _, c := range s.charges {
		if c.TenantID == tenantID && c.MandateID != nil && *c.MandateID == mandateID && !c.ChargeState.IsTerminal() {
			result = append(result, copyCharge(c))
		}
	}
	return result, nil
}

func (s *InMemoryChargeStore) ListByContract(ctx context.Context, tenantID, contractID string) ([]*charge.Charge, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*charge.Charge
	for _, c := range s.charges {
		if c.TenantID == tenantID && c.ContractID == contractID {
			result = append(result, copyCharge(c))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Period.Start.After(result[j].Period.Start)
	})
	return result, nil
}

func (s *InMemoryChargeStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.charges = make(map[string]*charge.Charge)
}
