package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/dojobill/dojobill/internal/domain/dunning"
	ierr "github.com/dojobill/dojobill/internal/errors"
)

// InMemoryDunningStore implements dunning.Repository in memory
type InMemoryDunningStore struct {
	mu    sync.RWMutex
	cases map[string]*dunning.Case
}

func NewInMemoryDunningStore() *InMemoryDunningStore {
	return &InMemoryDunningStore{
		cases: make(map[string]*dunning.Case),
	}
}

func copyCase(c *dunning.Case) *dunning.Case {
	cp := *c
	return &cp
}

func (s *InMemoryDunningStore) Create(ctx context.Context, c *dunning.Case) error {
	if c == nil {
		return ierr.NewError("dunning case cannot be nil").Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cases[c.ID]; exists {
		return ierr.NewError("dunning case already exists").
			WithReportableDetails(map[string]any{"case_id": c.ID}).
			Mark(ierr.ErrAlreadyExists)
	}
	s.cases[c.ID] = copyCase(c)
	return nil
}

func (s *InMemoryDunningStore) Get(ctx context.Context, id string) (*dunning.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, exists := s.cases[id]; exists {
		return copyCase(c), nil
	}
	return nil, ierr.NewError("dunning case not found").
		WithReportableDetails(map[string]any{"case_id": id}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryDunningStore) Update(ctx context.Context, c *dunning.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.cases[c.ID]
	if !exists {
		return ierr.NewError("dunning case not found").
			WithReportableDetails(map[string]any{"case_id": c.ID}).
			Mark(ierr.ErrNotFound)
	}
	if existing.Version != c.Version {
		return ierr.NewError("dunning case was modified concurrently").
			WithReportableDetails(map[string]any{
				"case_id":        c.ID,
				"stored_version": existing.Version,
				"given_version":  c.Version,
			}).
			Mark(ierr.ErrStaleState)
	}
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	s.cases[c.ID] = copyCase(c)
	return nil
}

func (s *InMemoryDunningStore) GetOpenByCharge(ctx context.Context, tenantID, chargeID string) (*dunning.Case, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.cases {
		if c.TenantID == tenantID && c.ChargeID == chargeID && c.IsOpen() {
			return copyCase(c), nil
		}
	}
	return nil, ierr.NewError("no open dunning case for charge").
		WithReportableDetails(map[string]any{"charge_id": chargeID}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryDunningStore) ListDue(ctx context.Context, tenantID string, asOf time.Time) ([]*dunning.Case, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*dunning.Case
	for _, c := range s.cases {
		if c.TenantID == tenantID && c.IsOpen() && !c.NextActionDate.After(asOf) {
			result = append(result, copyCase(c))
		}
	}
	return result, nil
}

func (s *InMemoryDunningStore) ListUnappliedFees(ctx context.Context, tenantID, contractID string) ([]*dunning.Case, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*dunning.Case
	for _, c := range s.cases {
		if c.TenantID == tenantID && c.ContractID == contractID && !c.FeeApplied && c.AccumulatedFee.IsPositive() {
			result = append(result, copyCase(c))
		}
	}
	return result, nil
}

func (s *InMemoryDunningStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases = make(map[string]*dunning.Case)
}
