package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/dojobill/dojobill/internal/domain/mandate"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
)

// InMemoryMandateStore implements mandate.Repository in memory with the same
// optimistic concurrency contract as the postgres implementation
type InMemoryMandateStore struct {
	mu       sync.RWMutex
	mandates map[string]*mandate.Mandate
}

func NewInMemoryMandateStore() *InMemoryMandateStore {
	return &InMemoryMandateStore{
		mandates: make(map[string]*mandate.Mandate),
	}
}

func copyMandate(m *mandate.Mandate) *mandate.Mandate {
	c := *m
	return &c
}

func (s *InMemoryMandateStore) Create(ctx context.Context, m *mandate.Mandate) error {
	if m == nil {
		return ierr.NewError("mandate cannot be nil").Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.mandates[m.ID]; exists {
		return ierr.NewError("mandate already exists").
			WithReportableDetails(map[string]any{"mandate_id": m.ID}).
			Mark(ierr.ErrAlreadyExists)
	}
	s.mandates[m.ID] = copyMandate(m)
	return nil
}

func (s *InMemoryMandateStore) Get(ctx context.Context, id string) (*mandate.Mandate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, exists := s.mandates[id]; exists {
		return copyMandate(m), nil
	}
	return nil, ierr.NewError("mandate not found").
		WithReportableDetails(map[string]any{"mandate_id": id}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryMandateStore) Update(ctx context.Context, m *mandate.Mandate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.mandates[m.ID]
	if !exists {
		return ierr.NewError("mandate not found").
			WithReportableDetails(map[string]any{"mandate_id": m.ID}).
			Mark(ierr.ErrNotFound)
	}
	if existing.Version != m.Version {
		return ierr.NewError("mandate was modified concurrently").
			WithReportableDetails(map[string]any{
				"mandate_id":     m.ID,
				"stored_version": existing.Version,
				"given_version":  m.Version,
			}).
			Mark(ierr.ErrStaleState)
	}
	m.Version++
	m.UpdatedAt = time.Now().UTC()
	s.mandates[m.ID] = copyMandate(m)
	return nil
}

func (s *InMemoryMandateStore) GetActiveByMember(ctx context.Context, tenantID, memberID string) (*mandate.Mandate, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.mandates {
		if m.TenantID == tenantID && m.MemberID == memberID && m.MandateState == types.MandateStatusActive {
			return copyMandate(m), nil
		}
	}
	return nil, ierr.NewError("no active mandate for member").
		WithReportableDetails(map[string]any{"member_id": memberID}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryMandateStore) ListByState(ctx context.Context, tenantID string, state types.MandateStatus) ([]*mandate.Mandate, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*mandate.Mandate
	for _, m := range s.mandates {
		if m.TenantID == tenantID && m.MandateState == state {
			result = append(result, copyMandate(m))
		}
	}
	return result, nil
}

func (s *InMemoryMandateStore) ListStale(ctx context.Context, tenantID string, before time.Time) ([]*mandate.Mandate, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*mandate.Mandate
	for _, m := range s.mandates {
		if m.TenantID == tenantID && m.MandateState == types.MandateStatusCreated && m.CreatedAt.Before(before) {
			result = append(result, copyMandate(m))
		}
	}
	return result, nil
}

func (s *InMemoryMandateStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mandates = make(map[string]*mandate.Mandate)
}

// requireScope mirrors the postgres repositories: a scoped query with an
// empty tenant id fails instead of reading across partitions
func requireScope(tenantID string) error {
	if tenantID == "" {
		return ierr.NewError("tenant scope cannot be empty").
			WithHint("Scoped queries require a tenant ID").
			Mark(ierr.ErrValidation)
	}
	return nil
}
