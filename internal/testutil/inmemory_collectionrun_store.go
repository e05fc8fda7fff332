package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/dojobill/dojobill/internal/domain/collectionrun"
	ierr "github.com/dojobill/dojobill/internal/errors"
)

// InMemoryCollectionRunStore implements collectionrun.Repository in memory
type InMemoryCollectionRunStore struct {
	mu   sync.RWMutex
	runs map[string]*collectionrun.CollectionRun
}

func NewInMemoryCollectionRunStore() *InMemoryCollectionRunStore {
	return &InMemoryCollectionRunStore{
		runs: make(map[string]*collectionrun.CollectionRun),
	}
}

func copyRun(r *collectionrun.CollectionRun) *collectionrun.CollectionRun {
	cp := *r
	cp.ChargeIDs = append([]string(nil), r.ChargeIDs...)
	cp.Skipped = append([]collectionrun.SkippedCharge(nil), r.Skipped...)
	return &cp
}

func (s *InMemoryCollectionRunStore) Create(ctx context.Context, run *collectionrun.CollectionRun) error {
	if run == nil {
		return ierr.NewError("collection run cannot be nil").Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return ierr.NewError("collection run already exists").
			WithReportableDetails(map[string]any{"run_id": run.ID}).
			Mark(ierr.ErrAlreadyExists)
	}
	s.runs[run.ID] = copyRun(run)
	return nil
}

func (s *InMemoryCollectionRunStore) Get(ctx context.Context, id string) (*collectionrun.CollectionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if run, exists := s.runs[id]; exists {
		return copyRun(run), nil
	}
	return nil, ierr.NewError("collection run not found").
		WithReportableDetails(map[string]any{"run_id": id}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryCollectionRunStore) Update(ctx context.Context, run *collectionrun.CollectionRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.runs[run.ID]
	if !exists {
		return ierr.NewError("collection run not found").
			WithReportableDetails(map[string]any{"run_id": run.ID}).
			Mark(ierr.ErrNotFound)
	}
	if existing.Version != run.Version {
		return ierr.NewError("collection run was modified concurrently").
			WithReportableDetails(map[string]any{
				"run_id":         run.ID,
				"stored_version": existing.Version,
				"given_version":  run.Version,
			}).
			Mark(ierr.ErrStaleState)
	}
	run.Version++
	run.UpdatedAt = time.Now().UTC()
	s.runs[run.ID] = copyRun(run)
	return nil
}

func (s *InMemoryCollectionRunStore) GetOpenByCutoff(ctx context.Context, tenantID string, cutoff time.Time) (*collectionrun.CollectionRun, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, run := range s.runs {
		if run.TenantID == tenantID && !run.RunState.IsTerminal() && run.CutoffDate.Equal(cutoff) {
			return copyRun(run), nil
		}
	}
	return nil, ierr.NewError("no open collection run for cutoff").
		WithReportableDetails(map[string]any{"cutoff": cutoff.Format("2006-01-02")}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryCollectionRunStore) ListNonTerminal(ctx context.Context, tenantID string) ([]*collectionrun.CollectionRun, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*collectionrun.CollectionRun
	for _, run := range s.runs {
		if run.TenantID == tenantID && !run.RunState.IsTerminal() {
			result = append(result, copyRun(run))
		}
	}
	return result, nil
}

func (s *InMemoryCollectionRunStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = make(map[string]*collectionrun.CollectionRun)
}
