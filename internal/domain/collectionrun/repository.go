package collectionrun

import (
	"context"
	"time"
)

// Repository defines the interface for collection run persistence
type Repository interface {
	Create(ctx context.Context, run *CollectionRun) error
	Get(ctx context.Context, id string) (*CollectionRun, error)
	// Update persists the run if the stored version matches run.Version,
	// then increments it. A mismatch yields ErrStaleState.
	Update(ctx context.Context, run *CollectionRun) error

	// GetOpenByCutoff returns the tenant's non-terminal run for the exact
	// cutoff date, or ErrNotFound. Used to make BuildRun idempotent.
	GetOpenByCutoff(ctx context.Context, tenantID string, cutoff time.Time) (*CollectionRun, error)
	// ListNonTerminal returns the tenant's building and submitted runs
	ListNonTerminal(ctx context.Context, tenantID string) ([]*CollectionRun, error)
}
