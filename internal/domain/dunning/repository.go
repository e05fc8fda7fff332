package dunning

import (
	"context"
	"time"
)

// Repository defines the interface for dunning case persistence
type Repository interface {
	Create(ctx context.Context, c *Case) error
	Get(ctx context.Context, id string) (*Case, error)
	// Update persists the case if the stored version matches c.Version,
	// then increments it. A mismatch yields ErrStaleState.
	Update(ctx context.Context, c *Case) error

	// GetOpenByCharge returns the open case for the charge, or ErrNotFound
	GetOpenByCharge(ctx context.Context, tenantID, chargeID string) (*Case, error)
	// ListDue returns the tenant's open cases with next_action_date <= asOf
	ListDue(ctx context.Context, tenantID string, asOf time.Time) ([]*Case, error)
	// ListUnappliedFees returns the contract's cases carrying a fee that
	// has not yet been folded into a subsequent charge
	ListUnappliedFees(ctx context.Context, tenantID, contractID string) ([]*Case, error)
}
