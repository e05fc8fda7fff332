package mandate

import (
	"context"
	"time"

	"github.com/dojobill/dojobill/internal/types"
)

// Repository defines the interface for mandate persistence. Every scoped
// query takes the tenant id explicitly; implementations reject empty tenant
// scopes instead of falling back to an unscoped read.
type Repository interface {
	Create(ctx context.Context, m *Mandate) error
	Get(ctx context.Context, id string) (*Mandate, error)
	// Update persists the mandate if the stored version matches
	// m.Version, then increments it. A mismatch yields ErrStaleState.
	Update(ctx context.Context, m *Mandate) error

	// GetActiveByMember returns the single active mandate for the member
	// within the tenant, or ErrNotFound
	GetActiveByMember(ctx context.Context, tenantID, memberID string) (*Mandate, error)
	// ListByState returns all mandates of the tenant in the given state
	ListByState(ctx context.Context, tenantID string, state types.MandateStatus) ([]*Mandate, error)
	// ListStale returns created mandates of the tenant that have not been
	// activated since before the given instant
	ListStale(ctx context.Context, tenantID string, before time.Time) ([]*Mandate, error)
}
