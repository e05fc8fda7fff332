package charge

import (
	"context"
	"time"

	"github.com/dojobill/dojobill/internal/types"
)

// Repository defines the interface for charge persistence. Scoped queries
// take the tenant id explicitly and fail closed on an empty scope.
type Repository interface {
	// Create inserts a charge; a duplicate (contract_id, period) pair
	// yields ErrAlreadyExists.
	Create(ctx context.Context, c *Charge) error
	Get(ctx context.Context, id string) (*Charge, error)
	// Update persists the charge if the stored version matches c.Version,
	// then increments it. A mismatch yields ErrStaleState.
	Update(ctx context.Context, c *Charge) error

	// GetByContractAndPeriod returns the charge materialized for the
	// contract and period key, or ErrNotFound
	GetByContractAndPeriod(ctx context.Context, tenantID, contractID, periodKey string) (*Charge, error)
	// ListDue returns the tenant's charges in the given state with
	// due_date <= cutoff
	ListDue(ctx context.Context, tenantID string, state types.ChargeStatus, cutoff time.Time) ([]*Charge, error)
	// ListByState returns all the tenant's charges in the given state
	ListByState(ctx context.Context, tenantID string, state types.ChargeStatus) ([]*Charge, error)
	// ListByRun returns the charges belonging to the given collection run
	ListByRun(ctx context.Context, tenantID, runID string) ([]*Charge, error)
	// ListByMandate returns non-terminal charges referencing the mandate
	ListByMandate(ctx context.Context, tenantID, mandateID string) ([]*Charge, error)
	// ListByContract returns all charges of one contract, newest period first
	ListByContract(ctx context.Context, tenantID, contractID string) ([]*Charge, error)
}
