package directory

import (
	"context"
	"time"
)

// Directory is the membership directory collaborator. Member and contract
// administration live entirely outside the billing core; this is the shape
// the core consumes.
type Directory interface {
	// GetActiveContracts returns the contracts that may produce charges
	// for the tenant as of the given date, including contracts terminated
	// recently enough that a final charge may still be owed.
	GetActiveContracts(ctx context.Context, tenantID string, asOf time.Time) ([]*Contract, error)

	// GetMember returns the member record, including its tenant attribution
	GetMember(ctx context.Context, memberID string) (*Member, error)
}
