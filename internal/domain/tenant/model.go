package tenant

import (
	"time"

	"github.com/dojobill/dojobill/internal/types"
)

// Tenant represents one billing-law entity (a dojo) whose financial records
// must be kept separable for tax reporting.
type Tenant struct {
	ID        string       `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Status    types.Status `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// GetTenantID lets a tenant pass through the partition guard as its own owner
func (t *Tenant) GetTenantID() string {
	return t.ID
}
