package types

import (
	"context"
	"time"
)

// BaseModel is a base model for all domain models that need to be persisted
// in the database. TenantID is immutable after creation; the partition guard
// validates it on every write path.
type BaseModel struct {
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	UpdatedBy string    `db:"updated_by" json:"updated_by"`
}

// GetTenantID implements TenantOwned for every embedding model
func (m BaseModel) GetTenantID() string {
	return m.TenantID
}

// TenantOwned is implemented by every entity that belongs to exactly one
// tenant. The partition guard accepts any such entity.
type TenantOwned interface {
	GetTenantID() string
}

// NewBaseModel builds a base model for the given tenant. The tenant id is an
// explicit parameter, never read from ambient state.
func NewBaseModel(ctx context.Context, tenantID string) BaseModel {
	now := time.Now().UTC()
	return BaseModel{
		TenantID:  tenantID,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: GetUserID(ctx),
		UpdatedBy: GetUserID(ctx),
	}
}
