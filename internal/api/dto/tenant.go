package dto

import (
	"time"

	"github.com/dojobill/dojobill/internal/domain/tenant"
	"github.com/go-playground/validator/v10"
)

// CreateTenantRequest represents the request payload for creating a tenant
type CreateTenantRequest struct {
	Name string `json:"name" binding:"required" example:"Budokan Kreuzberg e.V."`
}

// TenantResponse represents the tenant response structure
type TenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToTenantResponse converts a domain tenant to its response shape
func ToTenantResponse(t *tenant.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// Validate runs request validations
func (r *CreateTenantRequest) Validate() error {
	return validator.New().Struct(r)
}
