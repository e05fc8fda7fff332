package service

import (
	"context"
	"time"

	"github.com/dojobill/dojobill/internal/domain/tenant"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
)

// TenantService manages the dojo registry. Tenants are the billing-law
// partition boundary; everything else in the system is scoped under one.
type TenantService interface {
	CreateTenant(ctx context.Context, name string) (*tenant.Tenant, error)
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]*tenant.Tenant, error)
}

type tenantService struct {
	ServiceParams
}

// NewTenantService creates the tenant registry
func NewTenantService(params ServiceParams) TenantService {
	return &tenantService{ServiceParams: params}
}

func (s *tenantService) CreateTenant(ctx context.Context, name string) (*tenant.Tenant, error) {
	if name == "" {
		return nil, ierr.NewError("tenant name cannot be empty").
			WithHint("Tenant name is required").
			Mark(ierr.ErrValidation)
	}

	now := time.Now().UTC()
	t := &tenant.Tenant{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TENANT),
		Name:      name,
		Status:    types.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.TenantRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *tenantService) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	return s.TenantRepo.Get(ctx, id)
}

func (s *tenantService) ListTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.TenantRepo.List(ctx)
}
