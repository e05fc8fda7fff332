package service

import (
	"context"

	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
)

// TenantGuardService enforces tenant partitioning. Every write path calls
// Authorize before persisting; it fails closed, so an entity with an empty
// or mismatching tenant id is rejected rather than silently attributed.
type TenantGuardService interface {
	// Authorize verifies that the entity belongs to the declared tenant
	Authorize(ctx context.Context, tenantID string, entity types.TenantOwned) error
	// RequireScope verifies that a read operation declares a tenant scope
	RequireScope(tenantID string) error
}

type tenantGuardService struct {
	ServiceParams
}

// NewTenantGuardService creates the partition guard
func NewTenantGuardService(params ServiceParams) TenantGuardService {
	return &tenantGuardService{ServiceParams: params}
}

func (s *tenantGuardService) Authorize(ctx context.Context, tenantID string, entity types.TenantOwned) error {
	if tenantID == "" {
		return ierr.NewError("write without tenant scope").
			WithHint("Every write must declare the tenant it belongs to").
			Mark(ierr.ErrMixedTenant)
	}
	if entity == nil {
		return ierr.NewError("nil entity in tenant check").
			WithHint("Entity is required").
			Mark(ierr.ErrValidation)
	}
	entityTenant := entity.GetTenantID()
	if entityTenant == "" {
		return ierr.NewError("entity has no tenant attribution").
			WithHint("Entities must carry a tenant id at creation").
			WithReportableDetails(map[string]any{
				"declared_tenant": tenantID,
			}).
			Mark(ierr.ErrMixedTenant)
	}
	if entityTenant != tenantID {
		s.Logger.Errorw("cross-tenant write rejected",
			"declared_tenant", tenantID,
			"entity_tenant", entityTenant,
		)
		return ierr.NewError("entity belongs to a different tenant").
			WithHint("Cross-tenant writes are never permitted").
			WithReportableDetails(map[string]any{
				"declared_tenant": tenantID,
				"entity_tenant":   entityTenant,
			}).
			Mark(ierr.ErrMixedTenant)
	}
	return nil
}

func (s *tenantGuardService) RequireScope(tenantID string) error {
	if tenantID == "" {
		// an unscoped aggregation is a programming error, not a fallback
		return ierr.NewError("read without tenant scope").
			WithHint("Reports and aggregations must be scoped to one tenant").
			Mark(ierr.ErrValidation)
	}
	return nil
}
