package postgres

import (
	"context"

	"github.com/dojobill/dojobill/internal/domain/tenant"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/postgres"
)

type tenantRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewTenantRepository(db *postgres.DB, logger *logger.Logger) tenant.Repository {
	return &tenantRepository{db: db, logger: logger}
}

func (r *tenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	query := `
	INSERT INTO tenants (id, name, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, t.ID, t.Name, t.Status, t.CreatedAt, t.UpdatedAt)
	return wrapQueryErr(err, "tenant")
}

func (r *tenantRepository) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	query := `SELECT id, name, status, created_at, updated_at FROM tenants WHERE id = $1`
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		return nil, wrapQueryErr(err, "tenant")
	}
	return &t, nil
}

func (r *tenantRepository) List(ctx context.Context) ([]*tenant.Tenant, error) {
	var tenants []*tenant.Tenant
	query := `SELECT id, name, status, created_at, updated_at FROM tenants ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &tenants, query); err != nil {
		return nil, wrapQueryErr(err, "tenant")
	}
	return tenants, nil
}
