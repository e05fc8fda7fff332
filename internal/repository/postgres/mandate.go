package postgres

import (
	"context"
	"time"

	"github.com/dojobill/dojobill/internal/domain/mandate"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/postgres"
	"github.com/dojobill/dojobill/internal/types"
)

type mandateRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewMandateRepository(db *postgres.DB, logger *logger.Logger) mandate.Repository {
	return &mandateRepository{db: db, logger: logger}
}

const mandateColumns = `
	id, member_id, iban_reference, mandate_state, activated_at, revoked_at,
	revoke_reason, version, tenant_id, status, created_at, updated_at,
	created_by, updated_by
`

func (r *mandateRepository) Create(ctx context.Context, m *mandate.Mandate) error {
	query := `
	INSERT INTO mandates (` + mandateColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.MemberID,
		m.IBANReference,
		m.MandateState,
		m.ActivatedAt,
		m.RevokedAt,
		m.RevokeReason,
		m.Version,
		m.TenantID,
		m.Status,
		m.CreatedAt,
		m.UpdatedAt,
		m.CreatedBy,
		m.UpdatedBy,
	)
	return wrapQueryErr(err, "mandate")
}

func (r *mandateRepository) Get(ctx context.Context, id string) (*mandate.Mandate, error) {
	query := `SELECT ` + mandateColumns + ` FROM mandates WHERE id = $1`

	var m mandate.Mandate
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		return nil, wrapQueryErr(err, "mandate")
	}
	return &m, nil
}

func (r *mandateRepository) Update(ctx context.Context, m *mandate.Mandate) error {
	query := `
	UPDATE mandates SET
		mandate_state = $1, activated_at = $2, revoked_at = $3,
		revoke_reason = $4, version = version + 1, updated_at = $5,
		updated_by = $6
	WHERE id = $7 AND version = $8
	`
	res, err := r.db.ExecContext(ctx, query,
		m.MandateState,
		m.ActivatedAt,
		m.RevokedAt,
		m.RevokeReason,
		time.Now().UTC(),
		m.UpdatedBy,
		m.ID,
		m.Version,
	)
	if err != nil {
		return wrapQueryErr(err, "mandate")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapQueryErr(err, "mandate")
	}
	if rows == 0 {
		return ierr.NewError("mandate was modified concurrently").
			WithReportableDetails(map[string]any{
				"mandate_id": m.ID,
				"version":    m.Version,
			}).
			Mark(ierr.ErrStaleState)
	}
	m.Version++
	return nil
}

func (r *mandateRepository) GetActiveByMember(ctx context.Context, tenantID, memberID string) (*mandate.Mandate, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}
	query := `
	SELECT ` + mandateColumns + ` FROM mandates
	WHERE tenant_id = $1 AND member_id = $2 AND mandate_state = $3
	`
	var m mandate.Mandate
	if err := r.db.GetContext(ctx, &m, query, tenantID, memberID, types.MandateStatusActive); err != nil {
		return nil, wrapQueryErr(err, "mandate")
	}
	return &m, nil
}

func (r *mandateRepository) ListByState(ctx context.Context, tenantID string, state types.MandateStatus) ([]*mandate.Mandate, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}
	query := `
	SELECT ` + mandateColumns + ` FROM mandates
	WHERE tenant_id = $1 AND mandate_state = $2
	ORDER BY created_at
	`
	var mandates []*mandate.Mandate
	if err := r.db.SelectContext(ctx, &mandates, query, tenantID, state); err != nil {
		return nil, wrapQueryErr(err, "mandate")
	}
	return mandates, nil
}

func (r *mandateRepository) ListStale(ctx context.Context, tenantID string, before time.Time) ([]*mandate.Mandate, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}
	query := `
	SELECT ` + mandateColumns + ` FROM mandates
	WHERE tenant_id = $1 AND mandate_state = $2 AND created_at < $3
	ORDER BY created_at
	`
	var mandates []*mandate.Mandate
	if err := r.db.SelectContext(ctx, &mandates, query, tenantID, types.MandateStatusCreated, before); err != nil {
		return nil, wrapQueryErr(err, "mandate")
	}
	return mandates, nil
}

// requireScope rejects unscoped queries; a missing tenant id must never
// widen a query to all partitions
func requireScope(tenantID string) error {
	if tenantID == "" {
		return ierr.NewError("tenant scope cannot be empty").
			WithHint("Scoped queries require a tenant ID").
			Mark(ierr.ErrValidation)
	}
	return nil
}
