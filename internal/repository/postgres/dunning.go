package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/dojobill/dojobill/internal/domain/dunning"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/postgres"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/samber/lo"
)

type dunningRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewDunningRepository(db *postgres.DB, logger *logger.Logger) dunning.Repository {
	return &dunningRepository{db: db, logger: logger}
}

const dunningColumns = `
	id, charge_id, contract_id, member_id, level, next_action_date,
	accumulated_fee, fee_applied, case_state, outcome, closed_at, version,
	tenant_id, status, created_at, updated_at, created_by, updated_by
`

func (r *dunningRepository) Create(ctx context.Context, c *dunning.Case) error {
	query := `
	INSERT INTO dunning_cases (` + dunningColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		$15, $16, $17, $18)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.ChargeID,
		c.ContractID,
		c.MemberID,
		c.Level,
		c.NextActionDate,
		c.AccumulatedFee,
		c.FeeApplied,
		c.CaseState,
		c.Outcome,
		c.ClosedAt,
		c.Version,
		c.TenantID,
		c.Status,
		c.CreatedAt,
		c.UpdatedAt,
		c.CreatedBy,
		c.UpdatedBy,
	)
	return wrapQueryErr(err, "dunning case")
}

func scanCase(row interface{ Scan(...any) error }) (*dunning.Case, error) {
	var c dunning.Case
	var outcome sql.NullString
	err := row.Scan(
		&c.ID,
		&c.ChargeID,
		&c.ContractID,
		&c.MemberID,
		&c.Level,
		&c.NextActionDate,
		&c.AccumulatedFee,
		&c.FeeApplied,
		&c.CaseState,
		&outcome,
		&c.ClosedAt,
		&c.Version,
		&c.TenantID,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.CreatedBy,
		&c.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if outcome.Valid {
		c.Outcome = lo.ToPtr(types.DunningOutcome(outcome.String))
	}
	return &c, nil
}

func (r *dunningRepository) queryCases(ctx context.Context, query string, args ...any) ([]*dunning.Case, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapQueryErr(err, "dunning case")
	}
	defer rows.Close()

	var cases []*dunning.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, wrapQueryErr(err, "dunning case")
		}
		cases = append(cases, c)
	}
	return cases, wrapQueryErr(rows.Err(), "dunning case")
}

func (r *dunningRepository) Get(ctx context.Context, id string) (*dunning.Case, error) {
	query := `SELECT ` + dunningColumns + ` FROM dunning_cases WHERE id = $1`
	c, err := scanCase(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapQueryErr(err, "dunning case")
	}
	return c, nil
}

func (r *dunningRepository) Update(ctx context.Context, c *dunning.Case) error {
	query := `
	UPDATE dunning_cases SET
		level = $1, next_action_date = $2, accumulated_fee = $3,
		fee_applied = $4, case_state = $5, outcome = $6, closed_at = $7,
		version = version + 1, updated_at = $8, updated_by = $9
	WHERE id = $10 AND version = $11
	`
	res, err := r.db.ExecContext(ctx, query,
		c.Level,
		c.NextActionDate,
		c.AccumulatedFee,
		c.FeeApplied,
		c.CaseState,
		c.Outcome,
		c.ClosedAt,
		time.Now().UTC(),
		c.UpdatedBy,
		c.ID,
		c.Version,
	)
	if err != nil {
		return wrapQueryErr(err, "dunning case")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapQueryErr(err, "dunning case")
	}
	if rows == 0 {
		return ierr.NewError("dunning case was modified concurrently").
			WithReportableDetails(map[string]any{
				"case_id": c.ID,
				"version": c.Version,
			}).
			Mark(ierr.ErrStaleState)
	}
	c.Version++
	return nil
}

func (r *dunningRepository) GetOpenByCharge(ctx context.Context, tenantID, chargeID string) (*dunning.Case, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}
	query := `
	SELECT ` + dunningColumns + ` FROM dunning_cases
	WHERE tenant_id = $1 AND charge_id = $2 AND case_state = $3
	`
	c, err := scanCase(r.db.QueryRowContext(ctx, query, tenantID, chargeID, types.DunningCaseStatusOpen))
	if err != nil {
		return nil, wrapQueryErr(err, "dunning case")
	}
	return c, nil
}

func (r *dunningRepository) ListDue(ctx context.Context, tenantID string, asOf time.Time) ([]*dunning.Case, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}
	query := `
	SELECT ` + dunningColumns + ` FROM dunning_cases
	WHERE tenant_id = $1 AND case_state = $2 AND next_action_date <= $3
	ORDER BY next_action_date
	`
	return r.queryCases(ctx, query, tenantID, types.DunningCaseStatusOpen, asOf)
}

func (r *dunningRepository) ListUnappliedFees(ctx context.Context, tenantID, contractID string) ([]*dunning.Case, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}
	query := `
	SELECT ` + dunningColumns + ` FROM dunning_cases
	WHERE tenant_id = $1 AND contract_id = $2 AND fee_applied = false
		AND accumulated_fee > 0
	ORDER BY created_at
	`
	return r.queryCases(ctx, query, tenantID, contractID)
}
