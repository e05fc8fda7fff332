package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/dojobill/dojobill/internal/domain/charge"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/postgres"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/samber/lo"
)

type chargeRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewChargeRepository(db *postgres.DB, logger *logger.Logger) charge.Repository {
	return &chargeRepository{db: db, logger: logger}
}

const chargeColumns = `
	id, contract_id, member_id, mandate_id, amount, due_date,
	period_start, period_end, charge_state, dunning_level, attempts,
	failure_reason, run_id, end_to_end_id, version, submitted_at,
	settled_at, tenant_id, status, created_at, updated_at,
	created_by, updated_by
`

func (r *chargeRepository) Create(ctx context.Context, c *charge.Charge) error {
	// the unique index on (tenant_id, contract_id, period_start) backs
	// the one-charge-per-period guarantee
	query := `
	INSERT INTO charges (` + chargeColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		$15, $16, $17, $18, $19, $20, $21, $22, $23)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.ContractID,
		c.MemberID,
		c.MandateID,
		c.Amount,
		c.DueDate,
		c.Period.Start,
		c.Period.End,
		c.ChargeState,
		c.DunningLevel,
		c.Attempts,
		c.FailureReason,
		c.RunID,
		c.EndToEndID,
		c.Version,
		c.SubmittedAt,
		c.SettledAt,
		c.TenantID,
		c.Status,
		c.CreatedAt,
		c.UpdatedAt,
		c.CreatedBy,
		c.UpdatedBy,
	)
	return wrapQueryErr(err, "charge")
}

func scanCharge(row interface{ Scan(...any) error }) (*charge.Charge, error) {
	var c charge.Charge
	var failureReason sql.NullString
	err := row.Scan(
		&c.ID,
		&c.ContractID,
		&c.MemberID,
		&c.MandateID,
		&c.Amount,
		&c.DueDate,
		&c.Period.Start,
		&c.Period.End,
		&c.ChargeState,
		&c.DunningLevel,
		&c.Attempts,
		&failureReason,
		&c.RunID,
		&c.EndToEndID,
		&c.Version,
		&c.SubmittedAt,
		&c.SettledAt,
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
	if failureReason.Valid {
		c.FailureReason = lo.ToPtr(types.FailureReason(failureReason.String))
	}
	return &c, nil
}

func (r *chargeRepository) queryCharges(ctx context.Context, query string, args ...any) ([]*charge.Charge, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapQueryErr(err, "charge")
	}
	defer rows.Close()

	var charges []*charge.Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, wrapQueryErr(err, "charge")
		}
		charges = append(charges, c)
	}
	return charges, wrapQueryErr(rows.Err(), "charge")
}

func (r *chargeRepository) Get(ctx context.Context, id string) (*charge.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM charges WHERE id = $1`
	c, err := scanCharge(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapQueryErr(err, "charge")
	}
	return c, nil
}

func (r *chargeRepository) Update(ctx context.Context, c *charge.Charge) error {
	query := `
	UPDATE charges SET
		mandate_id = $1, amount = $2, charge_state = $3, dunning_level = $4,
		attempts = $5, failure_reason = $6, run_id = $7,
		version = version + 1, submitted_at = $8, settled_at = $9,
		updated_at = $10, updated_by = $11
	WHERE id = $12 AND version = $13
	`
	res, err := r.db.ExecContext(ctx, query,
		c.MandateID,
		c.Amount,
		c.ChargeState,
		c.DunningLevel,
		c.Attempts,
		c.FailureReason,
		c.RunID,
		c.SubmittedAt,
		c.SettledAt,
		time.Now().UTC(),
		c.UpdatedBy,
		c.ID,
		c.Version,
	)
	if err != nil {
		return wrapQueryErr(err, "charge")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapQueryErr(err, "charge")
	}
	if rows == 0 {
		return ierr.NewError("charge was modified concurrently").
			WithReportableDetails(map[string]any{
				"charge_id": c.ID,
				"version":   c.Version,
			}).
			Mark(ierr.ErrStaleState)
	}
	c.Version++
	return nil
}

func (r *chargeRepository) GetByContractAndPeriod(ctx context.Context, tenantID, contractID, periodKey string) (*charge.Charge, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}
	query := `
	SELECT ` + chargeColumns + ` FROM charges
	WHERE tenant_id = $1 AND contract_id = $2 AND to_char(period_start, 'YYYY-MM-DD') = $3
	`
	c, err := scanCharge(r.db.QueryRowContext(ctx, query, tenantID, contractID, periodKey))
	if err != nil {
		return nil, wrapQueryErr(err, "charge")
	}
	return c, nil
}

func (r *chargeRepository) ListDue(ctx context.Context, tenantID string, state types.ChargeStatus, cutoff time.Time) ([]*charge.Charge, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}
	query := `
	SELECT ` + chargeColumns + ` FROM charges
	WHERE tenant_id = $1 AND charge_state = $2 AND due_date <= $3
	ORDER BY due_date, member_id, contract_id
	`
	return r.queryCharges(ctx, query, tenantID, state, cutoff)
}

func (r *chargeRepository) ListByState(ctx context.Context, tenantID string, state types.ChargeStatus) ([]*charge.Charge, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}
	query := `
	SELECT ` + chargeColumns + ` FROM charges
	WHERE tenant_id = $1 AND charge_state = $2
	ORDER BY due_date
	`
	return r.queryCharges(ctx, query, tenantID, state)
}

func (r *chargeRepository) ListByRun(ctx context.Context, tenantID, runID string) ([]*charge.Charge, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}
	query := `
	SELECT ` + chargeColumns + ` FROM charges
	WHERE tenant_id = $1 AND run_id = $2
	ORDER BY due_date, member_id, contract_id
	`
	return r.queryCharges(ctx, query, tenantID, runID)
}

func (r *chargeRepository) ListByMandate(ctx context.Context, tenantID, mandateID string) ([]*charge.Charge, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}
	query := `
	SELECT ` + chargeColumns + ` FROM charges
	WHERE tenant_id = $1 AND mandate_id = $2 AND charge_state NOT IN ($3, $4)
	ORDER BY due_date
	`
	return r.queryCharges(ctx, query, tenantID, mandateID,
		types.ChargeStatusSettled, types.ChargeStatusWrittenOff)
}

func (r *chargeRepository) ListByContract(ctx context.Context, tenantID, contractID string) ([]*charge.Charge, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}
	query := `
	SELECT ` + chargeColumns + ` FROM charges
	WHERE tenant_id = $1 AND contract_id = $2
	ORDER BY period_start DESC
	`
	return r.queryCharges(ctx, query, tenantID, contractID)
}
