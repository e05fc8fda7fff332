package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dojobill/dojobill/internal/domain/directory"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/postgres"
)

// postgresDirectory reads the membership directory's members and contracts
// tables. The directory data is written by the membership administration
// system; the billing core only ever reads it.
type postgresDirectory struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewDirectory(db *postgres.DB, logger *logger.Logger) directory.Directory {
	return &postgresDirectory{db: db, logger: logger}
}

const contractColumns = `
	id, member_id, start_date, end_date, monthly_amount, billing_cycle,
	contract_state, billing_day, pauses, discounts,
	tenant_id, status, created_at, updated_at, created_by, updated_by
`

func scanContract(row interface{ Scan(...any) error }) (*directory.Contract, error) {
	var c directory.Contract
	var pauses, discounts []byte
	err := row.Scan(
		&c.ID,
		&c.MemberID,
		&c.StartDate,
		&c.EndDate,
		&c.MonthlyAmount,
		&c.BillingCycle,
		&c.ContractState,
		&c.BillingDay,
		&pauses,
		&discounts,
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
	if len(pauses) > 0 {
		if err := json.Unmarshal(pauses, &c.Pauses); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Contract pause intervals could not be decoded").
				WithReportableDetails(map[string]any{
					"contract_id": c.ID,
				}).
				Mark(ierr.ErrDatabase)
		}
	}
	if len(discounts) > 0 {
		if err := json.Unmarshal(discounts, &c.Discounts); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Contract discounts could not be decoded").
				WithReportableDetails(map[string]any{
					"contract_id": c.ID,
				}).
				Mark(ierr.ErrDatabase)
		}
	}
	return &c, nil
}

// GetActiveContracts returns contracts that may still produce charges as of
// the given date. Terminated contracts stay visible for one month past their
// end date so a final charge can still be materialized.
func (d *postgresDirectory) GetActiveContracts(ctx context.Context, tenantID string, asOf time.Time) ([]*directory.Contract, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}
	query := `
	SELECT ` + contractColumns + ` FROM contracts
	WHERE tenant_id = $1
		AND contract_state != 'paused'
		AND (end_date IS NULL OR end_date > $2)
	ORDER BY created_at
	`
	visibleSince := asOf.AddDate(0, -1, 0)

	rows, err := d.db.QueryContext(ctx, query, tenantID, visibleSince)
	if err != nil {
		return nil, wrapQueryErr(err, "contract")
	}
	defer rows.Close()

	var contracts []*directory.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, wrapQueryErr(err, "contract")
		}
		contracts = append(contracts, c)
	}
	return contracts, wrapQueryErr(rows.Err(), "contract")
}

func (d *postgresDirectory) GetMember(ctx context.Context, memberID string) (*directory.Member, error) {
	var m directory.Member
	var email sql.NullString
	query := `
	SELECT id, name, email, tenant_id, status, created_at, updated_at,
		created_by, updated_by
	FROM members WHERE id = $1
	`
	err := d.db.QueryRowContext(ctx, query, memberID).Scan(
		&m.ID,
		&m.Name,
		&email,
		&m.TenantID,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.CreatedBy,
		&m.UpdatedBy,
	)
	if err != nil {
		return nil, wrapQueryErr(err, "member")
	}
	m.Email = email.String
	return &m, nil
}
