package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dojobill/dojobill/internal/domain/collectionrun"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/postgres"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/lib/pq"
)

type collectionRunRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCollectionRunRepository(db *postgres.DB, logger *logger.Logger) collectionrun.Repository {
	return &collectionRunRepository{db: db, logger: logger}
}

const runColumns = `
	id, reference, cutoff_date, run_state, charge_ids, skipped,
	submitted_at, reconciled_at, version, tenant_id, status,
	created_at, updated_at, created_by, updated_by
`

func (r *collectionRunRepository) Create(ctx context.Context, run *collectionrun.CollectionRun) error {
	skippedJSON, err := json.Marshal(run.Skipped)
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrSystem)
	}

	query := `
	INSERT INTO collection_runs (` + runColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.Reference,
		run.CutoffDate,
		run.RunState,
		pq.Array(run.ChargeIDs),
		skippedJSON,
		run.SubmittedAt,
		run.ReconciledAt,
		run.Version,
		run.TenantID,
		run.Status,
		run.CreatedAt,
		run.UpdatedAt,
		run.CreatedBy,
		run.UpdatedBy,
	)
	return wrapQueryErr(err, "collection run")
}

func scanRun(row interface{ Scan(...any) error }) (*collectionrun.CollectionRun, error) {
	var run collectionrun.CollectionRun
	var chargeIDs pq.StringArray
	var skippedJSON []byte
	err := row.Scan(
		&run.ID,
		&run.Reference,
		&run.CutoffDate,
		&run.RunState,
		&chargeIDs,
		&skippedJSON,
		&run.SubmittedAt,
		&run.ReconciledAt,
		&run.Version,
		&run.TenantID,
		&run.Status,
		&run.CreatedAt,
		&run.UpdatedAt,
		&run.CreatedBy,
		&run.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	run.ChargeIDs = chargeIDs
	if len(skippedJSON) > 0 {
		if err := json.Unmarshal(skippedJSON, &run.Skipped); err != nil {
			return nil, err
		}
	}
	return &run, nil
}

func (r *collectionRunRepository) Get(ctx context.Context, id string) (*collectionrun.CollectionRun, error) {
	query := `SELECT ` + runColumns + ` FROM collection_runs WHERE id = $1`
	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapQueryErr(err, "collection run")
	}
	return run, nil
}

func (r *collectionRunRepository) Update(ctx context.Context, run *collectionrun.CollectionRun) error {
	skippedJSON, err := json.Marshal(run.Skipped)
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrSystem)
	}

	query := `
	UPDATE collection_runs SET
		run_state = $1, charge_ids = $2, skipped = $3, submitted_at = $4,
		reconciled_at = $5, version = version + 1, updated_at = $6,
		updated_by = $7
	WHERE id = $8 AND version = $9
	`
	res, err := r.db.ExecContext(ctx, query,
		run.RunState,
		pq.Array(run.ChargeIDs),
		skippedJSON,
		run.SubmittedAt,
		run.ReconciledAt,
		time.Now().UTC(),
		run.UpdatedBy,
		run.ID,
		run.Version,
	)
	if err != nil {
		return wrapQueryErr(err, "collection run")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapQueryErr(err, "collection run")
	}
	if rows == 0 {
		return ierr.NewError("collection run was modified concurrently").
			WithReportableDetails(map[string]any{
				"run_id":  run.ID,
				"version": run.Version,
			}).
			Mark(ierr.ErrStaleState)
	}
	run.Version++
	return nil
}

func (r *collectionRunRepository) GetOpenByCutoff(ctx context.Context, tenantID string, cutoff time.Time) (*collectionrun.CollectionRun, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}
	query := `
	SELECT ` + runColumns + ` FROM collection_runs
	WHERE tenant_id = $1 AND cutoff_date = $2 AND run_state IN ($3, $4)
	`
	run, err := scanRun(r.db.QueryRowContext(ctx, query, tenantID, cutoff,
		types.CollectionRunStatusBuilding, types.CollectionRunStatusSubmitted))
	if err != nil {
		return nil, wrapQueryErr(err, "collection run")
	}
	return run, nil
}

func (r *collectionRunRepository) ListNonTerminal(ctx context.Context, tenantID string) ([]*collectionrun.CollectionRun, error) {
	if err := requireScope(tenantID); err != nil {
		return nil, err
	}
	query := `
	SELECT ` + runColumns + ` FROM collection_runs
	WHERE tenant_id = $1 AND run_state IN ($2, $3)
	ORDER BY cutoff_date
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID,
		types.CollectionRunStatusBuilding, types.CollectionRunStatusSubmitted)
	if err != nil {
		return nil, wrapQueryErr(err, "collection run")
	}
	defer rows.Close()

	var runs []*collectionrun.CollectionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, wrapQueryErr(err, "collection run")
		}
		runs = append(runs, run)
	}
	return runs, wrapQueryErr(rows.Err(), "collection run")
}
