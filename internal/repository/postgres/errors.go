package postgres

import (
	"database/sql"
	"errors"

	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// wrapQueryErr maps driver errors onto the domain sentinels
func wrapQueryErr(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHintf("%s not found", entity).
			Mark(ierr.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ierr.WithError(err).
			WithHintf("%s already exists", entity).
			Mark(ierr.ErrAlreadyExists)
	}
	return ierr.WithError(err).
		WithHintf("database operation on %s failed", entity).
		Mark(ierr.ErrDatabase)
}
