package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types used across the billing core. Domain-specific sentinels
// (mixed tenant, invalid transition, stale state, ambiguous outcome) carry the
// semantics of the billing state machines; the rest are generic plumbing.
var (
	ErrNotFound          = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists     = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation        = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation  = new(ErrCodeInvalidOperation, "invalid operation")
	ErrMixedTenant       = new(ErrCodeMixedTenant, "entity belongs to a different tenant")
	ErrInvalidTransition = new(ErrCodeInvalidTransition, "invalid state transition")
	ErrStaleState        = new(ErrCodeStaleState, "stale state, re-read and retry")
	ErrAmbiguousOutcome  = new(ErrCodeAmbiguousOutcome, "outcome unknown, manual review required")
	ErrDatabase          = new(ErrCodeDatabase, "database error")
	ErrSystem            = new(ErrCodeSystemError, "system error")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrNotFound:          http.StatusNotFound,
		ErrAlreadyExists:     http.StatusConflict,
		ErrValidation:        http.StatusBadRequest,
		ErrInvalidOperation:  http.StatusBadRequest,
		ErrMixedTenant:       http.StatusForbidden,
		ErrInvalidTransition: http.StatusBadRequest,
		ErrStaleState:        http.StatusConflict,
		ErrAmbiguousOutcome:  http.StatusConflict,
		ErrDatabase:          http.StatusInternalServerError,
		ErrSystem:            http.StatusInternalServerError,
	}
)

const (
	ErrCodeNotFound          = "not_found"
	ErrCodeAlreadyExists     = "already_exists"
	ErrCodeValidation        = "validation_error"
	ErrCodeInvalidOperation  = "invalid_operation"
	ErrCodeMixedTenant       = "mixed_tenant"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeStaleState        = "stale_state"
	ErrCodeAmbiguousOutcome  = "ambiguous_outcome"
	ErrCodeDatabase          = "database_error"
	ErrCodeSystemError       = "system_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// new creates a new InternalError
func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsMixedTenant checks if an error is a cross-tenant write rejection
func IsMixedTenant(err error) bool {
	return errors.Is(err, ErrMixedTenant)
}

// IsInvalidTransition checks if an error is a rejected state-machine transition
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsStaleState checks if an error is an optimistic concurrency conflict
func IsStaleState(err error) bool {
	return errors.Is(err, ErrStaleState)
}

// IsAmbiguousOutcome checks if an error flags a charge for manual review
func IsAmbiguousOutcome(err error) bool {
	return errors.Is(err, ErrAmbiguousOutcome)
}

// IsSystem checks if an error is an internal invariant violation
func IsSystem(err error) bool {
	return errors.Is(err, ErrSystem)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
