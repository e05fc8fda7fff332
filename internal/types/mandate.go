package types

import (
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/samber/lo"
)

// MandateStatus is the lifecycle status of a SEPA direct-debit mandate
type MandateStatus string

const (
	MandateStatusCreated MandateStatus = "created"
	MandateStatusActive  MandateStatus = "active"
	MandateStatusRevoked MandateStatus = "revoked"
	MandateStatusExpired MandateStatus = "expired"
)

func (s MandateStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the mandate can never become active again
func (s MandateStatus) IsTerminal() bool {
	return s == MandateStatusRevoked || s == MandateStatusExpired
}

// mandateTransitions is the single source of truth for legal mandate
// state changes
var mandateTransitions = map[MandateStatus][]MandateStatus{
	MandateStatusCreated: {MandateStatusActive, MandateStatusRevoked, MandateStatusExpired},
	MandateStatusActive:  {MandateStatusRevoked, MandateStatusExpired},
	MandateStatusRevoked: {},
	MandateStatusExpired: {},
}

// CanTransition reports whether the mandate may move from s to target
func (s MandateStatus) CanTransition(target MandateStatus) bool {
	return lo.Contains(mandateTransitions[s], target)
}

func (s MandateStatus) Validate() error {
	allowed := []MandateStatus{
		MandateStatusCreated,
		MandateStatusActive,
		MandateStatusRevoked,
		MandateStatusExpired,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid mandate status").
			WithHint("Invalid mandate status").
			WithReportableDetails(map[string]any{
				"allowed_values": allowed,
				"provided_value": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
