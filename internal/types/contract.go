package types

import (
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/samber/lo"
)

// ContractStatus is the lifecycle status of a membership contract as
// reported by the membership directory
type ContractStatus string

const (
	ContractStatusActive     ContractStatus = "active"
	ContractStatusPaused     ContractStatus = "paused"
	ContractStatusTerminated ContractStatus = "terminated"
)

func (s ContractStatus) String() string {
	return string(s)
}

func (s ContractStatus) Validate() error {
	allowed := []ContractStatus{
		ContractStatusActive,
		ContractStatusPaused,
		ContractStatusTerminated,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid contract status").
			WithHint("Invalid contract status").
			WithReportableDetails(map[string]any{
				"allowed_values": allowed,
				"provided_value": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TerminationPolicy controls how the final charge of a terminated contract
// is computed. The policy is configured once per deployment and applied
// consistently to every contract.
type TerminationPolicy string

const (
	// TerminationPolicyFullPeriod bills the last full period whose start
	// precedes the termination date, then stops. No partial charges.
	TerminationPolicyFullPeriod TerminationPolicy = "full_period"
	// TerminationPolicyProrate scales the final charge by the fraction of
	// the period covered before the termination date.
	TerminationPolicyProrate TerminationPolicy = "prorate"
)

func (p TerminationPolicy) String() string {
	return string(p)
}

func (p TerminationPolicy) Validate() error {
	allowed := []TerminationPolicy{
		TerminationPolicyFullPeriod,
		TerminationPolicyProrate,
	}
	if !lo.Contains(allowed, p) {
		return ierr.NewError("invalid termination policy").
			WithHint("Invalid termination policy").
			WithReportableDetails(map[string]any{
				"allowed_values": allowed,
				"provided_value": p,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
