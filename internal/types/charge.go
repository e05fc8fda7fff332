package types

import (
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/samber/lo"
)

// ChargeStatus is the state of a charge in the collection lifecycle
type ChargeStatus string

const (
	ChargeStatusPending       ChargeStatus = "pending"
	ChargeStatusIncludedInRun ChargeStatus = "included_in_run"
	ChargeStatusSubmitted     ChargeStatus = "submitted"
	ChargeStatusSettled       ChargeStatus = "settled"
	ChargeStatusFailed        ChargeStatus = "failed"
	ChargeStatusEscalating    ChargeStatus = "escalating"
	ChargeStatusWrittenOff    ChargeStatus = "written_off"
	ChargeStatusNeedsMandate  ChargeStatus = "needs_mandate"
)

func (s ChargeStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are possible
func (s ChargeStatus) IsTerminal() bool {
	return s == ChargeStatusSettled || s == ChargeStatusWrittenOff
}

// chargeTransitions is the single source of truth for legal charge state
// changes. needs_mandate is reachable from any non-terminal state via
// mandate revocation and is therefore handled separately in CanTransition.
var chargeTransitions = map[ChargeStatus][]ChargeStatus{
	ChargeStatusPending:       {ChargeStatusIncludedInRun},
	ChargeStatusIncludedInRun: {ChargeStatusSubmitted, ChargeStatusPending},
	ChargeStatusSubmitted:     {ChargeStatusSettled, ChargeStatusFailed},
	ChargeStatusFailed:        {ChargeStatusPending, ChargeStatusEscalating},
	ChargeStatusEscalating:    {ChargeStatusSettled, ChargeStatusWrittenOff},
	ChargeStatusNeedsMandate:  {ChargeStatusPending},
	ChargeStatusSettled:       {},
	ChargeStatusWrittenOff:    {},
}

// CanTransition reports whether the charge may move from s to target
func (s ChargeStatus) CanTransition(target ChargeStatus) bool {
	if target == ChargeStatusNeedsMandate {
		// any non-terminal charge loses its mandate when the mandate is
		// revoked or expired underneath it
		return !s.IsTerminal()
	}
	return lo.Contains(chargeTransitions[s], target)
}

func (s ChargeStatus) Validate() error {
	allowed := []ChargeStatus{
		ChargeStatusPending,
		ChargeStatusIncludedInRun,
		ChargeStatusSubmitted,
		ChargeStatusSettled,
		ChargeStatusFailed,
		ChargeStatusEscalating,
		ChargeStatusWrittenOff,
		ChargeStatusNeedsMandate,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid charge status").
			WithHint("Invalid charge status").
			WithReportableDetails(map[string]any{
				"allowed_values": allowed,
				"provided_value": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// FailureReason is the bank/provider reason code attached to a failed or
// returned charge. Reason codes distinguish retryable failures from ones
// where further collection attempts are pointless.
type FailureReason string

const (
	FailureReasonInsufficientFunds  FailureReason = "insufficient_funds"
	FailureReasonTemporaryBankError FailureReason = "temporary_bank_error"
	FailureReasonAccountClosed      FailureReason = "account_closed"
	FailureReasonMandateCancelled   FailureReason = "mandate_cancelled"
	FailureReasonRefusedByDebtor    FailureReason = "refused_by_debtor"
)

func (r FailureReason) String() string {
	return string(r)
}

// Retryable reports whether a charge failing with this reason may be
// requeued for another collection attempt. Non-retryable failures skip the
// remaining retry budget and go straight to dunning.
func (r FailureReason) Retryable() bool {
	switch r {
	case FailureReasonInsufficientFunds, FailureReasonTemporaryBankError:
		return true
	default:
		return false
	}
}

func (r FailureReason) Validate() error {
	allowed := []FailureReason{
		FailureReasonInsufficientFunds,
		FailureReasonTemporaryBankError,
		FailureReasonAccountClosed,
		FailureReasonMandateCancelled,
		FailureReasonRefusedByDebtor,
	}
	if !lo.Contains(allowed, r) {
		return ierr.NewError("invalid failure reason").
			WithHint("Invalid failure reason code").
			WithReportableDetails(map[string]any{
				"allowed_values": allowed,
				"provided_value": r,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
