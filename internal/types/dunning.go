package types

import (
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/samber/lo"
)

// DunningCaseStatus is the open/closed state of a dunning case
type DunningCaseStatus string

const (
	DunningCaseStatusOpen   DunningCaseStatus = "open"
	DunningCaseStatusClosed DunningCaseStatus = "closed"
)

func (s DunningCaseStatus) String() string {
	return string(s)
}

// DunningOutcome records how a dunning case was closed
type DunningOutcome string

const (
	// DunningOutcomePaid means the member paid out-of-band and the charge settles
	DunningOutcomePaid DunningOutcome = "paid"
	// DunningOutcomeWaived means an operator waived the debt; the charge is written off
	DunningOutcomeWaived DunningOutcome = "waived"
	// DunningOutcomeWrittenOff means the ladder reached max level and collection was abandoned
	DunningOutcomeWrittenOff DunningOutcome = "written_off"
)

func (o DunningOutcome) String() string {
	return string(o)
}

func (o DunningOutcome) Validate() error {
	allowed := []DunningOutcome{
		DunningOutcomePaid,
		DunningOutcomeWaived,
		DunningOutcomeWrittenOff,
	}
	if !lo.Contains(allowed, o) {
		return ierr.NewError("invalid dunning outcome").
			WithHint("Invalid dunning outcome").
			WithReportableDetails(map[string]any{
				"allowed_values": allowed,
				"provided_value": o,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
