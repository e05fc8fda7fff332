package mandate

import (
	"time"

	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/types"
)

// Mandate is a SEPA direct-debit authorization for one member. A member
// holds at most one active mandate per tenant; creating a new one supersedes
// the previous active mandate.
type Mandate struct {
	ID            string              `db:"id" json:"id"`
	MemberID      string              `db:"member_id" json:"member_id"`
	IBANReference string              `db:"iban_reference" json:"iban_reference"`
	MandateState  types.MandateStatus `db:"mandate_state" json:"mandate_state"`
	ActivatedAt   *time.Time          `db:"activated_at" json:"activated_at,omitempty"`
	RevokedAt     *time.Time          `db:"revoked_at" json:"revoked_at,omitempty"`
	RevokeReason  string              `db:"revoke_reason" json:"revoke_reason,omitempty"`
	// Version guards concurrent writes; Update fails with a stale state
	// error when the stored version differs.
	Version int `db:"version" json:"version"`

	types.BaseModel
}

// Validate checks the mandate shape
func (m *Mandate) Validate() error {
	if m.MemberID == "" {
		return ierr.NewError("mandate member id cannot be empty").
			WithHint("Member ID is required").
			Mark(ierr.ErrValidation)
	}
	if m.IBANReference == "" {
		return ierr.NewError("mandate iban reference cannot be empty").
			WithHint("IBAN reference is required").
			Mark(ierr.ErrValidation)
	}
	return m.MandateState.Validate()
}
