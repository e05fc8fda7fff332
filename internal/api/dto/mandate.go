package dto

import (
	"time"

	"github.com/dojobill/dojobill/internal/domain/mandate"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/go-playground/validator/v10"
)

// CreateMandateRequest represents the request payload for registering a mandate
type CreateMandateRequest struct {
	MemberID      string `json:"member_id" binding:"required" example:"member_01"`
	IBANReference string `json:"iban_reference" binding:"required" example:"DE02-ref-7731"`
}

// RevokeMandateRequest carries the revocation reason
type RevokeMandateRequest struct {
	Reason string `json:"reason" example:"member left the dojo"`
}

// MandateResponse represents the mandate response structure
type MandateResponse struct {
	ID            string              `json:"id"`
	MemberID      string              `json:"member_id"`
	IBANReference string              `json:"iban_reference"`
	MandateState  types.MandateStatus `json:"mandate_state"`
	ActivatedAt   *time.Time          `json:"activated_at,omitempty"`
	RevokedAt     *time.Time          `json:"revoked_at,omitempty"`
	RevokeReason  string              `json:"revoke_reason,omitempty"`
	TenantID      string              `json:"tenant_id"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ToMandateResponse converts a domain mandate to its response shape
func ToMandateResponse(m *mandate.Mandate) *MandateResponse {
	return &MandateResponse{
		ID:            m.ID,
		MemberID:      m.MemberID,
		IBANReference: m.IBANReference,
		MandateState:  m.MandateState,
		ActivatedAt:   m.ActivatedAt,
		RevokedAt:     m.RevokedAt,
		RevokeReason:  m.RevokeReason,
		TenantID:      m.TenantID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// Validate runs request validations
func (r *CreateMandateRequest) Validate() error {
	return validator.New().Struct(r)
}
