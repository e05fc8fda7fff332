package v1

import (
	"net/http"

	"github.com/dojobill/dojobill/internal/api/dto"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/service"
	"github.com/gin-gonic/gin"
)

type MandateHandler struct {
	service service.MandateService
	log     *logger.Logger
}

func NewMandateHandler(service service.MandateService, log *logger.Logger) *MandateHandler {
	return &MandateHandler{service: service, log: log}
}

func (h *MandateHandler) CreateMandate(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant_id")

	var req dto.CreateMandateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	m, err := h.service.CreateMandate(ctx, tenantID, req.MemberID, req.IBANReference)
	if err != nil {
		h.log.Errorw("failed to create mandate",
			"tenant_id", tenantID,
			"member_id", req.MemberID,
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMandateResponse(m))
}

func (h *MandateHandler) ActivateMandate(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant_id")
	id := c.Param("id")

	m, err := h.service.Activate(ctx, tenantID, id)
	if err != nil {
		h.log.Errorw("failed to activate mandate",
			"tenant_id", tenantID,
			"mandate_id", id,
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMandateResponse(m))
}

func (h *MandateHandler) RevokeMandate(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant_id")
	id := c.Param("id")

	var req dto.RevokeMandateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	m, err := h.service.Revoke(ctx, tenantID, id, req.Reason)
	if err != nil {
		h.log.Errorw("failed to revoke mandate",
			"tenant_id", tenantID,
			"mandate_id", id,
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMandateResponse(m))
}

func (h *MandateHandler) GetMandate(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant_id")
	id := c.Param("id")

	m, err := h.service.Get(ctx, tenantID, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMandateResponse(m))
}
