package v1

import (
	"net/http"

	"github.com/dojobill/dojobill/internal/api/dto"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/service"
	"github.com/gin-gonic/gin"
)

type DunningHandler struct {
	service service.DunningService
	log     *logger.Logger
}

func NewDunningHandler(service service.DunningService, log *logger.Logger) *DunningHandler {
	return &DunningHandler{service: service, log: log}
}

func (h *DunningHandler) GetCase(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant_id")
	id := c.Param("id")

	dc, err := h.service.Get(ctx, tenantID, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDunningCaseResponse(dc))
}

func (h *DunningHandler) ResolveCase(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant_id")
	id := c.Param("id")

	var req dto.ResolveCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	dc, err := h.service.ResolveCase(ctx, tenantID, id, req.Outcome)
	if err != nil {
		h.log.Errorw("failed to resolve dunning case",
			"tenant_id", tenantID,
			"case_id", id,
			"outcome", req.Outcome,
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDunningCaseResponse(dc))
}
