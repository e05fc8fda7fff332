package v1

import (
	"net/http"

	"github.com/dojobill/dojobill/internal/api/dto"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/service"
	"github.com/gin-gonic/gin"
)

type ReconcileHandler struct {
	service service.ReconcileService
	log     *logger.Logger
}

func NewReconcileHandler(service service.ReconcileService, log *logger.Logger) *ReconcileHandler {
	return &ReconcileHandler{service: service, log: log}
}

// ReconcileRun ingests one result feed batch for a submitted run
func (h *ReconcileHandler) ReconcileRun(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant_id")
	runID := c.Param("id")

	var req dto.ReconcileRequest
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

	summary, err := h.service.Reconcile(ctx, tenantID, runID, req.ToServiceResults())
	if err != nil {
		h.log.Errorw("failed to reconcile run",
			"tenant_id", tenantID,
			"run_id", runID,
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
