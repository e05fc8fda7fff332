package v1

import (
	"net/http"

	"github.com/dojobill/dojobill/internal/api/dto"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/service"
	"github.com/gin-gonic/gin"
)

type CollectionRunHandler struct {
	service service.CollectionRunService
	log     *logger.Logger
}

func NewCollectionRunHandler(service service.CollectionRunService, log *logger.Logger) *CollectionRunHandler {
	return &CollectionRunHandler{service: service, log: log}
}

func (h *CollectionRunHandler) BuildRun(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant_id")

	var req dto.BuildRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	cutoff, err := req.ParseCutoff()
	if err != nil {
		c.Error(err)
		return
	}

	run, summary, err := h.service.BuildRun(ctx, tenantID, cutoff)
	if err != nil {
		h.log.Errorw("failed to build collection run",
			"tenant_id", tenantID,
			"cutoff_date", req.CutoffDate,
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"run":     dto.ToCollectionRunResponse(run),
		"summary": summary,
	})
}

func (h *CollectionRunHandler) SubmitRun(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant_id")
	id := c.Param("id")

	file, err := h.service.SubmitRun(ctx, tenantID, id)
	if err != nil {
		h.log.Errorw("failed to submit collection run",
			"tenant_id", tenantID,
			"run_id", id,
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, file)
}

func (h *CollectionRunHandler) AbortRun(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant_id")
	id := c.Param("id")

	run, err := h.service.AbortRun(ctx, tenantID, id)
	if err != nil {
		h.log.Errorw("failed to abort collection run",
			"tenant_id", tenantID,
			"run_id", id,
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCollectionRunResponse(run))
}

func (h *CollectionRunHandler) GetRun(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant_id")
	id := c.Param("id")

	run, err := h.service.Get(ctx, tenantID, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCollectionRunResponse(run))
}
