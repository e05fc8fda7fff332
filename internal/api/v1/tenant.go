package v1

import (
	"net/http"

	"github.com/dojobill/dojobill/internal/api/dto"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/service"
	"github.com/gin-gonic/gin"
)

type TenantHandler struct {
	service service.TenantService
	log     *logger.Logger
}

func NewTenantHandler(service service.TenantService, log *logger.Logger) *TenantHandler {
	return &TenantHandler{service: service, log: log}
}

func (h *TenantHandler) CreateTenant(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	t, err := h.service.CreateTenant(ctx, req.Name)
	if err != nil {
		h.log.Errorw("failed to create tenant",
			"name", req.Name,
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTenantResponse(t))
}

func (h *TenantHandler) GetTenant(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("tenant_id")

	t, err := h.service.GetTenant(ctx, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTenantResponse(t))
}

func (h *TenantHandler) ListTenants(c *gin.Context) {
	ctx := c.Request.Context()

	tenants, err := h.service.ListTenants(ctx)
	if err != nil {
		c.Error(err)
		return
	}

	items := make([]*dto.TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		items = append(items, dto.ToTenantResponse(t))
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}
