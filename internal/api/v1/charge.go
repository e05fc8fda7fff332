package v1

import (
	"net/http"

	"github.com/dojobill/dojobill/internal/api/dto"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/service"
	"github.com/gin-gonic/gin"
)

type ChargeHandler struct {
	ledger service.LedgerService
	log    *logger.Logger
}

func NewChargeHandler(ledger service.LedgerService, log *logger.Logger) *ChargeHandler {
	return &ChargeHandler{ledger: ledger, log: log}
}

func (h *ChargeHandler) GetCharge(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant_id")
	id := c.Param("id")

	ch, err := h.ledger.Get(ctx, tenantID, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ToChargeResponse(ch))
}

func (h *ChargeHandler) ListContractCharges(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := c.Param("tenant_id")
	contractID := c.Param("contract_id")

	charges, err := h.ledger.ListContractCharges(ctx, tenantID, contractID)
	if err != nil {
		h.log.Errorw("failed to list contract charges",
			"tenant_id", tenantID,
			"contract_id", contractID,
			"error", err)
		c.Error(err)
		return
	}

	items := dto.ToChargeResponses(charges)
	c.JSON(http.StatusOK, dto.ListChargesResponse{Items: items, Total: len(items)})
}
