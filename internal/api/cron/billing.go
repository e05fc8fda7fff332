package cron

import (
	"context"
	"net/http"
	"time"

	"github.com/dojobill/dojobill/internal/config"
	ierr "github.com/dojobill/dojobill/internal/errors"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/service"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/gin-gonic/gin"
)

// BillingHandler exposes the scheduled billing jobs as HTTP endpoints. Each
// job sweeps every tenant independently; one failing tenant is reported and
// skipped, never allowed to abort the sweep.
type BillingHandler struct {
	tenants  service.TenantService
	schedule service.ScheduleService
	runs     service.CollectionRunService
	mandates service.MandateService
	ledger   service.LedgerService
	dunning  service.DunningService
	config   *config.Configuration
	logger   *logger.Logger
}

func NewBillingHandler(
	tenants service.TenantService,
	schedule service.ScheduleService,
	runs service.CollectionRunService,
	mandates service.MandateService,
	ledger service.LedgerService,
	dunning service.DunningService,
	config *config.Configuration,
	logger *logger.Logger,
) *BillingHandler {
	return &BillingHandler{
		tenants:  tenants,
		schedule: schedule,
		runs:     runs,
		mandates: mandates,
		ledger:   ledger,
		dunning:  dunning,
		config:   config,
		logger:   logger,
	}
}

// cronContext attributes unattended writes to the system user
func cronContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if types.GetUserID(ctx) == "" {
		ctx = types.SetUserID(ctx, types.DefaultUserID)
	}
	return ctx
}

// parseAsOf reads the optional as_of query parameter, defaulting to now
func parseAsOf(c *gin.Context) (time.Time, error) {
	raw := c.Query("as_of")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	asOf, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, ierr.WithError(err).
			WithHint("as_of must be in YYYY-MM-DD form").
			WithReportableDetails(map[string]any{
				"as_of": raw,
			}).
			Mark(ierr.ErrValidation)
	}
	return asOf, nil
}

// sweep runs one job for every tenant and collects per-tenant results
func (h *BillingHandler) sweep(c *gin.Context, job string, fn func(ctx context.Context, tenantID string) (any, error)) {
	ctx := cronContext(c)

	tenants, err := h.tenants.ListTenants(ctx)
	if err != nil {
		h.logger.Errorw("failed to list tenants", "job", job, "error", err)
		c.Error(err)
		return
	}

	results := make(map[string]any, len(tenants))
	failures := make(map[string]string)
	for _, t := range tenants {
		out, err := fn(ctx, t.ID)
		if err != nil {
			h.logger.Errorw("tenant sweep failed",
				"job", job,
				"tenant_id", t.ID,
				"error", err)
			failures[t.ID] = err.Error()
			continue
		}
		results[t.ID] = out
	}

	h.logger.Infow("cron sweep completed",
		"job", job,
		"tenants", len(tenants),
		"failed", len(failures))

	c.JSON(http.StatusOK, gin.H{
		"job":      job,
		"tenants":  results,
		"failures": failures,
	})
}

// MaterializeCharges derives missing charges from active contracts
func (h *BillingHandler) MaterializeCharges(c *gin.Context) {
	asOf, err := parseAsOf(c)
	if err != nil {
		c.Error(err)
		return
	}
	h.sweep(c, "materialize_charges", func(ctx context.Context, tenantID string) (any, error) {
		return h.schedule.MaterializeTenant(ctx, tenantID, asOf)
	})
}

// BuildCollectionRuns batches due charges into one run per tenant. The
// cutoff is placed one lead time ahead so the bank file reaches the bank
// before the earliest due date in it.
func (h *BillingHandler) BuildCollectionRuns(c *gin.Context) {
	asOf, err := parseAsOf(c)
	if err != nil {
		c.Error(err)
		return
	}
	cutoff := asOf.AddDate(0, 0, h.config.Billing.LeadTimeDays)
	h.sweep(c, "build_collection_runs", func(ctx context.Context, tenantID string) (any, error) {
		run, summary, err := h.runs.BuildRun(ctx, tenantID, cutoff)
		if err != nil {
			return nil, err
		}
		return gin.H{"run_id": run.ID, "summary": summary}, nil
	})
}

// RunDunningTick advances every due dunning case one level
func (h *BillingHandler) RunDunningTick(c *gin.Context) {
	asOf, err := parseAsOf(c)
	if err != nil {
		c.Error(err)
		return
	}
	h.sweep(c, "dunning_tick", func(ctx context.Context, tenantID string) (any, error) {
		return h.dunning.Tick(ctx, tenantID, asOf)
	})
}

// ExpireStaleMandates expires mandates that were never activated
func (h *BillingHandler) ExpireStaleMandates(c *gin.Context) {
	asOf, err := parseAsOf(c)
	if err != nil {
		c.Error(err)
		return
	}
	h.sweep(c, "expire_stale_mandates", func(ctx context.Context, tenantID string) (any, error) {
		return h.mandates.ExpireStale(ctx, tenantID, asOf)
	})
}

// FlagOverdueSubmissions surfaces submitted charges past the callback SLA
func (h *BillingHandler) FlagOverdueSubmissions(c *gin.Context) {
	asOf, err := parseAsOf(c)
	if err != nil {
		c.Error(err)
		return
	}
	h.sweep(c, "flag_overdue_submissions", func(ctx context.Context, tenantID string) (any, error) {
		charges, err := h.ledger.FlagOverdueSubmissions(ctx, tenantID, asOf)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(charges))
		for _, ch := range charges {
			ids = append(ids, ch.ID)
		}
		return gin.H{"overdue": ids}, nil
	})
}
