package api

import (
	"github.com/dojobill/dojobill/internal/api/cron"
	v1 "github.com/dojobill/dojobill/internal/api/v1"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health    *v1.HealthHandler
	Tenant    *v1.TenantHandler
	Mandate   *v1.MandateHandler
	Charge    *v1.ChargeHandler
	Run       *v1.CollectionRunHandler
	Dunning   *v1.DunningHandler
	Reconcile *v1.ReconcileHandler
	Cron      *cron.BillingHandler
}

func NewRouter(handlers Handlers, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	cronGroup := router.Group("/cron")
	registerCronRoutes(cronGroup, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	router.POST("/tenants", handlers.Tenant.CreateTenant)
	router.GET("/tenants", handlers.Tenant.ListTenants)

	// everything below is scoped to one tenant; the partition guard in the
	// service layer rejects any object that does not belong to it
	tenants := router.Group("/tenants/:tenant_id")
	{
		tenants.GET("", handlers.Tenant.GetTenant)

		mandates := tenants.Group("/mandates")
		{
			mandates.POST("", handlers.Mandate.CreateMandate)
			mandates.GET("/:id", handlers.Mandate.GetMandate)
			mandates.POST("/:id/activate", handlers.Mandate.ActivateMandate)
			mandates.POST("/:id/revoke", handlers.Mandate.RevokeMandate)
		}

		charges := tenants.Group("/charges")
		{
			charges.GET("/:id", handlers.Charge.GetCharge)
		}
		tenants.GET("/contracts/:contract_id/charges", handlers.Charge.ListContractCharges)

		runs := tenants.Group("/runs")
		{
			runs.POST("", handlers.Run.BuildRun)
			runs.GET("/:id", handlers.Run.GetRun)
			runs.POST("/:id/submit", handlers.Run.SubmitRun)
			runs.POST("/:id/abort", handlers.Run.AbortRun)
			runs.POST("/:id/reconcile", handlers.Reconcile.ReconcileRun)
		}

		dunning := tenants.Group("/dunning")
		{
			dunning.GET("/:id", handlers.Dunning.GetCase)
			dunning.POST("/:id/resolve", handlers.Dunning.ResolveCase)
		}
	}
}

func registerCronRoutes(router *gin.RouterGroup, handlers Handlers) {
	router.POST("/charges/materialize", handlers.Cron.MaterializeCharges)
	router.POST("/charges/flag-overdue", handlers.Cron.FlagOverdueSubmissions)
	router.POST("/runs/build", handlers.Cron.BuildCollectionRuns)
	router.POST("/dunning/tick", handlers.Cron.RunDunningTick)
	router.POST("/mandates/expire", handlers.Cron.ExpireStaleMandates)
}
