package main

import (
	"context"
	"time"

	"github.com/dojobill/dojobill/internal/api"
	"github.com/dojobill/dojobill/internal/api/cron"
	v1 "github.com/dojobill/dojobill/internal/api/v1"
	"github.com/dojobill/dojobill/internal/config"
	"github.com/dojobill/dojobill/internal/domain/charge"
	"github.com/dojobill/dojobill/internal/domain/collectionrun"
	"github.com/dojobill/dojobill/internal/domain/directory"
	"github.com/dojobill/dojobill/internal/domain/dunning"
	"github.com/dojobill/dojobill/internal/domain/mandate"
	"github.com/dojobill/dojobill/internal/domain/tenant"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/notify"
	"github.com/dojobill/dojobill/internal/postgres"
	"github.com/dojobill/dojobill/internal/pubsub"
	pubsubMemory "github.com/dojobill/dojobill/internal/pubsub/memory"
	"github.com/dojobill/dojobill/internal/repository"
	"github.com/dojobill/dojobill/internal/service"
	"github.com/dojobill/dojobill/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

func init() {
	// UTC everywhere; billing dates must not drift with the host timezone
	time.Local = time.UTC
}

func main() {
	// .env is optional; real deployments configure through the environment
	_ = godotenv.Load()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			postgres.NewDB,
			pubsubMemory.NewPubSub,
			notify.NewPublisher,
			repository.NewTenantRepository,
			repository.NewMandateRepository,
			repository.NewChargeRepository,
			repository.NewCollectionRunRepository,
			repository.NewDunningRepository,
			repository.NewDirectory,
			service.NewTenantLockRegistry,
			newServiceParams,
			service.NewTenantService,
			service.NewMandateService,
			service.NewLedgerService,
			service.NewScheduleService,
			service.NewCollectionRunService,
			service.NewDunningService,
			service.NewReconcileService,
			newHandlers,
			newRouter,
		),
		fx.Invoke(startServer),
	)

	app.Run()
}

type serviceDeps struct {
	fx.In

	Config      *config.Configuration
	Logger      *logger.Logger
	Directory   directory.Directory
	Notify      notify.Publisher
	TenantRepo  tenant.Repository
	MandateRepo mandate.Repository
	ChargeRepo  charge.Repository
	RunRepo     collectionrun.Repository
	DunningRepo dunning.Repository
	TenantLocks *service.TenantLockRegistry
}

func newServiceParams(deps serviceDeps) service.ServiceParams {
	return service.ServiceParams{
		Logger:      deps.Logger,
		Config:      deps.Config,
		Directory:   deps.Directory,
		Notify:      deps.Notify,
		TenantRepo:  deps.TenantRepo,
		MandateRepo: deps.MandateRepo,
		ChargeRepo:  deps.ChargeRepo,
		RunRepo:     deps.RunRepo,
		DunningRepo: deps.DunningRepo,
		TenantLocks: deps.TenantLocks,
	}
}

type handlerDeps struct {
	fx.In

	Config    *config.Configuration
	Logger    *logger.Logger
	Tenants   service.TenantService
	Mandates  service.MandateService
	Ledger    service.LedgerService
	Schedule  service.ScheduleService
	Runs      service.CollectionRunService
	Dunning   service.DunningService
	Reconcile service.ReconcileService
}

func newHandlers(deps handlerDeps) api.Handlers {
	return api.Handlers{
		Health:    v1.NewHealthHandler(deps.Logger),
		Tenant:    v1.NewTenantHandler(deps.Tenants, deps.Logger),
		Mandate:   v1.NewMandateHandler(deps.Mandates, deps.Logger),
		Charge:    v1.NewChargeHandler(deps.Ledger, deps.Logger),
		Run:       v1.NewCollectionRunHandler(deps.Runs, deps.Logger),
		Dunning:   v1.NewDunningHandler(deps.Dunning, deps.Logger),
		Reconcile: v1.NewReconcileHandler(deps.Reconcile, deps.Logger),
		Cron: cron.NewBillingHandler(
			deps.Tenants,
			deps.Schedule,
			deps.Runs,
			deps.Mandates,
			deps.Ledger,
			deps.Dunning,
			deps.Config,
			deps.Logger,
		),
	}
}

func newRouter(cfg *config.Configuration, handlers api.Handlers, log *logger.Logger) *gin.Engine {
	if cfg.Deployment.Mode == types.ModeAPI {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.NewRouter(handlers, log)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	db *postgres.DB,
	pubSub pubsub.PubSub,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server")
			if err := pubSub.Close(); err != nil {
				log.Errorw("failed to close pubsub", "error", err)
			}
			db.Close()
			return nil
		},
	})
}
