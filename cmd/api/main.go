package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appanalytics "github.com/jhoicas/StockSync-api/internal/application/analytics"
	"github.com/jhoicas/StockSync-api/internal/application/identity"
	"github.com/jhoicas/StockSync-api/internal/application/ledger"
	"github.com/jhoicas/StockSync-api/internal/application/snapshot"
	appsync "github.com/jhoicas/StockSync-api/internal/application/sync"
	"github.com/jhoicas/StockSync-api/internal/application/usecase"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/infrastructure/channel"
	"github.com/jhoicas/StockSync-api/internal/infrastructure/kafka"
	"github.com/jhoicas/StockSync-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/StockSync-api/internal/interfaces/http"
	"github.com/jhoicas/StockSync-api/pkg/config"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Repositorios (el pool satisface Querier; las tx usan TxRunner)
	merchantRepo := postgres.NewMerchantRepository(pool)
	locationRepo := postgres.NewLocationRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	identRepo := postgres.NewProductIdentifierRepository(pool)
	plRepo := postgres.NewProductLocationRepository(pool)
	levelRepo := postgres.NewStockLevelRepository(pool)
	movRepo := postgres.NewStockMovementRepository(pool)
	snapRepo := postgres.NewStockSnapshotRepository(pool)
	cursorRepo := postgres.NewSyncCursorRepository(pool)
	unmatchedRepo := postgres.NewUnmatchedItemRepository(pool)
	analyticsRepo := postgres.NewAnalyticsRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Alertas operativas (Kafka); sin brokers queda deshabilitado
	alerts := kafka.NewAlertPublisher(cfg.Alerts.Brokers, cfg.Alerts.Topic, log)
	defer alerts.Close()

	// Ledger
	appendUC := ledger.NewAppendMovementUseCase(
		txRunner, movRepo, levelRepo, productRepo, locationRepo, snapRepo, plRepo, identRepo, alerts,
	)
	transferUC := ledger.NewTransferUseCase(
		txRunner, movRepo, levelRepo, productRepo, locationRepo, snapRepo, plRepo, identRepo, alerts,
	)
	allocUC := ledger.NewAllocationUseCase(txRunner)
	queryUC := ledger.NewQueryUseCase(movRepo, levelRepo)
	rebuildUC := ledger.NewRebuildUseCase(txRunner, movRepo, levelRepo)

	// Snapshots diarios
	closeDayUC := snapshot.NewCloseDayUseCase(
		movRepo, snapRepo, productRepo, locationRepo, cfg.Snapshot.RecomputeLookbackDays,
	)
	scheduler := snapshot.NewScheduler(
		closeDayUC, locationRepo,
		time.Duration(cfg.Snapshot.SchedulerIntervalMinutes)*time.Minute, log,
	)

	// Identidad y reconciliación
	resolverUC := identity.NewResolverUseCase(
		identRepo, productRepo, unmatchedRepo, alerts, cfg.Sync.FuzzyMatch, log,
	)
	reconcileUC := identity.NewReconcileUseCase(txRunner, unmatchedRepo, productRepo, locationRepo, log)

	// Sincronización con canales externos
	syncSettings := appsync.Settings{
		PollInterval: time.Duration(cfg.Sync.PollIntervalSeconds) * time.Second,
		BatchSize:    cfg.Sync.BatchSize,
		LeaseTTL:     time.Duration(cfg.Sync.LeaseTTLSeconds) * time.Second,
		BackoffBase:  time.Duration(cfg.Sync.BackoffBaseSeconds) * time.Second,
		BackoffMax:   time.Duration(cfg.Sync.BackoffMaxSeconds) * time.Second,
	}
	sources := appsync.SourceRegistry{}
	if cfg.Channels.POS.BaseURL != "" {
		sources[entity.ChannelPOS] = channel.NewHTTPSource(cfg.Channels.POS.BaseURL, cfg.Channels.POS.APIKey)
	}
	if cfg.Channels.Marketplace.BaseURL != "" {
		sources[entity.ChannelMarketplace] = channel.NewHTTPSource(cfg.Channels.Marketplace.BaseURL, cfg.Channels.Marketplace.APIKey)
	}
	cursorMgr := appsync.NewCursorManager(cursorRepo, merchantRepo, locationRepo, alerts, syncSettings, log)
	syncWorker := appsync.NewWorker(cursorMgr, resolverUC, appendUC, sources, syncSettings, log)
	channelSvc := usecase.NewChannelService(merchantRepo)
	poller := appsync.NewPoller(cursorMgr, syncWorker, channelSvc, sources, syncSettings, log)

	// Catálogo y dashboard
	merchantUC := usecase.NewMerchantUseCase(merchantRepo)
	locationUC := usecase.NewLocationUseCase(locationRepo)
	productUC := usecase.NewProductUseCase(productRepo, identRepo, plRepo, levelRepo, locationRepo)
	dashboardUC := appanalytics.NewDashboardUseCase(analyticsRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "StockSync API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		MerchantUC:  merchantUC,
		LocationUC:  locationUC,
		ProductUC:   productUC,
		AppendUC:    appendUC,
		TransferUC:  transferUC,
		AllocUC:     allocUC,
		QueryUC:     queryUC,
		RebuildUC:   rebuildUC,
		SnapshotUC:  closeDayUC,
		CursorMgr:   cursorMgr,
		SyncWorker:  syncWorker,
		ReconcileUC: reconcileUC,
		DashboardUC: dashboardUC,
		Log:         log,
	})

	// Procesos de fondo: cierre diario de snapshots y poller de sincronización
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go scheduler.Run(bgCtx)
	go poller.Run(bgCtx)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	bgCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
