package http

import (
	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/StockSync-api/internal/application/analytics"
	"github.com/jhoicas/StockSync-api/internal/application/identity"
	"github.com/jhoicas/StockSync-api/internal/application/ledger"
	"github.com/jhoicas/StockSync-api/internal/application/snapshot"
	appsync "github.com/jhoicas/StockSync-api/internal/application/sync"
	"github.com/jhoicas/StockSync-api/internal/application/usecase"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	MerchantUC  *usecase.MerchantUseCase
	LocationUC  *usecase.LocationUseCase
	ProductUC   *usecase.ProductUseCase
	AppendUC    *ledger.AppendMovementUseCase
	TransferUC  *ledger.TransferUseCase
	AllocUC     *ledger.AllocationUseCase
	QueryUC     *ledger.QueryUseCase
	RebuildUC   *ledger.RebuildUseCase
	SnapshotUC  *snapshot.CloseDayUseCase
	CursorMgr   *appsync.CursorManager
	SyncWorker  *appsync.Worker
	ReconcileUC *identity.ReconcileUseCase
	DashboardUC *appanalytics.DashboardUseCase
	Log         *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Merchants (administración, sin scoping por cabecera)
	merchants := api.Group("/merchants")
	merchantHandler := NewMerchantHandler(deps.MerchantUC)
	merchants.Post("/", merchantHandler.Create)
	merchants.Get("/", merchantHandler.List)
	merchants.Get("/:id", merchantHandler.GetByID)
	merchants.Put("/:id/channels", merchantHandler.UpsertChannel)
	merchants.Get("/:id/channels", merchantHandler.ListChannels)

	// Todo lo demás exige la cabecera X-Merchant-ID
	scoped := api.Group("/", MerchantMiddleware())

	// Locations
	locations := scoped.Group("/locations")
	locationHandler := NewLocationHandler(deps.LocationUC)
	locations.Post("/", locationHandler.Create)
	locations.Get("/", locationHandler.List)
	locations.Get("/:id", locationHandler.GetByID)
	locations.Put("/:id", locationHandler.Update)

	// Products y sus identificadores
	products := scoped.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", productHandler.Update)
	products.Delete("/:id", productHandler.Deactivate)
	products.Post("/:id/identifiers", productHandler.AddIdentifier)
	products.Get("/:id/identifiers", productHandler.ListIdentifiers)
	products.Post("/:id/identifiers/:identifierId/verify", productHandler.VerifyIdentifier)
	products.Put("/:id/locations", productHandler.UpsertLocation)
	products.Delete("/:id/locations/:locationId", productHandler.RemoveLocation)

	// Stock: ledger, niveles, reservas y transferencias
	stock := scoped.Group("/stock")
	stockHandler := NewStockHandler(deps.AppendUC, deps.TransferUC, deps.AllocUC, deps.QueryUC, deps.RebuildUC)
	stock.Post("/movements", stockHandler.AppendMovement)
	stock.Get("/movements", stockHandler.ListMovements)
	stock.Post("/stocktake", stockHandler.Stocktake)
	stock.Get("/levels", stockHandler.ListLevels)
	stock.Get("/levels/:productId/:locationId", stockHandler.GetLevel)
	stock.Get("/low-stock", stockHandler.LowStock)
	stock.Post("/allocations", stockHandler.Allocate)
	stock.Post("/allocations/release", stockHandler.ReleaseAllocation)
	stock.Post("/transfers", stockHandler.TransferImmediate)
	stock.Post("/transfers/dispatch", stockHandler.Dispatch)
	stock.Post("/transfers/receive", stockHandler.Receive)
	stock.Post("/rebuild", stockHandler.Rebuild)
	stock.Get("/verify", stockHandler.Verify)

	// Snapshots diarios
	snapshots := scoped.Group("/snapshots")
	snapshotHandler := NewSnapshotHandler(deps.SnapshotUC)
	snapshots.Post("/close", snapshotHandler.CloseDay)
	snapshots.Post("/recompute", snapshotHandler.Recompute)
	snapshots.Get("/", snapshotHandler.GetRange)

	// Cursores de sincronización
	syncGroup := scoped.Group("/sync")
	syncHandler := NewSyncHandler(deps.CursorMgr, deps.SyncWorker, deps.Log)
	syncGroup.Post("/cursors", syncHandler.Register)
	syncGroup.Get("/cursors", syncHandler.List)
	syncGroup.Get("/cursors/:id", syncHandler.GetByID)
	syncGroup.Post("/cursors/:id/run", syncHandler.Run)
	syncGroup.Post("/cursors/:id/backfill", syncHandler.StartBackfill)

	// Cola de reconciliación
	unmatched := scoped.Group("/unmatched")
	unmatchedHandler := NewUnmatchedHandler(deps.ReconcileUC)
	unmatched.Get("/", unmatchedHandler.List)
	unmatched.Get("/:id", unmatchedHandler.GetByID)
	unmatched.Post("/:id/resolve", unmatchedHandler.Resolve)

	// Dashboard
	dashboard := scoped.Group("/dashboard")
	dashboardHandler := NewDashboardHandler(deps.DashboardUC)
	dashboard.Get("/overview", dashboardHandler.GetOverview)
}
