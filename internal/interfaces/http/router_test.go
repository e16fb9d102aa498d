package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appanalytics "github.com/jhoicas/StockSync-api/internal/application/analytics"
	"github.com/jhoicas/StockSync-api/internal/application/dto"
	"github.com/jhoicas/StockSync-api/internal/application/identity"
	"github.com/jhoicas/StockSync-api/internal/application/ledger"
	"github.com/jhoicas/StockSync-api/internal/application/snapshot"
	appsync "github.com/jhoicas/StockSync-api/internal/application/sync"
	"github.com/jhoicas/StockSync-api/internal/application/usecase"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/StockSync-api/internal/interfaces/http"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tests de la API sobre la app Fiber completa (router + middleware + handlers),
// con los casos de uso reales cableados a los repositorios en memoria.
// ──────────────────────────────────────────────────────────────────────────────

const (
	apiMerchantID = "11111111-1111-1111-1111-111111111141"
	apiProductID  = "22222222-2222-2222-2222-222222222241"
	apiTiendaID   = "33333333-3333-3333-3333-333333333341"
)

// buildTestApp arma la app con todas las rutas y un catálogo mínimo sembrado.
func buildTestApp(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	alerts := memory.NewAlertRecorder()
	log := logger.NewNop()

	tx := memory.NewTxRunner(store)
	merchantRepo := memory.NewMerchantRepo(store)
	locationRepo := memory.NewLocationRepo(store)
	productRepo := memory.NewProductRepo(store)
	identRepo := memory.NewIdentifierRepo(store)
	plRepo := memory.NewProductLocationRepo(store)
	movRepo := memory.NewMovementRepo(store)
	levelRepo := memory.NewLevelRepo(store)
	snapRepo := memory.NewSnapshotRepo(store)
	cursorRepo := memory.NewCursorRepo(store)
	unmatchedRepo := memory.NewUnmatchedRepo(store)

	settings := appsync.Settings{}
	appendUC := ledger.NewAppendMovementUseCase(
		tx, movRepo, levelRepo, productRepo, locationRepo, snapRepo, plRepo, identRepo, alerts)
	transferUC := ledger.NewTransferUseCase(
		tx, movRepo, levelRepo, productRepo, locationRepo, snapRepo, plRepo, identRepo, alerts)
	resolverUC := identity.NewResolverUseCase(identRepo, productRepo, unmatchedRepo, alerts, false, log)
	cursorMgr := appsync.NewCursorManager(cursorRepo, merchantRepo, locationRepo, alerts, settings, log)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		MerchantUC:  usecase.NewMerchantUseCase(merchantRepo),
		LocationUC:  usecase.NewLocationUseCase(locationRepo),
		ProductUC:   usecase.NewProductUseCase(productRepo, identRepo, plRepo, levelRepo, locationRepo),
		AppendUC:    appendUC,
		TransferUC:  transferUC,
		AllocUC:     ledger.NewAllocationUseCase(tx),
		QueryUC:     ledger.NewQueryUseCase(movRepo, levelRepo),
		RebuildUC:   ledger.NewRebuildUseCase(tx, movRepo, levelRepo),
		SnapshotUC:  snapshot.NewCloseDayUseCase(movRepo, snapRepo, productRepo, locationRepo, 90),
		CursorMgr:   cursorMgr,
		SyncWorker:  appsync.NewWorker(cursorMgr, resolverUC, appendUC, appsync.SourceRegistry{}, settings, log),
		ReconcileUC: identity.NewReconcileUseCase(tx, unmatchedRepo, productRepo, locationRepo, log),
		DashboardUC: appanalytics.NewDashboardUseCase(memory.NewAnalyticsRepo(store)),
		Log:         log,
	})

	ctx := context.Background()
	require.NoError(t, merchantRepo.Create(ctx, &entity.Merchant{
		ID: apiMerchantID, Name: "Comercio Demo", Active: true,
	}))
	require.NoError(t, locationRepo.Create(ctx, &entity.Location{
		ID: apiTiendaID, MerchantID: apiMerchantID, Name: "Tienda Centro", Active: true,
	}))
	require.NoError(t, productRepo.Create(ctx, &entity.Product{
		ID:         apiProductID,
		MerchantID: apiMerchantID,
		Name:       "Café Orgánico 500g",
		UnitCost:   decimal.NewFromInt(8000),
		UnitPrice:  decimal.NewFromInt(15000),
		Active:     true,
	}))
	return app
}

// doJSON ejecuta una petición con cuerpo JSON y la cabecera del comercio.
func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Merchant-ID", apiMerchantID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// decodeBody decodifica el cuerpo JSON de la respuesta en out.
func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out), "cuerpo inesperado: %s", raw)
}

func TestAPI_MerchantHeaderObligatoria(t *testing.T) {
	app := buildTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/stock/levels?location_id="+apiTiendaID, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body dto.ErrorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "MERCHANT_REQUIRED", body.Code)
}

func TestAPI_AppendMovementIdempotente(t *testing.T) {
	app := buildTestApp(t)

	// Seed: una recepción de 10 unidades
	resp := doJSON(t, app, http.MethodPost, "/api/stock/movements", dto.AppendMovementRequest{
		ProductID:  apiProductID,
		LocationID: apiTiendaID,
		QtyChange:  10,
		Reason:     "receipt",
		RefType:    "grn",
		RefID:      "grn-001",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// La venta O1 descuenta 3 → 7
	sale := dto.AppendMovementRequest{
		ProductID:  apiProductID,
		LocationID: apiTiendaID,
		QtyChange:  -3,
		Reason:     "sale",
		RefType:    "order",
		RefID:      "O1",
	}
	resp = doJSON(t, app, http.MethodPost, "/api/stock/movements", sale)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var first dto.AppendMovementResponse
	decodeBody(t, resp, &first)
	assert.False(t, first.Duplicate)
	require.NotNil(t, first.Level)
	assert.EqualValues(t, 7, first.Level.OnHand)

	// La re-entrega de O1 responde 200 con duplicate=true y el balance intacto
	resp = doJSON(t, app, http.MethodPost, "/api/stock/movements", sale)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var second dto.AppendMovementResponse
	decodeBody(t, resp, &second)
	assert.True(t, second.Duplicate)
	require.NotNil(t, second.Movement)
	assert.Equal(t, first.Movement.ID, second.Movement.ID, "devuelve la fila original")

	resp = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/stock/levels/%s/%s", apiProductID, apiTiendaID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var level dto.StockLevelDTO
	decodeBody(t, resp, &level)
	assert.EqualValues(t, 7, level.OnHand)
}

func TestAPI_ValidacionYMapeoDeErrores(t *testing.T) {
	app := buildTestApp(t)

	t.Run("qty_change cero es 400", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/stock/movements", dto.AppendMovementRequest{
			ProductID:  apiProductID,
			LocationID: apiTiendaID,
			QtyChange:  0,
			Reason:     "sale",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("producto inexistente es 404", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/stock/movements", dto.AppendMovementRequest{
			ProductID:  uuid.New().String(),
			LocationID: apiTiendaID,
			QtyChange:  5,
			Reason:     "receipt",
		})
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("reservar más que lo disponible es 409", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/stock/allocations", dto.AllocationRequest{
			ProductID:  apiProductID,
			LocationID: apiTiendaID,
			Qty:        999,
		})
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

		var body dto.ErrorResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "INSUFFICIENT_AVAILABLE", body.Code)
	})
}

func TestAPI_CierreDeDiaIdempotente(t *testing.T) {
	app := buildTestApp(t)

	ayer := time.Now().UTC().AddDate(0, 0, -1)
	occurred := time.Date(ayer.Year(), ayer.Month(), ayer.Day(), 10, 0, 0, 0, time.UTC)
	resp := doJSON(t, app, http.MethodPost, "/api/stock/movements", dto.AppendMovementRequest{
		ProductID:  apiProductID,
		LocationID: apiTiendaID,
		QtyChange:  20,
		Reason:     "receipt",
		RefType:    "grn",
		RefID:      "grn-ayer",
		OccurredAt: &occurred,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := dto.CloseDayRequest{
		LocationID: apiTiendaID,
		Date:       occurred.Format("2006-01-02"),
	}
	resp = doJSON(t, app, http.MethodPost, "/api/snapshots/close", body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Re-cerrar el mismo día no duplica: la serie sigue teniendo una fila
	resp = doJSON(t, app, http.MethodPost, "/api/snapshots/close", body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf(
		"/api/snapshots/?product_id=%s&location_id=%s&from=%s&to=%s",
		apiProductID, apiTiendaID, body.Date, body.Date), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var series dto.SnapshotRangeResponse
	decodeBody(t, resp, &series)
	require.Len(t, series.Items, 1)
	assert.EqualValues(t, 0, series.Items[0].OpeningQty)
	assert.EqualValues(t, 20, series.Items[0].ClosingQty)
}

func TestAPI_DashboardOverview(t *testing.T) {
	app := buildTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/stock/movements", dto.AppendMovementRequest{
		ProductID:  apiProductID,
		LocationID: apiTiendaID,
		QtyChange:  12,
		Reason:     "receipt",
		RefType:    "grn",
		RefID:      "grn-dash",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/dashboard/overview", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var overview dto.DashboardOverviewDTO
	decodeBody(t, resp, &overview)
	require.Len(t, overview.StockValue, 1)
	assert.EqualValues(t, 12, overview.StockValue[0].UnitsOnHand)
	assert.EqualValues(t, 1, overview.MovementsLast24h)
}
