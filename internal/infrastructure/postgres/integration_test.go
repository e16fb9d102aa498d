package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/StockSync-api/internal/application/ledger"
	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/infrastructure/memory"
	pg "github.com/jhoicas/StockSync-api/internal/infrastructure/postgres"
	"github.com/jhoicas/StockSync-api/pkg/config"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tests de integración contra PostgreSQL real (testcontainers). Verifican lo
// que los fakes en memoria no pueden: el índice único de idempotencia como
// respaldo, la frontera transaccional del append y los UPDATE condicionados
// del lease. Se saltan si TEST_CONTAINERS no está definido.
// ──────────────────────────────────────────────────────────────────────────────

// startTestPool levanta un contenedor de postgres, aplica el schema y devuelve
// el pool. El contenedor se destruye al terminar el test.
func startTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("TEST_CONTAINERS") == "" {
		t.Skip("TEST_CONTAINERS no definido; test de integración saltado")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("stocksync_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "el contenedor de postgres debe arrancar")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pg.NewPool(ctx, config.DBConfig{DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.ApplySchema(ctx, pool))
	return pool
}

// seedCatalog inserta comercio, ubicación y producto de prueba, y devuelve sus IDs.
func seedCatalog(t *testing.T, pool *pgxpool.Pool) (merchantID, locationID, productID string) {
	t.Helper()
	ctx := context.Background()
	merchantID = uuid.New().String()
	locationID = uuid.New().String()
	productID = uuid.New().String()

	require.NoError(t, pg.NewMerchantRepository(pool).Create(ctx, &entity.Merchant{
		ID: merchantID, Name: "Comercio Integración", Active: true,
	}))
	require.NoError(t, pg.NewLocationRepository(pool).Create(ctx, &entity.Location{
		ID: locationID, MerchantID: merchantID, Name: "Tienda Centro", Active: true,
	}))
	require.NoError(t, pg.NewProductRepository(pool).Create(ctx, &entity.Product{
		ID:         productID,
		MerchantID: merchantID,
		Name:       "Café Orgánico 500g",
		UnitCost:   decimal.NewFromInt(8000),
		UnitPrice:  decimal.NewFromInt(15000),
		Active:     true,
	}))
	return merchantID, locationID, productID
}

func TestIntegracion_AppendIdempotenteYLedgerConsistente(t *testing.T) {
	pool := startTestPool(t)
	merchantID, locationID, productID := seedCatalog(t, pool)
	ctx := context.Background()

	movRepo := pg.NewStockMovementRepository(pool)
	levelRepo := pg.NewStockLevelRepository(pool)
	appender := ledger.NewAppendMovementUseCase(
		pg.NewTxRunner(pool), movRepo, levelRepo,
		pg.NewProductRepository(pool), pg.NewLocationRepository(pool),
		pg.NewStockSnapshotRepository(pool), pg.NewProductLocationRepository(pool),
		pg.NewProductIdentifierRepository(pool), memory.NewAlertRecorder(),
	)

	_, err := appender.Append(ctx, ledger.AppendInput{
		MerchantID: merchantID,
		ProductID:  productID,
		LocationID: locationID,
		QtyChange:  10,
		Reason:     entity.ReasonReceipt,
		RefType:    "grn",
		RefID:      "grn-001",
		CreatedBy:  "test",
	})
	require.NoError(t, err)

	sale := ledger.AppendInput{
		MerchantID: merchantID,
		ProductID:  productID,
		LocationID: locationID,
		QtyChange:  -3,
		Reason:     entity.ReasonSale,
		RefType:    "order",
		RefID:      "O1",
		CreatedBy:  "test",
	}
	first, err := appender.Append(ctx, sale)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.EqualValues(t, 7, first.Level.OnHand)

	// La re-entrega del mismo evento es un no-op que devuelve la fila original
	second, err := appender.Append(ctx, sale)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Movement.ID, second.Movement.ID)

	level, err := levelRepo.Get(ctx, productID, locationID)
	require.NoError(t, err)
	assert.EqualValues(t, 7, level.OnHand)

	movs, err := movRepo.ListByProductLocation(ctx, productID, locationID, nil, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, movs, 2, "la venta re-entregada no genera una segunda fila")

	// Replay del ledger == caché: la suma de qty_change reproduce on_hand
	totals, err := movRepo.ReplayTotals(ctx, productID, locationID)
	require.NoError(t, err)
	assert.EqualValues(t, 7, totals.OnHand)
}

func TestIntegracion_IndiceUnicoComoRespaldo(t *testing.T) {
	pool := startTestPool(t)
	merchantID, locationID, productID := seedCatalog(t, pool)
	ctx := context.Background()

	movRepo := pg.NewStockMovementRepository(pool)
	base := entity.StockMovement{
		MerchantID:   merchantID,
		ProductID:    productID,
		LocationID:   locationID,
		QtyChange:    5,
		BalanceAfter: 5,
		Reason:       entity.ReasonSync,
		RefType:      "pos_ticket",
		RefID:        "tk-dup",
		OccurredAt:   time.Now().UTC(),
		CreatedAt:    time.Now().UTC(),
	}

	first := base
	require.NoError(t, movRepo.Create(ctx, &first))

	// Un insert directo que esquive el check-and-insert choca con el índice único
	dup := base
	err := movRepo.Create(ctx, &dup)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestIntegracion_SnapshotUpsertPorClavePrimaria(t *testing.T) {
	pool := startTestPool(t)
	merchantID, locationID, productID := seedCatalog(t, pool)
	ctx := context.Background()

	snapRepo := pg.NewStockSnapshotRepository(pool)
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	snap := &entity.StockSnapshotDaily{
		ProductID:    productID,
		LocationID:   locationID,
		MerchantID:   merchantID,
		SnapshotDate: day,
		OpeningQty:   20,
		InQty:        5,
		OutQty:       8,
		ClosingQty:   17,
		AverageCost:  decimal.NewFromInt(8000),
		TotalValue:   decimal.NewFromInt(136000),
	}
	require.NoError(t, snapRepo.Upsert(ctx, snap))

	// Re-cerrar el día sobrescribe la misma fila, nunca duplica
	snap.InQty = 6
	snap.ClosingQty = 18
	require.NoError(t, snapRepo.Upsert(ctx, snap))

	rows, err := snapRepo.Range(ctx, productID, locationID, day, day)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 18, rows[0].ClosingQty)
}

func TestIntegracion_LeaseDeCursorConUpdateCondicionado(t *testing.T) {
	pool := startTestPool(t)
	merchantID, _, _ := seedCatalog(t, pool)
	ctx := context.Background()

	cursorRepo := pg.NewSyncCursorRepository(pool)
	now := time.Now().UTC()
	cursor := &entity.SyncCursor{
		ID:            uuid.New().String(),
		MerchantID:    merchantID,
		Channel:       entity.ChannelPOS,
		Entity:        entity.SyncEntityInventory,
		Status:        entity.CursorStatusIdle,
		NextSyncAt:    &now,
		BackfillState: entity.BackfillNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, cursorRepo.Create(ctx, cursor))

	_, err := cursorRepo.Acquire(ctx, cursor.ID, uuid.New().String(), time.Minute)
	require.NoError(t, err)

	// El segundo acquire pierde contra el lease vigente
	_, err = cursorRepo.Acquire(ctx, cursor.ID, uuid.New().String(), time.Minute)
	assert.ErrorIs(t, err, domain.ErrAlreadyRunning)
}

func TestIntegracion_ReplayDeTransitoNuncaNegativo(t *testing.T) {
	pool := startTestPool(t)
	merchantID, destinoID, productID := seedCatalog(t, pool)
	ctx := context.Background()

	origenID := uuid.New().String()
	require.NoError(t, pg.NewLocationRepository(pool).Create(ctx, &entity.Location{
		ID: origenID, MerchantID: merchantID, Name: "Bodega Norte", Active: true,
	}))

	// Recepción huérfana: el transfer_in existe pero el despacho nunca se
	// registró. El pliegue del tránsito debe pisar en cero, igual que el fake
	// en memoria y que el piso de AdjustInTransit.
	movRepo := pg.NewStockMovementRepository(pool)
	require.NoError(t, movRepo.Create(ctx, &entity.StockMovement{
		ID:                    uuid.New().String(),
		MerchantID:            merchantID,
		ProductID:             productID,
		LocationID:            destinoID,
		QtyChange:             6,
		BalanceAfter:          6,
		Reason:                entity.ReasonTransferIn,
		RefType:               "transfer",
		RefID:                 "tr-huerfana",
		CounterpartLocationID: origenID,
		OccurredAt:            time.Now().UTC(),
		CreatedAt:             time.Now().UTC(),
	}))

	totals, err := movRepo.ReplayTotals(ctx, productID, destinoID)
	require.NoError(t, err)
	assert.EqualValues(t, 6, totals.OnHand)
	assert.Zero(t, totals.InTransit, "la recepción sin despacho no deriva tránsito negativo")
}
