package ledger_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/StockSync-api/internal/application/ledger"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture compartido por los tests del ledger: un comercio con dos ubicaciones
// y un producto, sobre los repositorios en memoria. Todo el stock inicial entra
// por el propio ledger (receipt), nunca escribiendo la caché directo.
// ──────────────────────────────────────────────────────────────────────────────

const (
	testMerchantID = "11111111-1111-1111-1111-111111111111"
	testProductID  = "22222222-2222-2222-2222-222222222201"
	testTiendaID   = "33333333-3333-3333-3333-333333333301"
	testBodegaID   = "33333333-3333-3333-3333-333333333302"
)

type fixture struct {
	store    *memory.Store
	alerts   *memory.AlertRecorder
	appender *ledger.AppendMovementUseCase
	transfer *ledger.TransferUseCase
	alloc    *ledger.AllocationUseCase
	queries  *ledger.QueryUseCase
	rebuild  *ledger.RebuildUseCase

	refSeq int // para claves de idempotencia únicas en los seeds
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	alerts := memory.NewAlertRecorder()
	tx := memory.NewTxRunner(store)
	movRepo := memory.NewMovementRepo(store)
	levelRepo := memory.NewLevelRepo(store)
	productRepo := memory.NewProductRepo(store)
	locationRepo := memory.NewLocationRepo(store)
	snapRepo := memory.NewSnapshotRepo(store)
	plRepo := memory.NewProductLocationRepo(store)
	identRepo := memory.NewIdentifierRepo(store)

	f := &fixture{
		store:  store,
		alerts: alerts,
		appender: ledger.NewAppendMovementUseCase(
			tx, movRepo, levelRepo, productRepo, locationRepo, snapRepo, plRepo, identRepo, alerts),
		transfer: ledger.NewTransferUseCase(
			tx, movRepo, levelRepo, productRepo, locationRepo, snapRepo, plRepo, identRepo, alerts),
		alloc:   ledger.NewAllocationUseCase(tx),
		queries: ledger.NewQueryUseCase(movRepo, levelRepo),
		rebuild: ledger.NewRebuildUseCase(tx, movRepo, levelRepo),
	}

	ctx := context.Background()
	require.NoError(t, memory.NewMerchantRepo(store).Create(ctx, &entity.Merchant{
		ID: testMerchantID, Name: "Comercio Demo", Active: true,
	}))
	require.NoError(t, locationRepo.Create(ctx, &entity.Location{
		ID: testTiendaID, MerchantID: testMerchantID, Name: "Tienda Centro", Active: true,
	}))
	require.NoError(t, locationRepo.Create(ctx, &entity.Location{
		ID: testBodegaID, MerchantID: testMerchantID, Name: "Bodega Norte", Active: true,
	}))
	require.NoError(t, productRepo.Create(ctx, &entity.Product{
		ID:         testProductID,
		MerchantID: testMerchantID,
		Name:       "Café Orgánico 500g",
		UnitCost:   decimal.NewFromInt(8000),
		UnitPrice:  decimal.NewFromInt(15000),
		Active:     true,
	}))
	return f
}

// receive ingresa stock por el ledger con una clave de idempotencia única.
func (f *fixture) receive(t *testing.T, locationID string, qty int64) *ledger.AppendResult {
	t.Helper()
	f.refSeq++
	res, err := f.appender.Append(context.Background(), ledger.AppendInput{
		MerchantID: testMerchantID,
		ProductID:  testProductID,
		LocationID: locationID,
		QtyChange:  qty,
		Reason:     entity.ReasonReceipt,
		RefType:    "grn",
		RefID:      fmt.Sprintf("grn-%03d", f.refSeq),
		CreatedBy:  "test",
	})
	require.NoError(t, err, "el receipt de seed no debe fallar")
	require.False(t, res.Duplicate)
	return res
}

// level lee el nivel vigente del par.
func (f *fixture) level(t *testing.T, locationID string) *entity.StockLevel {
	t.Helper()
	level, err := f.queries.GetLevel(context.Background(), testProductID, locationID)
	require.NoError(t, err)
	return level
}

// movements lista la historia completa del par en orden de replay.
func (f *fixture) movements(t *testing.T, locationID string) []*entity.StockMovement {
	t.Helper()
	movs, err := f.queries.ListMovements(context.Background(), testProductID, locationID, nil, nil, 0, 0)
	require.NoError(t, err)
	return movs
}

// dayUTC normaliza un instante a su fecha calendario UTC.
func dayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
