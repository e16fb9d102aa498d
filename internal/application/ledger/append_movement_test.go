package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/StockSync-api/internal/application/ledger"
	"github.com/jhoicas/StockSync-api/internal/application/ports"
	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// TestAppend_VentaIdempotente es el escenario central del ledger: la misma
// venta entregada dos veces (retry del POS, redelivery del canal) produce UNA
// sola fila y el segundo intento devuelve la fila original con Duplicate=true.
// Si esto se rompe, cada retry duplica el descuento de stock.
// ──────────────────────────────────────────────────────────────────────────────

func TestAppend_VentaIdempotente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testTiendaID, 100)

	venta := ledger.AppendInput{
		MerchantID: testMerchantID,
		ProductID:  testProductID,
		LocationID: testTiendaID,
		QtyChange:  -3,
		Reason:     entity.ReasonSale,
		RefType:    "order",
		RefID:      "order-1001",
		CreatedBy:  "pos",
	}

	first, err := f.appender.Append(ctx, venta)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, int64(97), first.Movement.BalanceAfter,
		"el balance resultante queda en la fila del ledger")
	assert.Equal(t, int64(97), first.Level.OnHand)

	// Reintento con la misma clave (order, order-1001, producto, ubicación)
	second, err := f.appender.Append(ctx, venta)
	require.NoError(t, err, "un duplicado no es error: es la misma operación")
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Movement.ID, second.Movement.ID,
		"el duplicado devuelve la fila original, no una nueva")
	assert.Equal(t, int64(97), second.Level.OnHand, "el balance no se movió")

	movs := f.movements(t, testTiendaID)
	assert.Len(t, movs, 2, "solo el receipt de seed y una venta: sin doble descuento")
}

func TestAppend_CostoDeVentaTomaElPromedio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testTiendaID, 10)

	res, err := f.appender.Append(ctx, ledger.AppendInput{
		MerchantID: testMerchantID,
		ProductID:  testProductID,
		LocationID: testTiendaID,
		QtyChange:  -2,
		Reason:     entity.ReasonSale,
		RefType:    "order",
		RefID:      "order-1002",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Movement.UnitCost)
	assert.True(t, decimal.NewFromInt(8000).Equal(*res.Movement.UnitCost),
		"la venta sin costo explícito se valúa al costo promedio del producto")
	require.NotNil(t, res.Movement.TotalCost)
	assert.True(t, decimal.NewFromInt(-16000).Equal(*res.Movement.TotalCost))
}

func TestAppend_RecepcionConCostoRecalculaPromedio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testTiendaID, 10) // 10 unidades al costo vigente de 8000

	inCost := decimal.NewFromInt(10000)
	_, err := f.appender.Append(ctx, ledger.AppendInput{
		MerchantID: testMerchantID,
		ProductID:  testProductID,
		LocationID: testTiendaID,
		QtyChange:  10,
		Reason:     entity.ReasonReceipt,
		RefType:    "grn",
		RefID:      "grn-costo-1",
		UnitCost:   &inCost,
	})
	require.NoError(t, err)

	product, err := memory.NewProductRepo(f.store).GetByID(ctx, testProductID)
	require.NoError(t, err)
	// (10*8000 + 10*10000) / 20 = 9000
	assert.True(t, decimal.NewFromInt(9000).Equal(product.UnitCost),
		"el costo promedio ponderado debe quedar en 9000, quedó %s", product.UnitCost)
}

// ──────────────────────────────────────────────────────────────────────────────
// Balance negativo: una venta que sobrepasa las existencias SÍ se registra
// (el canal ya la cobró), pero advierte y publica la alerta.
// ──────────────────────────────────────────────────────────────────────────────

func TestAppend_BalanceNegativoRegistraYAdvierte(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testTiendaID, 2)

	res, err := f.appender.Append(ctx, ledger.AppendInput{
		MerchantID: testMerchantID,
		ProductID:  testProductID,
		LocationID: testTiendaID,
		QtyChange:  -5,
		Reason:     entity.ReasonSale,
		RefType:    "order",
		RefID:      "order-2001",
	})
	require.NoError(t, err, "la sobreventa no se rechaza: la venta ya ocurrió en el canal")
	assert.Equal(t, int64(-3), res.Level.OnHand)
	assert.Equal(t, ledger.AvisoBalanceNegativo, res.Warning)

	alertas := f.alerts.ByType(ports.AlertNegativeBalance)
	require.Len(t, alertas, 1, "debe publicarse exactamente una alerta de balance negativo")
	assert.Equal(t, int64(-3), alertas[0].Stock.OnHand)
	assert.Equal(t, testMerchantID, alertas[0].MerchantID)
}

func TestAppend_BajoStockPublicaAlerta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testTiendaID, 12)

	// Política de reposición: punto de pedido 10
	require.NoError(t, memory.NewProductLocationRepo(f.store).Upsert(ctx, &entity.ProductLocation{
		ProductID:    testProductID,
		LocationID:   testTiendaID,
		MerchantID:   testMerchantID,
		ReorderPoint: 10,
		ReorderQty:   24,
	}))
	require.NoError(t, memory.NewIdentifierRepo(f.store).Create(ctx, &entity.ProductIdentifier{
		ID:         "44444444-4444-4444-4444-444444444401",
		ProductID:  testProductID,
		MerchantID: testMerchantID,
		Type:       entity.IdentifierTypeSKU,
		Value:      "CAFE-500",
		Source:     "internal",
		Verified:   true,
	}))

	_, err := f.appender.Append(ctx, ledger.AppendInput{
		MerchantID: testMerchantID,
		ProductID:  testProductID,
		LocationID: testTiendaID,
		QtyChange:  -3,
		Reason:     entity.ReasonSale,
		RefType:    "order",
		RefID:      "order-3001",
	})
	require.NoError(t, err)

	alertas := f.alerts.ByType(ports.AlertLowStock)
	require.Len(t, alertas, 1, "on_hand 9 <= reorder_point 10 debe alertar")
	assert.Equal(t, int64(9), alertas[0].Stock.OnHand)
	assert.Equal(t, int64(10), alertas[0].Stock.ReorderPoint)
	assert.Equal(t, int64(24), alertas[0].Stock.ReorderQty)
	assert.Equal(t, "CAFE-500", alertas[0].SKU, "la alerta lleva el SKU del producto")
}

// Un movimiento que cae en un día con snapshot ya cerrado marca ese día para
// recomputar y publica la alerta correspondiente.
func TestAppend_MovimientoTardioMarcaRecomputo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testTiendaID, 50)

	diaCerrado := dayUTC(time.Now().UTC().AddDate(0, 0, -3))
	require.NoError(t, memory.NewSnapshotRepo(f.store).Upsert(ctx, &entity.StockSnapshotDaily{
		ProductID:    testProductID,
		LocationID:   testTiendaID,
		MerchantID:   testMerchantID,
		SnapshotDate: diaCerrado,
		ClosingQty:   50,
	}))

	res, err := f.appender.Append(ctx, ledger.AppendInput{
		MerchantID: testMerchantID,
		ProductID:  testProductID,
		LocationID: testTiendaID,
		QtyChange:  5,
		Reason:     entity.ReasonAdjustment,
		RefType:    "late",
		RefID:      "late-001",
		OccurredAt: diaCerrado.Add(10 * time.Hour),
	})
	require.NoError(t, err)
	require.NotNil(t, res.RecomputeDay, "un movimiento tardío debe señalar el día desfasado")
	assert.True(t, diaCerrado.Equal(*res.RecomputeDay))

	alertas := f.alerts.ByType(ports.AlertRecomputeRequired)
	require.Len(t, alertas, 1)
	assert.Equal(t, diaCerrado.Format("2006-01-02"), alertas[0].SnapshotDate)
}

// ── Validaciones de entrada ───────────────────────────────────────────────────

func TestAppend_EntradasInvalidas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testTiendaID, 10)

	base := ledger.AppendInput{
		MerchantID: testMerchantID,
		ProductID:  testProductID,
		LocationID: testTiendaID,
		QtyChange:  -1,
		Reason:     entity.ReasonSale,
	}

	casos := []struct {
		nombre string
		mutar  func(*ledger.AppendInput)
	}{
		{"qty cero", func(in *ledger.AppendInput) { in.QtyChange = 0 }},
		{"venta con qty positivo", func(in *ledger.AppendInput) { in.QtyChange = 3 }},
		{"receipt con qty negativo", func(in *ledger.AppendInput) { in.Reason = entity.ReasonReceipt }},
		{"motivo desconocido", func(in *ledger.AppendInput) { in.Reason = "melt" }},
		{"transfer_out directo", func(in *ledger.AppendInput) { in.Reason = entity.ReasonTransferOut }},
		{"ref_type sin ref_id", func(in *ledger.AppendInput) { in.RefType = "order" }},
		{"ref_id sin ref_type", func(in *ledger.AppendInput) { in.RefID = "order-9" }},
		{"costo negativo", func(in *ledger.AppendInput) {
			c := decimal.NewFromInt(-1)
			in.UnitCost = &c
		}},
		{"sin producto", func(in *ledger.AppendInput) { in.ProductID = "" }},
	}
	for _, c := range casos {
		in := base
		c.mutar(&in)
		_, err := f.appender.Append(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "caso %q", c.nombre)
	}
}

func TestAppend_ProductoDeOtroComercioEsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	otro := &entity.Product{
		ID:         "99999999-9999-9999-9999-999999999999",
		MerchantID: "otro-comercio",
		Name:       "Ajeno",
		Active:     true,
	}
	require.NoError(t, memory.NewProductRepo(f.store).Create(ctx, otro))

	_, err := f.appender.Append(ctx, ledger.AppendInput{
		MerchantID: testMerchantID,
		ProductID:  otro.ID,
		LocationID: testTiendaID,
		QtyChange:  5,
		Reason:     entity.ReasonReceipt,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound,
		"un producto de otro comercio debe verse como inexistente")
}

// ──────────────────────────────────────────────────────────────────────────────
// Stocktake: se registra la cantidad CONTADA; el delta contra el on_hand
// vigente es el movimiento. Un conteo sin diferencia no genera fila.
// ──────────────────────────────────────────────────────────────────────────────

func TestStocktake_AjustaAlConteo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testTiendaID, 100)

	res, err := f.appender.Stocktake(ctx, ledger.StocktakeInput{
		MerchantID: testMerchantID,
		ProductID:  testProductID,
		LocationID: testTiendaID,
		CountedQty: 95,
		RefType:    "count",
		RefID:      "count-001",
		CreatedBy:  "bodeguero",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Movement)
	assert.Equal(t, entity.ReasonStocktake, res.Movement.Reason)
	assert.Equal(t, int64(-5), res.Movement.QtyChange, "el delta es contado - vigente")
	assert.Equal(t, int64(95), res.Level.OnHand)
}

func TestStocktake_SinDiferenciaNoGeneraFila(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testTiendaID, 40)

	res, err := f.appender.Stocktake(ctx, ledger.StocktakeInput{
		MerchantID: testMerchantID,
		ProductID:  testProductID,
		LocationID: testTiendaID,
		CountedQty: 40,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Movement, "conteo igual al vigente: nada que registrar")
	assert.Equal(t, int64(40), res.Level.OnHand)
	assert.Len(t, f.movements(t, testTiendaID), 1, "solo el receipt de seed")
}

func TestStocktake_ConteoNegativoEsInvalido(t *testing.T) {
	f := newFixture(t)
	_, err := f.appender.Stocktake(context.Background(), ledger.StocktakeInput{
		MerchantID: testMerchantID,
		ProductID:  testProductID,
		LocationID: testTiendaID,
		CountedQty: -1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStocktake_Idempotente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testTiendaID, 100)

	in := ledger.StocktakeInput{
		MerchantID: testMerchantID,
		ProductID:  testProductID,
		LocationID: testTiendaID,
		CountedQty: 90,
		RefType:    "count",
		RefID:      "count-002",
	}
	first, err := f.appender.Stocktake(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, first.Movement)

	second, err := f.appender.Stocktake(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Movement.ID, second.Movement.ID)
	assert.Equal(t, int64(90), second.Level.OnHand,
		"repetir el conteo con la misma ref no vuelve a ajustar")
}
