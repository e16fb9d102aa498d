package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/inventory"
)

// ──────────────────────────────────────────────────────────────────────────────
// TestDayBuckets valida la clasificación de movimientos en los buckets del
// snapshot diario. La regla de oro es la continuidad contable:
//
//	Closing = Opening + In - Out + Adjustment
//
// y que el Closing calculado desde los buckets coincida con el balance que
// dejaría el ledger aplicando los mismos deltas en orden. Si la clasificación
// se desalinea, los reportes de cierre dejan de cuadrar con el stock real.
// ──────────────────────────────────────────────────────────────────────────────

func TestDayBuckets_ClasificacionPorMotivo(t *testing.T) {
	var b inventory.DayBuckets

	b.Add(entity.ReasonReceipt, 50)      // entrada de mercancía
	b.Add(entity.ReasonTransferIn, 10)   // llegada de transferencia
	b.Add(entity.ReasonSale, -12)        // venta (delta negativo)
	b.Add(entity.ReasonTransferOut, -5)  // salida de transferencia
	b.Add(entity.ReasonAdjustment, -3)   // merma
	b.Add(entity.ReasonStocktake, 2)     // corrección de conteo
	b.Add(entity.ReasonRefund, 1)        // devolución de cliente

	assert.Equal(t, int64(60), b.In, "receipt y transfer_in suman al bucket In")
	assert.Equal(t, int64(17), b.Out, "sale y transfer_out van a Out en positivo")
	assert.Equal(t, int64(0), b.Adjustment,
		"adjustment, stocktake y refund conservan el signo: -3 + 2 + 1 = 0")
}

func TestDayBuckets_SyncSeClasificaPorSigno(t *testing.T) {
	var b inventory.DayBuckets

	b.Add(entity.ReasonSync, 8)  // delta positivo del canal → entrada
	b.Add(entity.ReasonSync, -6) // delta negativo → salida

	assert.Equal(t, int64(8), b.In)
	assert.Equal(t, int64(6), b.Out)
	assert.Equal(t, int64(0), b.Adjustment, "sync nunca toca el bucket de ajustes")
}

func TestDayBuckets_ClosingEsContinuo(t *testing.T) {
	// Simula el día de una tienda: apertura 100, ventas, recibo y un ajuste.
	deltas := []struct {
		reason entity.MovementReason
		qty    int64
	}{
		{entity.ReasonSale, -4},
		{entity.ReasonSale, -6},
		{entity.ReasonReceipt, 30},
		{entity.ReasonAdjustment, -2},
		{entity.ReasonRefund, 1},
	}

	var b inventory.DayBuckets
	balance := int64(100)
	for _, d := range deltas {
		b.Add(d.reason, d.qty)
		balance += d.qty
	}

	assert.Equal(t, balance, b.Closing(100),
		"el cierre por buckets debe coincidir con el balance que deja el ledger")
	assert.Equal(t, int64(119), b.Closing(100))
}

func TestDayBuckets_DiaSinMovimientos(t *testing.T) {
	var b inventory.DayBuckets
	assert.Equal(t, int64(42), b.Closing(42),
		"sin movimientos el cierre es la apertura (snapshot de arrastre)")
}
