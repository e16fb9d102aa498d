package inventory

import "github.com/jhoicas/StockSync-api/internal/domain/entity"

// DayBuckets acumula los movimientos de un día calendario por categoría de snapshot.
// In y Out se llevan en positivo; Adjustment conserva el signo.
type DayBuckets struct {
	In         int64
	Out        int64
	Adjustment int64
}

// Add clasifica un movimiento en su bucket:
//   - receipt y transfer_in suman a In
//   - sale y transfer_out suman a Out (invirtiendo el signo)
//   - stocktake, adjustment y refund van con signo a Adjustment
//   - sync se clasifica por signo (delta positivo = entrada, negativo = salida)
func (b *DayBuckets) Add(reason entity.MovementReason, qtyChange int64) {
	switch reason {
	case entity.ReasonReceipt, entity.ReasonTransferIn:
		b.In += qtyChange
	case entity.ReasonSale, entity.ReasonTransferOut:
		b.Out += -qtyChange
	case entity.ReasonStocktake, entity.ReasonAdjustment, entity.ReasonRefund:
		b.Adjustment += qtyChange
	case entity.ReasonSync:
		if qtyChange >= 0 {
			b.In += qtyChange
		} else {
			b.Out += -qtyChange
		}
	}
}

// Closing calcula el balance de cierre a partir de la apertura:
// Closing = Opening + In - Out + Adjustment.
func (b DayBuckets) Closing(openingQty int64) int64 {
	return openingQty + b.In - b.Out + b.Adjustment
}
