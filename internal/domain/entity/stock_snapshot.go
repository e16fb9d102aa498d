package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockSnapshotDaily es el rollup diario por (producto, ubicación, fecha).
// Invariantes: ClosingQty = OpeningQty + InQty - OutQty + AdjustmentQty, y el
// ClosingQty del día N es el OpeningQty del día N+1. El agregador lo genera con
// upsert idempotente: re-cerrar el mismo día produce exactamente la misma fila.
type StockSnapshotDaily struct {
	ProductID         string
	LocationID        string
	MerchantID        string
	SnapshotDate      time.Time // fecha civil UTC (00:00)
	OpeningQty        int64
	InQty             int64 // receipt, transfer_in y deltas sync positivos
	OutQty            int64 // sale, transfer_out y deltas sync negativos (en positivo)
	AdjustmentQty     int64 // stocktake, adjustment, refund (con signo)
	ClosingQty        int64
	AverageCost       decimal.Decimal
	TotalValue        decimal.Decimal // ClosingQty * AverageCost
	TurnoverVelocity  decimal.Decimal // OutQty / promedio(Opening, Closing); 0 si indefinido
	DaysSinceLastSale *int            // nil = sin ventas registradas
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
