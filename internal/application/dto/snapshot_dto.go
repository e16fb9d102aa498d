package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CloseDayRequest body para POST /api/snapshots/close: cierra el rollup diario
// de una ubicación. Date en formato YYYY-MM-DD (día civil UTC).
type CloseDayRequest struct {
	LocationID string `json:"location_id" validate:"required"`
	Date       string `json:"date" validate:"required"`
}

// RecomputeRequest body para POST /api/snapshots/recompute: regenera el día
// indicado y todos los posteriores hasta hoy (acotado por la ventana configurada).
type RecomputeRequest struct {
	LocationID string `json:"location_id" validate:"required"`
	Date       string `json:"date" validate:"required"`
}

// SnapshotDTO salida de un rollup diario por (producto, ubicación, fecha).
type SnapshotDTO struct {
	ProductID         string          `json:"product_id"`
	LocationID        string          `json:"location_id"`
	SnapshotDate      string          `json:"snapshot_date"` // YYYY-MM-DD
	OpeningQty        int64           `json:"opening_qty"`
	InQty             int64           `json:"in_qty"`
	OutQty            int64           `json:"out_qty"`
	AdjustmentQty     int64           `json:"adjustment_qty"`
	ClosingQty        int64           `json:"closing_qty"`
	AverageCost       decimal.Decimal `json:"average_cost"`
	TotalValue        decimal.Decimal `json:"total_value"`
	TurnoverVelocity  decimal.Decimal `json:"turnover_velocity"`
	DaysSinceLastSale *int            `json:"days_since_last_sale,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// SnapshotRangeResponse serie diaria de un producto en una ubicación.
type SnapshotRangeResponse struct {
	ProductID  string        `json:"product_id"`
	LocationID string        `json:"location_id"`
	From       string        `json:"from"`
	To         string        `json:"to"`
	Items      []SnapshotDTO `json:"items"`
}
