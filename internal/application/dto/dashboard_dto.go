package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardOverviewDTO respuesta de GET /api/dashboard/overview.
// KPIs operativos del comercio: valoración por ubicación, señales de
// reposición, cola de reconciliación y salud de la sincronización.
type DashboardOverviewDTO struct {
	// Valoración del inventario on_hand por ubicación (al costo promedio vigente)
	StockValue []LocationStockValueDTO `json:"stock_value"`
	TotalValue decimal.Decimal         `json:"total_value"`

	// Pares (producto, ubicación) en o bajo su punto de reposición
	LowStockCount int64 `json:"low_stock_count"`

	// Ítems pendientes en la cola de reconciliación
	PendingUnmatched int64 `json:"pending_unmatched"`

	// Movimientos del ledger en las últimas 24 horas
	MovementsLast24h int64 `json:"movements_last_24h"`

	// Estado de cada cursor de sincronización del comercio
	SyncHealth []CursorHealthDTO `json:"sync_health"`

	GeneratedAt time.Time `json:"generated_at"`
}

// LocationStockValueDTO valoración de una ubicación para el widget del dashboard.
type LocationStockValueDTO struct {
	LocationID   string          `json:"location_id"`
	LocationName string          `json:"location_name"`
	Products     int64           `json:"products"`
	UnitsOnHand  int64           `json:"units_on_hand"`
	TotalValue   decimal.Decimal `json:"total_value"`
}

// CursorHealthDTO estado resumido de un cursor para el widget de sincronización.
type CursorHealthDTO struct {
	CursorID            string     `json:"cursor_id"`
	Channel             string     `json:"channel"`
	Entity              string     `json:"entity"`
	LocationID          *string    `json:"location_id,omitempty"`
	Status              string     `json:"status"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	NextSyncAt          *time.Time `json:"next_sync_at,omitempty"`
	BackfillState       string     `json:"backfill_state"`
}
