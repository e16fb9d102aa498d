package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LocationValueResult resultado crudo de la valoración de inventario por ubicación.
// Lo produce la DB; el use case lo convierte en DTO.
type LocationValueResult struct {
	LocationID   string
	LocationName string
	Products     int64           // productos con existencias
	UnitsOnHand  int64           // suma de on_hand (solo positivos)
	TotalValue   decimal.Decimal // suma de on_hand * costo promedio del producto
}

// CursorHealthResult resultado crudo de la salud de sincronización por cursor.
type CursorHealthResult struct {
	CursorID            string
	Channel             string
	Entity              string
	LocationID          *string
	Status              string
	ConsecutiveFailures int
	LastSuccessAt       *time.Time
	LastError           string
	NextSyncAt          *time.Time
	BackfillState       string
}

// AnalyticsRepository define las consultas de lectura para señales operativas
// (valor de inventario, bajo stock, cola de reconciliación, salud de sync).
// Las implementaciones son read-only (no modifican datos).
type AnalyticsRepository interface {
	// GetStockValueByLocation valora el inventario on_hand por ubicación del comercio.
	GetStockValueByLocation(ctx context.Context, merchantID string) ([]LocationValueResult, error)

	// CountLowStock cuenta pares (producto, ubicación) con on_hand <= reorder_point.
	CountLowStock(ctx context.Context, merchantID string) (int64, error)

	// CountPendingUnmatched cuenta ítems pendientes en la cola de reconciliación.
	CountPendingUnmatched(ctx context.Context, merchantID string) (int64, error)

	// GetCursorHealth devuelve el estado de cada cursor del comercio
	// (fallos consecutivos, último éxito, próximo intento).
	GetCursorHealth(ctx context.Context, merchantID string) ([]CursorHealthResult, error)

	// CountMovementsSince cuenta movimientos del comercio desde el instante dado.
	CountMovementsSince(ctx context.Context, merchantID string, since time.Time) (int64, error)
}
