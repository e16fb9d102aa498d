// Package ports define los puertos de salida de la capa de aplicación.
package ports

import (
	"context"
	"time"
)

// Tipos de alerta operativa que emite el motor.
const (
	AlertLowStock          = "low_stock"
	AlertNegativeBalance   = "negative_balance"
	AlertRecomputeRequired = "recompute_required"
	AlertSyncFailed        = "sync_failed"
	AlertUnmatchedQueued   = "unmatched_queued"
)

// StockAlertInfo contexto de inventario de una alerta de stock.
type StockAlertInfo struct {
	OnHand       int64 `json:"on_hand"`
	Available    int64 `json:"available"`
	ReorderPoint int64 `json:"reorder_point,omitempty"`
	ReorderQty   int64 `json:"reorder_qty,omitempty"`
}

// SyncAlertInfo contexto de sincronización de una alerta de cursor.
type SyncAlertInfo struct {
	CursorID            string `json:"cursor_id"`
	Channel             string `json:"channel"`
	Entity              string `json:"entity"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	Error               string `json:"error,omitempty"`
}

// Alert evento operativo dirigido al tópico de alertas. Según el tipo viaja
// el bloque Stock o el bloque Sync; los campos planos son comunes.
type Alert struct {
	Type         string          `json:"type"`
	MerchantID   string          `json:"merchant_id"`
	ProductID    string          `json:"product_id,omitempty"`
	ProductName  string          `json:"product_name,omitempty"`
	SKU          string          `json:"sku,omitempty"`
	LocationID   string          `json:"location_id,omitempty"`
	Identifier   string          `json:"identifier,omitempty"`
	SnapshotDate string          `json:"snapshot_date,omitempty"`
	Detail       string          `json:"detail,omitempty"`
	Stock        *StockAlertInfo `json:"stock,omitempty"`
	Sync         *SyncAlertInfo  `json:"sync,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// AlertPublisher puerto de publicación de alertas. Las implementaciones no
// deben bloquear la operación que originó la alerta: publicar es best-effort.
type AlertPublisher interface {
	Publish(ctx context.Context, alert Alert) error
}
