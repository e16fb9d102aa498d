package entity

import "time"

// Estados del cursor de sincronización.
const (
	CursorStatusIdle      = "idle"
	CursorStatusRunning   = "running"
	CursorStatusCompleted = "completed"
	CursorStatusFailed    = "failed"
)

// Estados del backfill histórico (independiente del cursor incremental).
const (
	BackfillNone       = "none"
	BackfillInProgress = "in_progress"
	BackfillCompleted  = "completed"
	BackfillFailed     = "failed"
)

// Entidades sincronizables por cursor.
const (
	SyncEntityInventory = "inventory"
	SyncEntityOrders    = "orders"
	SyncEntityProducts  = "products"
)

// SyncCursor es la máquina de estados de sincronización incremental:
// una fila por (comercio, canal, ubicación-o-null, entidad). Solo el worker
// dueño del lease la muta; NextSyncAt gobierna el agendamiento del poller.
type SyncCursor struct {
	ID                  string
	MerchantID          string
	Channel             string  // pos, marketplace
	LocationID          *string // nil = todas las ubicaciones del comercio
	Entity              string  // inventory, orders, products
	CursorToken         string  // marcador incremental opaco del sistema externo
	LastProcessedID     string
	Status              string // idle, running, completed, failed
	ConsecutiveFailures int
	NextSyncAt          *time.Time
	LeaseToken          string // dueño actual; vacío = sin lease
	LeaseExpiresAt      *time.Time
	LastSuccessAt       *time.Time
	LastError           string
	RecordsSynced       int64

	// Backfill histórico: corre en paralelo al cursor incremental sobre un
	// rango de tiempo disjunto, con su propio marcador de progreso.
	BackfillState      string // none, in_progress, completed, failed
	BackfillCursor     string
	BackfillRangeStart *time.Time
	BackfillRangeEnd   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CursorLease acredita la propiedad temporal de un cursor por un worker.
type CursorLease struct {
	CursorID  string
	Token     string
	ExpiresAt time.Time
}
