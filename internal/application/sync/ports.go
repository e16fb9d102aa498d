// Package sync orquesta la sincronización de inventario con sistemas externos:
// máquina de estados del cursor (lease de escritor único, backoff exponencial),
// worker de pasada incremental o histórica, y poller que agenda cursores vencidos.
package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

// InventoryEvent es un evento de inventario ya normalizado por el adaptador del
// canal: el worker no conoce el formato crudo del sistema externo, solo esto.
// ExternalRefID + RefType forman la clave de idempotencia del ledger: un evento
// re-entregado por el canal no se aplica dos veces.
type InventoryEvent struct {
	ExternalRefID   string
	RefType         string // vacío = "sync"
	IdentifierType  string // barcode, sku, upc... vacío = desconocido
	IdentifierValue string
	NameHint        string // nombre reportado por el canal, para el fallback difuso
	LocationID      string // vacío = la ubicación del cursor
	QtyChange       int64
	Reason          entity.MovementReason
	OccurredAt      time.Time
	UnitCost        *decimal.Decimal
	Payload         json.RawMessage // reporte crudo, conservado si el evento queda sin resolver
}

// Deferred convierte el evento al formato que acumula la cola de reconciliación.
func (e InventoryEvent) Deferred() entity.DeferredEvent {
	return entity.DeferredEvent{
		ExternalRefID:   e.ExternalRefID,
		RefType:         e.RefType,
		IdentifierType:  e.IdentifierType,
		IdentifierValue: e.IdentifierValue,
		LocationID:      e.LocationID,
		QtyChange:       e.QtyChange,
		Reason:          e.Reason,
		OccurredAt:      e.OccurredAt,
		UnitCost:        e.UnitCost,
	}
}

// FetchRequest es la página que el worker pide al canal. CursorToken es el
// marcador opaco devuelto por la página anterior (vacío = desde el inicio).
// RangeStart/RangeEnd acotan un backfill histórico; nil en la pasada incremental.
type FetchRequest struct {
	MerchantID  string
	Channel     string
	LocationID  string
	Entity      string
	CursorToken string
	Limit       int
	RangeStart  *time.Time
	RangeEnd    *time.Time
}

// FetchBatch es una página de eventos del canal. NextToken es el marcador para
// la página siguiente; HasMore=false cierra la pasada.
type FetchBatch struct {
	Events    []InventoryEvent
	NextToken string
	HasMore   bool
}

// EventSource es el puerto de entrada de eventos por canal (pos, marketplace).
// El adaptador concreto habla con el sistema externo y normaliza; el fetch es
// I/O externo y ocurre siempre FUERA de la transacción que aplica los eventos.
type EventSource interface {
	FetchBatch(ctx context.Context, req FetchRequest) (*FetchBatch, error)
}

// SourceRegistry mapea canal → adaptador. Se arma completo en el arranque
// (no se muta después), así que no necesita sincronización.
type SourceRegistry map[string]EventSource

// Source devuelve el adaptador del canal, si hay uno registrado.
func (r SourceRegistry) Source(channel string) (EventSource, bool) {
	s, ok := r[channel]
	return s, ok
}

// Settings parámetros operativos de la sincronización (ver pkg/config).
type Settings struct {
	PollInterval time.Duration // cadencia del poller y del next_sync_at tras éxito
	BatchSize    int           // tamaño de página pedido al canal
	LeaseTTL     time.Duration // vigencia del lease de un worker
	BackoffBase  time.Duration // base del backoff exponencial tras fallo
	BackoffMax   time.Duration // tope del backoff
}

// normalized aplica defaults sanos a los parámetros sin configurar.
func (s Settings) normalized() Settings {
	if s.PollInterval <= 0 {
		s.PollInterval = 5 * time.Minute
	}
	if s.BatchSize <= 0 {
		s.BatchSize = 100
	}
	if s.LeaseTTL <= 0 {
		s.LeaseTTL = 10 * time.Minute
	}
	if s.BackoffBase <= 0 {
		s.BackoffBase = time.Minute
	}
	if s.BackoffMax <= 0 {
		s.BackoffMax = time.Hour
	}
	return s
}
