package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un ítem no emparejado (cola de reconciliación).
const (
	UnmatchedStatusPending = "pending"
	UnmatchedStatusMatched = "matched"
	UnmatchedStatusIgnored = "ignored"
)

// Acciones de resolución manual sobre un ítem no emparejado.
const (
	ResolveActionLink   = "link"   // vincular a un producto existente
	ResolveActionCreate = "create" // crear un producto nuevo desde el payload
	ResolveActionIgnore = "ignore" // descartar definitivamente
)

// DeferredEvent es un evento de inventario normalizado que quedó en espera porque
// su identificador no resolvió a un producto. Al resolver el ítem se re-aplica al
// ledger conservando su clave de idempotencia original.
type DeferredEvent struct {
	ExternalRefID   string           `json:"external_ref_id"`
	RefType         string           `json:"ref_type"`
	IdentifierType  string           `json:"identifier_type"`
	IdentifierValue string           `json:"identifier_value"`
	LocationID      string           `json:"location_id"`
	QtyChange       int64            `json:"qty_change"`
	Reason          MovementReason   `json:"reason"`
	OccurredAt      time.Time        `json:"occurred_at"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty"`
}

// UnmatchedItem es una fila reportada por un canal externo que no resolvió a un
// producto canónico. Una fila por (comercio, source, tipo, valor) mientras esté
// pendiente; reportes repetidos acumulan eventos en PendingEvents y suben SeenCount.
type UnmatchedItem struct {
	ID               string
	MerchantID       string
	Source           string // canal que reportó: pos, marketplace...
	IdentifierType   string
	IdentifierValue  string
	Payload          json.RawMessage // atributos crudos del reporte externo
	PendingEvents    []DeferredEvent
	SeenCount        int
	Status           string // pending, matched, ignored
	MatchedProductID *string
	MatchMethod      string // cómo se resolvió (link/create → reconciliation)
	FirstSeenAt      time.Time
	LastSeenAt       time.Time
	ResolvedAt       *time.Time
	ResolvedBy       string
}
