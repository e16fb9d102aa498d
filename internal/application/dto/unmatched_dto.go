package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ResolveUnmatchedRequest body para POST /api/unmatched/:id/resolve.
// link exige product_id; create admite new_product (si falta, el nombre sale
// del identificador reportado); ignore descarta el ítem sin tocar el ledger.
type ResolveUnmatchedRequest struct {
	Action     string         `json:"action" validate:"required,oneof=link create ignore"`
	ProductID  string         `json:"product_id,omitempty"`
	NewProduct *NewProductDTO `json:"new_product,omitempty"`
	ResolvedBy string         `json:"resolved_by,omitempty"`
}

// NewProductDTO datos mínimos del producto a crear desde la cola.
type NewProductDTO struct {
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// DeferredEventDTO evento diferido acumulado en un ítem pendiente.
type DeferredEventDTO struct {
	ExternalRefID   string           `json:"external_ref_id"`
	RefType         string           `json:"ref_type,omitempty"`
	IdentifierType  string           `json:"identifier_type,omitempty"`
	IdentifierValue string           `json:"identifier_value"`
	LocationID      string           `json:"location_id"`
	QtyChange       int64            `json:"qty_change"`
	Reason          string           `json:"reason"`
	OccurredAt      time.Time        `json:"occurred_at"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty"`
}

// UnmatchedItemResponse salida de un ítem de la cola de reconciliación.
type UnmatchedItemResponse struct {
	ID               string             `json:"id"`
	MerchantID       string             `json:"merchant_id"`
	Source           string             `json:"source"`
	IdentifierType   string             `json:"identifier_type,omitempty"`
	IdentifierValue  string             `json:"identifier_value"`
	Payload          json.RawMessage    `json:"payload,omitempty"`
	PendingEvents    []DeferredEventDTO `json:"pending_events"`
	SeenCount        int                `json:"seen_count"`
	Status           string             `json:"status"`
	MatchedProductID *string            `json:"matched_product_id,omitempty"`
	MatchMethod      string             `json:"match_method,omitempty"`
	FirstSeenAt      time.Time          `json:"first_seen_at"`
	LastSeenAt       time.Time          `json:"last_seen_at"`
	ResolvedAt       *time.Time         `json:"resolved_at,omitempty"`
	ResolvedBy       string             `json:"resolved_by,omitempty"`
}

// UnmatchedListResponse lista paginada de ítems de la cola.
type UnmatchedListResponse struct {
	Items []UnmatchedItemResponse `json:"items"`
	Page  PageResponse            `json:"page"`
}

// ResolveUnmatchedResponse resultado de la resolución manual.
type ResolveUnmatchedResponse struct {
	Item           UnmatchedItemResponse `json:"item"`
	ProductID      string                `json:"product_id,omitempty"`
	EventsReplayed int                   `json:"events_replayed"`
	EventsSkipped  int                   `json:"events_skipped"`
}
