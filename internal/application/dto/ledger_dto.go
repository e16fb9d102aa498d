package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AppendMovementRequest body para POST /api/stock/movements.
// QtyChange lleva el signo: negativo para salidas. RefType/RefID van juntos
// o no van; forman la clave de idempotencia con el producto y la ubicación.
type AppendMovementRequest struct {
	ProductID  string           `json:"product_id" validate:"required"`
	LocationID string           `json:"location_id" validate:"required"`
	QtyChange  int64            `json:"qty_change" validate:"required"`
	Reason     string           `json:"reason" validate:"required,oneof=sale refund receipt adjustment stocktake sync"`
	RefType    string           `json:"ref_type,omitempty"`
	RefID      string           `json:"ref_id,omitempty"`
	OccurredAt *time.Time       `json:"occurred_at,omitempty"` // nulo = ahora
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty"`
	Note       string           `json:"note,omitempty"`
}

// MovementResponse salida de una fila del ledger.
type MovementResponse struct {
	ID                    string           `json:"id"`
	Seq                   int64            `json:"seq"`
	ProductID             string           `json:"product_id"`
	LocationID            string           `json:"location_id"`
	QtyChange             int64            `json:"qty_change"`
	BalanceAfter          int64            `json:"balance_after"`
	Reason                string           `json:"reason"`
	RefType               string           `json:"ref_type,omitempty"`
	RefID                 string           `json:"ref_id,omitempty"`
	CounterpartLocationID string           `json:"counterpart_location_id,omitempty"`
	UnitCost              *decimal.Decimal `json:"unit_cost,omitempty"`
	TotalCost             *decimal.Decimal `json:"total_cost,omitempty"`
	OccurredAt            time.Time        `json:"occurred_at"`
	CreatedAt             time.Time        `json:"created_at"`
	CreatedBy             string           `json:"created_by,omitempty"`
	Note                  string           `json:"note,omitempty"`
}

// AppendMovementResponse resultado del append: la fila (original si la clave ya
// estaba aplicada) y el nivel resultante, más señales que no bloquean. En un
// conteo sin diferencia movement viene nulo.
type AppendMovementResponse struct {
	Movement  *MovementResponse `json:"movement,omitempty"`
	Level     *StockLevelDTO    `json:"level,omitempty"`
	Duplicate bool              `json:"duplicate"`
	Warning   string            `json:"warning,omitempty"`
	Recompute *RecomputeFlagDTO `json:"recompute,omitempty"`
}

// RecomputeFlagDTO señala que el movimiento cayó en un día ya cerrado.
type RecomputeFlagDTO struct {
	LocationID string `json:"location_id"`
	Day        string `json:"day"` // YYYY-MM-DD
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// StockLevelDTO salida de la caché de balances por (producto, ubicación).
type StockLevelDTO struct {
	ProductID      string     `json:"product_id"`
	LocationID     string     `json:"location_id"`
	OnHand         int64      `json:"on_hand"`
	Allocated      int64      `json:"allocated"`
	Available      int64      `json:"available"`
	InTransit      int64      `json:"in_transit"`
	LastMovementAt *time.Time `json:"last_movement_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// StockLevelListResponse niveles de una ubicación.
type StockLevelListResponse struct {
	Items []StockLevelDTO `json:"items"`
	Page  PageResponse    `json:"page"`
}

// StocktakeRequest body para POST /api/stock/stocktake: la cantidad contada,
// no el delta. El ajuste se calcula contra el balance vigente bajo el lock.
type StocktakeRequest struct {
	ProductID  string     `json:"product_id" validate:"required"`
	LocationID string     `json:"location_id" validate:"required"`
	CountedQty int64      `json:"counted_qty" validate:"min=0"`
	RefType    string     `json:"ref_type,omitempty"`
	RefID      string     `json:"ref_id,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
	Note       string     `json:"note,omitempty"`
}

// TransferRequest body para despacho, recepción o transferencia inmediata.
// TransferID es la referencia idempotente de ambas patas.
type TransferRequest struct {
	TransferID     string     `json:"transfer_id" validate:"required"`
	ProductID      string     `json:"product_id" validate:"required"`
	FromLocationID string     `json:"from_location_id" validate:"required"`
	ToLocationID   string     `json:"to_location_id" validate:"required"`
	Qty            int64      `json:"qty" validate:"required,min=1"`
	OccurredAt     *time.Time `json:"occurred_at,omitempty"`
	Note           string     `json:"note,omitempty"`
}

// TransferResponse salida de una operación de transferencia: las patas que se
// generaron (out en despacho, in en recepción, ambas en inmediata).
type TransferResponse struct {
	TransferID string            `json:"transfer_id"`
	Out        *MovementResponse `json:"out,omitempty"`
	In         *MovementResponse `json:"in,omitempty"`
	Origin     *StockLevelDTO    `json:"origin,omitempty"`
	Dest       *StockLevelDTO    `json:"dest,omitempty"`
	Duplicate  bool              `json:"duplicate"`
}

// AllocationRequest body para reservar o liberar existencias disponibles.
type AllocationRequest struct {
	ProductID  string `json:"product_id" validate:"required"`
	LocationID string `json:"location_id" validate:"required"`
	Qty        int64  `json:"qty" validate:"required,min=1"`
}

// LowStockItemDTO producto en o bajo su punto de reposición en una ubicación.
type LowStockItemDTO struct {
	ProductID       string `json:"product_id"`
	ProductName     string `json:"product_name"`
	SKU             string `json:"sku,omitempty"`
	LocationID      string `json:"location_id"`
	OnHand          int64  `json:"on_hand"`
	Available       int64  `json:"available"`
	ReorderPoint    int64  `json:"reorder_point"`
	ReorderQty      int64  `json:"reorder_qty"`
	Deficit         int64  `json:"deficit"` // reorder_point - on_hand
	PreferredVendor string `json:"preferred_vendor,omitempty"`
}

// RebuildRequest body para reconstruir la caché de un par desde el ledger.
type RebuildRequest struct {
	ProductID  string `json:"product_id" validate:"required"`
	LocationID string `json:"location_id" validate:"required"`
}

// RebuildResponse resultado de reconstruir la caché de un par desde el ledger.
// Drifted=true indica que la caché estaba desviada antes de sobrescribirla.
type RebuildResponse struct {
	ProductID  string         `json:"product_id"`
	LocationID string         `json:"location_id"`
	Movements  int64          `json:"movements"`
	Drifted    bool           `json:"drifted"`
	Before     *StockLevelDTO `json:"before,omitempty"`
	After      *StockLevelDTO `json:"after,omitempty"`
}
