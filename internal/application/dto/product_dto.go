package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto canónico.
// Los códigos externos se agregan aparte (POST /products/:id/identifiers).
type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,min=1,max=200"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	SKU         string          `json:"sku,omitempty"` // si viene, se crea el identificador interno
	Attributes  json.RawMessage `json:"attributes"`
}

// UpdateProductRequest entrada para actualizar un producto (sin costo: el costo
// promedio lo recalculan las recepciones del ledger).
type UpdateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Attributes  json.RawMessage  `json:"attributes"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID          string          `json:"id"`
	MerchantID  string          `json:"merchant_id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Active      bool            `json:"active"`
	Attributes  json.RawMessage `json:"attributes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// AddIdentifierRequest asocia un código externo o interno al producto.
type AddIdentifierRequest struct {
	Type   string `json:"type" validate:"required,oneof=barcode sku alt-code upc"`
	Value  string `json:"value" validate:"required,min=1,max=200"`
	Source string `json:"source" validate:"required,min=1,max=50"`
}

// IdentifierResponse salida de un identificador de producto.
type IdentifierResponse struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	Type        string    `json:"type"`
	Value       string    `json:"value"`
	Source      string    `json:"source"`
	MatchMethod string    `json:"match_method"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"created_at"`
}

// UpsertProductLocationRequest política de reposición del producto en una ubicación.
type UpsertProductLocationRequest struct {
	LocationID      string `json:"location_id" validate:"required"`
	ReorderPoint    int64  `json:"reorder_point" validate:"min=0"`
	ReorderQty      int64  `json:"reorder_qty" validate:"min=0"`
	MaxStockLevel   int64  `json:"max_stock_level" validate:"min=0"`
	PreferredVendor string `json:"preferred_vendor"`
}

// ProductLocationResponse salida de la política de reposición por ubicación.
type ProductLocationResponse struct {
	ProductID       string    `json:"product_id"`
	LocationID      string    `json:"location_id"`
	ReorderPoint    int64     `json:"reorder_point"`
	ReorderQty      int64     `json:"reorder_qty"`
	MaxStockLevel   int64     `json:"max_stock_level"`
	PreferredVendor string    `json:"preferred_vendor"`
	UpdatedAt       time.Time `json:"updated_at"`
}
