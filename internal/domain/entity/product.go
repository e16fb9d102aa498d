package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Product representa la entrada canónica del catálogo. Los códigos externos
// (barcode, sku, upc...) viven en ProductIdentifier; el stock por ubicación en StockLevel.
// UnitCost es promedio ponderado, recalculado con cada recepción con costo.
// Nunca se borra: se desactiva (Active=false) para conservar el historial del ledger.
type Product struct {
	ID          string
	MerchantID  string
	Name        string
	Category    string
	Description string
	UnitCost    decimal.Decimal // costo promedio ponderado (inicia en 0)
	UnitPrice   decimal.Decimal // precio de venta
	Active      bool
	Attributes  json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
