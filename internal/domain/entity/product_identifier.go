package entity

import "time"

// Tipos de identificador de producto (enum cerrado).
const (
	IdentifierTypeBarcode = "barcode"
	IdentifierTypeSKU     = "sku"
	IdentifierTypeAltCode = "alt-code"
	IdentifierTypeUPC     = "upc"
)

// Métodos de emparejamiento registrados al crear un identificador (auditoría).
const (
	MatchMethodManual         = "manual"         // alta directa por catálogo
	MatchMethodExact          = "exact"          // coincidencia exacta previa
	MatchMethodFuzzyName      = "fuzzy_name"     // emparejado por nombre normalizado
	MatchMethodReconciliation = "reconciliation" // resuelto desde la cola de no emparejados
)

// ValidIdentifierType informa si el tipo pertenece al enum cerrado.
func ValidIdentifierType(t string) bool {
	switch t {
	case IdentifierTypeBarcode, IdentifierTypeSKU, IdentifierTypeAltCode, IdentifierTypeUPC:
		return true
	}
	return false
}

// ProductIdentifier asocia un código externo o interno a un producto canónico.
// Invariante: (source, type, value) apunta a lo sumo a un producto dentro del comercio.
type ProductIdentifier struct {
	ID          string
	ProductID   string
	MerchantID  string
	Type        string // barcode, sku, alt-code, upc
	Value       string
	Source      string // namespace del código: internal, pos, marketplace...
	MatchMethod string // manual, exact, fuzzy_name, reconciliation
	Verified    bool   // false cuando lo creó un match difuso pendiente de revisión
	CreatedAt   time.Time
}
