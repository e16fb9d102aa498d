package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementReason es el motivo de un movimiento del ledger (enum cerrado).
type MovementReason string

// Motivos de movimiento.
const (
	ReasonSale        MovementReason = "sale"
	ReasonRefund      MovementReason = "refund"
	ReasonReceipt     MovementReason = "receipt"
	ReasonAdjustment  MovementReason = "adjustment"
	ReasonTransferOut MovementReason = "transfer_out"
	ReasonTransferIn  MovementReason = "transfer_in"
	ReasonStocktake   MovementReason = "stocktake"
	ReasonSync        MovementReason = "sync"
)

// Valid informa si el motivo pertenece al enum cerrado.
func (r MovementReason) Valid() bool {
	switch r {
	case ReasonSale, ReasonRefund, ReasonReceipt, ReasonAdjustment,
		ReasonTransferOut, ReasonTransferIn, ReasonStocktake, ReasonSync:
		return true
	}
	return false
}

// StockMovement es una entrada del ledger de inventario: inmutable, solo-append.
// Las correcciones son movimientos compensatorios nuevos, nunca updates.
// Invariante: sumar QtyChange de todos los movimientos de un (producto, ubicación),
// ordenados por OccurredAt (desempate por Seq), reproduce el BalanceAfter de cada fila.
// Invariante de idempotencia: (RefType, RefID, ProductID, LocationID) es único.
type StockMovement struct {
	ID                    string
	Seq                   int64 // orden de inserción (desempate dentro de un mismo OccurredAt)
	MerchantID            string
	ProductID             string
	LocationID            string
	QtyChange             int64 // con signo: negativo para salidas
	BalanceAfter          int64
	Reason                MovementReason
	RefType               string // junto con RefID forma la clave de idempotencia; vacío en ajustes manuales
	RefID                 string
	CounterpartLocationID string // ubicación contraparte en transfer_out/transfer_in
	UnitCost              *decimal.Decimal
	TotalCost             *decimal.Decimal
	OccurredAt            time.Time
	CreatedAt             time.Time
	CreatedBy             string // UserID u origen del sistema
	Note                  string
}

// HasRef informa si el movimiento lleva clave de idempotencia.
func (m *StockMovement) HasRef() bool {
	return m.RefType != "" && m.RefID != ""
}
