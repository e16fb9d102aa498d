package repository

import (
	"context"
	"time"

	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

// ReplayTotals es el resultado de plegar el ledger completo de un (producto, ubicación).
type ReplayTotals struct {
	OnHand         int64
	InTransit      int64
	LastMovementAt *time.Time
	Movements      int64
}

// StockMovementRepository define el puerto del ledger (solo-append, nunca update/delete).
type StockMovementRepository interface {
	// Create inserta la fila; la BD rechaza con unique_violation una clave de
	// idempotencia repetida (respaldo del check-and-insert del caso de uso).
	Create(ctx context.Context, movement *entity.StockMovement) error

	// GetByRef busca por la clave de idempotencia. (nil, nil) si no existe.
	GetByRef(ctx context.Context, refType, refID, productID, locationID string) (*entity.StockMovement, error)

	// ListByProductLocation lista movimientos ordenados por (occurred_at, seq) ascendente.
	ListByProductLocation(ctx context.Context, productID, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)

	// ListDay devuelve los movimientos de una ubicación dentro del día calendario UTC,
	// ordenados por producto y luego (occurred_at, seq). Lectura sin bloqueo: el rango
	// de occurred_at define el conjunto de lectura.
	ListDay(ctx context.Context, locationID string, day time.Time) ([]*entity.StockMovement, error)

	// ReplayTotals pliega todo el ledger del par: suma de qty_change (on_hand),
	// in_transit derivado de transferencias y último occurred_at.
	ReplayTotals(ctx context.Context, productID, locationID string) (ReplayTotals, error)

	// SumBefore suma qty_change con occurred_at anterior al instante dado
	// (apertura de un día sin snapshot previo).
	SumBefore(ctx context.Context, productID, locationID string, before time.Time) (int64, error)

	// LastSaleAt devuelve el occurred_at de la última venta antes del instante dado.
	// (nil, nil) si el producto nunca se ha vendido en la ubicación.
	LastSaleAt(ctx context.Context, productID, locationID string, before time.Time) (*time.Time, error)
}
