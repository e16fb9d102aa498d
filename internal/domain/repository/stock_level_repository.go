package repository

import (
	"context"

	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

// LowStockItem es el resultado crudo de la consulta de bajo stock
// (niveles cruzados con la política de reposición por ubicación).
type LowStockItem struct {
	ProductID       string
	ProductName     string
	SKU             string
	LocationID      string
	OnHand          int64
	Available       int64
	ReorderPoint    int64
	ReorderQty      int64
	PreferredVendor string
}

// LowStockPolicy define el umbral de la consulta. Sin Threshold se usa el
// reorder_point de cada ProductLocation.
type LowStockPolicy struct {
	Threshold *int64
}

// StockLevelRepository define el puerto de la caché materializada de balances.
// Las escrituras ocurren dentro de la misma transacción que el append del ledger.
type StockLevelRepository interface {
	// Get devuelve el nivel actual; si no hay fila devuelve un nivel en cero.
	Get(ctx context.Context, productID, locationID string) (*entity.StockLevel, error)

	// GetForUpdate bloquea la fila (SELECT FOR UPDATE) para la secuencia
	// leer-calcular-escribir del append. Si no hay fila devuelve un nivel en cero.
	GetForUpdate(ctx context.Context, productID, locationID string) (*entity.StockLevel, error)

	// Upsert inserta o actualiza on_hand/allocated/in_transit/last_movement_at.
	// available es columna generada: no se escribe nunca.
	Upsert(ctx context.Context, level *entity.StockLevel) error

	// AdjustInTransit suma delta al in_transit del par (UPDATE atómico, con piso en 0;
	// crea la fila si no existe). Usado por las transferencias sobre la ubicación destino.
	AdjustInTransit(ctx context.Context, productID, locationID string, delta int64) error

	// Delete elimina la fila de la caché (solo al retirar la asociación ProductLocation).
	Delete(ctx context.Context, productID, locationID string) error

	ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.StockLevel, error)

	// ListLowStock devuelve productos con on_hand <= umbral en la ubicación,
	// ordenados por déficit (reorder_point - on_hand) descendente.
	ListLowStock(ctx context.Context, locationID string, policy LowStockPolicy) ([]LowStockItem, error)
}
