package repository

import (
	"context"
	"time"

	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

// StockSnapshotRepository define el puerto de los rollups diarios.
type StockSnapshotRepository interface {
	// Upsert inserta o sobrescribe la fila por (product_id, location_id, snapshot_date).
	// El cierre de día es idempotente gracias a este upsert.
	Upsert(ctx context.Context, snap *entity.StockSnapshotDaily) error

	// Get devuelve el snapshot exacto del día. (nil, nil) si no existe.
	Get(ctx context.Context, productID, locationID string, date time.Time) (*entity.StockSnapshotDaily, error)

	// GetPrior devuelve el snapshot más reciente con fecha anterior a date. (nil, nil) si no hay.
	GetPrior(ctx context.Context, productID, locationID string, date time.Time) (*entity.StockSnapshotDaily, error)

	// Range lista snapshots del par en [from, to] ascendente por fecha.
	Range(ctx context.Context, productID, locationID string, from, to time.Time) ([]*entity.StockSnapshotDaily, error)

	// HasOnOrAfter informa si existe algún snapshot del par con fecha >= date
	// (detecta movimientos tardíos que caen en días ya cerrados).
	HasOnOrAfter(ctx context.Context, productID, locationID string, date time.Time) (bool, error)

	// ProductIDsOn lista los productos con snapshot en la ubicación y fecha dadas
	// (semilla del arrastre de aperturas al cerrar el día siguiente).
	ProductIDsOn(ctx context.Context, locationID string, date time.Time) ([]string, error)

	// LastDate devuelve la fecha de snapshot más reciente de la ubicación,
	// o (nil, nil) si nunca se cerró un día. Permite al scheduler retomar
	// cierres pendientes tras una caída de más de un día.
	LastDate(ctx context.Context, locationID string) (*time.Time, error)
}
