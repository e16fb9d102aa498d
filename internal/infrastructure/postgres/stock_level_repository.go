package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

var _ repository.StockLevelRepository = (*StockLevelRepo)(nil)

// StockLevelRepo implementación de la caché de balances sobre PostgreSQL.
// available es columna generada (on_hand - allocated): se lee, nunca se escribe.
type StockLevelRepo struct {
	q Querier
}

// NewStockLevelRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockLevelRepository(q Querier) *StockLevelRepo {
	return &StockLevelRepo{q: q}
}

// Get devuelve el nivel del par; si no hay fila devuelve un nivel en cero.
func (r *StockLevelRepo) Get(ctx context.Context, productID, locationID string) (*entity.StockLevel, error) {
	return r.get(ctx, productID, locationID, "")
}

// GetForUpdate bloquea la fila del par (SELECT FOR UPDATE) para la secuencia
// leer-calcular-escribir del append. Sin fila devuelve un nivel en cero sin bloquear.
func (r *StockLevelRepo) GetForUpdate(ctx context.Context, productID, locationID string) (*entity.StockLevel, error) {
	return r.get(ctx, productID, locationID, " FOR UPDATE")
}

func (r *StockLevelRepo) get(ctx context.Context, productID, locationID, suffix string) (*entity.StockLevel, error) {
	query := `
		SELECT product_id, location_id, on_hand, allocated, available, in_transit, last_movement_at, updated_at
		FROM stock_levels
		WHERE product_id = $1 AND location_id = $2` + suffix
	var level entity.StockLevel
	err := r.q.QueryRow(ctx, query, productID, locationID).Scan(
		&level.ProductID, &level.LocationID, &level.OnHand, &level.Allocated,
		&level.Available, &level.InTransit, &level.LastMovementAt, &level.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockLevel{ProductID: productID, LocationID: locationID}, nil
		}
		return nil, fmt.Errorf("get stock level: %w", err)
	}
	return &level, nil
}

// Upsert inserta o actualiza on_hand/allocated/in_transit/last_movement_at del par.
func (r *StockLevelRepo) Upsert(ctx context.Context, level *entity.StockLevel) error {
	if level.UpdatedAt.IsZero() {
		level.UpdatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO stock_levels (product_id, location_id, on_hand, allocated, in_transit, last_movement_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (product_id, location_id) DO UPDATE SET
			on_hand = EXCLUDED.on_hand,
			allocated = EXCLUDED.allocated,
			in_transit = EXCLUDED.in_transit,
			last_movement_at = EXCLUDED.last_movement_at,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		level.ProductID, level.LocationID, level.OnHand, level.Allocated,
		level.InTransit, level.LastMovementAt, level.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert stock level: %w", err)
	}
	return nil
}

// AdjustInTransit suma delta al in_transit del par en un solo UPDATE atómico con
// piso en 0 (crea la fila si no existe). Evita un segundo FOR UPDATE en transferencias.
func (r *StockLevelRepo) AdjustInTransit(ctx context.Context, productID, locationID string, delta int64) error {
	query := `
		INSERT INTO stock_levels (product_id, location_id, in_transit, updated_at)
		VALUES ($1, $2, GREATEST($3, 0), now())
		ON CONFLICT (product_id, location_id) DO UPDATE SET
			in_transit = GREATEST(stock_levels.in_transit + $3, 0),
			updated_at = now()`
	if _, err := r.q.Exec(ctx, query, productID, locationID, delta); err != nil {
		return fmt.Errorf("adjust in transit: %w", err)
	}
	return nil
}

// Delete elimina la fila de la caché del par.
func (r *StockLevelRepo) Delete(ctx context.Context, productID, locationID string) error {
	query := `DELETE FROM stock_levels WHERE product_id = $1 AND location_id = $2`
	if _, err := r.q.Exec(ctx, query, productID, locationID); err != nil {
		return fmt.Errorf("delete stock level: %w", err)
	}
	return nil
}

// ListByLocation lista los niveles de una ubicación ordenados por producto.
func (r *StockLevelRepo) ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.StockLevel, error) {
	query := `
		SELECT product_id, location_id, on_hand, allocated, available, in_transit, last_movement_at, updated_at
		FROM stock_levels
		WHERE location_id = $1
		ORDER BY product_id
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, locationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list stock levels: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockLevel
	for rows.Next() {
		var level entity.StockLevel
		if err := rows.Scan(&level.ProductID, &level.LocationID, &level.OnHand, &level.Allocated,
			&level.Available, &level.InTransit, &level.LastMovementAt, &level.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		list = append(list, &level)
	}
	return list, rows.Err()
}

// ListLowStock cruza niveles con la política de reposición de la ubicación y
// devuelve los pares en o bajo el umbral, ordenados por déficit descendente.
// Con policy.Threshold se compara contra ese valor fijo en vez del reorder_point.
func (r *StockLevelRepo) ListLowStock(ctx context.Context, locationID string, policy repository.LowStockPolicy) ([]repository.LowStockItem, error) {
	query := `
		SELECT sl.product_id, p.name,
			COALESCE((SELECT pi.value FROM product_identifiers pi
				WHERE pi.product_id = sl.product_id AND pi.identifier_type = 'sku'
				ORDER BY pi.created_at LIMIT 1), '') AS sku,
			sl.location_id, sl.on_hand, sl.available,
			pl.reorder_point, pl.reorder_qty, pl.preferred_vendor
		FROM stock_levels sl
		JOIN product_locations pl ON pl.product_id = sl.product_id AND pl.location_id = sl.location_id
		JOIN products p ON p.id = sl.product_id
		WHERE sl.location_id = $1 AND p.active`
	args := []any{locationID}
	if policy.Threshold != nil {
		query += ` AND sl.on_hand <= $2 ORDER BY ($2 - sl.on_hand) DESC, sl.product_id`
		args = append(args, *policy.Threshold)
	} else {
		query += ` AND sl.on_hand <= pl.reorder_point ORDER BY (pl.reorder_point - sl.on_hand) DESC, sl.product_id`
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()
	var list []repository.LowStockItem
	for rows.Next() {
		var item repository.LowStockItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.SKU, &item.LocationID,
			&item.OnHand, &item.Available, &item.ReorderPoint, &item.ReorderQty, &item.PreferredVendor); err != nil {
			return nil, fmt.Errorf("scan low stock item: %w", err)
		}
		list = append(list, item)
	}
	return list, rows.Err()
}
