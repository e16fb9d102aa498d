package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

var _ repository.AnalyticsRepository = (*AnalyticsRepo)(nil)

// AnalyticsRepo consultas de solo lectura para señales operativas del tablero.
type AnalyticsRepo struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository construye el adaptador de analítica.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepo {
	return &AnalyticsRepo{pool: pool}
}

// GetStockValueByLocation valora el inventario on_hand por ubicación activa del comercio.
// Valor = on_hand × costo promedio del producto; las existencias negativas no restan
// (GREATEST las trata como cero para no distorsionar la valoración).
func (r *AnalyticsRepo) GetStockValueByLocation(
	ctx context.Context,
	merchantID string,
) ([]repository.LocationValueResult, error) {
	const query = `
	SELECT
	    l.id                                                          AS location_id,
	    l.name                                                        AS location_name,
	    COUNT(sl.product_id) FILTER (WHERE sl.on_hand > 0)            AS products,
	    COALESCE(SUM(GREATEST(sl.on_hand, 0)), 0)                     AS units_on_hand,
	    COALESCE(SUM(GREATEST(sl.on_hand, 0) * p.unit_cost), 0)       AS total_value
	FROM locations l
	LEFT JOIN stock_levels sl ON sl.location_id = l.id
	LEFT JOIN products     p  ON p.id           = sl.product_id
	WHERE l.merchant_id = $1
	  AND l.active
	GROUP BY l.id, l.name
	ORDER BY total_value DESC`

	rows, err := r.pool.Query(ctx, query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("analytics.GetStockValueByLocation: %w", err)
	}
	defer rows.Close()

	var results []repository.LocationValueResult
	for rows.Next() {
		var row repository.LocationValueResult
		if err := rows.Scan(
			&row.LocationID,
			&row.LocationName,
			&row.Products,
			&row.UnitsOnHand,
			&row.TotalValue,
		); err != nil {
			return nil, fmt.Errorf("analytics.GetStockValueByLocation scan: %w", err)
		}
		results = append(results, row)
	}
	if results == nil {
		results = []repository.LocationValueResult{}
	}
	return results, rows.Err()
}

// CountLowStock cuenta pares (producto, ubicación) del comercio en o bajo su reorder_point.
func (r *AnalyticsRepo) CountLowStock(ctx context.Context, merchantID string) (int64, error) {
	const query = `
	SELECT COUNT(*)
	FROM stock_levels sl
	JOIN product_locations pl ON pl.product_id  = sl.product_id
	                         AND pl.location_id = sl.location_id
	WHERE pl.merchant_id = $1
	  AND sl.on_hand <= pl.reorder_point`

	var count int64
	if err := r.pool.QueryRow(ctx, query, merchantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("analytics.CountLowStock: %w", err)
	}
	return count, nil
}

// CountPendingUnmatched cuenta ítems pendientes en la cola de reconciliación.
func (r *AnalyticsRepo) CountPendingUnmatched(ctx context.Context, merchantID string) (int64, error) {
	const query = `
	SELECT COUNT(*)
	FROM unmatched_items
	WHERE merchant_id = $1
	  AND status = 'pending'`

	var count int64
	if err := r.pool.QueryRow(ctx, query, merchantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("analytics.CountPendingUnmatched: %w", err)
	}
	return count, nil
}

// GetCursorHealth devuelve el estado de cada cursor del comercio:
// fallos consecutivos, último éxito, próximo intento y estado del backfill.
func (r *AnalyticsRepo) GetCursorHealth(
	ctx context.Context,
	merchantID string,
) ([]repository.CursorHealthResult, error) {
	const query = `
	SELECT
	    id                   AS cursor_id,
	    channel,
	    entity,
	    location_id,
	    status,
	    consecutive_failures,
	    last_success_at,
	    last_error,
	    next_sync_at,
	    backfill_state
	FROM sync_cursors
	WHERE merchant_id = $1
	ORDER BY channel, entity`

	rows, err := r.pool.Query(ctx, query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("analytics.GetCursorHealth: %w", err)
	}
	defer rows.Close()

	var results []repository.CursorHealthResult
	for rows.Next() {
		var row repository.CursorHealthResult
		if err := rows.Scan(
			&row.CursorID,
			&row.Channel,
			&row.Entity,
			&row.LocationID,
			&row.Status,
			&row.ConsecutiveFailures,
			&row.LastSuccessAt,
			&row.LastError,
			&row.NextSyncAt,
			&row.BackfillState,
		); err != nil {
			return nil, fmt.Errorf("analytics.GetCursorHealth scan: %w", err)
		}
		results = append(results, row)
	}
	if results == nil {
		results = []repository.CursorHealthResult{}
	}
	return results, rows.Err()
}

// CountMovementsSince cuenta movimientos del comercio desde el instante dado
// (actividad reciente del ledger para el tablero).
func (r *AnalyticsRepo) CountMovementsSince(ctx context.Context, merchantID string, since time.Time) (int64, error) {
	const query = `
	SELECT COUNT(*)
	FROM stock_movements
	WHERE merchant_id = $1
	  AND occurred_at >= $2`

	var count int64
	if err := r.pool.QueryRow(ctx, query, merchantID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("analytics.CountMovementsSince: %w", err)
	}
	return count, nil
}
