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

var _ repository.StockSnapshotRepository = (*StockSnapshotRepo)(nil)

const snapshotColumns = `product_id, location_id, merchant_id, snapshot_date, opening_qty, in_qty,
		out_qty, adjustment_qty, closing_qty, average_cost, total_value, turnover_velocity,
		days_since_last_sale, created_at, updated_at`

// StockSnapshotRepo implementación de los rollups diarios sobre PostgreSQL.
type StockSnapshotRepo struct {
	q Querier
}

// NewStockSnapshotRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockSnapshotRepository(q Querier) *StockSnapshotRepo {
	return &StockSnapshotRepo{q: q}
}

// Upsert inserta o sobrescribe la fila del día: el cierre es idempotente.
func (r *StockSnapshotRepo) Upsert(ctx context.Context, snap *entity.StockSnapshotDaily) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO stock_snapshots_daily (product_id, location_id, merchant_id, snapshot_date,
			opening_qty, in_qty, out_qty, adjustment_qty, closing_qty,
			average_cost, total_value, turnover_velocity, days_since_last_sale, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		ON CONFLICT (product_id, location_id, snapshot_date) DO UPDATE SET
			opening_qty = EXCLUDED.opening_qty,
			in_qty = EXCLUDED.in_qty,
			out_qty = EXCLUDED.out_qty,
			adjustment_qty = EXCLUDED.adjustment_qty,
			closing_qty = EXCLUDED.closing_qty,
			average_cost = EXCLUDED.average_cost,
			total_value = EXCLUDED.total_value,
			turnover_velocity = EXCLUDED.turnover_velocity,
			days_since_last_sale = EXCLUDED.days_since_last_sale,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		snap.ProductID, snap.LocationID, snap.MerchantID, snap.SnapshotDate,
		snap.OpeningQty, snap.InQty, snap.OutQty, snap.AdjustmentQty, snap.ClosingQty,
		snap.AverageCost, snap.TotalValue, snap.TurnoverVelocity, snap.DaysSinceLastSale, now,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Get devuelve el snapshot exacto del par y fecha. (nil, nil) si no existe.
func (r *StockSnapshotRepo) Get(ctx context.Context, productID, locationID string, date time.Time) (*entity.StockSnapshotDaily, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM stock_snapshots_daily
		WHERE product_id = $1 AND location_id = $2 AND snapshot_date = $3`
	snap, err := scanSnapshot(r.q.QueryRow(ctx, query, productID, locationID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

// GetPrior devuelve el snapshot más reciente con fecha anterior. (nil, nil) si no hay.
func (r *StockSnapshotRepo) GetPrior(ctx context.Context, productID, locationID string, date time.Time) (*entity.StockSnapshotDaily, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM stock_snapshots_daily
		WHERE product_id = $1 AND location_id = $2 AND snapshot_date < $3
		ORDER BY snapshot_date DESC
		LIMIT 1`
	snap, err := scanSnapshot(r.q.QueryRow(ctx, query, productID, locationID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get prior snapshot: %w", err)
	}
	return snap, nil
}

// Range lista los snapshots del par en [from, to] ascendente por fecha.
func (r *StockSnapshotRepo) Range(ctx context.Context, productID, locationID string, from, to time.Time) ([]*entity.StockSnapshotDaily, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM stock_snapshots_daily
		WHERE product_id = $1 AND location_id = $2 AND snapshot_date >= $3 AND snapshot_date <= $4
		ORDER BY snapshot_date`
	rows, err := r.q.Query(ctx, query, productID, locationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("range snapshots: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockSnapshotDaily
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		list = append(list, snap)
	}
	return list, rows.Err()
}

// HasOnOrAfter informa si el par tiene algún snapshot con fecha >= date.
func (r *StockSnapshotRepo) HasOnOrAfter(ctx context.Context, productID, locationID string, date time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM stock_snapshots_daily
			WHERE product_id = $1 AND location_id = $2 AND snapshot_date >= $3
		)`
	var exists bool
	if err := r.q.QueryRow(ctx, query, productID, locationID, date).Scan(&exists); err != nil {
		return false, fmt.Errorf("has snapshot on or after: %w", err)
	}
	return exists, nil
}

// ProductIDsOn lista los productos con snapshot en la ubicación y fecha dadas.
func (r *StockSnapshotRepo) ProductIDsOn(ctx context.Context, locationID string, date time.Time) ([]string, error) {
	query := `
		SELECT product_id FROM stock_snapshots_daily
		WHERE location_id = $1 AND snapshot_date = $2
		ORDER BY product_id`
	rows, err := r.q.Query(ctx, query, locationID, date)
	if err != nil {
		return nil, fmt.Errorf("snapshot product ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LastDate devuelve la fecha de snapshot más reciente de la ubicación.
func (r *StockSnapshotRepo) LastDate(ctx context.Context, locationID string) (*time.Time, error) {
	query := `
		SELECT MAX(snapshot_date) FROM stock_snapshots_daily
		WHERE location_id = $1`
	var last *time.Time
	if err := r.q.QueryRow(ctx, query, locationID).Scan(&last); err != nil {
		return nil, fmt.Errorf("last snapshot date: %w", err)
	}
	return last, nil
}

func scanSnapshot(row pgx.Row) (*entity.StockSnapshotDaily, error) {
	var snap entity.StockSnapshotDaily
	err := row.Scan(
		&snap.ProductID, &snap.LocationID, &snap.MerchantID, &snap.SnapshotDate,
		&snap.OpeningQty, &snap.InQty, &snap.OutQty, &snap.AdjustmentQty, &snap.ClosingQty,
		&snap.AverageCost, &snap.TotalValue, &snap.TurnoverVelocity,
		&snap.DaysSinceLastSale, &snap.CreatedAt, &snap.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
