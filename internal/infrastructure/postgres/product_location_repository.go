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

var _ repository.ProductLocationRepository = (*ProductLocationRepo)(nil)

// ProductLocationRepo implementación de la política de surtido sobre PostgreSQL.
type ProductLocationRepo struct {
	q Querier
}

// NewProductLocationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductLocationRepository(q Querier) *ProductLocationRepo {
	return &ProductLocationRepo{q: q}
}

// Upsert inserta o actualiza la política de reposición del par.
func (r *ProductLocationRepo) Upsert(ctx context.Context, pl *entity.ProductLocation) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO product_locations (product_id, location_id, merchant_id, reorder_point,
			reorder_qty, max_stock_level, preferred_vendor, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (product_id, location_id) DO UPDATE SET
			reorder_point = EXCLUDED.reorder_point,
			reorder_qty = EXCLUDED.reorder_qty,
			max_stock_level = EXCLUDED.max_stock_level,
			preferred_vendor = EXCLUDED.preferred_vendor,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		pl.ProductID, pl.LocationID, pl.MerchantID, pl.ReorderPoint,
		pl.ReorderQty, pl.MaxStockLevel, pl.PreferredVendor, now,
	)
	if err != nil {
		return fmt.Errorf("upsert product location: %w", err)
	}
	return nil
}

// Get obtiene la asociación. (nil, nil) si el producto no se surte en la ubicación.
func (r *ProductLocationRepo) Get(ctx context.Context, productID, locationID string) (*entity.ProductLocation, error) {
	query := `
		SELECT product_id, location_id, merchant_id, reorder_point, reorder_qty,
			max_stock_level, preferred_vendor, created_at, updated_at
		FROM product_locations
		WHERE product_id = $1 AND location_id = $2`
	var pl entity.ProductLocation
	err := r.q.QueryRow(ctx, query, productID, locationID).Scan(
		&pl.ProductID, &pl.LocationID, &pl.MerchantID, &pl.ReorderPoint,
		&pl.ReorderQty, &pl.MaxStockLevel, &pl.PreferredVendor, &pl.CreatedAt, &pl.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product location: %w", err)
	}
	return &pl, nil
}

// ListByLocation lista las asociaciones de una ubicación.
func (r *ProductLocationRepo) ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.ProductLocation, error) {
	query := `
		SELECT product_id, location_id, merchant_id, reorder_point, reorder_qty,
			max_stock_level, preferred_vendor, created_at, updated_at
		FROM product_locations
		WHERE location_id = $1
		ORDER BY product_id
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, locationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list product locations: %w", err)
	}
	defer rows.Close()
	var list []*entity.ProductLocation
	for rows.Next() {
		var pl entity.ProductLocation
		if err := rows.Scan(&pl.ProductID, &pl.LocationID, &pl.MerchantID, &pl.ReorderPoint,
			&pl.ReorderQty, &pl.MaxStockLevel, &pl.PreferredVendor, &pl.CreatedAt, &pl.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product location: %w", err)
		}
		list = append(list, &pl)
	}
	return list, rows.Err()
}

// Delete retira la asociación del par.
func (r *ProductLocationRepo) Delete(ctx context.Context, productID, locationID string) error {
	query := `DELETE FROM product_locations WHERE product_id = $1 AND location_id = $2`
	if _, err := r.q.Exec(ctx, query, productID, locationID); err != nil {
		return fmt.Errorf("delete product location: %w", err)
	}
	return nil
}
