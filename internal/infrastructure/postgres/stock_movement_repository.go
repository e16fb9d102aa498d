package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, seq, merchant_id, product_id, location_id, qty_change, balance_after,
		reason, ref_type, ref_id, counterpart_location_id, unit_cost, total_cost,
		occurred_at, created_at, created_by, note`

// StockMovementRepo implementación del ledger sobre PostgreSQL (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create inserta la fila del ledger y captura el seq asignado por la BD.
// Una clave de idempotencia repetida devuelve domain.ErrDuplicate (unique parcial).
func (r *StockMovementRepo) Create(ctx context.Context, movement *entity.StockMovement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (id, merchant_id, product_id, location_id, qty_change, balance_after,
			reason, ref_type, ref_id, counterpart_location_id, unit_cost, total_cost,
			occurred_at, created_at, created_by, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING seq`
	refType, refID := (*string)(nil), (*string)(nil)
	if movement.HasRef() {
		refType, refID = &movement.RefType, &movement.RefID
	}
	counterpart := (*string)(nil)
	if movement.CounterpartLocationID != "" {
		counterpart = &movement.CounterpartLocationID
	}
	createdBy := (*string)(nil)
	if movement.CreatedBy != "" {
		createdBy = &movement.CreatedBy
	}
	err := r.q.QueryRow(ctx, query,
		movement.ID, movement.MerchantID, movement.ProductID, movement.LocationID,
		movement.QtyChange, movement.BalanceAfter, movement.Reason, refType, refID,
		counterpart, movement.UnitCost, movement.TotalCost,
		movement.OccurredAt, movement.CreatedAt, createdBy, movement.Note,
	).Scan(&movement.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// GetByRef busca por la clave de idempotencia completa. (nil, nil) si no existe.
func (r *StockMovementRepo) GetByRef(ctx context.Context, refType, refID, productID, locationID string) (*entity.StockMovement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE ref_type = $1 AND ref_id = $2 AND product_id = $3 AND location_id = $4`
	m, err := scanMovement(r.q.QueryRow(ctx, query, refType, refID, productID, locationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement by ref: %w", err)
	}
	return m, nil
}

// ListByProductLocation lista el ledger del par en orden de replay: (occurred_at, seq) ascendente.
func (r *StockMovementRepo) ListByProductLocation(ctx context.Context, productID, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE product_id = $1 AND location_id = $2`
	args := []any{productID, locationID}
	pos := 3
	if from != nil {
		query += fmt.Sprintf(" AND occurred_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND occurred_at <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY occurred_at, seq LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	return collectMovements(rows)
}

// ListDay devuelve los movimientos de una ubicación dentro del día calendario UTC,
// ordenados por producto y luego (occurred_at, seq).
func (r *StockMovementRepo) ListDay(ctx context.Context, locationID string, day time.Time) ([]*entity.StockMovement, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE location_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY product_id, occurred_at, seq`
	rows, err := r.q.Query(ctx, query, locationID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("list day movements: %w", err)
	}
	defer rows.Close()
	return collectMovements(rows)
}

// ReplayTotals pliega el ledger completo del par: on_hand es la suma de qty_change,
// e in_transit se deriva de las transferencias donde el par es destino
// (despachos hacia él menos recepciones ya registradas).
func (r *StockMovementRepo) ReplayTotals(ctx context.Context, productID, locationID string) (repository.ReplayTotals, error) {
	var totals repository.ReplayTotals
	query := `
		SELECT COUNT(*), COALESCE(SUM(qty_change), 0), MAX(occurred_at)
		FROM stock_movements
		WHERE product_id = $1 AND location_id = $2`
	err := r.q.QueryRow(ctx, query, productID, locationID).Scan(
		&totals.Movements, &totals.OnHand, &totals.LastMovementAt,
	)
	if err != nil {
		return repository.ReplayTotals{}, fmt.Errorf("replay totals: %w", err)
	}

	// GREATEST: recepciones huérfanas (transfer_in sin despacho registrado) no
	// deben derivar un in_transit negativo, igual que el piso de AdjustInTransit.
	transitQuery := `
		SELECT GREATEST(COALESCE(SUM(
			CASE
				WHEN reason = 'transfer_out' AND counterpart_location_id = $2 THEN -qty_change
				WHEN reason = 'transfer_in'  AND location_id = $2            THEN -qty_change
				ELSE 0
			END), 0), 0)
		FROM stock_movements
		WHERE product_id = $1
		  AND reason IN ('transfer_out', 'transfer_in')
		  AND (location_id = $2 OR counterpart_location_id = $2)`
	if err := r.q.QueryRow(ctx, transitQuery, productID, locationID).Scan(&totals.InTransit); err != nil {
		return repository.ReplayTotals{}, fmt.Errorf("replay in transit: %w", err)
	}
	return totals, nil
}

// SumBefore suma qty_change de los movimientos anteriores al instante dado.
func (r *StockMovementRepo) SumBefore(ctx context.Context, productID, locationID string, before time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(qty_change), 0)
		FROM stock_movements
		WHERE product_id = $1 AND location_id = $2 AND occurred_at < $3`
	var sum int64
	if err := r.q.QueryRow(ctx, query, productID, locationID, before).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum before: %w", err)
	}
	return sum, nil
}

// LastSaleAt devuelve el occurred_at de la última venta antes del instante dado.
// (nil, nil) si el producto nunca se ha vendido en la ubicación.
func (r *StockMovementRepo) LastSaleAt(ctx context.Context, productID, locationID string, before time.Time) (*time.Time, error) {
	query := `
		SELECT MAX(occurred_at)
		FROM stock_movements
		WHERE product_id = $1 AND location_id = $2 AND reason = 'sale' AND occurred_at < $3`
	var last *time.Time
	if err := r.q.QueryRow(ctx, query, productID, locationID, before).Scan(&last); err != nil {
		return nil, fmt.Errorf("last sale at: %w", err)
	}
	return last, nil
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var refType, refID, counterpart, createdBy *string
	err := row.Scan(
		&m.ID, &m.Seq, &m.MerchantID, &m.ProductID, &m.LocationID,
		&m.QtyChange, &m.BalanceAfter, &m.Reason, &refType, &refID, &counterpart,
		&m.UnitCost, &m.TotalCost, &m.OccurredAt, &m.CreatedAt, &createdBy, &m.Note,
	)
	if err != nil {
		return nil, err
	}
	if refType != nil {
		m.RefType = *refType
	}
	if refID != nil {
		m.RefID = *refID
	}
	if counterpart != nil {
		m.CounterpartLocationID = *counterpart
	}
	if createdBy != nil {
		m.CreatedBy = *createdBy
	}
	return &m, nil
}

func collectMovements(rows pgx.Rows) ([]*entity.StockMovement, error) {
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
