package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

var _ repository.UnmatchedItemRepository = (*UnmatchedItemRepo)(nil)

const unmatchedColumns = `id, merchant_id, source, identifier_type, identifier_value, payload,
		pending_events, seen_count, status, matched_product_id, match_method,
		first_seen_at, last_seen_at, resolved_at, resolved_by`

// UnmatchedItemRepo implementación de la cola de reconciliación sobre PostgreSQL.
// Los eventos diferidos viven como arreglo JSONB en la misma fila.
type UnmatchedItemRepo struct {
	q Querier
}

// NewUnmatchedItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewUnmatchedItemRepository(q Querier) *UnmatchedItemRepo {
	return &UnmatchedItemRepo{q: q}
}

// Create registra un ítem pendiente nuevo. domain.ErrDuplicate si ya hay uno
// pendiente para el mismo (comercio, source, tipo, valor): el llamador debe
// acumular sobre el existente con AppendEvent.
func (r *UnmatchedItemRepo) Create(ctx context.Context, item *entity.UnmatchedItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Status == "" {
		item.Status = entity.UnmatchedStatusPending
	}
	if item.SeenCount == 0 {
		item.SeenCount = 1
	}
	events, err := marshalEvents(item.PendingEvents)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO unmatched_items (id, merchant_id, source, identifier_type, identifier_value,
			payload, pending_events, seen_count, status, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = r.q.Exec(ctx, query,
		item.ID, item.MerchantID, item.Source, item.IdentifierType, item.IdentifierValue,
		rawJSON(item.Payload), events, item.SeenCount, item.Status, item.FirstSeenAt, item.LastSeenAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create unmatched item: %w", err)
	}
	return nil
}

// GetByID obtiene el ítem. (nil, nil) si no existe.
func (r *UnmatchedItemRepo) GetByID(ctx context.Context, id string) (*entity.UnmatchedItem, error) {
	query := `SELECT ` + unmatchedColumns + ` FROM unmatched_items WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate bloquea la fila durante la resolución manual para que no
// compita con un sync en vuelo sobre el mismo identificador.
func (r *UnmatchedItemRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.UnmatchedItem, error) {
	query := `SELECT ` + unmatchedColumns + ` FROM unmatched_items WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

// GetPending busca el ítem pendiente por identificador. (nil, nil) si no hay.
func (r *UnmatchedItemRepo) GetPending(ctx context.Context, merchantID, source, identifierType, value string) (*entity.UnmatchedItem, error) {
	query := `
		SELECT ` + unmatchedColumns + `
		FROM unmatched_items
		WHERE merchant_id = $1 AND source = $2 AND identifier_type = $3
		  AND identifier_value = $4 AND status = 'pending'`
	return r.getOne(ctx, query, merchantID, source, identifierType, value)
}

func (r *UnmatchedItemRepo) getOne(ctx context.Context, query string, args ...any) (*entity.UnmatchedItem, error) {
	item, err := scanUnmatched(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get unmatched item: %w", err)
	}
	return item, nil
}

// AppendEvent acumula un evento diferido sobre el ítem aún pendiente y sube
// seen_count. domain.ErrConflict si el ítem dejó de estar pendiente.
func (r *UnmatchedItemRepo) AppendEvent(ctx context.Context, id string, event entity.DeferredEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal deferred event: %w", err)
	}
	query := `
		UPDATE unmatched_items
		SET pending_events = pending_events || $2::jsonb,
			seen_count = seen_count + 1,
			last_seen_at = now()
		WHERE id = $1 AND status = 'pending'`
	tag, err := r.q.Exec(ctx, query, id, payload)
	if err != nil {
		return fmt.Errorf("append deferred event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// Update persiste los campos mutables tras una resolución.
func (r *UnmatchedItemRepo) Update(ctx context.Context, item *entity.UnmatchedItem) error {
	events, err := marshalEvents(item.PendingEvents)
	if err != nil {
		return err
	}
	query := `
		UPDATE unmatched_items
		SET status = $2, matched_product_id = $3, match_method = $4, pending_events = $5,
			seen_count = $6, last_seen_at = $7, resolved_at = $8, resolved_by = $9
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		item.ID, item.Status, item.MatchedProductID, item.MatchMethod, events,
		item.SeenCount, item.LastSeenAt, item.ResolvedAt, item.ResolvedBy,
	)
	if err != nil {
		return fmt.Errorf("update unmatched item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByStatus lista los ítems del comercio por estado, los más recientes primero.
func (r *UnmatchedItemRepo) ListByStatus(ctx context.Context, merchantID, status string, limit, offset int) ([]*entity.UnmatchedItem, error) {
	query := `
		SELECT ` + unmatchedColumns + `
		FROM unmatched_items
		WHERE merchant_id = $1 AND status = $2
		ORDER BY last_seen_at DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, merchantID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list unmatched items: %w", err)
	}
	defer rows.Close()
	var list []*entity.UnmatchedItem
	for rows.Next() {
		item, err := scanUnmatched(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unmatched item: %w", err)
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

// CountByStatus cuenta los ítems del comercio por estado.
func (r *UnmatchedItemRepo) CountByStatus(ctx context.Context, merchantID, status string) (int64, error) {
	query := `SELECT COUNT(*) FROM unmatched_items WHERE merchant_id = $1 AND status = $2`
	var count int64
	if err := r.q.QueryRow(ctx, query, merchantID, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unmatched items: %w", err)
	}
	return count, nil
}

func scanUnmatched(row pgx.Row) (*entity.UnmatchedItem, error) {
	var item entity.UnmatchedItem
	var payload, events []byte
	err := row.Scan(
		&item.ID, &item.MerchantID, &item.Source, &item.IdentifierType, &item.IdentifierValue,
		&payload, &events, &item.SeenCount, &item.Status, &item.MatchedProductID,
		&item.MatchMethod, &item.FirstSeenAt, &item.LastSeenAt, &item.ResolvedAt, &item.ResolvedBy,
	)
	if err != nil {
		return nil, err
	}
	item.Payload = payload
	if len(events) > 0 {
		if err := json.Unmarshal(events, &item.PendingEvents); err != nil {
			return nil, fmt.Errorf("unmarshal pending events: %w", err)
		}
	}
	return &item, nil
}

func marshalEvents(events []entity.DeferredEvent) ([]byte, error) {
	if events == nil {
		events = []entity.DeferredEvent{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("marshal pending events: %w", err)
	}
	return data, nil
}

// rawJSON convierte un RawMessage en parámetro JSONB, con NULL para vacío.
func rawJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
