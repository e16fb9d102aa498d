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

var _ repository.SyncCursorRepository = (*SyncCursorRepo)(nil)

const cursorColumns = `id, merchant_id, channel, location_id, entity, cursor_token, last_processed_id,
		status, consecutive_failures, next_sync_at, lease_token, lease_expires_at,
		last_success_at, last_error, records_synced, backfill_state, backfill_cursor,
		backfill_range_start, backfill_range_end, created_at, updated_at`

// SyncCursorRepo implementación de los cursores de sincronización sobre PostgreSQL.
// Cada transición de estado es un UPDATE condicionado: la cláusula WHERE decide
// atómicamente si la transición procede, sin lecturas previas.
type SyncCursorRepo struct {
	q Querier
}

// NewSyncCursorRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSyncCursorRepository(q Querier) *SyncCursorRepo {
	return &SyncCursorRepo{q: q}
}

// Create registra un cursor nuevo. domain.ErrDuplicate si ya existe uno para
// (comercio, canal, ubicación-o-null, entidad).
func (r *SyncCursorRepo) Create(ctx context.Context, cursor *entity.SyncCursor) error {
	if cursor.ID == "" {
		cursor.ID = uuid.New().String()
	}
	if cursor.Status == "" {
		cursor.Status = entity.CursorStatusIdle
	}
	if cursor.BackfillState == "" {
		cursor.BackfillState = entity.BackfillNone
	}
	query := `
		INSERT INTO sync_cursors (id, merchant_id, channel, location_id, entity, cursor_token,
			last_processed_id, status, consecutive_failures, next_sync_at, backfill_state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())`
	_, err := r.q.Exec(ctx, query,
		cursor.ID, cursor.MerchantID, cursor.Channel, cursor.LocationID, cursor.Entity,
		cursor.CursorToken, cursor.LastProcessedID, cursor.Status,
		cursor.ConsecutiveFailures, cursor.NextSyncAt, cursor.BackfillState,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create sync cursor: %w", err)
	}
	return nil
}

// GetByID obtiene el cursor. (nil, nil) si no existe.
func (r *SyncCursorRepo) GetByID(ctx context.Context, id string) (*entity.SyncCursor, error) {
	query := `SELECT ` + cursorColumns + ` FROM sync_cursors WHERE id = $1`
	cur, err := scanCursor(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sync cursor: %w", err)
	}
	return cur, nil
}

// ListByMerchant lista los cursores del comercio ordenados por canal y entidad.
func (r *SyncCursorRepo) ListByMerchant(ctx context.Context, merchantID string) ([]*entity.SyncCursor, error) {
	query := `SELECT ` + cursorColumns + ` FROM sync_cursors WHERE merchant_id = $1 ORDER BY channel, entity`
	rows, err := r.q.Query(ctx, query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("list sync cursors: %w", err)
	}
	defer rows.Close()
	return collectCursors(rows)
}

// ListDue devuelve cursores elegibles: sin lease vigente y con next_sync_at
// vencido o nulo. Es un prefiltro; Acquire vuelve a validar atómicamente.
func (r *SyncCursorRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*entity.SyncCursor, error) {
	query := `
		SELECT ` + cursorColumns + `
		FROM sync_cursors
		WHERE (lease_expires_at IS NULL OR lease_expires_at < $1)
		  AND (next_sync_at IS NULL OR next_sync_at <= $1)
		ORDER BY next_sync_at NULLS FIRST
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due cursors: %w", err)
	}
	defer rows.Close()
	return collectCursors(rows)
}

// Acquire toma el lease en un solo UPDATE condicionado. Un lease vencido
// (worker caído) es reclamable; uno vigente devuelve domain.ErrAlreadyRunning.
func (r *SyncCursorRepo) Acquire(ctx context.Context, cursorID, leaseToken string, ttl time.Duration) (*entity.SyncCursor, error) {
	query := `
		UPDATE sync_cursors
		SET status = 'running', lease_token = $2, lease_expires_at = $3, updated_at = now()
		WHERE id = $1 AND (status <> 'running' OR lease_expires_at IS NULL OR lease_expires_at < now())
		RETURNING ` + cursorColumns
	expiresAt := time.Now().UTC().Add(ttl)
	cur, err := scanCursor(r.q.QueryRow(ctx, query, cursorID, leaseToken, expiresAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, gerr := r.GetByID(ctx, cursorID)
			if gerr != nil {
				return nil, gerr
			}
			if existing == nil {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrAlreadyRunning
		}
		return nil, fmt.Errorf("acquire cursor lease: %w", err)
	}
	return cur, nil
}

// Progress avanza el token incremental bajo el lease dado.
func (r *SyncCursorRepo) Progress(ctx context.Context, cursorID, leaseToken, cursorToken, lastProcessedID string, items int) error {
	query := `
		UPDATE sync_cursors
		SET cursor_token = $3, last_processed_id = $4, records_synced = records_synced + $5, updated_at = now()
		WHERE id = $1 AND lease_token = $2 AND lease_expires_at >= now()`
	tag, err := r.q.Exec(ctx, query, cursorID, leaseToken, cursorToken, lastProcessedID, items)
	if err != nil {
		return fmt.Errorf("progress cursor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleLease
	}
	return nil
}

// Fail registra el fallo: suma el contador, agenda el reintento y libera el lease.
func (r *SyncCursorRepo) Fail(ctx context.Context, cursorID, leaseToken, errMsg string, nextSyncAt time.Time) error {
	query := `
		UPDATE sync_cursors
		SET status = 'failed', consecutive_failures = consecutive_failures + 1,
			last_error = $3, next_sync_at = $4,
			lease_token = '', lease_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND lease_token = $2`
	tag, err := r.q.Exec(ctx, query, cursorID, leaseToken, errMsg, nextSyncAt)
	if err != nil {
		return fmt.Errorf("fail cursor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleLease
	}
	return nil
}

// Succeed registra el éxito: resetea fallos, agenda la próxima corrida y libera el lease.
func (r *SyncCursorRepo) Succeed(ctx context.Context, cursorID, leaseToken string, nextSyncAt time.Time) error {
	query := `
		UPDATE sync_cursors
		SET status = 'completed', consecutive_failures = 0, last_error = '',
			last_success_at = now(), next_sync_at = $3,
			lease_token = '', lease_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND lease_token = $2`
	tag, err := r.q.Exec(ctx, query, cursorID, leaseToken, nextSyncAt)
	if err != nil {
		return fmt.Errorf("succeed cursor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleLease
	}
	return nil
}

// ReleaseLease devuelve el cursor a idle sin tocar contadores (apagado limpio).
func (r *SyncCursorRepo) ReleaseLease(ctx context.Context, cursorID, leaseToken string) error {
	query := `
		UPDATE sync_cursors
		SET status = 'idle', lease_token = '', lease_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND lease_token = $2`
	tag, err := r.q.Exec(ctx, query, cursorID, leaseToken)
	if err != nil {
		return fmt.Errorf("release cursor lease: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleLease
	}
	return nil
}

// StartBackfill abre el backfill sobre [from, to]. La transición de backfill_state
// es la única barrera: no toca el lease ni el cursor incremental.
func (r *SyncCursorRepo) StartBackfill(ctx context.Context, cursorID string, from, to time.Time) error {
	query := `
		UPDATE sync_cursors
		SET backfill_state = 'in_progress', backfill_cursor = '',
			backfill_range_start = $2, backfill_range_end = $3, updated_at = now()
		WHERE id = $1 AND backfill_state <> 'in_progress'`
	tag, err := r.q.Exec(ctx, query, cursorID, from, to)
	if err != nil {
		return fmt.Errorf("start backfill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, gerr := r.GetByID(ctx, cursorID)
		if gerr != nil {
			return gerr
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		return domain.ErrAlreadyRunning
	}
	return nil
}

// BackfillProgress avanza el marcador del backfill en curso.
func (r *SyncCursorRepo) BackfillProgress(ctx context.Context, cursorID, backfillCursor string) error {
	query := `
		UPDATE sync_cursors
		SET backfill_cursor = $2, updated_at = now()
		WHERE id = $1 AND backfill_state = 'in_progress'`
	tag, err := r.q.Exec(ctx, query, cursorID, backfillCursor)
	if err != nil {
		return fmt.Errorf("backfill progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// FinishBackfill cierra el backfill en curso con completed o failed.
func (r *SyncCursorRepo) FinishBackfill(ctx context.Context, cursorID, state string) error {
	query := `
		UPDATE sync_cursors
		SET backfill_state = $2, updated_at = now()
		WHERE id = $1 AND backfill_state = 'in_progress'`
	tag, err := r.q.Exec(ctx, query, cursorID, state)
	if err != nil {
		return fmt.Errorf("finish backfill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func scanCursor(row pgx.Row) (*entity.SyncCursor, error) {
	var c entity.SyncCursor
	err := row.Scan(
		&c.ID, &c.MerchantID, &c.Channel, &c.LocationID, &c.Entity, &c.CursorToken,
		&c.LastProcessedID, &c.Status, &c.ConsecutiveFailures, &c.NextSyncAt,
		&c.LeaseToken, &c.LeaseExpiresAt, &c.LastSuccessAt, &c.LastError, &c.RecordsSynced,
		&c.BackfillState, &c.BackfillCursor, &c.BackfillRangeStart, &c.BackfillRangeEnd,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectCursors(rows pgx.Rows) ([]*entity.SyncCursor, error) {
	var list []*entity.SyncCursor
	for rows.Next() {
		c, err := scanCursor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync cursor: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
