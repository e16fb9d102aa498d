package repository

import (
	"context"
	"time"

	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

// SyncCursorRepository define el puerto de las máquinas de estado de sincronización.
// Las transiciones son UPDATEs atómicos condicionados: el lease garantiza un solo
// escritor por cursor y la condición WHERE es la que decide la transición.
type SyncCursorRepository interface {
	Create(ctx context.Context, cursor *entity.SyncCursor) error
	GetByID(ctx context.Context, id string) (*entity.SyncCursor, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]*entity.SyncCursor, error)

	// ListDue devuelve cursores elegibles para correr: sin lease vigente y con
	// next_sync_at vencido (o nulo), hasta limit filas.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*entity.SyncCursor, error)

	// Acquire toma el lease del cursor en un solo UPDATE condicionado:
	// falla con domain.ErrAlreadyRunning si otro worker tiene un lease vigente.
	// Un lease vencido (worker caído) es reclamable.
	Acquire(ctx context.Context, cursorID, leaseToken string, ttl time.Duration) (*entity.SyncCursor, error)

	// Progress avanza el token incremental bajo el lease dado.
	// Falla con domain.ErrStaleLease si el lease ya no es el vigente.
	Progress(ctx context.Context, cursorID, leaseToken, cursorToken, lastProcessedID string, items int) error

	// Fail registra un fallo: consecutive_failures+1, status=failed,
	// next_sync_at=nextSyncAt y libera el lease.
	Fail(ctx context.Context, cursorID, leaseToken, errMsg string, nextSyncAt time.Time) error

	// Succeed registra éxito: failures=0, status=completed, last_success_at=now,
	// next_sync_at=nextSyncAt y libera el lease.
	Succeed(ctx context.Context, cursorID, leaseToken string, nextSyncAt time.Time) error

	// ReleaseLease devuelve el cursor a idle sin tocar contadores (apagado limpio).
	ReleaseLease(ctx context.Context, cursorID, leaseToken string) error

	// StartBackfill abre un backfill histórico sobre [from, to]; falla con
	// domain.ErrAlreadyRunning si ya hay uno en curso. No toca el cursor incremental.
	StartBackfill(ctx context.Context, cursorID string, from, to time.Time) error

	// BackfillProgress avanza el marcador del backfill (independiente del incremental).
	BackfillProgress(ctx context.Context, cursorID, backfillCursor string) error

	// FinishBackfill cierra el backfill con estado completed o failed.
	FinishBackfill(ctx context.Context, cursorID, state string) error
}
