package repository

import (
	"context"

	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

// UnmatchedItemRepository define el puerto de la cola de reconciliación.
type UnmatchedItemRepository interface {
	Create(ctx context.Context, item *entity.UnmatchedItem) error
	GetByID(ctx context.Context, id string) (*entity.UnmatchedItem, error)

	// GetByIDForUpdate bloquea la fila durante la resolución manual para que no
	// compita con un sync en vuelo sobre el mismo identificador.
	GetByIDForUpdate(ctx context.Context, id string) (*entity.UnmatchedItem, error)

	// GetPending busca el ítem pendiente por (merchant, source, tipo, valor). (nil, nil) si no hay.
	GetPending(ctx context.Context, merchantID, source, identifierType, value string) (*entity.UnmatchedItem, error)

	// AppendEvent acumula un evento diferido en el ítem pendiente y actualiza
	// seen_count/last_seen_at (reportes repetidos del mismo identificador).
	AppendEvent(ctx context.Context, id string, event entity.DeferredEvent) error

	// Update persiste los campos mutables (status, matched_product_id, match_method,
	// pending_events, resolved_at, resolved_by).
	Update(ctx context.Context, item *entity.UnmatchedItem) error

	ListByStatus(ctx context.Context, merchantID, status string, limit, offset int) ([]*entity.UnmatchedItem, error)
	CountByStatus(ctx context.Context, merchantID, status string) (int64, error)
}
