package identity

import (
	"context"

	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// TxRunner ejecuta la resolución manual de un ítem dentro de una transacción:
// el lock del ítem, el alta del identificador (o del producto), el replay de los
// eventos diferidos y la marca de resuelto comparten un solo Commit.
type TxRunner interface {
	RunReconciliation(ctx context.Context, fn func(
		unmatchedRepo repository.UnmatchedItemRepository,
		identifierRepo repository.ProductIdentifierRepository,
		productRepo repository.ProductRepository,
		movRepo repository.StockMovementRepository,
		levelRepo repository.StockLevelRepository,
		snapRepo repository.StockSnapshotRepository,
	) error) error
}
