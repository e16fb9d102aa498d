package ledger

import (
	"context"

	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios
// atados a esa tx. El append del ledger y la actualización de la caché de niveles
// comparten siempre esta frontera: o se confirman juntos o no se confirma nada.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		levelRepo repository.StockLevelRepository,
		snapRepo repository.StockSnapshotRepository,
		productRepo repository.ProductRepository,
	) error) error
}
