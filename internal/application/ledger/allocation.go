package ledger

import (
	"context"

	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// AllocationUseCase reserva y libera stock para órdenes aún no despachadas.
// Las reservas mueven solo la columna allocated: no son movimientos del ledger
// porque no cambian existencias físicas, pero sí descuentan el disponible.
type AllocationUseCase struct {
	txRunner TxRunner
}

// NewAllocationUseCase construye el caso de uso de reservas.
func NewAllocationUseCase(txRunner TxRunner) *AllocationUseCase {
	return &AllocationUseCase{txRunner: txRunner}
}

// Allocate reserva qty unidades del par. Falla con domain.ErrInsufficientAvailable
// si el disponible no alcanza: una reserva jamás deja available negativo.
func (uc *AllocationUseCase) Allocate(ctx context.Context, productID, locationID string, qty int64) (*entity.StockLevel, error) {
	if productID == "" || locationID == "" || qty <= 0 {
		return nil, domain.ErrInvalidInput
	}
	var level *entity.StockLevel
	err := uc.txRunner.Run(ctx, func(
		_ repository.StockMovementRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.StockSnapshotRepository,
		_ repository.ProductRepository,
	) error {
		var err error
		level, err = levelRepo.GetForUpdate(ctx, productID, locationID)
		if err != nil {
			return err
		}
		if level.Available < qty {
			return domain.ErrInsufficientAvailable
		}
		level.Allocated += qty
		level.RecalcAvailable()
		return levelRepo.Upsert(ctx, level)
	})
	if err != nil {
		return nil, err
	}
	return level, nil
}

// Release libera qty unidades reservadas del par. Liberar más de lo reservado
// deja allocated en 0 (las liberaciones repetidas no corrompen el disponible).
func (uc *AllocationUseCase) Release(ctx context.Context, productID, locationID string, qty int64) (*entity.StockLevel, error) {
	if productID == "" || locationID == "" || qty <= 0 {
		return nil, domain.ErrInvalidInput
	}
	var level *entity.StockLevel
	err := uc.txRunner.Run(ctx, func(
		_ repository.StockMovementRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.StockSnapshotRepository,
		_ repository.ProductRepository,
	) error {
		var err error
		level, err = levelRepo.GetForUpdate(ctx, productID, locationID)
		if err != nil {
			return err
		}
		level.Allocated -= qty
		if level.Allocated < 0 {
			level.Allocated = 0
		}
		level.RecalcAvailable()
		return levelRepo.Upsert(ctx, level)
	})
	if err != nil {
		return nil, err
	}
	return level, nil
}
