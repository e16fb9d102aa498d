package ledger

import (
	"context"
	"time"

	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// QueryUseCase lecturas del ledger y de la caché de niveles (sin bloqueos).
type QueryUseCase struct {
	movRepo   repository.StockMovementRepository
	levelRepo repository.StockLevelRepository
}

// NewQueryUseCase construye las consultas de inventario.
func NewQueryUseCase(
	movRepo repository.StockMovementRepository,
	levelRepo repository.StockLevelRepository,
) *QueryUseCase {
	return &QueryUseCase{movRepo: movRepo, levelRepo: levelRepo}
}

// GetLevel devuelve el nivel vigente del par (en cero si nunca hubo movimientos).
func (uc *QueryUseCase) GetLevel(ctx context.Context, productID, locationID string) (*entity.StockLevel, error) {
	if productID == "" || locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.levelRepo.Get(ctx, productID, locationID)
}

// ListLevels lista los niveles de una ubicación con paginación.
func (uc *QueryUseCase) ListLevels(ctx context.Context, locationID string, limit, offset int) ([]*entity.StockLevel, error) {
	if locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.levelRepo.ListByLocation(ctx, locationID, limit, offset)
}

// ListMovements lista la historia del par en orden de replay, con rango opcional.
func (uc *QueryUseCase) ListMovements(ctx context.Context, productID, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	if productID == "" || locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.movRepo.ListByProductLocation(ctx, productID, locationID, from, to, limit, offset)
}

// ListLowStock devuelve los pares de la ubicación en o bajo el umbral de reposición,
// ordenados por déficit. threshold nil usa el reorder_point de cada asociación.
func (uc *QueryUseCase) ListLowStock(ctx context.Context, locationID string, threshold *int64) ([]repository.LowStockItem, error) {
	if locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	if threshold != nil && *threshold < 0 {
		return nil, domain.ErrInvalidInput
	}
	return uc.levelRepo.ListLowStock(ctx, locationID, repository.LowStockPolicy{Threshold: threshold})
}
