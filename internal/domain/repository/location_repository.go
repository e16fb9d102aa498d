package repository

import (
	"context"

	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

// LocationRepository define el puerto de ubicaciones con inventario.
type LocationRepository interface {
	Create(ctx context.Context, l *entity.Location) error
	GetByID(ctx context.Context, id string) (*entity.Location, error)
	Update(ctx context.Context, l *entity.Location) error
	ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]*entity.Location, error)

	// ListActive lista todas las ubicaciones activas (scheduler de cierre diario).
	ListActive(ctx context.Context) ([]*entity.Location, error)
}
