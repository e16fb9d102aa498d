package repository

import (
	"context"

	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

// ProductLocationRepository define el puerto de la política de surtido por ubicación.
type ProductLocationRepository interface {
	Upsert(ctx context.Context, pl *entity.ProductLocation) error
	Get(ctx context.Context, productID, locationID string) (*entity.ProductLocation, error)
	ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.ProductLocation, error)
	// Delete retira la asociación; el caso de uso elimina también el StockLevel del par.
	Delete(ctx context.Context, productID, locationID string) error
}
