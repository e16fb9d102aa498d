package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error

	// UpdateCost actualiza el costo promedio ponderado (dentro de la tx del append).
	UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error

	ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]*entity.Product, error)

	// FindByNormalizedName busca productos activos cuyo nombre normalizado coincida
	// (fallback difuso del resolver; la normalización vive en domain/identity).
	FindByNormalizedName(ctx context.Context, merchantID, normalizedName string) ([]*entity.Product, error)

	// Deactivate marca el producto como inactivo; el catálogo nunca borra filas.
	Deactivate(ctx context.Context, id string) error
}
