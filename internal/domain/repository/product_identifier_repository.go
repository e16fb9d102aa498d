package repository

import (
	"context"

	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

// ProductIdentifierRepository define el puerto de los códigos por producto.
type ProductIdentifierRepository interface {
	// Create inserta el identificador; unique_violation si (source, type, value)
	// ya apunta a otro producto del comercio (conflicto reintetable en el resolver).
	Create(ctx context.Context, ident *entity.ProductIdentifier) error

	// GetByTypeValue busca la coincidencia exacta dentro del namespace. (nil, nil) si no hay.
	GetByTypeValue(ctx context.Context, merchantID, source, identifierType, value string) (*entity.ProductIdentifier, error)

	// FindByValue busca por valor crudo sin conocer el tipo (lectura O(1) vía índice
	// sobre value); devuelve la primera coincidencia del namespace. (nil, nil) si no hay.
	FindByValue(ctx context.Context, merchantID, source, value string) (*entity.ProductIdentifier, error)

	ListByProduct(ctx context.Context, productID string) ([]*entity.ProductIdentifier, error)

	// MarkVerified marca un identificador difuso como revisado por un humano.
	MarkVerified(ctx context.Context, id string) error
}
