package repository

import (
	"context"

	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

// MerchantRepository define el puerto de comercios y sus canales habilitados.
type MerchantRepository interface {
	Create(ctx context.Context, m *entity.Merchant) error
	GetByID(ctx context.Context, id string) (*entity.Merchant, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Merchant, error)

	// HasActiveChannel informa si el comercio tiene el canal activo y sin vencer.
	// false sin error cuando simplemente no está habilitado.
	HasActiveChannel(ctx context.Context, merchantID, channel string) (bool, error)

	// UpsertChannel habilita/actualiza un canal del comercio.
	UpsertChannel(ctx context.Context, ch *entity.MerchantChannel) error

	ListChannels(ctx context.Context, merchantID string) ([]*entity.MerchantChannel, error)
}
