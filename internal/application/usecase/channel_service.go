package usecase

import (
	"context"
	"fmt"

	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// ChannelService verifica qué canales de sincronización tiene activos un comercio.
// Es el único punto de la aplicación que conoce la lógica de habilitación de canales.
type ChannelService struct {
	merchantRepo repository.MerchantRepository
}

// NewChannelService construye el servicio de canales.
func NewChannelService(merchantRepo repository.MerchantRepository) *ChannelService {
	return &ChannelService{merchantRepo: merchantRepo}
}

// HasActiveChannel informa si el comercio tiene el canal activo y sin vencer.
// Devuelve false (sin error) si el canal no está habilitado para el comercio.
// Devuelve error solo ante fallos de infraestructura (DB caída, timeout, etc.).
func (s *ChannelService) HasActiveChannel(ctx context.Context, merchantID, channel string) (bool, error) {
	if merchantID == "" || channel == "" {
		return false, fmt.Errorf("channel: merchantID y channel son obligatorios")
	}
	return s.merchantRepo.HasActiveChannel(ctx, merchantID, channel)
}
