package entity

import "time"

// Canales de sincronización soportados.
const (
	ChannelPOS         = "pos"         // punto de venta externo
	ChannelMarketplace = "marketplace" // API de marketplace
)

// ValidChannel informa si el canal pertenece al conjunto soportado.
func ValidChannel(ch string) bool {
	return ch == ChannelPOS || ch == ChannelMarketplace
}

// Merchant representa el comercio dueño del catálogo y de las ubicaciones (multi-tenant).
type Merchant struct {
	ID        string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MerchantChannel indica qué canal de sincronización tiene habilitado un comercio.
// Sin fila (o IsActive=false, o vencido) el poller no agenda cursores de ese canal.
type MerchantChannel struct {
	MerchantID  string
	Channel     string // pos, marketplace
	IsActive    bool
	ActivatedAt time.Time
	ExpiresAt   *time.Time // nil = sin vencimiento
}

// Enabled informa si el canal está activo y sin vencer con respecto a now.
func (mc MerchantChannel) Enabled(now time.Time) bool {
	if !mc.IsActive {
		return false
	}
	if mc.ExpiresAt != nil && mc.ExpiresAt.Before(now) {
		return false
	}
	return true
}
