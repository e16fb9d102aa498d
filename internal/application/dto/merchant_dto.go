package dto

import "time"

// CreateMerchantRequest entrada para crear un comercio.
type CreateMerchantRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// MerchantResponse salida de un comercio.
type MerchantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MerchantListResponse lista paginada de comercios.
type MerchantListResponse struct {
	Items []MerchantResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// UpsertChannelRequest habilita o actualiza un canal de sincronización del comercio.
type UpsertChannelRequest struct {
	Channel   string     `json:"channel" validate:"required,oneof=pos marketplace"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// MerchantChannelResponse salida de un canal habilitado.
type MerchantChannelResponse struct {
	MerchantID  string     `json:"merchant_id"`
	Channel     string     `json:"channel"`
	IsActive    bool       `json:"is_active"`
	ActivatedAt time.Time  `json:"activated_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
