package entity

import "time"

// Location representa una ubicación física o lógica con inventario propio
// (tienda, bodega, punto de venta). El stock se lleva por (producto, ubicación).
type Location struct {
	ID         string
	MerchantID string
	Name       string
	Address    string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
