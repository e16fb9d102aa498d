package entity

import "time"

// ProductLocation asocia un producto a una ubicación con su política de reposición.
// Sin fila, el producto no se surte en esa ubicación.
type ProductLocation struct {
	ProductID       string
	LocationID      string
	MerchantID      string
	ReorderPoint    int64 // on_hand <= ReorderPoint dispara alerta de reposición
	ReorderQty      int64 // cantidad sugerida de pedido
	MaxStockLevel   int64
	PreferredVendor string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
