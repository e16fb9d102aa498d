package entity

import "time"

// StockLevel es la caché materializada del balance por (producto, ubicación).
// OnHand debe igualar siempre la suma de QtyChange del ledger; Available nunca se
// escribe de forma independiente: se recalcula como OnHand - Allocated en cada escritura.
type StockLevel struct {
	ProductID      string
	LocationID     string
	OnHand         int64
	Allocated      int64 // reservado por órdenes aún no despachadas
	Available      int64 // OnHand - Allocated (columna generada en BD)
	InTransit      int64 // despachado hacia esta ubicación, pendiente de recibir
	LastMovementAt *time.Time
	UpdatedAt      time.Time
}

// RecalcAvailable recalcula Available a partir de OnHand y Allocated.
func (s *StockLevel) RecalcAvailable() {
	s.Available = s.OnHand - s.Allocated
}
