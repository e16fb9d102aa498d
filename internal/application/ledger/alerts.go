package ledger

import (
	"context"
	"time"

	"github.com/jhoicas/StockSync-api/internal/application/ports"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// movementNotifier evalúa las señales que siguen a un movimiento confirmado:
// bajo stock, balance negativo y día ya snapshoteado que requiere recómputo.
// Corre después del Commit: un fallo al publicar no afecta el movimiento.
type movementNotifier struct {
	plRepo    repository.ProductLocationRepository
	identRepo repository.ProductIdentifierRepository
	snapRepo  repository.StockSnapshotRepository
	alerts    ports.AlertPublisher
}

func newMovementNotifier(
	plRepo repository.ProductLocationRepository,
	identRepo repository.ProductIdentifierRepository,
	snapRepo repository.StockSnapshotRepository,
	alerts ports.AlertPublisher,
) *movementNotifier {
	return &movementNotifier{plRepo: plRepo, identRepo: identRepo, snapRepo: snapRepo, alerts: alerts}
}

// notify publica las alertas que apliquen y devuelve el día a recomputar cuando
// el movimiento cayó en un día con snapshot ya cerrado, o nil.
func (n *movementNotifier) notify(ctx context.Context, merchantID string, product *entity.Product, level *entity.StockLevel, movement *entity.StockMovement) *time.Time {
	if n == nil || product == nil || level == nil || movement == nil {
		return nil
	}
	n.checkLowStock(ctx, merchantID, product, level, movement)
	n.checkNegative(ctx, merchantID, product, level, movement)
	return n.checkRecompute(ctx, merchantID, product, movement)
}

func (n *movementNotifier) checkLowStock(ctx context.Context, merchantID string, product *entity.Product, level *entity.StockLevel, movement *entity.StockMovement) {
	if n.alerts == nil {
		return
	}
	pl, err := n.plRepo.Get(ctx, level.ProductID, level.LocationID)
	if err != nil || pl == nil {
		return
	}
	if level.OnHand > pl.ReorderPoint {
		return
	}
	// Fire-and-forget: el adaptador registra el fallo; el movimiento ya está confirmado
	_ = n.alerts.Publish(ctx, ports.Alert{
		Type:        ports.AlertLowStock,
		MerchantID:  merchantID,
		ProductID:   level.ProductID,
		ProductName: product.Name,
		SKU:         n.skuOf(ctx, level.ProductID),
		LocationID:  level.LocationID,
		Stock: &ports.StockAlertInfo{
			OnHand:       level.OnHand,
			Available:    level.Available,
			ReorderPoint: pl.ReorderPoint,
			ReorderQty:   pl.ReorderQty,
		},
		OccurredAt: movement.OccurredAt,
	})
}

func (n *movementNotifier) checkNegative(ctx context.Context, merchantID string, product *entity.Product, level *entity.StockLevel, movement *entity.StockMovement) {
	if n.alerts == nil || level.OnHand >= 0 {
		return
	}
	_ = n.alerts.Publish(ctx, ports.Alert{
		Type:        ports.AlertNegativeBalance,
		MerchantID:  merchantID,
		ProductID:   level.ProductID,
		ProductName: product.Name,
		LocationID:  level.LocationID,
		Detail:      AvisoBalanceNegativo,
		Stock: &ports.StockAlertInfo{
			OnHand:    level.OnHand,
			Available: level.Available,
		},
		OccurredAt: movement.OccurredAt,
	})
}

// checkRecompute detecta movimientos tardíos: si el día del movimiento ya tiene
// snapshot (propio o posterior), ese día y los siguientes quedaron desfasados.
func (n *movementNotifier) checkRecompute(ctx context.Context, merchantID string, product *entity.Product, movement *entity.StockMovement) *time.Time {
	if n.snapRepo == nil {
		return nil
	}
	day := dayOf(movement.OccurredAt)
	if !day.Before(dayOf(time.Now().UTC())) {
		return nil
	}
	has, err := n.snapRepo.HasOnOrAfter(ctx, movement.ProductID, movement.LocationID, day)
	if err != nil || !has {
		return nil
	}
	if n.alerts != nil {
		_ = n.alerts.Publish(ctx, ports.Alert{
			Type:         ports.AlertRecomputeRequired,
			MerchantID:   merchantID,
			ProductID:    movement.ProductID,
			ProductName:  product.Name,
			LocationID:   movement.LocationID,
			SnapshotDate: day.Format("2006-01-02"),
			OccurredAt:   movement.OccurredAt,
		})
	}
	return &day
}

func (n *movementNotifier) skuOf(ctx context.Context, productID string) string {
	idents, err := n.identRepo.ListByProduct(ctx, productID)
	if err != nil {
		return ""
	}
	for _, ident := range idents {
		if ident.Type == entity.IdentifierTypeSKU {
			return ident.Value
		}
	}
	return ""
}

// dayOf normaliza un instante a su fecha calendario UTC (00:00).
func dayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
