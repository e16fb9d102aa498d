package identity

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/StockSync-api/internal/application/ledger"
	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

// ReconcileUseCase cierra ítems de la cola de reconciliación por acción humana:
// vincular a un producto existente, crear uno nuevo desde el payload, o ignorar.
// Al vincular o crear, los eventos diferidos acumulados se re-aplican al ledger
// dentro de la misma transacción que marca el ítem como resuelto: o entra todo
// (identificador, movimientos, niveles, estado) o no entra nada.
type ReconcileUseCase struct {
	txRunner      TxRunner
	unmatchedRepo repository.UnmatchedItemRepository
	productRepo   repository.ProductRepository
	locationRepo  repository.LocationRepository
	log           *logger.Logger
}

// NewReconcileUseCase construye el caso de uso de resolución manual.
func NewReconcileUseCase(
	txRunner TxRunner,
	unmatchedRepo repository.UnmatchedItemRepository,
	productRepo repository.ProductRepository,
	locationRepo repository.LocationRepository,
	log *logger.Logger,
) *ReconcileUseCase {
	return &ReconcileUseCase{
		txRunner:      txRunner,
		unmatchedRepo: unmatchedRepo,
		productRepo:   productRepo,
		locationRepo:  locationRepo,
		log:           log,
	}
}

// ResolveActionInput acción manual sobre un ítem pendiente.
// Action=link requiere ProductID; Action=create admite NewProduct (si viene
// vacío, el nombre se toma del identificador reportado).
type ResolveActionInput struct {
	ItemID     string
	Action     string // link, create, ignore
	ProductID  string // producto destino para link
	NewProduct *NewProductInput
	ResolvedBy string
}

// NewProductInput datos mínimos del producto a crear desde la cola.
type NewProductInput struct {
	Name      string
	Category  string
	UnitCost  decimal.Decimal
	UnitPrice decimal.Decimal
}

// ResolveActionResult resume la resolución: el producto final (nil en ignore)
// y cuántos eventos diferidos se re-aplicaron o se saltaron por idempotencia.
type ResolveActionResult struct {
	Item           *entity.UnmatchedItem
	ProductID      string
	EventsReplayed int
	EventsSkipped  int
}

// ResolveUnmatched ejecuta la acción sobre el ítem. El ítem se bloquea
// (SELECT FOR UPDATE) durante toda la resolución para que un sync en vuelo
// sobre el mismo identificador no compita con la acción manual.
func (uc *ReconcileUseCase) ResolveUnmatched(ctx context.Context, in ResolveActionInput) (*ResolveActionResult, error) {
	if in.ItemID == "" {
		return nil, domain.ErrInvalidInput
	}
	switch in.Action {
	case entity.ResolveActionLink:
		if in.ProductID == "" {
			return nil, domain.ErrInvalidInput
		}
	case entity.ResolveActionCreate, entity.ResolveActionIgnore:
	default:
		return nil, domain.ErrInvalidInput
	}

	result := &ResolveActionResult{}
	err := uc.txRunner.RunReconciliation(ctx, func(
		unmatchedRepo repository.UnmatchedItemRepository,
		identifierRepo repository.ProductIdentifierRepository,
		productRepo repository.ProductRepository,
		movRepo repository.StockMovementRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.StockSnapshotRepository,
	) error {
		item, err := unmatchedRepo.GetByIDForUpdate(ctx, in.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		if item.Status != entity.UnmatchedStatusPending {
			return domain.ErrConflict
		}
		result.Item = item
		now := time.Now().UTC()

		if in.Action == entity.ResolveActionIgnore {
			item.Status = entity.UnmatchedStatusIgnored
			item.ResolvedAt = &now
			item.ResolvedBy = in.ResolvedBy
			return unmatchedRepo.Update(ctx, item)
		}

		// 1. Producto destino: existente (link) o nuevo desde el payload (create)
		product, err := uc.targetProduct(ctx, productRepo, item, in)
		if err != nil {
			return err
		}
		result.ProductID = product.ID

		// 2. Alta del identificador para que reportes futuros resuelvan exactos
		ident := &entity.ProductIdentifier{
			ID:          uuid.New().String(),
			ProductID:   product.ID,
			MerchantID:  item.MerchantID,
			Type:        identifierTypeOrDefault(item.IdentifierType),
			Value:       item.IdentifierValue,
			Source:      item.Source,
			MatchMethod: entity.MatchMethodReconciliation,
			Verified:    true,
			CreatedAt:   now,
		}
		if err := identifierRepo.Create(ctx, ident); err != nil {
			if !errors.Is(err, domain.ErrDuplicate) {
				return err
			}
			// Ya vinculado (p.ej. por un match difuso previo): válido solo si
			// apunta al mismo producto que eligió el operador.
			existing, gerr := identifierRepo.GetByTypeValue(ctx, item.MerchantID, item.Source, ident.Type, ident.Value)
			if gerr != nil {
				return gerr
			}
			if existing == nil || existing.ProductID != product.ID {
				return domain.ErrConflict
			}
		}

		// 3. Replay diferido: los eventos acumulados entran al ledger con su clave
		//    de idempotencia original, en orden de ocurrencia
		replayed, skipped, err := uc.replayEvents(ctx, movRepo, levelRepo, item, product, in.ResolvedBy)
		if err != nil {
			return err
		}
		result.EventsReplayed = replayed
		result.EventsSkipped = skipped

		item.Status = entity.UnmatchedStatusMatched
		item.MatchedProductID = &product.ID
		item.MatchMethod = entity.MatchMethodReconciliation
		item.ResolvedAt = &now
		item.ResolvedBy = in.ResolvedBy
		return unmatchedRepo.Update(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("item_id", in.ItemID).
		Str("action", in.Action).
		Str("product_id", result.ProductID).
		Int("events_replayed", result.EventsReplayed).
		Msg("ítem de reconciliación resuelto")
	return result, nil
}

// targetProduct devuelve el producto de destino según la acción: valida el
// existente en link, o crea uno nuevo (con nombre normalizado) en create.
func (uc *ReconcileUseCase) targetProduct(
	ctx context.Context,
	productRepo repository.ProductRepository,
	item *entity.UnmatchedItem,
	in ResolveActionInput,
) (*entity.Product, error) {
	if in.Action == entity.ResolveActionLink {
		product, err := productRepo.GetByID(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil || product.MerchantID != item.MerchantID {
			return nil, domain.ErrNotFound
		}
		return product, nil
	}

	name := item.IdentifierValue
	var category string
	cost, price := decimal.Zero, decimal.Zero
	if in.NewProduct != nil {
		if in.NewProduct.Name != "" {
			name = in.NewProduct.Name
		}
		category = in.NewProduct.Category
		cost = in.NewProduct.UnitCost
		price = in.NewProduct.UnitPrice
	}
	now := time.Now().UTC()
	product := &entity.Product{
		ID:         uuid.New().String(),
		MerchantID: item.MerchantID,
		Name:       name,
		Category:   category,
		UnitCost:   cost,
		UnitPrice:  price,
		Active:     true,
		Attributes: item.Payload,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// replayEvents re-aplica los eventos diferidos en orden de ocurrencia bajo el
// lock de cada nivel. Un evento cuya clave de idempotencia ya existe en el
// ledger (llegó también por sync tras el vínculo) se salta sin duplicar.
func (uc *ReconcileUseCase) replayEvents(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	levelRepo repository.StockLevelRepository,
	item *entity.UnmatchedItem,
	product *entity.Product,
	resolvedBy string,
) (replayed, skipped int, err error) {
	events := make([]entity.DeferredEvent, len(item.PendingEvents))
	copy(events, item.PendingEvents)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})

	for _, ev := range events {
		if ev.QtyChange == 0 || ev.LocationID == "" {
			skipped++
			continue
		}
		location, err := uc.locationRepo.GetByID(ctx, ev.LocationID)
		if err != nil {
			return replayed, skipped, err
		}
		if location == nil || location.MerchantID != item.MerchantID {
			skipped++
			continue
		}

		refType, refID := ev.RefType, ev.ExternalRefID
		if refID != "" {
			if refType == "" {
				refType = string(entity.ReasonSync)
			}
			existing, err := movRepo.GetByRef(ctx, refType, refID, product.ID, ev.LocationID)
			if err != nil {
				return replayed, skipped, err
			}
			if existing != nil {
				skipped++
				continue
			}
		} else {
			refType = ""
		}

		// El canal puede haber omitido o inventado el motivo; el mismo default
		// que aplica el worker en la pasada en vivo rige en el replay diferido.
		reason := ev.Reason
		if reason == "" {
			reason = entity.ReasonSync
		}
		if !reason.Valid() {
			skipped++
			continue
		}

		level, err := levelRepo.GetForUpdate(ctx, product.ID, ev.LocationID)
		if err != nil {
			return replayed, skipped, err
		}
		movement := &entity.StockMovement{
			ID:         uuid.New().String(),
			MerchantID: item.MerchantID,
			ProductID:  product.ID,
			LocationID: ev.LocationID,
			QtyChange:  ev.QtyChange,
			Reason:     reason,
			RefType:    refType,
			RefID:      refID,
			UnitCost:   ev.UnitCost,
			OccurredAt: ev.OccurredAt.UTC(),
			CreatedAt:  time.Now().UTC(),
			CreatedBy:  resolvedBy,
			Note:       "replay diferido desde la cola de reconciliación",
		}
		if ev.UnitCost != nil {
			tc := ev.UnitCost.Mul(decimal.NewFromInt(ev.QtyChange))
			movement.TotalCost = &tc
		}
		if err := ledger.ApplyMovement(ctx, movRepo, levelRepo, level, movement); err != nil {
			return replayed, skipped, err
		}
		replayed++
	}
	return replayed, skipped, nil
}

// ListPending lista los ítems de la cola por estado con paginación.
func (uc *ReconcileUseCase) ListPending(ctx context.Context, merchantID, status string, limit, offset int) ([]*entity.UnmatchedItem, error) {
	if merchantID == "" {
		return nil, domain.ErrInvalidInput
	}
	if status == "" {
		status = entity.UnmatchedStatusPending
	}
	return uc.unmatchedRepo.ListByStatus(ctx, merchantID, status, limit, offset)
}

// GetItem devuelve un ítem por ID.
func (uc *ReconcileUseCase) GetItem(ctx context.Context, itemID string) (*entity.UnmatchedItem, error) {
	if itemID == "" {
		return nil, domain.ErrInvalidInput
	}
	item, err := uc.unmatchedRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}
