package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/StockSync-api/internal/application/ports"
	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/inventory"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// AppendMovementUseCase registra movimientos del ledger de forma transaccional:
// bloquea la fila de stock_levels (SELECT FOR UPDATE), inserta la fila inmutable
// del ledger con su balance resultante y actualiza la caché en el mismo Commit.
// Un movimiento con clave de idempotencia repetida no se aplica dos veces.
type AppendMovementUseCase struct {
	txRunner     TxRunner
	movRepo      repository.StockMovementRepository // lecturas de duplicados fuera de la tx
	levelRepo    repository.StockLevelRepository
	productRepo  repository.ProductRepository
	locationRepo repository.LocationRepository
	notifier     *movementNotifier
}

// NewAppendMovementUseCase construye el caso de uso central del ledger.
func NewAppendMovementUseCase(
	txRunner TxRunner,
	movRepo repository.StockMovementRepository,
	levelRepo repository.StockLevelRepository,
	productRepo repository.ProductRepository,
	locationRepo repository.LocationRepository,
	snapRepo repository.StockSnapshotRepository,
	plRepo repository.ProductLocationRepository,
	identRepo repository.ProductIdentifierRepository,
	alerts ports.AlertPublisher,
) *AppendMovementUseCase {
	return &AppendMovementUseCase{
		txRunner:     txRunner,
		movRepo:      movRepo,
		levelRepo:    levelRepo,
		productRepo:  productRepo,
		locationRepo: locationRepo,
		notifier:     newMovementNotifier(plRepo, identRepo, snapRepo, alerts),
	}
}

// AppendInput entrada para registrar un movimiento.
// QtyChange lleva el signo: negativo para salidas (sale), positivo para entradas.
// RefType/RefID van juntos o no van: forman la clave de idempotencia con el par.
type AppendInput struct {
	MerchantID string
	ProductID  string
	LocationID string
	QtyChange  int64
	Reason     entity.MovementReason
	RefType    string
	RefID      string
	OccurredAt time.Time // cero = ahora
	UnitCost   *decimal.Decimal
	CreatedBy  string
	Note       string
}

// AppendResult resultado del append. Duplicate indica que la clave de idempotencia
// ya estaba aplicada: Movement es la fila original y nada se modificó.
// Warning reporta condiciones que no bloquean (balance negativo tras aplicar).
// RecomputeDay viene poblado cuando el movimiento cayó en un día con snapshot
// ya cerrado: ese día (y los posteriores) necesitan RecomputeDay del agregador.
type AppendResult struct {
	Movement     *entity.StockMovement
	Level        *entity.StockLevel
	Duplicate    bool
	Warning      string
	RecomputeDay *time.Time
}

// AvisoBalanceNegativo es el texto de advertencia cuando un movimiento deja on_hand < 0.
const AvisoBalanceNegativo = "el movimiento deja existencias negativas"

// Append valida, resuelve idempotencia y aplica el movimiento en una transacción.
func (uc *AppendMovementUseCase) Append(ctx context.Context, input AppendInput) (*AppendResult, error) {
	// 1. Validar entrada
	if err := uc.validate(input); err != nil {
		return nil, err
	}

	// 2. Producto y ubicación deben existir y pertenecer al comercio
	product, err := uc.resolveProduct(ctx, input.MerchantID, input.ProductID)
	if err != nil {
		return nil, err
	}
	if err := uc.resolveLocation(ctx, input.MerchantID, input.LocationID); err != nil {
		return nil, err
	}

	occurredAt := input.OccurredAt.UTC()
	if input.OccurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	// 3. Chequeo de idempotencia antes de abrir la tx: si la clave ya se aplicó,
	//    devolver la fila original sin tocar nada.
	if input.RefType != "" {
		if dup, err := uc.findDuplicate(ctx, input.RefType, input.RefID, input.ProductID, input.LocationID); err != nil || dup != nil {
			return dup, err
		}
	}

	// 4. Valuar salidas al costo promedio vigente cuando no viene costo explícito
	unitCost := input.UnitCost
	if unitCost == nil && input.Reason == entity.ReasonSale {
		c := product.UnitCost
		unitCost = &c
	}

	movement := &entity.StockMovement{
		ID:         uuid.New().String(),
		MerchantID: input.MerchantID,
		ProductID:  input.ProductID,
		LocationID: input.LocationID,
		QtyChange:  input.QtyChange,
		Reason:     input.Reason,
		RefType:    input.RefType,
		RefID:      input.RefID,
		UnitCost:   unitCost,
		OccurredAt: occurredAt,
		CreatedAt:  time.Now().UTC(),
		CreatedBy:  input.CreatedBy,
		Note:       input.Note,
	}
	if unitCost != nil {
		tc := decimal.NewFromInt(input.QtyChange).Mul(*unitCost)
		movement.TotalCost = &tc
	}

	// 5. Transacción: bloquear nivel, insertar fila del ledger, actualizar caché
	//    y recalcular costo promedio en recepciones con costo.
	var level *entity.StockLevel
	err = uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.StockSnapshotRepository,
		productRepo repository.ProductRepository,
	) error {
		var err error
		level, err = levelRepo.GetForUpdate(ctx, input.ProductID, input.LocationID)
		if err != nil {
			return err
		}
		if input.Reason == entity.ReasonReceipt && input.UnitCost != nil && input.QtyChange > 0 {
			newCost := inventory.WeightedAverageCost(level.OnHand, product.UnitCost, input.QtyChange, *input.UnitCost)
			if err := productRepo.UpdateCost(ctx, input.ProductID, newCost); err != nil {
				return err
			}
		}
		return ApplyMovement(ctx, movRepo, levelRepo, level, movement)
	})
	if err != nil {
		// 6. Carrera perdida contra otro escritor con la misma clave: la tx ya
		//    abortó, así que el duplicado se relee fuera de ella.
		if errors.Is(err, domain.ErrDuplicate) && input.RefType != "" {
			if dup, derr := uc.findDuplicate(ctx, input.RefType, input.RefID, input.ProductID, input.LocationID); derr == nil && dup != nil {
				return dup, nil
			}
		}
		return nil, err
	}

	// 7. Señales post-commit: alertas fire-and-forget y detección de día desfasado
	recomputeDay := uc.notifier.notify(ctx, input.MerchantID, product, level, movement)

	result := &AppendResult{Movement: movement, Level: level, RecomputeDay: recomputeDay}
	if level.OnHand < 0 {
		result.Warning = AvisoBalanceNegativo
	}
	return result, nil
}

// StocktakeInput entrada para un conteo físico: se registra la cantidad contada,
// no el delta. El delta se calcula contra el on_hand vigente bajo el lock.
type StocktakeInput struct {
	MerchantID string
	ProductID  string
	LocationID string
	CountedQty int64
	RefType    string
	RefID      string
	OccurredAt time.Time
	CreatedBy  string
	Note       string
}

// Stocktake ajusta el balance del par a la cantidad contada con un movimiento
// reason=stocktake cuyo qty_change es la diferencia. Un conteo sin diferencia
// no genera fila en el ledger.
func (uc *AppendMovementUseCase) Stocktake(ctx context.Context, input StocktakeInput) (*AppendResult, error) {
	if input.MerchantID == "" || input.ProductID == "" || input.LocationID == "" {
		return nil, domain.ErrInvalidInput
	}
	if input.CountedQty < 0 {
		return nil, domain.ErrInvalidInput
	}
	if (input.RefType == "") != (input.RefID == "") {
		return nil, domain.ErrInvalidInput
	}

	product, err := uc.resolveProduct(ctx, input.MerchantID, input.ProductID)
	if err != nil {
		return nil, err
	}
	if err := uc.resolveLocation(ctx, input.MerchantID, input.LocationID); err != nil {
		return nil, err
	}

	occurredAt := input.OccurredAt.UTC()
	if input.OccurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	if input.RefType != "" {
		if dup, err := uc.findDuplicate(ctx, input.RefType, input.RefID, input.ProductID, input.LocationID); err != nil || dup != nil {
			return dup, err
		}
	}

	var level *entity.StockLevel
	var movement *entity.StockMovement
	err = uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.StockSnapshotRepository,
		_ repository.ProductRepository,
	) error {
		var err error
		level, err = levelRepo.GetForUpdate(ctx, input.ProductID, input.LocationID)
		if err != nil {
			return err
		}
		delta := input.CountedQty - level.OnHand
		if delta == 0 {
			return nil
		}
		movement = &entity.StockMovement{
			ID:         uuid.New().String(),
			MerchantID: input.MerchantID,
			ProductID:  input.ProductID,
			LocationID: input.LocationID,
			QtyChange:  delta,
			Reason:     entity.ReasonStocktake,
			RefType:    input.RefType,
			RefID:      input.RefID,
			OccurredAt: occurredAt,
			CreatedAt:  time.Now().UTC(),
			CreatedBy:  input.CreatedBy,
			Note:       input.Note,
		}
		return ApplyMovement(ctx, movRepo, levelRepo, level, movement)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) && input.RefType != "" {
			if dup, derr := uc.findDuplicate(ctx, input.RefType, input.RefID, input.ProductID, input.LocationID); derr == nil && dup != nil {
				return dup, nil
			}
		}
		return nil, err
	}

	result := &AppendResult{Movement: movement, Level: level}
	if movement != nil {
		result.RecomputeDay = uc.notifier.notify(ctx, input.MerchantID, product, level, movement)
	}
	return result, nil
}

func (uc *AppendMovementUseCase) validate(input AppendInput) error {
	if input.MerchantID == "" || input.ProductID == "" || input.LocationID == "" {
		return domain.ErrInvalidInput
	}
	if !input.Reason.Valid() {
		return domain.ErrInvalidInput
	}
	// Las transferencias llevan contraparte y doble pata: van por TransferUseCase
	if input.Reason == entity.ReasonTransferOut || input.Reason == entity.ReasonTransferIn {
		return domain.ErrInvalidInput
	}
	if input.QtyChange == 0 {
		return domain.ErrInvalidInput
	}
	switch input.Reason {
	case entity.ReasonSale:
		if input.QtyChange > 0 {
			return domain.ErrInvalidInput
		}
	case entity.ReasonReceipt, entity.ReasonRefund:
		if input.QtyChange < 0 {
			return domain.ErrInvalidInput
		}
	}
	if (input.RefType == "") != (input.RefID == "") {
		return domain.ErrInvalidInput
	}
	if input.UnitCost != nil && input.UnitCost.IsNegative() {
		return domain.ErrInvalidInput
	}
	return nil
}

func (uc *AppendMovementUseCase) resolveProduct(ctx context.Context, merchantID, productID string) (*entity.Product, error) {
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || product.MerchantID != merchantID {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

func (uc *AppendMovementUseCase) resolveLocation(ctx context.Context, merchantID, locationID string) error {
	location, err := uc.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		return err
	}
	if location == nil || location.MerchantID != merchantID {
		return domain.ErrNotFound
	}
	return nil
}

// findDuplicate busca la clave de idempotencia ya aplicada y arma el resultado
// duplicado con la fila original y el nivel vigente. (nil, nil) si no hay duplicado.
func (uc *AppendMovementUseCase) findDuplicate(ctx context.Context, refType, refID, productID, locationID string) (*AppendResult, error) {
	existing, err := uc.movRepo.GetByRef(ctx, refType, refID, productID, locationID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	level, err := uc.levelRepo.Get(ctx, productID, locationID)
	if err != nil {
		return nil, err
	}
	return &AppendResult{Movement: existing, Level: level, Duplicate: true}, nil
}

// ApplyMovement es el paso central dentro de la tx: calcula el balance resultante,
// inserta la fila del ledger y deja la caché del par consistente con ella.
// Debe ejecutarse dentro de la transacción que bloqueó level (SELECT FOR UPDATE);
// la reconciliación lo reutiliza para re-aplicar eventos diferidos.
func ApplyMovement(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	levelRepo repository.StockLevelRepository,
	level *entity.StockLevel,
	movement *entity.StockMovement,
) error {
	movement.BalanceAfter = level.OnHand + movement.QtyChange
	if err := movRepo.Create(ctx, movement); err != nil {
		return err
	}
	level.OnHand = movement.BalanceAfter
	level.RecalcAvailable()
	if level.LastMovementAt == nil || movement.OccurredAt.After(*level.LastMovementAt) {
		t := movement.OccurredAt
		level.LastMovementAt = &t
	}
	level.UpdatedAt = movement.CreatedAt
	return levelRepo.Upsert(ctx, level)
}
