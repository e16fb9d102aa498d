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
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// RefTypeTransfer es el ref_type de ambas patas de una transferencia; el ref_id
// compartido las correlaciona y la ubicación de cada pata completa la clave.
const RefTypeTransfer = "transfer"

// TransferUseCase mueve stock entre ubicaciones en dos fases (despacho y recepción)
// o en una sola operación atómica. El despacho descuenta el origen y suma in_transit
// del destino; la recepción convierte in_transit en on_hand. Cada fase es idempotente
// por su propia pata del ledger.
type TransferUseCase struct {
	txRunner     TxRunner
	movRepo      repository.StockMovementRepository
	levelRepo    repository.StockLevelRepository
	productRepo  repository.ProductRepository
	locationRepo repository.LocationRepository
	notifier     *movementNotifier
}

// NewTransferUseCase construye el caso de uso de transferencias.
func NewTransferUseCase(
	txRunner TxRunner,
	movRepo repository.StockMovementRepository,
	levelRepo repository.StockLevelRepository,
	productRepo repository.ProductRepository,
	locationRepo repository.LocationRepository,
	snapRepo repository.StockSnapshotRepository,
	plRepo repository.ProductLocationRepository,
	identRepo repository.ProductIdentifierRepository,
	alerts ports.AlertPublisher,
) *TransferUseCase {
	return &TransferUseCase{
		txRunner:     txRunner,
		movRepo:      movRepo,
		levelRepo:    levelRepo,
		productRepo:  productRepo,
		locationRepo: locationRepo,
		notifier:     newMovementNotifier(plRepo, identRepo, snapRepo, alerts),
	}
}

// TransferInput entrada del despacho (o de la transferencia inmediata).
// Qty siempre positivo. TransferID vacío genera uno nuevo.
type TransferInput struct {
	MerchantID     string
	ProductID      string
	FromLocationID string
	ToLocationID   string
	Qty            int64
	TransferID     string
	OccurredAt     time.Time
	CreatedBy      string
	Note           string
}

// ReceiveInput entrada de la recepción de una transferencia despachada.
// La cantidad recibida es la despachada: se lee de la pata transfer_out.
type ReceiveInput struct {
	MerchantID     string
	ProductID      string
	FromLocationID string
	ToLocationID   string
	TransferID     string
	OccurredAt     time.Time
	CreatedBy      string
	Note           string
}

// TransferResult resultado de cualquiera de las fases. Receive es nil mientras
// la transferencia siga en tránsito; Origin/Dest son los niveles tocados por la fase.
type TransferResult struct {
	TransferID string
	Dispatch   *entity.StockMovement
	Receive    *entity.StockMovement
	Origin     *entity.StockLevel
	Dest       *entity.StockLevel
	Duplicate  bool
}

// Dispatch descuenta el origen (requiere disponible suficiente) y suma la cantidad
// al in_transit del destino. El stock despachado no es vendible en ningún lado
// hasta la recepción.
func (uc *TransferUseCase) Dispatch(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if err := uc.validate(input.MerchantID, input.ProductID, input.FromLocationID, input.ToLocationID); err != nil {
		return nil, err
	}
	if input.Qty <= 0 {
		return nil, domain.ErrInvalidInput
	}
	product, err := uc.resolveParties(ctx, input.MerchantID, input.ProductID, input.FromLocationID, input.ToLocationID)
	if err != nil {
		return nil, err
	}

	transferID := input.TransferID
	if transferID == "" {
		transferID = uuid.New().String()
	}
	occurredAt := occurredOrNow(input.OccurredAt)

	// Idempotencia de la fase: la pata transfer_out en el origen
	if dup, err := uc.findDuplicateLeg(ctx, transferID, input.ProductID, input.FromLocationID); err != nil || dup != nil {
		return dup, err
	}

	cost := product.UnitCost
	outMov := &entity.StockMovement{
		ID:                    uuid.New().String(),
		MerchantID:            input.MerchantID,
		ProductID:             input.ProductID,
		LocationID:            input.FromLocationID,
		QtyChange:             -input.Qty,
		Reason:                entity.ReasonTransferOut,
		RefType:               RefTypeTransfer,
		RefID:                 transferID,
		CounterpartLocationID: input.ToLocationID,
		UnitCost:              &cost,
		OccurredAt:            occurredAt,
		CreatedAt:             time.Now().UTC(),
		CreatedBy:             input.CreatedBy,
		Note:                  input.Note,
	}
	setTotalCost(outMov)

	var origin *entity.StockLevel
	err = uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.StockSnapshotRepository,
		_ repository.ProductRepository,
	) error {
		var err error
		origin, err = levelRepo.GetForUpdate(ctx, input.ProductID, input.FromLocationID)
		if err != nil {
			return err
		}
		// Despachar exige disponible suficiente: no se promete stock inexistente
		if origin.Available < input.Qty {
			return domain.ErrInsufficientAvailable
		}
		if err := ApplyMovement(ctx, movRepo, levelRepo, origin, outMov); err != nil {
			return err
		}
		// in_transit del destino sube con un UPDATE atómico, sin segundo FOR UPDATE
		return levelRepo.AdjustInTransit(ctx, input.ProductID, input.ToLocationID, input.Qty)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			if dup, derr := uc.findDuplicateLeg(ctx, transferID, input.ProductID, input.FromLocationID); derr == nil && dup != nil {
				return dup, nil
			}
		}
		return nil, err
	}

	uc.notifier.notify(ctx, input.MerchantID, product, origin, outMov)
	return &TransferResult{TransferID: transferID, Dispatch: outMov, Origin: origin}, nil
}

// Receive registra la pata transfer_in en el destino: on_hand sube y el
// in_transit de esa misma fila baja, en la misma transacción.
func (uc *TransferUseCase) Receive(ctx context.Context, input ReceiveInput) (*TransferResult, error) {
	if err := uc.validate(input.MerchantID, input.ProductID, input.FromLocationID, input.ToLocationID); err != nil {
		return nil, err
	}
	if input.TransferID == "" {
		return nil, domain.ErrInvalidInput
	}
	product, err := uc.resolveParties(ctx, input.MerchantID, input.ProductID, input.FromLocationID, input.ToLocationID)
	if err != nil {
		return nil, err
	}

	// La pata de despacho debe existir y apuntar a este destino
	outMov, err := uc.movRepo.GetByRef(ctx, RefTypeTransfer, input.TransferID, input.ProductID, input.FromLocationID)
	if err != nil {
		return nil, err
	}
	if outMov == nil || outMov.MerchantID != input.MerchantID {
		return nil, domain.ErrNotFound
	}
	if outMov.CounterpartLocationID != input.ToLocationID {
		return nil, domain.ErrConflict
	}
	qty := -outMov.QtyChange
	occurredAt := occurredOrNow(input.OccurredAt)

	// Idempotencia de la fase: la pata transfer_in en el destino
	if dup, err := uc.findDuplicateLeg(ctx, input.TransferID, input.ProductID, input.ToLocationID); err != nil || dup != nil {
		return dup, err
	}

	inMov := &entity.StockMovement{
		ID:                    uuid.New().String(),
		MerchantID:            input.MerchantID,
		ProductID:             input.ProductID,
		LocationID:            input.ToLocationID,
		QtyChange:             qty,
		Reason:                entity.ReasonTransferIn,
		RefType:               RefTypeTransfer,
		RefID:                 input.TransferID,
		CounterpartLocationID: input.FromLocationID,
		UnitCost:              outMov.UnitCost,
		OccurredAt:            occurredAt,
		CreatedAt:             time.Now().UTC(),
		CreatedBy:             input.CreatedBy,
		Note:                  input.Note,
	}
	setTotalCost(inMov)

	var dest *entity.StockLevel
	err = uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.StockSnapshotRepository,
		_ repository.ProductRepository,
	) error {
		var err error
		dest, err = levelRepo.GetForUpdate(ctx, input.ProductID, input.ToLocationID)
		if err != nil {
			return err
		}
		// El in_transit baja en el mismo Upsert que sube el on_hand
		dest.InTransit -= qty
		if dest.InTransit < 0 {
			dest.InTransit = 0
		}
		return ApplyMovement(ctx, movRepo, levelRepo, dest, inMov)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			if dup, derr := uc.findDuplicateLeg(ctx, input.TransferID, input.ProductID, input.ToLocationID); derr == nil && dup != nil {
				return dup, nil
			}
		}
		return nil, err
	}

	uc.notifier.notify(ctx, input.MerchantID, product, dest, inMov)
	return &TransferResult{TransferID: input.TransferID, Dispatch: outMov, Receive: inMov, Dest: dest}, nil
}

// Immediate ejecuta despacho y recepción en una sola transacción: ambas patas
// quedan en el ledger y nada pasa por in_transit.
func (uc *TransferUseCase) Immediate(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if err := uc.validate(input.MerchantID, input.ProductID, input.FromLocationID, input.ToLocationID); err != nil {
		return nil, err
	}
	if input.Qty <= 0 {
		return nil, domain.ErrInvalidInput
	}
	product, err := uc.resolveParties(ctx, input.MerchantID, input.ProductID, input.FromLocationID, input.ToLocationID)
	if err != nil {
		return nil, err
	}

	transferID := input.TransferID
	if transferID == "" {
		transferID = uuid.New().String()
	}
	occurredAt := occurredOrNow(input.OccurredAt)
	if dup, err := uc.findDuplicateLeg(ctx, transferID, input.ProductID, input.FromLocationID); err != nil || dup != nil {
		return dup, err
	}

	cost := product.UnitCost
	now := time.Now().UTC()
	outMov := &entity.StockMovement{
		ID:                    uuid.New().String(),
		MerchantID:            input.MerchantID,
		ProductID:             input.ProductID,
		LocationID:            input.FromLocationID,
		QtyChange:             -input.Qty,
		Reason:                entity.ReasonTransferOut,
		RefType:               RefTypeTransfer,
		RefID:                 transferID,
		CounterpartLocationID: input.ToLocationID,
		UnitCost:              &cost,
		OccurredAt:            occurredAt,
		CreatedAt:             now,
		CreatedBy:             input.CreatedBy,
		Note:                  input.Note,
	}
	inMov := &entity.StockMovement{
		ID:                    uuid.New().String(),
		MerchantID:            input.MerchantID,
		ProductID:             input.ProductID,
		LocationID:            input.ToLocationID,
		QtyChange:             input.Qty,
		Reason:                entity.ReasonTransferIn,
		RefType:               RefTypeTransfer,
		RefID:                 transferID,
		CounterpartLocationID: input.FromLocationID,
		UnitCost:              &cost,
		OccurredAt:            occurredAt,
		CreatedAt:             now,
		CreatedBy:             input.CreatedBy,
		Note:                  input.Note,
	}
	setTotalCost(outMov)
	setTotalCost(inMov)

	var origin, dest *entity.StockLevel
	err = uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.StockSnapshotRepository,
		_ repository.ProductRepository,
	) error {
		// Bloquear ambas filas en orden estable de ubicación para que dos
		// transferencias cruzadas concurrentes no se bloqueen mutuamente
		firstID, secondID := input.FromLocationID, input.ToLocationID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		first, err := levelRepo.GetForUpdate(ctx, input.ProductID, firstID)
		if err != nil {
			return err
		}
		second, err := levelRepo.GetForUpdate(ctx, input.ProductID, secondID)
		if err != nil {
			return err
		}
		if firstID == input.FromLocationID {
			origin, dest = first, second
		} else {
			origin, dest = second, first
		}
		if origin.Available < input.Qty {
			return domain.ErrInsufficientAvailable
		}
		if err := ApplyMovement(ctx, movRepo, levelRepo, origin, outMov); err != nil {
			return err
		}
		return ApplyMovement(ctx, movRepo, levelRepo, dest, inMov)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			if dup, derr := uc.findDuplicateLeg(ctx, transferID, input.ProductID, input.FromLocationID); derr == nil && dup != nil {
				return dup, nil
			}
		}
		return nil, err
	}

	uc.notifier.notify(ctx, input.MerchantID, product, origin, outMov)
	uc.notifier.notify(ctx, input.MerchantID, product, dest, inMov)
	return &TransferResult{TransferID: transferID, Dispatch: outMov, Receive: inMov, Origin: origin, Dest: dest}, nil
}

func (uc *TransferUseCase) validate(merchantID, productID, fromID, toID string) error {
	if merchantID == "" || productID == "" || fromID == "" || toID == "" {
		return domain.ErrInvalidInput
	}
	if fromID == toID {
		return domain.ErrInvalidInput
	}
	return nil
}

func (uc *TransferUseCase) resolveParties(ctx context.Context, merchantID, productID, fromID, toID string) (*entity.Product, error) {
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || product.MerchantID != merchantID {
		return nil, domain.ErrNotFound
	}
	for _, id := range []string{fromID, toID} {
		loc, err := uc.locationRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if loc == nil || loc.MerchantID != merchantID {
			return nil, domain.ErrNotFound
		}
	}
	return product, nil
}

// findDuplicateLeg arma el resultado duplicado a partir de una pata ya aplicada.
func (uc *TransferUseCase) findDuplicateLeg(ctx context.Context, transferID, productID, locationID string) (*TransferResult, error) {
	existing, err := uc.movRepo.GetByRef(ctx, RefTypeTransfer, transferID, productID, locationID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	result := &TransferResult{TransferID: transferID, Duplicate: true}
	if existing.Reason == entity.ReasonTransferIn {
		result.Receive = existing
	} else {
		result.Dispatch = existing
	}
	return result, nil
}

func occurredOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func setTotalCost(m *entity.StockMovement) {
	if m.UnitCost == nil {
		return
	}
	tc := m.UnitCost.Mul(decimal.NewFromInt(m.QtyChange))
	m.TotalCost = &tc
}
