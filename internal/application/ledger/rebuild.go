package ledger

import (
	"context"
	"time"

	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// RebuildUseCase reconstruye y verifica la caché de niveles a partir del ledger.
// El ledger es la fuente de verdad: ante cualquier sospecha de deriva, la caché
// se descarta y se recalcula plegando los movimientos.
type RebuildUseCase struct {
	txRunner  TxRunner
	movRepo   repository.StockMovementRepository
	levelRepo repository.StockLevelRepository
}

// NewRebuildUseCase construye el caso de uso de replay.
func NewRebuildUseCase(
	txRunner TxRunner,
	movRepo repository.StockMovementRepository,
	levelRepo repository.StockLevelRepository,
) *RebuildUseCase {
	return &RebuildUseCase{txRunner: txRunner, movRepo: movRepo, levelRepo: levelRepo}
}

// RebuildResult compara la caché previa con el resultado del replay.
// Drifted indica que la caché estaba desviada del ledger antes de reconstruir.
type RebuildResult struct {
	ProductID  string
	LocationID string
	Before     *entity.StockLevel
	After      *entity.StockLevel
	Movements  int64
	Drifted    bool
}

// Rebuild pliega el ledger completo del par bajo el lock de la fila y sobrescribe
// on_hand, in_transit y last_movement_at. allocated se preserva: las reservas
// no viven en el ledger.
func (uc *RebuildUseCase) Rebuild(ctx context.Context, productID, locationID string) (*RebuildResult, error) {
	if productID == "" || locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	result := &RebuildResult{ProductID: productID, LocationID: locationID}
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.StockSnapshotRepository,
		_ repository.ProductRepository,
	) error {
		// El lock detiene appends concurrentes mientras se pliega el ledger
		level, err := levelRepo.GetForUpdate(ctx, productID, locationID)
		if err != nil {
			return err
		}
		before := *level
		result.Before = &before

		totals, err := movRepo.ReplayTotals(ctx, productID, locationID)
		if err != nil {
			return err
		}
		result.Movements = totals.Movements
		result.Drifted = level.OnHand != totals.OnHand || level.InTransit != totals.InTransit

		level.OnHand = totals.OnHand
		level.InTransit = totals.InTransit
		level.LastMovementAt = totals.LastMovementAt
		level.RecalcAvailable()
		level.UpdatedAt = time.Now().UTC()
		if err := levelRepo.Upsert(ctx, level); err != nil {
			return err
		}
		result.After = level
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// VerifyResult reporta la comparación caché contra ledger sin modificar nada.
type VerifyResult struct {
	ProductID       string    `json:"product_id"`
	LocationID      string    `json:"location_id"`
	CachedOnHand    int64     `json:"cached_on_hand"`
	ReplayOnHand    int64     `json:"replay_on_hand"`
	CachedInTransit int64     `json:"cached_in_transit"`
	ReplayInTransit int64     `json:"replay_in_transit"`
	Movements       int64     `json:"movements"`
	Consistent      bool      `json:"consistent"`
	CheckedAt       time.Time `json:"checked_at"`
}

// Verify compara la caché con el replay del ledger en modo solo lectura.
// Puede reportar falsos positivos si hay escrituras en vuelo; Rebuild es la
// operación autoritativa.
func (uc *RebuildUseCase) Verify(ctx context.Context, productID, locationID string) (*VerifyResult, error) {
	if productID == "" || locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	level, err := uc.levelRepo.Get(ctx, productID, locationID)
	if err != nil {
		return nil, err
	}
	totals, err := uc.movRepo.ReplayTotals(ctx, productID, locationID)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{
		ProductID:       productID,
		LocationID:      locationID,
		CachedOnHand:    level.OnHand,
		ReplayOnHand:    totals.OnHand,
		CachedInTransit: level.InTransit,
		ReplayInTransit: totals.InTransit,
		Movements:       totals.Movements,
		Consistent:      level.OnHand == totals.OnHand && level.InTransit == totals.InTransit,
		CheckedAt:       time.Now().UTC(),
	}, nil
}
