package snapshot

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/inventory"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// CloseDayUseCase genera los rollups diarios por (producto, ubicación, fecha).
// El cierre es idempotente (upsert): re-cerrar un día produce exactamente las
// mismas filas, así que el scheduler puede repetirlo sin daño. Los días se
// particionan por fecha calendario UTC.
type CloseDayUseCase struct {
	movRepo      repository.StockMovementRepository
	snapRepo     repository.StockSnapshotRepository
	productRepo  repository.ProductRepository
	locationRepo repository.LocationRepository
	lookbackDays int
}

// NewCloseDayUseCase construye el agregador de snapshots. lookbackDays acota
// qué tan atrás acepta recomputar RecomputeDay.
func NewCloseDayUseCase(
	movRepo repository.StockMovementRepository,
	snapRepo repository.StockSnapshotRepository,
	productRepo repository.ProductRepository,
	locationRepo repository.LocationRepository,
	lookbackDays int,
) *CloseDayUseCase {
	return &CloseDayUseCase{
		movRepo:      movRepo,
		snapRepo:     snapRepo,
		productRepo:  productRepo,
		locationRepo: locationRepo,
		lookbackDays: lookbackDays,
	}
}

// CloseDayResult resume un cierre de día.
type CloseDayResult struct {
	LocationID   string    `json:"location_id"`
	SnapshotDate time.Time `json:"snapshot_date"`
	Products     int       `json:"products"`
}

// RecomputeResult resume una recomputación en cascada.
type RecomputeResult struct {
	LocationID     string    `json:"location_id"`
	From           time.Time `json:"from"`
	Through        time.Time `json:"through"`
	DaysRecomputed int       `json:"days_recomputed"`
}

// CloseDay cierra un día calendario UTC ya terminado para una ubicación:
// un snapshot por cada producto con movimientos en el día más los productos
// arrastrados del snapshot del día anterior (existencias sin movimiento).
func (uc *CloseDayUseCase) CloseDay(ctx context.Context, locationID string, day time.Time) (*CloseDayResult, error) {
	location, target, err := uc.resolve(ctx, locationID, day)
	if err != nil {
		return nil, err
	}
	products, err := uc.closeOne(ctx, location, target)
	if err != nil {
		return nil, err
	}
	return &CloseDayResult{LocationID: locationID, SnapshotDate: target, Products: products}, nil
}

// RecomputeDay re-cierra un día pasado y propaga el nuevo cierre hacia adelante
// hasta ayer, porque la apertura de cada día es el cierre del anterior.
// Días más viejos que la ventana de lookback se rechazan con ErrRecomputeWindow.
func (uc *CloseDayUseCase) RecomputeDay(ctx context.Context, locationID string, day time.Time) (*RecomputeResult, error) {
	location, target, err := uc.resolve(ctx, locationID, day)
	if err != nil {
		return nil, err
	}
	today := civilDay(time.Now().UTC())
	if uc.lookbackDays > 0 && target.Before(today.AddDate(0, 0, -uc.lookbackDays)) {
		return nil, domain.ErrRecomputeWindow
	}

	days := 0
	for d := target; d.Before(today); d = d.AddDate(0, 0, 1) {
		if _, err := uc.closeOne(ctx, location, d); err != nil {
			return nil, err
		}
		days++
	}
	return &RecomputeResult{
		LocationID:     locationID,
		From:           target,
		Through:        today.AddDate(0, 0, -1),
		DaysRecomputed: days,
	}, nil
}

// GetRange lista los snapshots del par en [from, to].
func (uc *CloseDayUseCase) GetRange(ctx context.Context, productID, locationID string, from, to time.Time) ([]*entity.StockSnapshotDaily, error) {
	if productID == "" || locationID == "" || from.IsZero() || to.IsZero() {
		return nil, domain.ErrInvalidInput
	}
	f, t := civilDay(from), civilDay(to)
	if t.Before(f) {
		return nil, domain.ErrInvalidInput
	}
	return uc.snapRepo.Range(ctx, productID, locationID, f, t)
}

func (uc *CloseDayUseCase) resolve(ctx context.Context, locationID string, day time.Time) (*entity.Location, time.Time, error) {
	if locationID == "" || day.IsZero() {
		return nil, time.Time{}, domain.ErrInvalidInput
	}
	target := civilDay(day)
	// Solo días terminados: el día en curso aún recibe movimientos
	if !target.Before(civilDay(time.Now().UTC())) {
		return nil, time.Time{}, domain.ErrInvalidInput
	}
	location, err := uc.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		return nil, time.Time{}, err
	}
	if location == nil {
		return nil, time.Time{}, domain.ErrNotFound
	}
	return location, target, nil
}

func (uc *CloseDayUseCase) closeOne(ctx context.Context, location *entity.Location, day time.Time) (int, error) {
	// 1. Movimientos del día agrupados por producto
	movements, err := uc.movRepo.ListDay(ctx, location.ID, day)
	if err != nil {
		return 0, err
	}
	byProduct := make(map[string][]*entity.StockMovement)
	for _, m := range movements {
		byProduct[m.ProductID] = append(byProduct[m.ProductID], m)
	}

	// 2. Arrastre: productos con snapshot el día anterior siguen en la serie
	//    aunque hoy no se hayan movido
	carried, err := uc.snapRepo.ProductIDsOn(ctx, location.ID, day.AddDate(0, 0, -1))
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(byProduct)+len(carried))
	productIDs := make([]string, 0, len(byProduct)+len(carried))
	for id := range byProduct {
		seen[id] = true
		productIDs = append(productIDs, id)
	}
	for _, id := range carried {
		if !seen[id] {
			seen[id] = true
			productIDs = append(productIDs, id)
		}
	}
	sort.Strings(productIDs)

	// 3. Construir y upsertar el snapshot de cada producto
	dayEnd := day.Add(24 * time.Hour)
	closed := 0
	for _, productID := range productIDs {
		snap, err := uc.buildSnapshot(ctx, location, productID, day, dayEnd, byProduct[productID])
		if err != nil {
			return closed, err
		}
		if err := uc.snapRepo.Upsert(ctx, snap); err != nil {
			return closed, err
		}
		closed++
	}
	return closed, nil
}

func (uc *CloseDayUseCase) buildSnapshot(
	ctx context.Context,
	location *entity.Location,
	productID string,
	day, dayEnd time.Time,
	movements []*entity.StockMovement,
) (*entity.StockSnapshotDaily, error) {
	// Apertura: cierre del día anterior si la serie es contigua; si no,
	// el ledger manda (suma de movimientos anteriores al día)
	prior, err := uc.snapRepo.GetPrior(ctx, productID, location.ID, day)
	if err != nil {
		return nil, err
	}
	var opening int64
	if prior != nil && civilDay(prior.SnapshotDate).Equal(day.AddDate(0, 0, -1)) {
		opening = prior.ClosingQty
	} else {
		opening, err = uc.movRepo.SumBefore(ctx, productID, location.ID, day)
		if err != nil {
			return nil, err
		}
	}

	var buckets inventory.DayBuckets
	for _, m := range movements {
		buckets.Add(m.Reason, m.QtyChange)
	}
	closing := buckets.Closing(opening)

	// Valoración al costo promedio vigente del producto
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	avgCost := decimal.Zero
	if product != nil {
		avgCost = product.UnitCost
	}
	totalValue := decimal.NewFromInt(closing).Mul(avgCost)

	var daysSince *int
	lastSale, err := uc.movRepo.LastSaleAt(ctx, productID, location.ID, dayEnd)
	if err != nil {
		return nil, err
	}
	if lastSale != nil {
		d := int(day.Sub(civilDay(*lastSale)).Hours() / 24)
		if d < 0 {
			d = 0
		}
		daysSince = &d
	}

	return &entity.StockSnapshotDaily{
		ProductID:         productID,
		LocationID:        location.ID,
		MerchantID:        location.MerchantID,
		SnapshotDate:      day,
		OpeningQty:        opening,
		InQty:             buckets.In,
		OutQty:            buckets.Out,
		AdjustmentQty:     buckets.Adjustment,
		ClosingQty:        closing,
		AverageCost:       avgCost,
		TotalValue:        totalValue,
		TurnoverVelocity:  inventory.TurnoverVelocity(opening, closing, buckets.Out),
		DaysSinceLastSale: daysSince,
	}, nil
}

// civilDay normaliza un instante a su fecha calendario UTC (00:00).
func civilDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
