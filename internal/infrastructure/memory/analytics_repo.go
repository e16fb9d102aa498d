package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// AnalyticsRepo implementa repository.AnalyticsRepository plegando el estado
// del Store, con la misma semántica que los agregados SQL del adaptador de
// postgres (solo on_hand positivo en la valoración, pendientes en la cola...).
type AnalyticsRepo struct{ store *Store }

// NewAnalyticsRepo construye el repositorio de señales operativas.
func NewAnalyticsRepo(store *Store) *AnalyticsRepo { return &AnalyticsRepo{store: store} }

func (r *AnalyticsRepo) GetStockValueByLocation(_ context.Context, merchantID string) ([]repository.LocationValueResult, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	byLocation := make(map[string]*repository.LocationValueResult)
	for _, level := range r.store.levels {
		if level.OnHand <= 0 {
			continue
		}
		product, ok := r.store.products[level.ProductID]
		if !ok || product.MerchantID != merchantID {
			continue
		}
		location, ok := r.store.locations[level.LocationID]
		if !ok {
			continue
		}
		acc, ok := byLocation[level.LocationID]
		if !ok {
			acc = &repository.LocationValueResult{
				LocationID:   location.ID,
				LocationName: location.Name,
				TotalValue:   decimal.Zero,
			}
			byLocation[level.LocationID] = acc
		}
		acc.Products++
		acc.UnitsOnHand += level.OnHand
		acc.TotalValue = acc.TotalValue.Add(product.UnitCost.Mul(decimal.NewFromInt(level.OnHand)))
	}

	out := make([]repository.LocationValueResult, 0, len(byLocation))
	for _, acc := range byLocation {
		out = append(out, *acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out, nil
}

func (r *AnalyticsRepo) CountLowStock(_ context.Context, merchantID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var n int64
	for _, pl := range r.store.productLocations {
		if pl.MerchantID != merchantID {
			continue
		}
		level, ok := r.store.levels[pairKey(pl.ProductID, pl.LocationID)]
		onHand := int64(0)
		if ok {
			onHand = level.OnHand
		}
		if onHand <= pl.ReorderPoint {
			n++
		}
	}
	return n, nil
}

func (r *AnalyticsRepo) CountPendingUnmatched(_ context.Context, merchantID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var n int64
	for _, item := range r.store.unmatched {
		if item.MerchantID == merchantID && item.Status == entity.UnmatchedStatusPending {
			n++
		}
	}
	return n, nil
}

func (r *AnalyticsRepo) GetCursorHealth(_ context.Context, merchantID string) ([]repository.CursorHealthResult, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []repository.CursorHealthResult
	for _, c := range r.store.cursors {
		if c.MerchantID != merchantID {
			continue
		}
		out = append(out, repository.CursorHealthResult{
			CursorID:            c.ID,
			Channel:             c.Channel,
			Entity:              c.Entity,
			LocationID:          c.LocationID,
			Status:              c.Status,
			ConsecutiveFailures: c.ConsecutiveFailures,
			LastSuccessAt:       c.LastSuccessAt,
			LastError:           c.LastError,
			NextSyncAt:          c.NextSyncAt,
			BackfillState:       c.BackfillState,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CursorID < out[j].CursorID })
	return out, nil
}

func (r *AnalyticsRepo) CountMovementsSince(_ context.Context, merchantID string, since time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var n int64
	for _, m := range r.store.movements {
		if m.MerchantID == merchantID && !m.OccurredAt.Before(since) {
			n++
		}
	}
	return n, nil
}
