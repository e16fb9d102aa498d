package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// ── Stock movements (ledger) ──────────────────────────────────────────────────

// MovementRepo implementa repository.StockMovementRepository en memoria.
// Reproduce el índice único parcial de idempotencia: una clave
// (ref_type, ref_id, product_id, location_id) repetida falla con ErrDuplicate.
type MovementRepo struct{ store *Store }

// NewMovementRepo construye el repositorio del ledger.
func NewMovementRepo(store *Store) *MovementRepo { return &MovementRepo{store: store} }

func (r *MovementRepo) Create(_ context.Context, movement *entity.StockMovement) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if movement.RefType != "" && movement.RefID != "" {
		for _, m := range r.store.movements {
			if m.RefType == movement.RefType && m.RefID == movement.RefID &&
				m.ProductID == movement.ProductID && m.LocationID == movement.LocationID {
				return domain.ErrDuplicate
			}
		}
	}
	r.store.seq++
	movement.Seq = r.store.seq
	cp := *movement
	r.store.movements = append(r.store.movements, &cp)
	return nil
}

func (r *MovementRepo) GetByRef(_ context.Context, refType, refID, productID, locationID string) (*entity.StockMovement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, m := range r.store.movements {
		if m.RefType == refType && m.RefID == refID &&
			m.ProductID == productID && m.LocationID == locationID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MovementRepo) ListByProductLocation(_ context.Context, productID, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.StockMovement
	for _, m := range r.store.movements {
		if m.ProductID != productID || m.LocationID != locationID {
			continue
		}
		if from != nil && m.OccurredAt.Before(*from) {
			continue
		}
		if to != nil && m.OccurredAt.After(*to) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sortReplayOrder(out)
	return page(out, limit, offset), nil
}

func (r *MovementRepo) ListDay(_ context.Context, locationID string, day time.Time) ([]*entity.StockMovement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	dayEnd := day.Add(24 * time.Hour)
	var out []*entity.StockMovement
	for _, m := range r.store.movements {
		if m.LocationID != locationID {
			continue
		}
		if m.OccurredAt.Before(day) || !m.OccurredAt.Before(dayEnd) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (r *MovementRepo) ReplayTotals(_ context.Context, productID, locationID string) (repository.ReplayTotals, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var totals repository.ReplayTotals
	for _, m := range r.store.movements {
		if m.ProductID != productID {
			continue
		}
		if m.LocationID == locationID {
			totals.Movements++
			totals.OnHand += m.QtyChange
			if totals.LastMovementAt == nil || m.OccurredAt.After(*totals.LastMovementAt) {
				t := m.OccurredAt
				totals.LastMovementAt = &t
			}
		}
		// in_transit del par: despachos hacia él menos recepciones ya registradas
		switch {
		case m.Reason == entity.ReasonTransferOut && m.CounterpartLocationID == locationID:
			totals.InTransit += -m.QtyChange
		case m.Reason == entity.ReasonTransferIn && m.LocationID == locationID:
			totals.InTransit += -m.QtyChange
		}
	}
	if totals.InTransit < 0 {
		totals.InTransit = 0
	}
	return totals, nil
}

func (r *MovementRepo) SumBefore(_ context.Context, productID, locationID string, before time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var sum int64
	for _, m := range r.store.movements {
		if m.ProductID == productID && m.LocationID == locationID && m.OccurredAt.Before(before) {
			sum += m.QtyChange
		}
	}
	return sum, nil
}

func (r *MovementRepo) LastSaleAt(_ context.Context, productID, locationID string, before time.Time) (*time.Time, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var last *time.Time
	for _, m := range r.store.movements {
		if m.ProductID != productID || m.LocationID != locationID {
			continue
		}
		if m.Reason != entity.ReasonSale || !m.OccurredAt.Before(before) {
			continue
		}
		if last == nil || m.OccurredAt.After(*last) {
			t := m.OccurredAt
			last = &t
		}
	}
	return last, nil
}

func sortReplayOrder(ms []*entity.StockMovement) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].OccurredAt.Equal(ms[j].OccurredAt) {
			return ms[i].OccurredAt.Before(ms[j].OccurredAt)
		}
		return ms[i].Seq < ms[j].Seq
	})
}

// ── Stock levels (caché de balances) ──────────────────────────────────────────

// LevelRepo implementa repository.StockLevelRepository en memoria.
// Un par sin fila se lee como nivel en cero, igual que el adaptador de postgres.
type LevelRepo struct{ store *Store }

// NewLevelRepo construye el repositorio de niveles.
func NewLevelRepo(store *Store) *LevelRepo { return &LevelRepo{store: store} }

func (r *LevelRepo) Get(_ context.Context, productID, locationID string) (*entity.StockLevel, error) {
	return r.read(productID, locationID), nil
}

func (r *LevelRepo) GetForUpdate(_ context.Context, productID, locationID string) (*entity.StockLevel, error) {
	return r.read(productID, locationID), nil
}

func (r *LevelRepo) read(productID, locationID string) *entity.StockLevel {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if level, ok := r.store.levels[pairKey(productID, locationID)]; ok {
		cp := *level
		return &cp
	}
	return &entity.StockLevel{ProductID: productID, LocationID: locationID}
}

func (r *LevelRepo) Upsert(_ context.Context, level *entity.StockLevel) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *level
	cp.Available = cp.OnHand - cp.Allocated // columna generada en BD
	r.store.levels[pairKey(level.ProductID, level.LocationID)] = &cp
	return nil
}

func (r *LevelRepo) AdjustInTransit(_ context.Context, productID, locationID string, delta int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := pairKey(productID, locationID)
	level, ok := r.store.levels[key]
	if !ok {
		level = &entity.StockLevel{ProductID: productID, LocationID: locationID}
		r.store.levels[key] = level
	}
	level.InTransit += delta
	if level.InTransit < 0 {
		level.InTransit = 0
	}
	level.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *LevelRepo) Delete(_ context.Context, productID, locationID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.levels, pairKey(productID, locationID))
	return nil
}

func (r *LevelRepo) ListByLocation(_ context.Context, locationID string, limit, offset int) ([]*entity.StockLevel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.StockLevel
	for _, level := range r.store.levels {
		if level.LocationID == locationID {
			cp := *level
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return page(out, limit, offset), nil
}

func (r *LevelRepo) ListLowStock(_ context.Context, locationID string, policy repository.LowStockPolicy) ([]repository.LowStockItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []repository.LowStockItem
	for _, pl := range r.store.productLocations {
		if pl.LocationID != locationID {
			continue
		}
		threshold := pl.ReorderPoint
		if policy.Threshold != nil {
			threshold = *policy.Threshold
		}
		var onHand, available int64
		if level, ok := r.store.levels[pairKey(pl.ProductID, pl.LocationID)]; ok {
			onHand, available = level.OnHand, level.Available
		}
		if onHand > threshold {
			continue
		}
		item := repository.LowStockItem{
			ProductID:       pl.ProductID,
			LocationID:      pl.LocationID,
			OnHand:          onHand,
			Available:       available,
			ReorderPoint:    pl.ReorderPoint,
			ReorderQty:      pl.ReorderQty,
			PreferredVendor: pl.PreferredVendor,
		}
		if p, ok := r.store.products[pl.ProductID]; ok {
			item.ProductName = p.Name
		}
		for _, ident := range r.store.identifiers {
			if ident.ProductID == pl.ProductID && ident.Type == entity.IdentifierTypeSKU {
				item.SKU = ident.Value
				break
			}
		}
		out = append(out, item)
	}
	// Orden por déficit (reorder_point - on_hand) descendente, como la consulta SQL
	sort.Slice(out, func(i, j int) bool {
		di := out[i].ReorderPoint - out[i].OnHand
		dj := out[j].ReorderPoint - out[j].OnHand
		if di != dj {
			return di > dj
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

// ── Daily snapshots ───────────────────────────────────────────────────────────

// SnapshotRepo implementa repository.StockSnapshotRepository en memoria.
type SnapshotRepo struct{ store *Store }

// NewSnapshotRepo construye el repositorio de rollups diarios.
func NewSnapshotRepo(store *Store) *SnapshotRepo { return &SnapshotRepo{store: store} }

func snapKey(productID, locationID string, date time.Time) string {
	return pairKey(productID, locationID) + "|" + date.UTC().Format("2006-01-02")
}

func (r *SnapshotRepo) Upsert(_ context.Context, snap *entity.StockSnapshotDaily) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *snap
	r.store.snapshots[snapKey(snap.ProductID, snap.LocationID, snap.SnapshotDate)] = &cp
	return nil
}

func (r *SnapshotRepo) Get(_ context.Context, productID, locationID string, date time.Time) (*entity.StockSnapshotDaily, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	snap, ok := r.store.snapshots[snapKey(productID, locationID, date)]
	if !ok {
		return nil, nil
	}
	cp := *snap
	return &cp, nil
}

func (r *SnapshotRepo) GetPrior(_ context.Context, productID, locationID string, date time.Time) (*entity.StockSnapshotDaily, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var prior *entity.StockSnapshotDaily
	for _, snap := range r.store.snapshots {
		if snap.ProductID != productID || snap.LocationID != locationID {
			continue
		}
		if !snap.SnapshotDate.Before(date) {
			continue
		}
		if prior == nil || snap.SnapshotDate.After(prior.SnapshotDate) {
			prior = snap
		}
	}
	if prior == nil {
		return nil, nil
	}
	cp := *prior
	return &cp, nil
}

func (r *SnapshotRepo) Range(_ context.Context, productID, locationID string, from, to time.Time) ([]*entity.StockSnapshotDaily, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.StockSnapshotDaily
	for _, snap := range r.store.snapshots {
		if snap.ProductID != productID || snap.LocationID != locationID {
			continue
		}
		if snap.SnapshotDate.Before(from) || snap.SnapshotDate.After(to) {
			continue
		}
		cp := *snap
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SnapshotDate.Before(out[j].SnapshotDate) })
	return out, nil
}

func (r *SnapshotRepo) HasOnOrAfter(_ context.Context, productID, locationID string, date time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, snap := range r.store.snapshots {
		if snap.ProductID == productID && snap.LocationID == locationID &&
			!snap.SnapshotDate.Before(date) {
			return true, nil
		}
	}
	return false, nil
}

func (r *SnapshotRepo) LastDate(_ context.Context, locationID string) (*time.Time, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var last *time.Time
	for _, snap := range r.store.snapshots {
		if snap.LocationID != locationID {
			continue
		}
		if last == nil || snap.SnapshotDate.After(*last) {
			d := snap.SnapshotDate
			last = &d
		}
	}
	return last, nil
}

func (r *SnapshotRepo) ProductIDsOn(_ context.Context, locationID string, date time.Time) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	target := date.UTC().Format("2006-01-02")
	var out []string
	for _, snap := range r.store.snapshots {
		if snap.LocationID == locationID && snap.SnapshotDate.UTC().Format("2006-01-02") == target {
			out = append(out, snap.ProductID)
		}
	}
	sort.Strings(out)
	return out, nil
}
