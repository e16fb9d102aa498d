package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

// ── Sync cursors ──────────────────────────────────────────────────────────────

// CursorRepo implementa repository.SyncCursorRepository en memoria.
// Las transiciones condicionadas (lease, backfill) se evalúan bajo el mutex del
// Store, igual que los UPDATE ... WHERE del adaptador de postgres: dos Acquire
// concurrentes sobre el mismo cursor dejan exactamente un ganador.
type CursorRepo struct{ store *Store }

// NewCursorRepo construye el repositorio de cursores.
func NewCursorRepo(store *Store) *CursorRepo { return &CursorRepo{store: store} }

func (r *CursorRepo) Create(_ context.Context, cursor *entity.SyncCursor) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range r.store.cursors {
		if c.MerchantID == cursor.MerchantID && c.Channel == cursor.Channel &&
			c.Entity == cursor.Entity && equalLocation(c.LocationID, cursor.LocationID) {
			return domain.ErrDuplicate
		}
	}
	cp := *cursor
	r.store.cursors[cursor.ID] = &cp
	return nil
}

func (r *CursorRepo) GetByID(_ context.Context, id string) (*entity.SyncCursor, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.cursors[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *CursorRepo) ListByMerchant(_ context.Context, merchantID string) ([]*entity.SyncCursor, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.SyncCursor
	for _, c := range r.store.cursors {
		if c.MerchantID == merchantID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CursorRepo) ListDue(_ context.Context, now time.Time, limit int) ([]*entity.SyncCursor, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.SyncCursor
	for _, c := range r.store.cursors {
		if leaseActive(c, now) {
			continue
		}
		if c.NextSyncAt != nil && c.NextSyncAt.After(now) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *CursorRepo) Acquire(_ context.Context, cursorID, leaseToken string, ttl time.Duration) (*entity.SyncCursor, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.cursors[cursorID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	now := time.Now().UTC()
	// Un lease vigente de otro worker bloquea; uno vencido se reclama
	if leaseActive(c, now) {
		return nil, domain.ErrAlreadyRunning
	}
	expires := now.Add(ttl)
	c.LeaseToken = leaseToken
	c.LeaseExpiresAt = &expires
	c.Status = entity.CursorStatusRunning
	c.UpdatedAt = now
	cp := *c
	return &cp, nil
}

func (r *CursorRepo) Progress(_ context.Context, cursorID, leaseToken, cursorToken, lastProcessedID string, items int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, err := r.owned(cursorID, leaseToken)
	if err != nil {
		return err
	}
	c.CursorToken = cursorToken
	c.LastProcessedID = lastProcessedID
	c.RecordsSynced += int64(items)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *CursorRepo) Fail(_ context.Context, cursorID, leaseToken, errMsg string, nextSyncAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, err := r.owned(cursorID, leaseToken)
	if err != nil {
		return err
	}
	c.ConsecutiveFailures++
	c.Status = entity.CursorStatusFailed
	c.LastError = errMsg
	next := nextSyncAt.UTC()
	c.NextSyncAt = &next
	releaseLease(c)
	return nil
}

func (r *CursorRepo) Succeed(_ context.Context, cursorID, leaseToken string, nextSyncAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, err := r.owned(cursorID, leaseToken)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	c.ConsecutiveFailures = 0
	c.Status = entity.CursorStatusCompleted
	c.LastError = ""
	c.LastSuccessAt = &now
	next := nextSyncAt.UTC()
	c.NextSyncAt = &next
	releaseLease(c)
	return nil
}

func (r *CursorRepo) ReleaseLease(_ context.Context, cursorID, leaseToken string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, err := r.owned(cursorID, leaseToken)
	if err != nil {
		return err
	}
	c.Status = entity.CursorStatusIdle
	releaseLease(c)
	return nil
}

func (r *CursorRepo) StartBackfill(_ context.Context, cursorID string, from, to time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.cursors[cursorID]
	if !ok {
		return domain.ErrNotFound
	}
	if c.BackfillState == entity.BackfillInProgress {
		return domain.ErrAlreadyRunning
	}
	f, t := from.UTC(), to.UTC()
	c.BackfillState = entity.BackfillInProgress
	c.BackfillCursor = ""
	c.BackfillRangeStart = &f
	c.BackfillRangeEnd = &t
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *CursorRepo) BackfillProgress(_ context.Context, cursorID, backfillCursor string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.cursors[cursorID]
	if !ok {
		return domain.ErrNotFound
	}
	c.BackfillCursor = backfillCursor
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *CursorRepo) FinishBackfill(_ context.Context, cursorID, state string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.cursors[cursorID]
	if !ok {
		return domain.ErrNotFound
	}
	c.BackfillState = state
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// ForceNextSync reagenda el cursor a un instante arbitrario. Solo para tests:
// permite simular un cursor vencido sin esperar al intervalo real.
func (r *CursorRepo) ForceNextSync(_ context.Context, cursorID string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.cursors[cursorID]
	if !ok {
		return domain.ErrNotFound
	}
	at = at.UTC()
	c.NextSyncAt = &at
	return nil
}

// owned devuelve el cursor solo si leaseToken es el dueño vigente.
func (r *CursorRepo) owned(cursorID, leaseToken string) (*entity.SyncCursor, error) {
	c, ok := r.store.cursors[cursorID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if c.LeaseToken != leaseToken || !leaseActive(c, time.Now().UTC()) {
		return nil, domain.ErrStaleLease
	}
	return c, nil
}

func leaseActive(c *entity.SyncCursor, now time.Time) bool {
	return c.LeaseToken != "" && c.LeaseExpiresAt != nil && c.LeaseExpiresAt.After(now)
}

func releaseLease(c *entity.SyncCursor) {
	c.LeaseToken = ""
	c.LeaseExpiresAt = nil
	c.UpdatedAt = time.Now().UTC()
}

func equalLocation(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ── Unmatched items (cola de reconciliación) ──────────────────────────────────

// UnmatchedRepo implementa repository.UnmatchedItemRepository en memoria.
// Reproduce el índice único parcial: un solo ítem pendiente por
// (comercio, source, tipo, valor).
type UnmatchedRepo struct{ store *Store }

// NewUnmatchedRepo construye el repositorio de la cola de reconciliación.
func NewUnmatchedRepo(store *Store) *UnmatchedRepo { return &UnmatchedRepo{store: store} }

func (r *UnmatchedRepo) Create(_ context.Context, item *entity.UnmatchedItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.unmatched {
		if existing.Status == entity.UnmatchedStatusPending &&
			existing.MerchantID == item.MerchantID && existing.Source == item.Source &&
			existing.IdentifierType == item.IdentifierType && existing.IdentifierValue == item.IdentifierValue {
			return domain.ErrDuplicate
		}
	}
	r.store.unmatched[item.ID] = copyUnmatched(item)
	return nil
}

func (r *UnmatchedRepo) GetByID(_ context.Context, id string) (*entity.UnmatchedItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	item, ok := r.store.unmatched[id]
	if !ok {
		return nil, nil
	}
	return copyUnmatched(item), nil
}

func (r *UnmatchedRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.UnmatchedItem, error) {
	return r.GetByID(ctx, id)
}

func (r *UnmatchedRepo) GetPending(_ context.Context, merchantID, source, identifierType, value string) (*entity.UnmatchedItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, item := range r.store.unmatched {
		if item.Status == entity.UnmatchedStatusPending &&
			item.MerchantID == merchantID && item.Source == source &&
			item.IdentifierType == identifierType && item.IdentifierValue == value {
			return copyUnmatched(item), nil
		}
	}
	return nil, nil
}

func (r *UnmatchedRepo) AppendEvent(_ context.Context, id string, event entity.DeferredEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	item, ok := r.store.unmatched[id]
	if !ok {
		return domain.ErrNotFound
	}
	item.PendingEvents = append(item.PendingEvents, event)
	item.SeenCount++
	item.LastSeenAt = time.Now().UTC()
	return nil
}

func (r *UnmatchedRepo) Update(_ context.Context, item *entity.UnmatchedItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.unmatched[item.ID]; !ok {
		return domain.ErrNotFound
	}
	r.store.unmatched[item.ID] = copyUnmatched(item)
	return nil
}

func (r *UnmatchedRepo) ListByStatus(_ context.Context, merchantID, status string, limit, offset int) ([]*entity.UnmatchedItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.UnmatchedItem
	for _, item := range r.store.unmatched {
		if item.MerchantID == merchantID && item.Status == status {
			out = append(out, copyUnmatched(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeenAt.After(out[j].LastSeenAt) })
	return page(out, limit, offset), nil
}

func (r *UnmatchedRepo) CountByStatus(_ context.Context, merchantID, status string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, item := range r.store.unmatched {
		if item.MerchantID == merchantID && item.Status == status {
			n++
		}
	}
	return n, nil
}

// copyUnmatched copia el ítem incluyendo el slice de eventos diferidos.
func copyUnmatched(item *entity.UnmatchedItem) *entity.UnmatchedItem {
	cp := *item
	cp.PendingEvents = make([]entity.DeferredEvent, len(item.PendingEvents))
	copy(cp.PendingEvents, item.PendingEvents)
	return &cp
}
