package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	domainidentity "github.com/jhoicas/StockSync-api/internal/domain/identity"
)

// ── Merchants ─────────────────────────────────────────────────────────────────

// MerchantRepo implementa repository.MerchantRepository en memoria.
type MerchantRepo struct{ store *Store }

// NewMerchantRepo construye el repositorio de comercios.
func NewMerchantRepo(store *Store) *MerchantRepo { return &MerchantRepo{store: store} }

func (r *MerchantRepo) Create(_ context.Context, m *entity.Merchant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.merchants[m.ID]; ok {
		return domain.ErrDuplicate
	}
	cp := *m
	r.store.merchants[m.ID] = &cp
	return nil
}

func (r *MerchantRepo) GetByID(_ context.Context, id string) (*entity.Merchant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.merchants[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *MerchantRepo) List(_ context.Context, limit, offset int) ([]*entity.Merchant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	all := make([]*entity.Merchant, 0, len(r.store.merchants))
	for _, m := range r.store.merchants {
		cp := *m
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, limit, offset), nil
}

func (r *MerchantRepo) HasActiveChannel(_ context.Context, merchantID, channel string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ch, ok := r.store.channels[merchantID+"|"+channel]
	if !ok {
		return false, nil
	}
	return ch.Enabled(time.Now().UTC()), nil
}

func (r *MerchantRepo) UpsertChannel(_ context.Context, ch *entity.MerchantChannel) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *ch
	r.store.channels[ch.MerchantID+"|"+ch.Channel] = &cp
	return nil
}

func (r *MerchantRepo) ListChannels(_ context.Context, merchantID string) ([]*entity.MerchantChannel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.MerchantChannel
	for _, ch := range r.store.channels {
		if ch.MerchantID == merchantID {
			cp := *ch
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out, nil
}

// ── Locations ─────────────────────────────────────────────────────────────────

// LocationRepo implementa repository.LocationRepository en memoria.
type LocationRepo struct{ store *Store }

// NewLocationRepo construye el repositorio de ubicaciones.
func NewLocationRepo(store *Store) *LocationRepo { return &LocationRepo{store: store} }

func (r *LocationRepo) Create(_ context.Context, l *entity.Location) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.locations[l.ID]; ok {
		return domain.ErrDuplicate
	}
	cp := *l
	r.store.locations[l.ID] = &cp
	return nil
}

func (r *LocationRepo) GetByID(_ context.Context, id string) (*entity.Location, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	l, ok := r.store.locations[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *LocationRepo) Update(_ context.Context, l *entity.Location) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.locations[l.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *l
	r.store.locations[l.ID] = &cp
	return nil
}

func (r *LocationRepo) ListByMerchant(_ context.Context, merchantID string, limit, offset int) ([]*entity.Location, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Location
	for _, l := range r.store.locations {
		if l.MerchantID == merchantID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), nil
}

func (r *LocationRepo) ListActive(_ context.Context) ([]*entity.Location, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Location
	for _, l := range r.store.locations {
		if l.Active {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ── Products ──────────────────────────────────────────────────────────────────

// ProductRepo implementa repository.ProductRepository en memoria.
type ProductRepo struct{ store *Store }

// NewProductRepo construye el repositorio de productos.
func NewProductRepo(store *Store) *ProductRepo { return &ProductRepo{store: store} }

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.products[p.ID]; ok {
		return domain.ErrDuplicate
	}
	cp := *p
	r.store.products[p.ID] = &cp
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepo) Update(_ context.Context, p *entity.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *p
	r.store.products[p.ID] = &cp
	return nil
}

func (r *ProductRepo) UpdateCost(_ context.Context, productID string, cost decimal.Decimal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.UnitCost = cost
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *ProductRepo) ListByMerchant(_ context.Context, merchantID string, limit, offset int) ([]*entity.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Product
	for _, p := range r.store.products {
		if p.MerchantID == merchantID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), nil
}

func (r *ProductRepo) FindByNormalizedName(_ context.Context, merchantID, normalizedName string) ([]*entity.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Product
	for _, p := range r.store.products {
		if p.MerchantID != merchantID || !p.Active {
			continue
		}
		if domainidentity.NormalizeName(p.Name) == normalizedName {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ProductRepo) Deactivate(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Active = false
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// ── Product identifiers ───────────────────────────────────────────────────────

// IdentifierRepo implementa repository.ProductIdentifierRepository en memoria.
// Usa un slice para conservar el orden de inserción (FindByValue es determinista).
type IdentifierRepo struct{ store *Store }

// NewIdentifierRepo construye el repositorio de identificadores.
func NewIdentifierRepo(store *Store) *IdentifierRepo { return &IdentifierRepo{store: store} }

func (r *IdentifierRepo) Create(_ context.Context, ident *entity.ProductIdentifier) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.identifiers {
		if existing.MerchantID == ident.MerchantID &&
			existing.Source == ident.Source &&
			existing.Type == ident.Type &&
			existing.Value == ident.Value {
			return domain.ErrDuplicate
		}
	}
	cp := *ident
	r.store.identifiers = append(r.store.identifiers, &cp)
	return nil
}

func (r *IdentifierRepo) GetByTypeValue(_ context.Context, merchantID, source, identifierType, value string) (*entity.ProductIdentifier, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, ident := range r.store.identifiers {
		if ident.MerchantID == merchantID && ident.Source == source &&
			ident.Type == identifierType && ident.Value == value {
			cp := *ident
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *IdentifierRepo) FindByValue(_ context.Context, merchantID, source, value string) (*entity.ProductIdentifier, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, ident := range r.store.identifiers {
		if ident.MerchantID == merchantID && ident.Source == source && ident.Value == value {
			cp := *ident
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *IdentifierRepo) ListByProduct(_ context.Context, productID string) ([]*entity.ProductIdentifier, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.ProductIdentifier
	for _, ident := range r.store.identifiers {
		if ident.ProductID == productID {
			cp := *ident
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *IdentifierRepo) MarkVerified(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, ident := range r.store.identifiers {
		if ident.ID == id {
			ident.Verified = true
			return nil
		}
	}
	return domain.ErrNotFound
}

// ── Product-location policy ───────────────────────────────────────────────────

// ProductLocationRepo implementa repository.ProductLocationRepository en memoria.
type ProductLocationRepo struct{ store *Store }

// NewProductLocationRepo construye el repositorio de políticas de surtido.
func NewProductLocationRepo(store *Store) *ProductLocationRepo {
	return &ProductLocationRepo{store: store}
}

func (r *ProductLocationRepo) Upsert(_ context.Context, pl *entity.ProductLocation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *pl
	r.store.productLocations[pairKey(pl.ProductID, pl.LocationID)] = &cp
	return nil
}

func (r *ProductLocationRepo) Get(_ context.Context, productID, locationID string) (*entity.ProductLocation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	pl, ok := r.store.productLocations[pairKey(productID, locationID)]
	if !ok {
		return nil, nil
	}
	cp := *pl
	return &cp, nil
}

func (r *ProductLocationRepo) ListByLocation(_ context.Context, locationID string, limit, offset int) ([]*entity.ProductLocation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.ProductLocation
	for _, pl := range r.store.productLocations {
		if pl.LocationID == locationID {
			cp := *pl
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return page(out, limit, offset), nil
}

func (r *ProductLocationRepo) Delete(_ context.Context, productID, locationID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.productLocations, pairKey(productID, locationID))
	return nil
}

// page aplica limit/offset sobre un slice ya ordenado. limit <= 0 = sin límite.
func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
