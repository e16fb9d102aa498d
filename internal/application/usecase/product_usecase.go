package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/StockSync-api/internal/application/dto"
	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// ProductUseCase casos de uso del catálogo canónico: productos, sus
// identificadores externos y la política de surtido por ubicación.
// El costo promedio y el stock NO se tocan aquí: los maneja el ledger.
type ProductUseCase struct {
	repo         repository.ProductRepository
	identRepo    repository.ProductIdentifierRepository
	plRepo       repository.ProductLocationRepository
	levelRepo    repository.StockLevelRepository
	locationRepo repository.LocationRepository
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(
	repo repository.ProductRepository,
	identRepo repository.ProductIdentifierRepository,
	plRepo repository.ProductLocationRepository,
	levelRepo repository.StockLevelRepository,
	locationRepo repository.LocationRepository,
) *ProductUseCase {
	return &ProductUseCase{
		repo:         repo,
		identRepo:    identRepo,
		plRepo:       plRepo,
		levelRepo:    levelRepo,
		locationRepo: locationRepo,
	}
}

// Create crea un producto nuevo. Si viene SKU se registra también el
// identificador interno (source=internal, verificado).
func (uc *ProductUseCase) Create(ctx context.Context, merchantID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if merchantID == "" || in.Name == "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now().UTC()
	product := &entity.Product{
		ID:          uuid.New().String(),
		MerchantID:  merchantID,
		Name:        in.Name,
		Category:    in.Category,
		Description: in.Description,
		UnitCost:    in.UnitCost,
		UnitPrice:   in.UnitPrice,
		Active:      true,
		Attributes:  in.Attributes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	if in.SKU != "" {
		ident := &entity.ProductIdentifier{
			ID:          uuid.New().String(),
			ProductID:   product.ID,
			MerchantID:  merchantID,
			Type:        entity.IdentifierTypeSKU,
			Value:       in.SKU,
			Source:      "internal",
			MatchMethod: entity.MatchMethodManual,
			Verified:    true,
			CreatedAt:   now,
		}
		if err := uc.identRepo.Create(ctx, ident); err != nil {
			return nil, err
		}
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto del comercio.
func (uc *ProductUseCase) GetByID(ctx context.Context, merchantID, id string) (*dto.ProductResponse, error) {
	product, err := uc.getOwned(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// Update actualiza un producto. No permite modificar el costo promedio
// (lo recalculan las recepciones del ledger) ni el stock.
func (uc *ProductUseCase) Update(ctx context.Context, merchantID, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := uc.getOwned(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		product.Name = *in.Name
	}
	if in.Category != nil {
		product.Category = *in.Category
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.UnitPrice != nil {
		product.UnitPrice = *in.UnitPrice
	}
	if len(in.Attributes) > 0 {
		product.Attributes = in.Attributes
	}
	product.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// List lista productos del comercio con paginación.
func (uc *ProductUseCase) List(ctx context.Context, merchantID string, limit, offset int) (*dto.ProductListResponse, error) {
	if merchantID == "" {
		return nil, domain.ErrInvalidInput
	}
	list, err := uc.repo.ListByMerchant(ctx, merchantID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// Deactivate desactiva el producto. Nunca se borra: el historial del ledger
// referencia el ID para siempre.
func (uc *ProductUseCase) Deactivate(ctx context.Context, merchantID, id string) error {
	if _, err := uc.getOwned(ctx, merchantID, id); err != nil {
		return err
	}
	return uc.repo.Deactivate(ctx, id)
}

// AddIdentifier asocia un código al producto (alta manual de catálogo).
func (uc *ProductUseCase) AddIdentifier(ctx context.Context, merchantID, productID string, in dto.AddIdentifierRequest) (*dto.IdentifierResponse, error) {
	if !entity.ValidIdentifierType(in.Type) || in.Value == "" || in.Source == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := uc.getOwned(ctx, merchantID, productID); err != nil {
		return nil, err
	}
	ident := &entity.ProductIdentifier{
		ID:          uuid.New().String(),
		ProductID:   productID,
		MerchantID:  merchantID,
		Type:        in.Type,
		Value:       in.Value,
		Source:      in.Source,
		MatchMethod: entity.MatchMethodManual,
		Verified:    true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := uc.identRepo.Create(ctx, ident); err != nil {
		return nil, err
	}
	return toIdentifierResponse(ident), nil
}

// ListIdentifiers lista los códigos del producto.
func (uc *ProductUseCase) ListIdentifiers(ctx context.Context, merchantID, productID string) ([]dto.IdentifierResponse, error) {
	if _, err := uc.getOwned(ctx, merchantID, productID); err != nil {
		return nil, err
	}
	idents, err := uc.identRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.IdentifierResponse, 0, len(idents))
	for _, ident := range idents {
		items = append(items, *toIdentifierResponse(ident))
	}
	return items, nil
}

// VerifyIdentifier marca como revisado un identificador creado por match difuso.
func (uc *ProductUseCase) VerifyIdentifier(ctx context.Context, merchantID, productID, identifierID string) error {
	if _, err := uc.getOwned(ctx, merchantID, productID); err != nil {
		return err
	}
	idents, err := uc.identRepo.ListByProduct(ctx, productID)
	if err != nil {
		return err
	}
	for _, ident := range idents {
		if ident.ID == identifierID {
			return uc.identRepo.MarkVerified(ctx, identifierID)
		}
	}
	return domain.ErrNotFound
}

// UpsertLocation fija la política de surtido del producto en una ubicación
// (punto de reposición, cantidad sugerida, tope).
func (uc *ProductUseCase) UpsertLocation(ctx context.Context, merchantID, productID string, in dto.UpsertProductLocationRequest) (*dto.ProductLocationResponse, error) {
	if in.LocationID == "" || in.ReorderPoint < 0 || in.ReorderQty < 0 {
		return nil, domain.ErrInvalidInput
	}
	if _, err := uc.getOwned(ctx, merchantID, productID); err != nil {
		return nil, err
	}
	location, err := uc.locationRepo.GetByID(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}
	if location == nil || location.MerchantID != merchantID {
		return nil, domain.ErrNotFound
	}
	pl := &entity.ProductLocation{
		ProductID:       productID,
		LocationID:      in.LocationID,
		MerchantID:      merchantID,
		ReorderPoint:    in.ReorderPoint,
		ReorderQty:      in.ReorderQty,
		MaxStockLevel:   in.MaxStockLevel,
		PreferredVendor: in.PreferredVendor,
		UpdatedAt:       time.Now().UTC(),
	}
	if err := uc.plRepo.Upsert(ctx, pl); err != nil {
		return nil, err
	}
	return toProductLocationResponse(pl), nil
}

// RemoveLocation retira el producto de la ubicación: borra la política de
// surtido y la fila de la caché de niveles. El ledger no se toca (historial).
func (uc *ProductUseCase) RemoveLocation(ctx context.Context, merchantID, productID, locationID string) error {
	if _, err := uc.getOwned(ctx, merchantID, productID); err != nil {
		return err
	}
	if err := uc.plRepo.Delete(ctx, productID, locationID); err != nil {
		return err
	}
	return uc.levelRepo.Delete(ctx, productID, locationID)
}

// getOwned devuelve el producto solo si existe y pertenece al comercio.
func (uc *ProductUseCase) getOwned(ctx context.Context, merchantID, id string) (*entity.Product, error) {
	if merchantID == "" || id == "" {
		return nil, domain.ErrInvalidInput
	}
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || product.MerchantID != merchantID {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	return &dto.ProductResponse{
		ID:          p.ID,
		MerchantID:  p.MerchantID,
		Name:        p.Name,
		Category:    p.Category,
		Description: p.Description,
		UnitCost:    p.UnitCost,
		UnitPrice:   p.UnitPrice,
		Active:      p.Active,
		Attributes:  p.Attributes,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toIdentifierResponse(i *entity.ProductIdentifier) *dto.IdentifierResponse {
	if i == nil {
		return nil
	}
	return &dto.IdentifierResponse{
		ID:          i.ID,
		ProductID:   i.ProductID,
		Type:        i.Type,
		Value:       i.Value,
		Source:      i.Source,
		MatchMethod: i.MatchMethod,
		Verified:    i.Verified,
		CreatedAt:   i.CreatedAt,
	}
}

func toProductLocationResponse(pl *entity.ProductLocation) *dto.ProductLocationResponse {
	if pl == nil {
		return nil
	}
	return &dto.ProductLocationResponse{
		ProductID:       pl.ProductID,
		LocationID:      pl.LocationID,
		ReorderPoint:    pl.ReorderPoint,
		ReorderQty:      pl.ReorderQty,
		MaxStockLevel:   pl.MaxStockLevel,
		PreferredVendor: pl.PreferredVendor,
		UpdatedAt:       pl.UpdatedAt,
	}
}
