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

// LocationUseCase administra las ubicaciones con inventario de un comercio.
type LocationUseCase struct {
	repo repository.LocationRepository
}

// NewLocationUseCase construye el caso de uso con el puerto de persistencia.
func NewLocationUseCase(repo repository.LocationRepository) *LocationUseCase {
	return &LocationUseCase{repo: repo}
}

// Create crea una ubicación activa para el comercio.
func (uc *LocationUseCase) Create(ctx context.Context, merchantID string, in dto.CreateLocationRequest) (*dto.LocationResponse, error) {
	if merchantID == "" || in.Name == "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now().UTC()
	location := &entity.Location{
		ID:         uuid.New().String(),
		MerchantID: merchantID,
		Name:       in.Name,
		Address:    in.Address,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.repo.Create(ctx, location); err != nil {
		return nil, err
	}
	return entityToLocationResponse(location), nil
}

// GetByID obtiene una ubicación del comercio.
func (uc *LocationUseCase) GetByID(ctx context.Context, merchantID, id string) (*dto.LocationResponse, error) {
	location, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if location == nil || location.MerchantID != merchantID {
		return nil, domain.ErrNotFound
	}
	return entityToLocationResponse(location), nil
}

// Update actualiza nombre, dirección o estado de la ubicación.
func (uc *LocationUseCase) Update(ctx context.Context, merchantID, id string, in dto.UpdateLocationRequest) (*dto.LocationResponse, error) {
	location, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if location == nil || location.MerchantID != merchantID {
		return nil, domain.ErrNotFound
	}
	if in.Name != nil {
		location.Name = *in.Name
	}
	if in.Address != nil {
		location.Address = *in.Address
	}
	if in.Active != nil {
		location.Active = *in.Active
	}
	location.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, location); err != nil {
		return nil, err
	}
	return entityToLocationResponse(location), nil
}

// List lista las ubicaciones del comercio con paginación.
func (uc *LocationUseCase) List(ctx context.Context, merchantID string, limit, offset int) (*dto.LocationListResponse, error) {
	if merchantID == "" {
		return nil, domain.ErrInvalidInput
	}
	list, err := uc.repo.ListByMerchant(ctx, merchantID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.LocationResponse, 0, len(list))
	for _, l := range list {
		items = append(items, *entityToLocationResponse(l))
	}
	return &dto.LocationListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func entityToLocationResponse(l *entity.Location) *dto.LocationResponse {
	if l == nil {
		return nil
	}
	return &dto.LocationResponse{
		ID:         l.ID,
		MerchantID: l.MerchantID,
		Name:       l.Name,
		Address:    l.Address,
		Active:     l.Active,
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
}
