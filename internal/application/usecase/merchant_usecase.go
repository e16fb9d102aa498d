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

// MerchantUseCase administra comercios y la habilitación de sus canales de
// sincronización. Un canal deshabilitado (o vencido) saca del agendamiento a
// todos los cursores de ese canal sin tocarlos.
type MerchantUseCase struct {
	repo repository.MerchantRepository
}

// NewMerchantUseCase construye el caso de uso con el puerto de persistencia.
func NewMerchantUseCase(repo repository.MerchantRepository) *MerchantUseCase {
	return &MerchantUseCase{repo: repo}
}

// Create crea un comercio nuevo, activo y sin canales habilitados.
func (uc *MerchantUseCase) Create(ctx context.Context, in dto.CreateMerchantRequest) (*dto.MerchantResponse, error) {
	if in.Name == "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now().UTC()
	merchant := &entity.Merchant{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, merchant); err != nil {
		return nil, err
	}
	return entityToMerchantResponse(merchant), nil
}

// GetByID obtiene un comercio por ID.
func (uc *MerchantUseCase) GetByID(ctx context.Context, id string) (*dto.MerchantResponse, error) {
	merchant, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, domain.ErrNotFound
	}
	return entityToMerchantResponse(merchant), nil
}

// List lista comercios con paginación.
func (uc *MerchantUseCase) List(ctx context.Context, limit, offset int) (*dto.MerchantListResponse, error) {
	list, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.MerchantResponse, 0, len(list))
	for _, m := range list {
		items = append(items, *entityToMerchantResponse(m))
	}
	return &dto.MerchantListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// UpsertChannel habilita, actualiza o desactiva un canal del comercio.
func (uc *MerchantUseCase) UpsertChannel(ctx context.Context, merchantID string, in dto.UpsertChannelRequest) (*dto.MerchantChannelResponse, error) {
	if merchantID == "" || !entity.ValidChannel(in.Channel) {
		return nil, domain.ErrInvalidInput
	}
	merchant, err := uc.repo.GetByID(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, domain.ErrNotFound
	}
	channel := &entity.MerchantChannel{
		MerchantID:  merchantID,
		Channel:     in.Channel,
		IsActive:    in.IsActive,
		ActivatedAt: time.Now().UTC(),
		ExpiresAt:   in.ExpiresAt,
	}
	if err := uc.repo.UpsertChannel(ctx, channel); err != nil {
		return nil, err
	}
	return entityToChannelResponse(channel), nil
}

// ListChannels lista los canales del comercio con su estado.
func (uc *MerchantUseCase) ListChannels(ctx context.Context, merchantID string) ([]dto.MerchantChannelResponse, error) {
	if merchantID == "" {
		return nil, domain.ErrInvalidInput
	}
	channels, err := uc.repo.ListChannels(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.MerchantChannelResponse, 0, len(channels))
	for _, ch := range channels {
		items = append(items, *entityToChannelResponse(ch))
	}
	return items, nil
}

func entityToMerchantResponse(m *entity.Merchant) *dto.MerchantResponse {
	if m == nil {
		return nil
	}
	return &dto.MerchantResponse{
		ID:        m.ID,
		Name:      m.Name,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func entityToChannelResponse(ch *entity.MerchantChannel) *dto.MerchantChannelResponse {
	if ch == nil {
		return nil
	}
	return &dto.MerchantChannelResponse{
		MerchantID:  ch.MerchantID,
		Channel:     ch.Channel,
		IsActive:    ch.IsActive,
		ActivatedAt: ch.ActivatedAt,
		ExpiresAt:   ch.ExpiresAt,
	}
}
