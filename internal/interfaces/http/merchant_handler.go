package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/StockSync-api/internal/application/dto"
	"github.com/jhoicas/StockSync-api/internal/application/usecase"
)

// MerchantHandler maneja las peticiones HTTP de comercios y sus canales.
type MerchantHandler struct {
	uc *usecase.MerchantUseCase
}

// NewMerchantHandler construye el handler.
func NewMerchantHandler(uc *usecase.MerchantUseCase) *MerchantHandler {
	return &MerchantHandler{uc: uc}
}

// Create godoc
// @Summary      Crear comercio
// @Tags         merchants
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateMerchantRequest  true  "name"
// @Success      201  {object}  dto.MerchantResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/merchants [post]
func (h *MerchantHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateMerchantRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	merchant, err := h.uc.Create(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(merchant)
}

// GetByID godoc
// @Summary      Obtener comercio por ID
// @Tags         merchants
// @Produce      json
// @Param        id  path  string  true  "ID del comercio"
// @Success      200  {object}  dto.MerchantResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/merchants/{id} [get]
func (h *MerchantHandler) GetByID(c *fiber.Ctx) error {
	merchant, err := h.uc.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(merchant)
}

// List godoc
// @Summary      Listar comercios
// @Tags         merchants
// @Produce      json
// @Param        limit   query  int  false  "Tamaño de página (default 20)"
// @Param        offset  query  int  false  "Desplazamiento"
// @Success      200  {object}  dto.MerchantListResponse
// @Router       /api/merchants [get]
func (h *MerchantHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "paginación inválida"})
	}
	page.DefaultPage()
	list, err := h.uc.List(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// UpsertChannel godoc
// @Summary      Habilitar o actualizar un canal de sincronización
// @Tags         merchants
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del comercio"
// @Param        body  body  dto.UpsertChannelRequest  true  "channel, is_active, expires_at"
// @Success      200  {object}  dto.MerchantChannelResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/merchants/{id}/channels [put]
func (h *MerchantHandler) UpsertChannel(c *fiber.Ctx) error {
	var in dto.UpsertChannelRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	channel, err := h.uc.UpsertChannel(c.Context(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(channel)
}

// ListChannels godoc
// @Summary      Listar canales del comercio
// @Tags         merchants
// @Produce      json
// @Param        id  path  string  true  "ID del comercio"
// @Success      200  {array}  dto.MerchantChannelResponse
// @Router       /api/merchants/{id}/channels [get]
func (h *MerchantHandler) ListChannels(c *fiber.Ctx) error {
	channels, err := h.uc.ListChannels(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(channels)
}
