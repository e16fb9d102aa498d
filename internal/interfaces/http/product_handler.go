package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/StockSync-api/internal/application/dto"
	"github.com/jhoicas/StockSync-api/internal/application/usecase"
)

// ProductHandler maneja las peticiones HTTP del catálogo canónico.
type ProductHandler struct {
	uc *usecase.ProductUseCase
}

// NewProductHandler construye el handler.
func NewProductHandler(uc *usecase.ProductUseCase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// Create godoc
// @Summary      Crear producto
// @Description  Crea el producto canónico. Si viene sku, registra también el
// @Description  identificador interno verificado.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        body  body  dto.CreateProductRequest  true  "name, category, unit_cost, unit_price, sku"
// @Success      201  {object}  dto.ProductResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	product, err := h.uc.Create(c.Context(), GetMerchantID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// GetByID godoc
// @Summary      Obtener producto por ID
// @Tags         products
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        id  path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
	product, err := h.uc.GetByID(c.Context(), GetMerchantID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// Update godoc
// @Summary      Actualizar producto
// @Description  No permite modificar el costo promedio: lo recalculan las
// @Description  recepciones del ledger.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        id    path  string  true  "ID del producto"
// @Param        body  body  dto.UpdateProductRequest  true  "campos opcionales"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [put]
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	product, err := h.uc.Update(c.Context(), GetMerchantID(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// List godoc
// @Summary      Listar productos del comercio
// @Tags         products
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        limit   query  int  false  "Tamaño de página (default 20)"
// @Param        offset  query  int  false  "Desplazamiento"
// @Success      200  {object}  dto.ProductListResponse
// @Router       /api/products [get]
func (h *ProductHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "paginación inválida"})
	}
	page.DefaultPage()
	list, err := h.uc.List(c.Context(), GetMerchantID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// Deactivate godoc
// @Summary      Desactivar producto
// @Description  El catálogo nunca borra: el historial del ledger referencia el
// @Description  ID para siempre.
// @Tags         products
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        id  path  string  true  "ID del producto"
// @Success      204  "desactivado"
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) Deactivate(c *fiber.Ctx) error {
	if err := h.uc.Deactivate(c.Context(), GetMerchantID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddIdentifier godoc
// @Summary      Asociar un código al producto
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        id    path  string  true  "ID del producto"
// @Param        body  body  dto.AddIdentifierRequest  true  "type, value, source"
// @Success      201  {object}  dto.IdentifierResponse
// @Failure      409  {object}  dto.ErrorResponse  "el código ya apunta a otro producto"
// @Router       /api/products/{id}/identifiers [post]
func (h *ProductHandler) AddIdentifier(c *fiber.Ctx) error {
	var in dto.AddIdentifierRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	ident, err := h.uc.AddIdentifier(c.Context(), GetMerchantID(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ident)
}

// ListIdentifiers godoc
// @Summary      Listar códigos del producto
// @Tags         products
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        id  path  string  true  "ID del producto"
// @Success      200  {array}  dto.IdentifierResponse
// @Router       /api/products/{id}/identifiers [get]
func (h *ProductHandler) ListIdentifiers(c *fiber.Ctx) error {
	idents, err := h.uc.ListIdentifiers(c.Context(), GetMerchantID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(idents)
}

// VerifyIdentifier godoc
// @Summary      Marcar un identificador difuso como revisado
// @Tags         products
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        id            path  string  true  "ID del producto"
// @Param        identifierId  path  string  true  "ID del identificador"
// @Success      204  "verificado"
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id}/identifiers/{identifierId}/verify [post]
func (h *ProductHandler) VerifyIdentifier(c *fiber.Ctx) error {
	err := h.uc.VerifyIdentifier(c.Context(), GetMerchantID(c), c.Params("id"), c.Params("identifierId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpsertLocation godoc
// @Summary      Fijar la política de surtido del producto en una ubicación
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        id    path  string  true  "ID del producto"
// @Param        body  body  dto.UpsertProductLocationRequest  true  "location_id, reorder_point, reorder_qty"
// @Success      200  {object}  dto.ProductLocationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id}/locations [put]
func (h *ProductHandler) UpsertLocation(c *fiber.Ctx) error {
	var in dto.UpsertProductLocationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	pl, err := h.uc.UpsertLocation(c.Context(), GetMerchantID(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pl)
}

// RemoveLocation godoc
// @Summary      Retirar el producto de una ubicación
// @Description  Borra la política de surtido y la fila de la caché de niveles.
// @Description  El historial del ledger no se toca.
// @Tags         products
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        id          path  string  true  "ID del producto"
// @Param        locationId  path  string  true  "ID de la ubicación"
// @Success      204  "retirado"
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id}/locations/{locationId} [delete]
func (h *ProductHandler) RemoveLocation(c *fiber.Ctx) error {
	err := h.uc.RemoveLocation(c.Context(), GetMerchantID(c), c.Params("id"), c.Params("locationId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
