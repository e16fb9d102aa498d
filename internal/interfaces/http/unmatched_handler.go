package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/StockSync-api/internal/application/dto"
	"github.com/jhoicas/StockSync-api/internal/application/identity"
	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

// UnmatchedHandler maneja las peticiones HTTP de la cola de reconciliación.
type UnmatchedHandler struct {
	uc *identity.ReconcileUseCase
}

// NewUnmatchedHandler construye el handler.
func NewUnmatchedHandler(uc *identity.ReconcileUseCase) *UnmatchedHandler {
	return &UnmatchedHandler{uc: uc}
}

// List godoc
// @Summary      Listar ítems de la cola de reconciliación
// @Tags         unmatched
// @Produce      json
// @Param        X-Merchant-ID  header  string  true   "ID del comercio"
// @Param        status  query  string  false  "pending (default), matched, ignored"
// @Param        limit   query  int     false  "Tamaño de página (default 20)"
// @Param        offset  query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.UnmatchedListResponse
// @Router       /api/unmatched [get]
func (h *UnmatchedHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "paginación inválida"})
	}
	page.DefaultPage()

	items, err := h.uc.ListPending(c.Context(), GetMerchantID(c), c.Query("status"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}

	out := make([]dto.UnmatchedItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, unmatchedToDTO(it))
	}
	return c.JSON(dto.UnmatchedListResponse{
		Items: out,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(out)},
	})
}

// GetByID godoc
// @Summary      Consultar un ítem no emparejado
// @Tags         unmatched
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        id  path  string  true  "ID del ítem"
// @Success      200  {object}  dto.UnmatchedItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/unmatched/{id} [get]
func (h *UnmatchedHandler) GetByID(c *fiber.Ctx) error {
	item, err := h.uc.GetItem(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if item.MerchantID != GetMerchantID(c) {
		return respondError(c, domain.ErrNotFound)
	}
	return c.JSON(unmatchedToDTO(item))
}

// Resolve godoc
// @Summary      Resolver un ítem no emparejado
// @Description  link vincula a un producto existente, create crea uno desde el
// @Description  payload e ignore descarta. En link/create los eventos diferidos
// @Description  se re-aplican al ledger con su clave de idempotencia original.
// @Tags         unmatched
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        id    path  string  true  "ID del ítem"
// @Param        body  body  dto.ResolveUnmatchedRequest  true  "action, product_id / new_product"
// @Success      200  {object}  dto.ResolveUnmatchedResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/unmatched/{id}/resolve [post]
func (h *UnmatchedHandler) Resolve(c *fiber.Ctx) error {
	var in dto.ResolveUnmatchedRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	item, err := h.uc.GetItem(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if item.MerchantID != GetMerchantID(c) {
		return respondError(c, domain.ErrNotFound)
	}

	input := identity.ResolveActionInput{
		ItemID:     item.ID,
		Action:     in.Action,
		ProductID:  in.ProductID,
		ResolvedBy: in.ResolvedBy,
	}
	if in.NewProduct != nil {
		input.NewProduct = &identity.NewProductInput{
			Name:      in.NewProduct.Name,
			Category:  in.NewProduct.Category,
			UnitCost:  in.NewProduct.UnitCost,
			UnitPrice: in.NewProduct.UnitPrice,
		}
	}

	result, err := h.uc.ResolveUnmatched(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ResolveUnmatchedResponse{
		Item:           unmatchedToDTO(result.Item),
		ProductID:      result.ProductID,
		EventsReplayed: result.EventsReplayed,
		EventsSkipped:  result.EventsSkipped,
	})
}

func unmatchedToDTO(it *entity.UnmatchedItem) dto.UnmatchedItemResponse {
	events := make([]dto.DeferredEventDTO, 0, len(it.PendingEvents))
	for _, ev := range it.PendingEvents {
		events = append(events, dto.DeferredEventDTO{
			ExternalRefID:   ev.ExternalRefID,
			RefType:         ev.RefType,
			IdentifierType:  ev.IdentifierType,
			IdentifierValue: ev.IdentifierValue,
			LocationID:      ev.LocationID,
			QtyChange:       ev.QtyChange,
			Reason:          string(ev.Reason),
			OccurredAt:      ev.OccurredAt,
			UnitCost:        ev.UnitCost,
		})
	}
	return dto.UnmatchedItemResponse{
		ID:               it.ID,
		MerchantID:       it.MerchantID,
		Source:           it.Source,
		IdentifierType:   it.IdentifierType,
		IdentifierValue:  it.IdentifierValue,
		Payload:          it.Payload,
		PendingEvents:    events,
		SeenCount:        it.SeenCount,
		Status:           it.Status,
		MatchedProductID: it.MatchedProductID,
		MatchMethod:      it.MatchMethod,
		FirstSeenAt:      it.FirstSeenAt,
		LastSeenAt:       it.LastSeenAt,
		ResolvedAt:       it.ResolvedAt,
		ResolvedBy:       it.ResolvedBy,
	}
}
