package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/StockSync-api/internal/application/dto"
	"github.com/jhoicas/StockSync-api/internal/application/snapshot"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

// SnapshotHandler maneja las peticiones HTTP del agregador de rollups diarios.
type SnapshotHandler struct {
	uc *snapshot.CloseDayUseCase
}

// NewSnapshotHandler construye el handler.
func NewSnapshotHandler(uc *snapshot.CloseDayUseCase) *SnapshotHandler {
	return &SnapshotHandler{uc: uc}
}

// CloseDay godoc
// @Summary      Cerrar el rollup diario de una ubicación
// @Description  Genera un snapshot por producto para el día indicado. El upsert
// @Description  es idempotente: re-cerrar el mismo día produce la misma fila.
// @Tags         snapshots
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        body  body  dto.CloseDayRequest  true  "ubicación y fecha YYYY-MM-DD"
// @Success      200  {object}  snapshot.CloseDayResult
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/snapshots/close [post]
func (h *SnapshotHandler) CloseDay(c *fiber.Ctx) error {
	var in dto.CloseDayRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	day, ok := parseDay(c, in.Date)
	if !ok {
		return nil
	}
	result, err := h.uc.CloseDay(c.Context(), in.LocationID, day)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// Recompute godoc
// @Summary      Recomputar rollups desde una fecha
// @Description  Regenera el día indicado y todos los posteriores hasta hoy,
// @Description  porque el closing de un día es el opening del siguiente. La
// @Description  ventana de recomputación acota qué tan atrás se acepta.
// @Tags         snapshots
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        body  body  dto.RecomputeRequest  true  "ubicación y fecha YYYY-MM-DD"
// @Success      200  {object}  snapshot.RecomputeResult
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/snapshots/recompute [post]
func (h *SnapshotHandler) Recompute(c *fiber.Ctx) error {
	var in dto.RecomputeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	day, ok := parseDay(c, in.Date)
	if !ok {
		return nil
	}
	result, err := h.uc.RecomputeDay(c.Context(), in.LocationID, day)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetRange godoc
// @Summary      Serie diaria de un producto en una ubicación
// @Tags         snapshots
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        product_id   query  string  true  "ID del producto"
// @Param        location_id  query  string  true  "ID de la ubicación"
// @Param        from  query  string  true  "desde (YYYY-MM-DD, inclusive)"
// @Param        to    query  string  true  "hasta (YYYY-MM-DD, inclusive)"
// @Success      200  {object}  dto.SnapshotRangeResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/snapshots [get]
func (h *SnapshotHandler) GetRange(c *fiber.Ctx) error {
	from, ok := parseDay(c, c.Query("from"))
	if !ok {
		return nil
	}
	to, ok := parseDay(c, c.Query("to"))
	if !ok {
		return nil
	}

	productID := c.Query("product_id")
	locationID := c.Query("location_id")
	snapshots, err := h.uc.GetRange(c.Context(), productID, locationID, from, to)
	if err != nil {
		return respondError(c, err)
	}

	items := make([]dto.SnapshotDTO, 0, len(snapshots))
	for _, s := range snapshots {
		items = append(items, snapshotToDTO(s))
	}
	return c.JSON(dto.SnapshotRangeResponse{
		ProductID:  productID,
		LocationID: locationID,
		From:       from.Format("2006-01-02"),
		To:         to.Format("2006-01-02"),
		Items:      items,
	})
}

// parseDay interpreta una fecha civil YYYY-MM-DD. En error responde 400 y
// devuelve ok=false.
func parseDay(c *fiber.Ctx, raw string) (time.Time, bool) {
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "INVALID_QUERY",
			Message: "fecha inválida: se espera YYYY-MM-DD",
		})
		return time.Time{}, false
	}
	return day, true
}

func snapshotToDTO(s *entity.StockSnapshotDaily) dto.SnapshotDTO {
	return dto.SnapshotDTO{
		ProductID:         s.ProductID,
		LocationID:        s.LocationID,
		SnapshotDate:      s.SnapshotDate.Format("2006-01-02"),
		OpeningQty:        s.OpeningQty,
		InQty:             s.InQty,
		OutQty:            s.OutQty,
		AdjustmentQty:     s.AdjustmentQty,
		ClosingQty:        s.ClosingQty,
		AverageCost:       s.AverageCost,
		TotalValue:        s.TotalValue,
		TurnoverVelocity:  s.TurnoverVelocity,
		DaysSinceLastSale: s.DaysSinceLastSale,
		UpdatedAt:         s.UpdatedAt,
	}
}
