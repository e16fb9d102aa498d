package http

import (
	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/StockSync-api/internal/application/analytics"
)

// DashboardHandler maneja el resumen operativo del comercio.
type DashboardHandler struct {
	uc *appanalytics.DashboardUseCase
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(uc *appanalytics.DashboardUseCase) *DashboardHandler {
	return &DashboardHandler{uc: uc}
}

// GetOverview godoc
// @Summary      Resumen operativo del comercio
// @Description  Valor de inventario por ubicación, productos bajo reposición,
// @Description  ítems pendientes de reconciliar, movimientos de las últimas
// @Description  24h y salud de los cursores de sincronización.
// @Tags         dashboard
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Success      200  {object}  dto.DashboardOverviewDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/dashboard/overview [get]
func (h *DashboardHandler) GetOverview(c *fiber.Ctx) error {
	overview, err := h.uc.GetOverview(c.Context(), GetMerchantID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(overview)
}
