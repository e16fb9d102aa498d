package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/StockSync-api/internal/application/dto"
	"github.com/jhoicas/StockSync-api/internal/domain"
)

// LocalMerchantID es la Locals key del comercio en Fiber.
const LocalMerchantID = "merchant_id"

// MerchantMiddleware extrae el comercio de la cabecera X-Merchant-ID (o del
// query param merchant_id) y lo deja en c.Locals. Sin comercio responde 400:
// toda la API opera bajo un comercio.
func MerchantMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		merchantID := c.Get("X-Merchant-ID")
		if merchantID == "" {
			merchantID = c.Query("merchant_id")
		}
		if merchantID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Code:    "MERCHANT_REQUIRED",
				Message: "falta la cabecera X-Merchant-ID",
			})
		}
		c.Locals(LocalMerchantID, merchantID)
		return c.Next()
	}
}

// GetMerchantID devuelve el comercio del contexto; "" si el middleware no corrió.
func GetMerchantID(c *fiber.Ctx) string {
	v := c.Locals(LocalMerchantID)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// respondError mapea los errores sentinel del dominio a estados HTTP.
// Todo lo no reconocido es un 500 con el mensaje del error.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "el recurso ya existe"})
	case errors.Is(err, domain.ErrInsufficientAvailable):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_AVAILABLE", Message: "disponible insuficiente para reservar"})
	case errors.Is(err, domain.ErrAlreadyRunning):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ALREADY_RUNNING", Message: "ya hay una corrida en curso"})
	case errors.Is(err, domain.ErrStaleLease):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "STALE_LEASE", Message: "el lease de la corrida ya no es el vigente"})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: "conflicto concurrente, reintente la operación"})
	case errors.Is(err, domain.ErrUnresolvedIdentifier):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "UNRESOLVED_IDENTIFIER", Message: "el identificador no resuelve a un producto"})
	case errors.Is(err, domain.ErrRecomputeWindow):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "RECOMPUTE_WINDOW", Message: "el día está fuera de la ventana de recomputación"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
