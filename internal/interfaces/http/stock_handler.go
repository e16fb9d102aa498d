package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/StockSync-api/internal/application/dto"
	"github.com/jhoicas/StockSync-api/internal/application/ledger"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// StockHandler maneja las peticiones HTTP del ledger y de la caché de niveles.
type StockHandler struct {
	appendUC   *ledger.AppendMovementUseCase
	transferUC *ledger.TransferUseCase
	allocUC    *ledger.AllocationUseCase
	queryUC    *ledger.QueryUseCase
	rebuildUC  *ledger.RebuildUseCase
}

// NewStockHandler construye el handler con los casos de uso del ledger.
func NewStockHandler(
	appendUC *ledger.AppendMovementUseCase,
	transferUC *ledger.TransferUseCase,
	allocUC *ledger.AllocationUseCase,
	queryUC *ledger.QueryUseCase,
	rebuildUC *ledger.RebuildUseCase,
) *StockHandler {
	return &StockHandler{
		appendUC:   appendUC,
		transferUC: transferUC,
		allocUC:    allocUC,
		queryUC:    queryUC,
		rebuildUC:  rebuildUC,
	}
}

// AppendMovement godoc
// @Summary      Registrar movimiento de stock
// @Description  Agrega una fila al ledger y actualiza la caché en la misma
// @Description  transacción. Si la clave (ref_type, ref_id) ya fue aplicada al
// @Description  par, devuelve la fila original con duplicate=true.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        body  body  dto.AppendMovementRequest  true  "movimiento con signo"
// @Success      201  {object}  dto.AppendMovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/movements [post]
func (h *StockHandler) AppendMovement(c *fiber.Ctx) error {
	var in dto.AppendMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	input := ledger.AppendInput{
		MerchantID: GetMerchantID(c),
		ProductID:  in.ProductID,
		LocationID: in.LocationID,
		QtyChange:  in.QtyChange,
		Reason:     entity.MovementReason(in.Reason),
		RefType:    in.RefType,
		RefID:      in.RefID,
		UnitCost:   in.UnitCost,
		CreatedBy:  actorFrom(c),
		Note:       in.Note,
	}
	if in.OccurredAt != nil {
		input.OccurredAt = *in.OccurredAt
	}

	result, err := h.appendUC.Append(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusCreated
	if result.Duplicate {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(appendResultToDTO(result))
}

// Stocktake godoc
// @Summary      Registrar conteo físico
// @Description  Ajusta el balance a la cantidad contada con un movimiento
// @Description  stocktake. Un conteo sin diferencia no genera fila.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        body  body  dto.StocktakeRequest  true  "cantidad contada"
// @Success      200  {object}  dto.AppendMovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/stocktake [post]
func (h *StockHandler) Stocktake(c *fiber.Ctx) error {
	var in dto.StocktakeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	input := ledger.StocktakeInput{
		MerchantID: GetMerchantID(c),
		ProductID:  in.ProductID,
		LocationID: in.LocationID,
		CountedQty: in.CountedQty,
		RefType:    in.RefType,
		RefID:      in.RefID,
		CreatedBy:  actorFrom(c),
		Note:       in.Note,
	}
	if in.OccurredAt != nil {
		input.OccurredAt = *in.OccurredAt
	}

	result, err := h.appendUC.Stocktake(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(appendResultToDTO(result))
}

// ListMovements godoc
// @Summary      Listar movimientos del ledger
// @Description  Historial de un par (producto, ubicación) ordenado por
// @Description  occurred_at con desempate por seq.
// @Tags         stock
// @Produce      json
// @Param        X-Merchant-ID  header  string  true   "ID del comercio"
// @Param        product_id     query   string  true   "ID del producto"
// @Param        location_id    query   string  true   "ID de la ubicación"
// @Param        from   query  string  false  "desde (RFC3339 o YYYY-MM-DD)"
// @Param        to     query  string  false  "hasta (RFC3339 o YYYY-MM-DD)"
// @Param        limit  query  int     false  "límite de resultados"
// @Param        offset query  int     false  "desplazamiento"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/movements [get]
func (h *StockHandler) ListMovements(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "paginación inválida"})
	}
	page.DefaultPage()

	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return nil
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return nil
	}

	movements, err := h.queryUC.ListMovements(c.Context(), c.Query("product_id"), c.Query("location_id"), from, to, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}

	items := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		items = append(items, *movementToDTO(m))
	}
	return c.JSON(dto.MovementListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(items)},
	})
}

// GetLevel godoc
// @Summary      Consultar nivel de un par
// @Description  Lee la caché materializada. Un par sin movimientos devuelve
// @Description  el nivel en cero, nunca 404.
// @Tags         stock
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        productId   path  string  true  "ID del producto"
// @Param        locationId  path  string  true  "ID de la ubicación"
// @Success      200  {object}  dto.StockLevelDTO
// @Router       /api/stock/levels/{productId}/{locationId} [get]
func (h *StockHandler) GetLevel(c *fiber.Ctx) error {
	level, err := h.queryUC.GetLevel(c.Context(), c.Params("productId"), c.Params("locationId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(levelToDTO(level))
}

// ListLevels godoc
// @Summary      Listar niveles de una ubicación
// @Tags         stock
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        location_id  query  string  true   "ID de la ubicación"
// @Param        limit        query  int     false  "límite de resultados"
// @Param        offset       query  int     false  "desplazamiento"
// @Success      200  {object}  dto.StockLevelListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/levels [get]
func (h *StockHandler) ListLevels(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "paginación inválida"})
	}
	page.DefaultPage()

	levels, err := h.queryUC.ListLevels(c.Context(), c.Query("location_id"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}

	items := make([]dto.StockLevelDTO, 0, len(levels))
	for _, l := range levels {
		items = append(items, *levelToDTO(l))
	}
	return c.JSON(dto.StockLevelListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(items)},
	})
}

// LowStock godoc
// @Summary      Productos en punto de reposición
// @Description  Lista los pares cuyo on_hand está en o bajo el umbral. Sin
// @Description  threshold se usa el reorder_point de cada producto-ubicación.
// @Tags         stock
// @Produce      json
// @Param        X-Merchant-ID  header  string  true   "ID del comercio"
// @Param        location_id    query   string  true   "ID de la ubicación"
// @Param        threshold      query   int     false  "umbral fijo opcional"
// @Success      200  {array}  dto.LowStockItemDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/low-stock [get]
func (h *StockHandler) LowStock(c *fiber.Ctx) error {
	var threshold *int64
	if raw := c.Query("threshold"); raw != "" {
		val, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "threshold inválido"})
		}
		threshold = &val
	}

	items, err := h.queryUC.ListLowStock(c.Context(), c.Query("location_id"), threshold)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(lowStockToDTO(items))
}

// Allocate godoc
// @Summary      Reservar existencias
// @Description  Incrementa allocated contra el disponible vigente. Falla con
// @Description  409 si el disponible no alcanza.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        body  body  dto.AllocationRequest  true  "producto, ubicación y cantidad"
// @Success      200  {object}  dto.StockLevelDTO
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock/allocations [post]
func (h *StockHandler) Allocate(c *fiber.Ctx) error {
	var in dto.AllocationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	level, err := h.allocUC.Allocate(c.Context(), in.ProductID, in.LocationID, in.Qty)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(levelToDTO(level))
}

// ReleaseAllocation godoc
// @Summary      Liberar una reserva
// @Description  Devuelve cantidad reservada al disponible. Liberar más de lo
// @Description  reservado deja allocated en cero, nunca negativo.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        body  body  dto.AllocationRequest  true  "producto, ubicación y cantidad"
// @Success      200  {object}  dto.StockLevelDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/allocations/release [post]
func (h *StockHandler) ReleaseAllocation(c *fiber.Ctx) error {
	var in dto.AllocationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	level, err := h.allocUC.Release(c.Context(), in.ProductID, in.LocationID, in.Qty)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(levelToDTO(level))
}

// Dispatch godoc
// @Summary      Despachar transferencia
// @Description  Descuenta el origen y deja la cantidad en tránsito hacia el
// @Description  destino. Ambas patas comparten transfer_id como referencia
// @Description  idempotente.
// @Tags         transfers
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        body  body  dto.TransferRequest  true  "transferencia"
// @Success      201  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock/transfers/dispatch [post]
func (h *StockHandler) Dispatch(c *fiber.Ctx) error {
	in, ok := parseTransferBody(c)
	if !ok {
		return nil
	}
	result, err := h.transferUC.Dispatch(c.Context(), transferInput(c, in))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(transferStatus(result)).JSON(transferToDTO(result))
}

// Receive godoc
// @Summary      Recibir transferencia
// @Description  Confirma la pata de entrada: mueve la cantidad despachada de
// @Description  in_transit a on_hand del destino.
// @Tags         transfers
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        body  body  dto.TransferRequest  true  "transferencia despachada"
// @Success      201  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/transfers/receive [post]
func (h *StockHandler) Receive(c *fiber.Ctx) error {
	in, ok := parseTransferBody(c)
	if !ok {
		return nil
	}
	input := ledger.ReceiveInput{
		MerchantID:     GetMerchantID(c),
		ProductID:      in.ProductID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		TransferID:     in.TransferID,
		CreatedBy:      actorFrom(c),
		Note:           in.Note,
	}
	if in.OccurredAt != nil {
		input.OccurredAt = *in.OccurredAt
	}
	result, err := h.transferUC.Receive(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(transferStatus(result)).JSON(transferToDTO(result))
}

// TransferImmediate godoc
// @Summary      Transferencia inmediata
// @Description  Despacho y recepción en una sola transacción, para traslados
// @Description  físicos ya consumados.
// @Tags         transfers
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        body  body  dto.TransferRequest  true  "transferencia"
// @Success      201  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock/transfers [post]
func (h *StockHandler) TransferImmediate(c *fiber.Ctx) error {
	in, ok := parseTransferBody(c)
	if !ok {
		return nil
	}
	result, err := h.transferUC.Immediate(c.Context(), transferInput(c, in))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(transferStatus(result)).JSON(transferToDTO(result))
}

// Rebuild godoc
// @Summary      Reconstruir la caché de un par
// @Description  Pliega el ledger completo bajo el lock de la fila y
// @Description  sobrescribe la caché. Operación de reparación.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        body  body  dto.RebuildRequest  true  "producto y ubicación"
// @Success      200  {object}  dto.RebuildResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/rebuild [post]
func (h *StockHandler) Rebuild(c *fiber.Ctx) error {
	var in dto.RebuildRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.rebuildUC.Rebuild(c.Context(), in.ProductID, in.LocationID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.RebuildResponse{
		ProductID:  result.ProductID,
		LocationID: result.LocationID,
		Movements:  result.Movements,
		Drifted:    result.Drifted,
		Before:     levelToDTO(result.Before),
		After:      levelToDTO(result.After),
	})
}

// Verify godoc
// @Summary      Verificar consistencia de la caché
// @Description  Compara la caché con el replay del ledger en modo solo
// @Description  lectura. Puede reportar falsos positivos con escrituras en
// @Description  vuelo; rebuild es la operación autoritativa.
// @Tags         stock
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        product_id   query  string  true  "ID del producto"
// @Param        location_id  query  string  true  "ID de la ubicación"
// @Success      200  {object}  ledger.VerifyResult
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/verify [get]
func (h *StockHandler) Verify(c *fiber.Ctx) error {
	result, err := h.rebuildUC.Verify(c.Context(), c.Query("product_id"), c.Query("location_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// ── helpers de mapeo ─────────────────────────────────────────────────────────

// actorFrom identifica el origen del movimiento para created_by. Sin cabecera
// X-Actor se registra el origen genérico del API.
func actorFrom(c *fiber.Ctx) string {
	if actor := c.Get("X-Actor"); actor != "" {
		return actor
	}
	return "api"
}

// parseTimeQuery acepta RFC3339 o fecha simple YYYY-MM-DD. Si el parámetro no
// viene devuelve (nil, true); si viene malformado responde 400 y devuelve ok=false.
func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, true
	}
	_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Code:    "INVALID_QUERY",
		Message: "parámetro " + key + " inválido: se espera RFC3339 o YYYY-MM-DD",
	})
	return nil, false
}

func parseTransferBody(c *fiber.Ctx) (dto.TransferRequest, bool) {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		return in, false
	}
	return in, true
}

func transferInput(c *fiber.Ctx, in dto.TransferRequest) ledger.TransferInput {
	input := ledger.TransferInput{
		MerchantID:     GetMerchantID(c),
		ProductID:      in.ProductID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Qty:            in.Qty,
		TransferID:     in.TransferID,
		CreatedBy:      actorFrom(c),
		Note:           in.Note,
	}
	if in.OccurredAt != nil {
		input.OccurredAt = *in.OccurredAt
	}
	return input
}

func transferStatus(result *ledger.TransferResult) int {
	if result.Duplicate {
		return fiber.StatusOK
	}
	return fiber.StatusCreated
}

func movementToDTO(m *entity.StockMovement) *dto.MovementResponse {
	if m == nil {
		return nil
	}
	return &dto.MovementResponse{
		ID:                    m.ID,
		Seq:                   m.Seq,
		ProductID:             m.ProductID,
		LocationID:            m.LocationID,
		QtyChange:             m.QtyChange,
		BalanceAfter:          m.BalanceAfter,
		Reason:                string(m.Reason),
		RefType:               m.RefType,
		RefID:                 m.RefID,
		CounterpartLocationID: m.CounterpartLocationID,
		UnitCost:              m.UnitCost,
		TotalCost:             m.TotalCost,
		OccurredAt:            m.OccurredAt,
		CreatedAt:             m.CreatedAt,
		CreatedBy:             m.CreatedBy,
		Note:                  m.Note,
	}
}

func levelToDTO(l *entity.StockLevel) *dto.StockLevelDTO {
	if l == nil {
		return nil
	}
	return &dto.StockLevelDTO{
		ProductID:      l.ProductID,
		LocationID:     l.LocationID,
		OnHand:         l.OnHand,
		Allocated:      l.Allocated,
		Available:      l.Available,
		InTransit:      l.InTransit,
		LastMovementAt: l.LastMovementAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func appendResultToDTO(result *ledger.AppendResult) dto.AppendMovementResponse {
	out := dto.AppendMovementResponse{
		Movement:  movementToDTO(result.Movement),
		Level:     levelToDTO(result.Level),
		Duplicate: result.Duplicate,
		Warning:   result.Warning,
	}
	if result.RecomputeDay != nil {
		loc := ""
		if result.Movement != nil {
			loc = result.Movement.LocationID
		}
		out.Recompute = &dto.RecomputeFlagDTO{
			LocationID: loc,
			Day:        result.RecomputeDay.Format("2006-01-02"),
		}
	}
	return out
}

func transferToDTO(result *ledger.TransferResult) dto.TransferResponse {
	return dto.TransferResponse{
		TransferID: result.TransferID,
		Out:        movementToDTO(result.Dispatch),
		In:         movementToDTO(result.Receive),
		Origin:     levelToDTO(result.Origin),
		Dest:       levelToDTO(result.Dest),
		Duplicate:  result.Duplicate,
	}
}

func lowStockToDTO(items []repository.LowStockItem) []dto.LowStockItemDTO {
	out := make([]dto.LowStockItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, dto.LowStockItemDTO{
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			SKU:             it.SKU,
			LocationID:      it.LocationID,
			OnHand:          it.OnHand,
			Available:       it.Available,
			ReorderPoint:    it.ReorderPoint,
			ReorderQty:      it.ReorderQty,
			Deficit:         it.ReorderPoint - it.OnHand,
			PreferredVendor: it.PreferredVendor,
		})
	}
	return out
}
