package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/StockSync-api/internal/application/dto"
	appsync "github.com/jhoicas/StockSync-api/internal/application/sync"
	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

// SyncHandler maneja las peticiones HTTP de los cursores de sincronización.
type SyncHandler struct {
	manager *appsync.CursorManager
	worker  *appsync.Worker
	log     *logger.Logger
}

// NewSyncHandler construye el handler.
func NewSyncHandler(manager *appsync.CursorManager, worker *appsync.Worker, log *logger.Logger) *SyncHandler {
	return &SyncHandler{manager: manager, worker: worker, log: log}
}

// Register godoc
// @Summary      Registrar cursor de sincronización
// @Description  Crea la máquina de estados para (canal, ubicación-o-todas,
// @Description  entidad). Requiere el canal habilitado y activo en el comercio.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        body  body  dto.RegisterCursorRequest  true  "channel, location_id, entity"
// @Success      201  {object}  dto.SyncCursorResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/sync/cursors [post]
func (h *SyncHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterCursorRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	cursor, err := h.manager.Register(c.Context(), appsync.RegisterInput{
		MerchantID: GetMerchantID(c),
		Channel:    in.Channel,
		LocationID: in.LocationID,
		Entity:     in.Entity,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(cursorToDTO(cursor))
}

// List godoc
// @Summary      Listar cursores del comercio
// @Tags         sync
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Success      200  {object}  dto.SyncCursorListResponse
// @Router       /api/sync/cursors [get]
func (h *SyncHandler) List(c *fiber.Ctx) error {
	cursors, err := h.manager.ListByMerchant(c.Context(), GetMerchantID(c))
	if err != nil {
		return respondError(c, err)
	}
	items := make([]dto.SyncCursorResponse, 0, len(cursors))
	for _, cur := range cursors {
		items = append(items, cursorToDTO(cur))
	}
	return c.JSON(dto.SyncCursorListResponse{Items: items})
}

// GetByID godoc
// @Summary      Consultar un cursor
// @Tags         sync
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        id  path  string  true  "ID del cursor"
// @Success      200  {object}  dto.SyncCursorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sync/cursors/{id} [get]
func (h *SyncHandler) GetByID(c *fiber.Ctx) error {
	cursor, err := h.getOwned(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cursorToDTO(cursor))
}

// Run godoc
// @Summary      Disparar una pasada de sincronización
// @Description  Ejecuta una pasada incremental sobre el cursor de forma
// @Description  síncrona. Si otro worker tiene el lease responde 409.
// @Tags         sync
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        id  path  string  true  "ID del cursor"
// @Success      200  {object}  dto.RunReportResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/sync/cursors/{id}/run [post]
func (h *SyncHandler) Run(c *fiber.Ctx) error {
	cursor, err := h.getOwned(c)
	if err != nil {
		return respondError(c, err)
	}
	report, err := h.worker.RunOnce(c.Context(), cursor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.RunReportResponse{
		CursorID:   report.CursorID,
		Batches:    report.Batches,
		Fetched:    report.Fetched,
		Applied:    report.Applied,
		Duplicates: report.Duplicates,
		Queued:     report.Queued,
		Skipped:    report.Skipped,
	})
}

// StartBackfill godoc
// @Summary      Iniciar backfill histórico
// @Description  Arranca la carga del rango [from, to) en segundo plano, en
// @Description  paralelo al cursor incremental. El estado se consulta en el
// @Description  cursor (backfill_state); solo puede haber un backfill activo.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        X-Merchant-ID  header  string  true  "ID del comercio"
// @Param        id    path  string  true  "ID del cursor"
// @Param        body  body  dto.StartBackfillRequest  true  "rango histórico"
// @Success      202  {object}  dto.SyncCursorResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/sync/cursors/{id}/backfill [post]
func (h *SyncHandler) StartBackfill(c *fiber.Ctx) error {
	var in dto.StartBackfillRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	cursor, err := h.getOwned(c)
	if err != nil {
		return respondError(c, err)
	}
	if !in.From.Before(in.To) {
		return respondError(c, domain.ErrInvalidInput)
	}
	if cursor.BackfillState == entity.BackfillInProgress {
		return respondError(c, domain.ErrAlreadyRunning)
	}

	// El backfill corre desatado de la petición; el progreso queda en el cursor.
	go func() {
		if _, err := h.worker.RunBackfill(context.Background(), cursor.ID, in.From, in.To); err != nil {
			h.log.Error().Err(err).
				Str("cursor_id", cursor.ID).
				Msg("backfill terminó con error")
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(cursorToDTO(cursor))
}

// getOwned carga el cursor y verifica que pertenezca al comercio de la petición.
func (h *SyncHandler) getOwned(c *fiber.Ctx) (*entity.SyncCursor, error) {
	cursor, err := h.manager.Get(c.Context(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if cursor.MerchantID != GetMerchantID(c) {
		return nil, domain.ErrNotFound
	}
	return cursor, nil
}

func cursorToDTO(cur *entity.SyncCursor) dto.SyncCursorResponse {
	return dto.SyncCursorResponse{
		ID:                  cur.ID,
		MerchantID:          cur.MerchantID,
		Channel:             cur.Channel,
		LocationID:          cur.LocationID,
		Entity:              cur.Entity,
		CursorToken:         cur.CursorToken,
		LastProcessedID:     cur.LastProcessedID,
		Status:              cur.Status,
		ConsecutiveFailures: cur.ConsecutiveFailures,
		NextSyncAt:          cur.NextSyncAt,
		LastSuccessAt:       cur.LastSuccessAt,
		LastError:           cur.LastError,
		RecordsSynced:       cur.RecordsSynced,
		BackfillState:       cur.BackfillState,
		BackfillCursor:      cur.BackfillCursor,
		BackfillRangeStart:  cur.BackfillRangeStart,
		BackfillRangeEnd:    cur.BackfillRangeEnd,
		CreatedAt:           cur.CreatedAt,
		UpdatedAt:           cur.UpdatedAt,
	}
}
