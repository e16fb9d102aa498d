package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/StockSync-api/internal/application/ports"
	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
	domainsync "github.com/jhoicas/StockSync-api/internal/domain/sync"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

// CursorManager administra el ciclo de vida de los cursores de sincronización.
// Toda transición de estado pasa por los UPDATEs condicionados del repositorio:
// el manager decide QUÉ transición toca (agenda, backoff, lease) y el repositorio
// garantiza que solo un escritor la gane.
type CursorManager struct {
	cursorRepo   repository.SyncCursorRepository
	merchantRepo repository.MerchantRepository
	locationRepo repository.LocationRepository
	alerts       ports.AlertPublisher
	settings     Settings
	log          *logger.Logger
}

// NewCursorManager construye el administrador de cursores.
func NewCursorManager(
	cursorRepo repository.SyncCursorRepository,
	merchantRepo repository.MerchantRepository,
	locationRepo repository.LocationRepository,
	alerts ports.AlertPublisher,
	settings Settings,
	log *logger.Logger,
) *CursorManager {
	return &CursorManager{
		cursorRepo:   cursorRepo,
		merchantRepo: merchantRepo,
		locationRepo: locationRepo,
		alerts:       alerts,
		settings:     settings.normalized(),
		log:          log,
	}
}

// RegisterInput alta de un cursor: una máquina de estados por
// (comercio, canal, ubicación-o-todas, entidad).
type RegisterInput struct {
	MerchantID string
	Channel    string
	LocationID *string // nil = todas las ubicaciones del comercio
	Entity     string
}

// Register crea el cursor en idle, agendado para correr de inmediato.
// El comercio debe existir y el canal estar habilitado para él.
func (m *CursorManager) Register(ctx context.Context, in RegisterInput) (*entity.SyncCursor, error) {
	if in.MerchantID == "" || !entity.ValidChannel(in.Channel) || !validSyncEntity(in.Entity) {
		return nil, domain.ErrInvalidInput
	}

	merchant, err := m.merchantRepo.GetByID(ctx, in.MerchantID)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, domain.ErrNotFound
	}
	active, err := m.merchantRepo.HasActiveChannel(ctx, in.MerchantID, in.Channel)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, domain.ErrInvalidInput
	}
	if in.LocationID != nil {
		location, err := m.locationRepo.GetByID(ctx, *in.LocationID)
		if err != nil {
			return nil, err
		}
		if location == nil || location.MerchantID != in.MerchantID {
			return nil, domain.ErrNotFound
		}
	}

	now := time.Now().UTC()
	cursor := &entity.SyncCursor{
		ID:            uuid.New().String(),
		MerchantID:    in.MerchantID,
		Channel:       in.Channel,
		LocationID:    in.LocationID,
		Entity:        in.Entity,
		Status:        entity.CursorStatusIdle,
		NextSyncAt:    &now,
		BackfillState: entity.BackfillNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.cursorRepo.Create(ctx, cursor); err != nil {
		return nil, err
	}
	m.log.Info().
		Str("cursor_id", cursor.ID).
		Str("merchant_id", in.MerchantID).
		Str("channel", in.Channel).
		Str("entity", in.Entity).
		Msg("cursor de sincronización registrado")
	return cursor, nil
}

// Get devuelve un cursor por ID.
func (m *CursorManager) Get(ctx context.Context, cursorID string) (*entity.SyncCursor, error) {
	if cursorID == "" {
		return nil, domain.ErrInvalidInput
	}
	cursor, err := m.cursorRepo.GetByID(ctx, cursorID)
	if err != nil {
		return nil, err
	}
	if cursor == nil {
		return nil, domain.ErrNotFound
	}
	return cursor, nil
}

// ListByMerchant lista los cursores del comercio.
func (m *CursorManager) ListByMerchant(ctx context.Context, merchantID string) ([]*entity.SyncCursor, error) {
	if merchantID == "" {
		return nil, domain.ErrInvalidInput
	}
	return m.cursorRepo.ListByMerchant(ctx, merchantID)
}

// DueCursors devuelve los cursores elegibles para correr ahora (sin lease
// vigente, next_sync_at vencido o nulo).
func (m *CursorManager) DueCursors(ctx context.Context, now time.Time, limit int) ([]*entity.SyncCursor, error) {
	if limit <= 0 {
		limit = 20
	}
	return m.cursorRepo.ListDue(ctx, now, limit)
}

// AcquireForRun toma el lease del cursor para una pasada. Devuelve el cursor
// tal como quedó (status=running, dueño actual) junto al lease; si otro worker
// tiene un lease vigente falla con domain.ErrAlreadyRunning. Un lease vencido
// (worker caído sin liberar) se reclama en la misma operación.
func (m *CursorManager) AcquireForRun(ctx context.Context, cursorID string) (*entity.SyncCursor, *entity.CursorLease, error) {
	token := uuid.New().String()
	cursor, err := m.cursorRepo.Acquire(ctx, cursorID, token, m.settings.LeaseTTL)
	if err != nil {
		return nil, nil, err
	}
	lease := &entity.CursorLease{
		CursorID:  cursorID,
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(m.settings.LeaseTTL),
	}
	return cursor, lease, nil
}

// RecordProgress persiste el avance incremental de la pasada bajo el lease:
// token opaco del canal, último ID procesado y cuántos ítems entraron.
// Falla con domain.ErrStaleLease si el lease ya no es el vigente.
func (m *CursorManager) RecordProgress(ctx context.Context, lease *entity.CursorLease, cursorToken, lastProcessedID string, items int) error {
	return m.cursorRepo.Progress(ctx, lease.CursorID, lease.Token, cursorToken, lastProcessedID, items)
}

// RecordFailure cierra la pasada en fallo: incrementa la racha, agenda el
// reintento con backoff exponencial (base·2^(n-1), con tope) y libera el lease.
// Publica la alerta sync_failed después de persistir la transición.
func (m *CursorManager) RecordFailure(ctx context.Context, cursor *entity.SyncCursor, lease *entity.CursorLease, runErr error) error {
	failures := cursor.ConsecutiveFailures + 1
	delay := domainsync.NextBackoff(failures, m.settings.BackoffBase, m.settings.BackoffMax)
	nextSyncAt := time.Now().UTC().Add(delay)
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}

	if err := m.cursorRepo.Fail(ctx, cursor.ID, lease.Token, errMsg, nextSyncAt); err != nil {
		return err
	}

	m.log.Warn().
		Str("cursor_id", cursor.ID).
		Str("channel", cursor.Channel).
		Int("consecutive_failures", failures).
		Time("next_sync_at", nextSyncAt).
		Str("error", errMsg).
		Msg("pasada de sincronización fallida, reintento agendado con backoff")

	if m.alerts != nil {
		_ = m.alerts.Publish(ctx, ports.Alert{
			Type:       ports.AlertSyncFailed,
			MerchantID: cursor.MerchantID,
			Detail:     "sincronización fallida, reintento con backoff",
			Sync: &ports.SyncAlertInfo{
				CursorID:            cursor.ID,
				Channel:             cursor.Channel,
				Entity:              cursor.Entity,
				ConsecutiveFailures: failures,
				Error:               errMsg,
			},
			OccurredAt: time.Now().UTC(),
		})
	}
	return nil
}

// RecordSuccess cierra la pasada en éxito: resetea la racha de fallos, agenda
// la siguiente corrida al intervalo normal y libera el lease.
func (m *CursorManager) RecordSuccess(ctx context.Context, lease *entity.CursorLease) error {
	nextSyncAt := time.Now().UTC().Add(m.settings.PollInterval)
	return m.cursorRepo.Succeed(ctx, lease.CursorID, lease.Token, nextSyncAt)
}

// Release devuelve el cursor a idle sin tocar contadores ni agenda
// (apagado limpio a mitad de pasada).
func (m *CursorManager) Release(ctx context.Context, lease *entity.CursorLease) error {
	return m.cursorRepo.ReleaseLease(ctx, lease.CursorID, lease.Token)
}

// StartBackfill abre una importación histórica sobre [from, to]. Corre en
// paralelo a la sincronización incremental: los rangos son disjuntos y la clave
// de idempotencia del ledger absorbe cualquier solape accidental.
func (m *CursorManager) StartBackfill(ctx context.Context, cursorID string, from, to time.Time) error {
	if cursorID == "" || from.IsZero() || to.IsZero() || !from.Before(to) {
		return domain.ErrInvalidInput
	}
	if err := m.cursorRepo.StartBackfill(ctx, cursorID, from.UTC(), to.UTC()); err != nil {
		return err
	}
	m.log.Info().
		Str("cursor_id", cursorID).
		Time("from", from.UTC()).
		Time("to", to.UTC()).
		Msg("backfill histórico iniciado")
	return nil
}

// RecordBackfillProgress persiste el marcador del backfill (independiente del
// token incremental: ninguno pisa al otro).
func (m *CursorManager) RecordBackfillProgress(ctx context.Context, cursorID, marker string) error {
	return m.cursorRepo.BackfillProgress(ctx, cursorID, marker)
}

// CompleteBackfill marca el backfill como completado.
func (m *CursorManager) CompleteBackfill(ctx context.Context, cursorID string) error {
	return m.cursorRepo.FinishBackfill(ctx, cursorID, entity.BackfillCompleted)
}

// FailBackfill marca el backfill como fallido; puede reintentarse con un
// nuevo StartBackfill.
func (m *CursorManager) FailBackfill(ctx context.Context, cursorID string) error {
	return m.cursorRepo.FinishBackfill(ctx, cursorID, entity.BackfillFailed)
}

func validSyncEntity(e string) bool {
	switch e {
	case entity.SyncEntityInventory, entity.SyncEntityOrders, entity.SyncEntityProducts:
		return true
	}
	return false
}
