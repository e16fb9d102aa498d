package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/StockSync-api/internal/application/identity"
	"github.com/jhoicas/StockSync-api/internal/application/ledger"
	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

// Worker ejecuta pasadas de sincronización: pide páginas de eventos al canal,
// resuelve cada identificador al producto canónico y aplica el movimiento al
// ledger (o lo difiere a la cola de reconciliación). El fetch externo ocurre
// siempre antes de la transacción local: nunca hay I/O de red dentro de una tx.
type Worker struct {
	manager  *CursorManager
	resolver *identity.ResolverUseCase
	appender *ledger.AppendMovementUseCase
	sources  SourceRegistry
	settings Settings
	log      *logger.Logger
}

// NewWorker construye el worker de sincronización.
func NewWorker(
	manager *CursorManager,
	resolver *identity.ResolverUseCase,
	appender *ledger.AppendMovementUseCase,
	sources SourceRegistry,
	settings Settings,
	log *logger.Logger,
) *Worker {
	return &Worker{
		manager:  manager,
		resolver: resolver,
		appender: appender,
		sources:  sources,
		settings: settings.normalized(),
		log:      log,
	}
}

// RunReport resume una pasada: cuántos eventos llegaron y qué pasó con cada uno.
// Fetched = Applied + Duplicates + Queued + Skipped.
type RunReport struct {
	CursorID   string
	Batches    int
	Fetched    int
	Applied    int    // movimientos nuevos en el ledger
	Duplicates int    // clave de idempotencia ya aplicada (re-entregas del canal)
	Queued     int    // identificador sin resolver, diferido a reconciliación
	Skipped    int    // eventos malformados (sin ref externa, sin ubicación...)
	NextToken  string // token incremental al cierre de la pasada
}

// RunOnce ejecuta una pasada incremental completa sobre el cursor: toma el
// lease, consume páginas hasta agotarlas y cierra en éxito o fallo (con backoff).
// Si otro worker tiene el lease devuelve domain.ErrAlreadyRunning sin tocar nada.
func (w *Worker) RunOnce(ctx context.Context, cursorID string) (*RunReport, error) {
	cursor, lease, err := w.manager.AcquireForRun(ctx, cursorID)
	if err != nil {
		return nil, err
	}

	source, ok := w.sources.Source(cursor.Channel)
	if !ok {
		err := fmt.Errorf("canal %q sin adaptador registrado: %w", cursor.Channel, domain.ErrInvalidInput)
		if ferr := w.manager.RecordFailure(ctx, cursor, lease, err); ferr != nil {
			w.log.Error().Err(ferr).Str("cursor_id", cursorID).Msg("no se pudo registrar el fallo del cursor")
		}
		return nil, err
	}

	report := &RunReport{CursorID: cursorID, NextToken: cursor.CursorToken}
	token := cursor.CursorToken
	lastProcessedID := cursor.LastProcessedID

	for {
		if err := ctx.Err(); err != nil {
			// Apagado a mitad de pasada: el progreso ya quedó persistido por
			// página, así que se libera el lease sin castigar al cursor.
			if rerr := w.manager.Release(context.WithoutCancel(ctx), lease); rerr != nil {
				w.log.Error().Err(rerr).Str("cursor_id", cursorID).Msg("no se pudo liberar el lease en el apagado")
			}
			return report, err
		}

		// 1. Fetch externo, fuera de toda transacción
		batch, err := source.FetchBatch(ctx, FetchRequest{
			MerchantID:  cursor.MerchantID,
			Channel:     cursor.Channel,
			LocationID:  derefLocation(cursor.LocationID),
			Entity:      cursor.Entity,
			CursorToken: token,
			Limit:       w.settings.BatchSize,
		})
		if err != nil {
			return report, w.failRun(ctx, cursor, lease, fmt.Errorf("fetch del canal %s: %w", cursor.Channel, err))
		}
		report.Batches++
		report.Fetched += len(batch.Events)

		// 2. Aplicar los eventos de la página en orden
		for _, ev := range batch.Events {
			if err := w.applyEvent(ctx, cursor, ev, report); err != nil {
				return report, w.failRun(ctx, cursor, lease, err)
			}
			if ev.ExternalRefID != "" {
				lastProcessedID = ev.ExternalRefID
			}
		}

		// 3. Persistir el avance bajo el lease antes de pedir la página siguiente:
		//    si el proceso muere aquí, la próxima pasada retoma sin repetir trabajo
		if batch.NextToken != "" {
			token = batch.NextToken
		}
		if err := w.manager.RecordProgress(ctx, lease, token, lastProcessedID, len(batch.Events)); err != nil {
			return report, fmt.Errorf("progreso del cursor %s: %w", cursorID, err)
		}
		report.NextToken = token

		if !batch.HasMore {
			break
		}
	}

	if err := w.manager.RecordSuccess(ctx, lease); err != nil {
		return report, fmt.Errorf("cierre del cursor %s: %w", cursorID, err)
	}

	w.log.Info().
		Str("cursor_id", cursorID).
		Str("channel", cursor.Channel).
		Int("fetched", report.Fetched).
		Int("applied", report.Applied).
		Int("duplicates", report.Duplicates).
		Int("queued", report.Queued).
		Msg("pasada de sincronización completada")
	return report, nil
}

// RunBackfill importa el histórico [from, to] del canal. Es independiente de la
// pasada incremental: usa su propio marcador y no toma el lease del cursor, la
// clave de idempotencia absorbe los solapes entre ambos flujos.
func (w *Worker) RunBackfill(ctx context.Context, cursorID string, from, to time.Time) (*RunReport, error) {
	cursor, err := w.manager.Get(ctx, cursorID)
	if err != nil {
		return nil, err
	}
	source, ok := w.sources.Source(cursor.Channel)
	if !ok {
		return nil, fmt.Errorf("canal %q sin adaptador registrado: %w", cursor.Channel, domain.ErrInvalidInput)
	}

	// Un solo backfill en vuelo por cursor; el UPDATE condicionado es el guardián
	if err := w.manager.StartBackfill(ctx, cursorID, from, to); err != nil {
		return nil, err
	}

	report := &RunReport{CursorID: cursorID}
	marker := ""
	rangeStart, rangeEnd := from.UTC(), to.UTC()

	for {
		if err := ctx.Err(); err != nil {
			if ferr := w.manager.FailBackfill(context.WithoutCancel(ctx), cursorID); ferr != nil {
				w.log.Error().Err(ferr).Str("cursor_id", cursorID).Msg("no se pudo cerrar el backfill en el apagado")
			}
			return report, err
		}

		batch, err := source.FetchBatch(ctx, FetchRequest{
			MerchantID:  cursor.MerchantID,
			Channel:     cursor.Channel,
			LocationID:  derefLocation(cursor.LocationID),
			Entity:      cursor.Entity,
			CursorToken: marker,
			Limit:       w.settings.BatchSize,
			RangeStart:  &rangeStart,
			RangeEnd:    &rangeEnd,
		})
		if err != nil {
			if ferr := w.manager.FailBackfill(ctx, cursorID); ferr != nil {
				w.log.Error().Err(ferr).Str("cursor_id", cursorID).Msg("no se pudo marcar el backfill como fallido")
			}
			return report, fmt.Errorf("fetch histórico del canal %s: %w", cursor.Channel, err)
		}
		report.Batches++
		report.Fetched += len(batch.Events)

		for _, ev := range batch.Events {
			if err := w.applyEvent(ctx, cursor, ev, report); err != nil {
				if ferr := w.manager.FailBackfill(ctx, cursorID); ferr != nil {
					w.log.Error().Err(ferr).Str("cursor_id", cursorID).Msg("no se pudo marcar el backfill como fallido")
				}
				return report, err
			}
		}

		if batch.NextToken != "" {
			marker = batch.NextToken
		}
		if err := w.manager.RecordBackfillProgress(ctx, cursorID, marker); err != nil {
			return report, err
		}
		if !batch.HasMore {
			break
		}
	}

	if err := w.manager.CompleteBackfill(ctx, cursorID); err != nil {
		return report, err
	}
	w.log.Info().
		Str("cursor_id", cursorID).
		Time("from", rangeStart).
		Time("to", rangeEnd).
		Int("fetched", report.Fetched).
		Int("applied", report.Applied).
		Int("duplicates", report.Duplicates).
		Msg("backfill histórico completado")
	return report, nil
}

// applyEvent resuelve y aplica un evento, actualizando el report.
// Un identificador sin resolver NO es fallo de la pasada: el evento se difiere
// a la cola de reconciliación y la pasada sigue. Un evento malformado se salta.
// Solo los errores de infraestructura (repo, tx) abortan la pasada.
func (w *Worker) applyEvent(ctx context.Context, cursor *entity.SyncCursor, ev InventoryEvent, report *RunReport) error {
	if ev.ExternalRefID == "" || ev.IdentifierValue == "" || ev.QtyChange == 0 {
		report.Skipped++
		w.log.Warn().
			Str("cursor_id", cursor.ID).
			Str("external_ref_id", ev.ExternalRefID).
			Str("identifier", ev.IdentifierValue).
			Msg("evento malformado del canal, saltado")
		return nil
	}
	// Un motivo fuera del enum es un evento malformado más, no un fallo de la
	// pasada: fallar aquí dejaría el cursor refetcheando la misma página en
	// cada reintento sin avanzar jamás.
	if ev.Reason != "" && !ev.Reason.Valid() {
		report.Skipped++
		w.log.Warn().
			Str("cursor_id", cursor.ID).
			Str("external_ref_id", ev.ExternalRefID).
			Str("reason", string(ev.Reason)).
			Msg("evento con motivo desconocido del canal, saltado")
		return nil
	}
	locationID := ev.LocationID
	if locationID == "" {
		locationID = derefLocation(cursor.LocationID)
	}
	if locationID == "" {
		report.Skipped++
		w.log.Warn().
			Str("cursor_id", cursor.ID).
			Str("external_ref_id", ev.ExternalRefID).
			Msg("evento sin ubicación y cursor sin ubicación fija, saltado")
		return nil
	}

	res, err := w.resolver.Resolve(ctx, identity.ResolveInput{
		MerchantID:     cursor.MerchantID,
		Source:         cursor.Channel,
		IdentifierType: ev.IdentifierType,
		Value:          ev.IdentifierValue,
		NameHint:       ev.NameHint,
	})
	if err != nil && errors.Is(err, domain.ErrConflict) {
		// Otro worker vinculó el identificador entre la lectura y la escritura:
		// reintentar una vez alcanza, ahora resuelve exacto
		res, err = w.resolver.Resolve(ctx, identity.ResolveInput{
			MerchantID:     cursor.MerchantID,
			Source:         cursor.Channel,
			IdentifierType: ev.IdentifierType,
			Value:          ev.IdentifierValue,
			NameHint:       ev.NameHint,
		})
	}
	if err != nil {
		if errors.Is(err, domain.ErrUnresolvedIdentifier) {
			deferred := ev.Deferred()
			deferred.LocationID = locationID
			if _, qerr := w.resolver.EnqueueUnmatched(ctx, identity.EnqueueInput{
				MerchantID:     cursor.MerchantID,
				Source:         cursor.Channel,
				IdentifierType: ev.IdentifierType,
				Value:          ev.IdentifierValue,
				Payload:        ev.Payload,
				Event:          deferred,
			}); qerr != nil {
				return fmt.Errorf("encolar evento sin resolver: %w", qerr)
			}
			report.Queued++
			return nil
		}
		return fmt.Errorf("resolver identificador %q: %w", ev.IdentifierValue, err)
	}

	reason := ev.Reason
	if reason == "" {
		reason = entity.ReasonSync
	}
	refType := ev.RefType
	if refType == "" {
		refType = string(entity.ReasonSync)
	}
	result, err := w.appender.Append(ctx, ledger.AppendInput{
		MerchantID: cursor.MerchantID,
		ProductID:  res.ProductID,
		LocationID: locationID,
		QtyChange:  ev.QtyChange,
		Reason:     reason,
		RefType:    refType,
		RefID:      ev.ExternalRefID,
		OccurredAt: ev.OccurredAt,
		UnitCost:   ev.UnitCost,
		CreatedBy:  "sync:" + cursor.Channel,
	})
	if err != nil {
		return fmt.Errorf("aplicar evento %s al ledger: %w", ev.ExternalRefID, err)
	}
	if result.Duplicate {
		report.Duplicates++
	} else {
		report.Applied++
	}
	return nil
}

// failRun registra el fallo de la pasada (backoff + alerta) y devuelve el error
// original para el llamador.
func (w *Worker) failRun(ctx context.Context, cursor *entity.SyncCursor, lease *entity.CursorLease, runErr error) error {
	if err := w.manager.RecordFailure(context.WithoutCancel(ctx), cursor, lease, runErr); err != nil {
		w.log.Error().Err(err).Str("cursor_id", cursor.ID).Msg("no se pudo registrar el fallo de la pasada")
	}
	return runErr
}

func derefLocation(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}
