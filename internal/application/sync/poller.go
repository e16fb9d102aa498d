package sync

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

// ChannelGate informa si un comercio tiene un canal de sincronización activo.
// Lo implementa usecase.ChannelService.
type ChannelGate interface {
	HasActiveChannel(ctx context.Context, merchantID, channel string) (bool, error)
}

// Poller agenda las pasadas de sincronización: en cada tick busca cursores
// vencidos (next_sync_at <= now, sin lease vigente) y corre una pasada por cada
// uno. El gating por canal habilitado se evalúa en cada tick, así un canal
// desactivado deja de sincronizar sin tocar sus cursores.
type Poller struct {
	manager  *CursorManager
	worker   *Worker
	channels ChannelGate
	sources  SourceRegistry
	settings Settings
	log      *logger.Logger
}

// NewPoller construye el planificador de sincronización.
func NewPoller(
	manager *CursorManager,
	worker *Worker,
	channels ChannelGate,
	sources SourceRegistry,
	settings Settings,
	log *logger.Logger,
) *Poller {
	return &Poller{
		manager:  manager,
		worker:   worker,
		channels: channels,
		sources:  sources,
		settings: settings.normalized(),
		log:      log,
	}
}

// Run bloquea hasta que el contexto se cancele. Hace un barrido al arrancar y
// luego uno por tick.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info().
		Str("interval", p.settings.PollInterval.String()).
		Msg("poller de sincronización iniciado")

	p.RunDue(ctx)

	ticker := time.NewTicker(p.settings.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("poller de sincronización detenido")
			return
		case <-ticker.C:
			p.RunDue(ctx)
		}
	}
}

// RunDue corre una pasada por cada cursor vencido. Los errores por cursor se
// registran y no detienen el barrido; el backoff del cursor ya quedó agendado
// por el worker. Devuelve cuántas pasadas corrieron efectivamente.
func (p *Poller) RunDue(ctx context.Context) int {
	due, err := p.manager.DueCursors(ctx, time.Now().UTC(), p.settings.BatchSize)
	if err != nil {
		p.log.Error().Err(err).Msg("listado de cursores vencidos")
		return 0
	}

	ran := 0
	for _, cursor := range due {
		if ctx.Err() != nil {
			return ran
		}
		if _, ok := p.sources.Source(cursor.Channel); !ok {
			// Canal sin adaptador en este binario: lo corre otra instancia
			continue
		}

		active, err := p.channels.HasActiveChannel(ctx, cursor.MerchantID, cursor.Channel)
		if err != nil {
			p.log.Error().
				Err(err).
				Str("cursor_id", cursor.ID).
				Msg("verificación del canal del comercio")
			continue
		}
		if !active {
			continue
		}

		if _, err := p.worker.RunOnce(ctx, cursor.ID); err != nil {
			// Otro worker ganó el lease entre el listado y el acquire: normal
			// con varias instancias, no es un fallo
			if errors.Is(err, domain.ErrAlreadyRunning) {
				continue
			}
			p.log.Error().
				Err(err).
				Str("cursor_id", cursor.ID).
				Str("channel", cursor.Channel).
				Msg("pasada de sincronización")
			continue
		}
		ran++
	}
	return ran
}
