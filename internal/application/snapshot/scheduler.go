package snapshot

import (
	"context"
	"time"

	"github.com/jhoicas/StockSync-api/internal/domain/repository"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

// Scheduler cierra periódicamente los días UTC pendientes de cada ubicación
// activa: avanza desde el último día cerrado hasta ayer, así una caída de
// varios días no deja huecos en la serie. Como el cierre es idempotente,
// repetirlo en cada tick dentro del mismo día no produce filas nuevas.
type Scheduler struct {
	closer       *CloseDayUseCase
	locationRepo repository.LocationRepository
	interval     time.Duration
	log          *logger.Logger
}

func NewScheduler(closer *CloseDayUseCase, locationRepo repository.LocationRepository, interval time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		closer:       closer,
		locationRepo: locationRepo,
		interval:     interval,
		log:          log,
	}
}

// Run bloquea hasta que el contexto se cancele. Ejecuta un cierre al arrancar
// y luego uno por tick, para no esperar un intervalo completo tras un deploy.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info().
		Str("interval", s.interval.String()).
		Msg("scheduler de snapshots iniciado")

	s.CloseDueDays(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler de snapshots detenido")
			return
		case <-ticker.C:
			s.CloseDueDays(ctx)
		}
	}
}

// CloseDueDays cierra todos los días pendientes de cada ubicación activa:
// desde el día siguiente al último cerrado (acotado por la ventana de
// lookback) hasta ayer. Sin cierres previos solo cierra ayer. Los errores
// por ubicación se registran y no detienen el resto.
func (s *Scheduler) CloseDueDays(ctx context.Context) {
	today := civilDay(time.Now().UTC())
	yesterday := today.AddDate(0, 0, -1)

	locations, err := s.locationRepo.ListActive(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("listado de ubicaciones para el cierre diario")
		return
	}

	for _, loc := range locations {
		start := yesterday
		last, err := s.closer.snapRepo.LastDate(ctx, loc.ID)
		if err != nil {
			s.log.Error().Err(err).Str("location_id", loc.ID).Msg("último día cerrado")
			continue
		}
		if last != nil {
			next := civilDay(*last).AddDate(0, 0, 1)
			if next.Before(start) {
				start = next
			}
		}
		if s.closer.lookbackDays > 0 {
			floor := today.AddDate(0, 0, -s.closer.lookbackDays)
			if start.Before(floor) {
				start = floor
			}
		}

		for day := start; !day.After(yesterday); day = day.AddDate(0, 0, 1) {
			result, err := s.closer.CloseDay(ctx, loc.ID, day)
			if err != nil {
				s.log.Error().
					Err(err).
					Str("location_id", loc.ID).
					Time("snapshot_date", day).
					Msg("cierre del día")
				break
			}
			if result.Products > 0 {
				s.log.Info().
					Str("location_id", loc.ID).
					Time("snapshot_date", day).
					Int("products", result.Products).
					Msg("día cerrado")
			}
		}
	}
}
