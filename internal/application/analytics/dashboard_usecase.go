// Package analytics contiene los casos de uso de lectura para el dashboard
// operativo: valoración de inventario, señales de reposición y salud de sync.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/StockSync-api/internal/application/dto"
	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/repository"
)

// DashboardUseCase genera el resumen operativo del comercio.
//
// Fuente de datos: AnalyticsRepository (consultas read-only).
// No toca el ledger ni los cursores directamente; delega todo en el repositorio.
type DashboardUseCase struct {
	analyticsRepo repository.AnalyticsRepository
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(analyticsRepo repository.AnalyticsRepository) *DashboardUseCase {
	return &DashboardUseCase{analyticsRepo: analyticsRepo}
}

// GetOverview construye el DashboardOverviewDTO para el comercio indicado.
//
// Cinco llamadas en paralelo:
//  1. GetStockValueByLocation → StockValue + TotalValue
//  2. CountLowStock           → LowStockCount
//  3. CountPendingUnmatched   → PendingUnmatched
//  4. GetCursorHealth         → SyncHealth
//  5. CountMovementsSince(-24h) → MovementsLast24h
func (uc *DashboardUseCase) GetOverview(
	ctx context.Context,
	merchantID string,
) (*dto.DashboardOverviewDTO, error) {
	if merchantID == "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now().UTC()

	// ── Goroutines para paralelizar las 5 consultas DB ────────────────────────
	type valueResult struct {
		rows []repository.LocationValueResult
		err  error
	}
	type countResult struct {
		n   int64
		err error
	}
	type healthResult struct {
		rows []repository.CursorHealthResult
		err  error
	}

	valueCh := make(chan valueResult, 1)
	lowCh := make(chan countResult, 1)
	unmatchedCh := make(chan countResult, 1)
	healthCh := make(chan healthResult, 1)
	movementsCh := make(chan countResult, 1)

	go func() {
		rows, err := uc.analyticsRepo.GetStockValueByLocation(ctx, merchantID)
		valueCh <- valueResult{rows, err}
	}()
	go func() {
		n, err := uc.analyticsRepo.CountLowStock(ctx, merchantID)
		lowCh <- countResult{n, err}
	}()
	go func() {
		n, err := uc.analyticsRepo.CountPendingUnmatched(ctx, merchantID)
		unmatchedCh <- countResult{n, err}
	}()
	go func() {
		rows, err := uc.analyticsRepo.GetCursorHealth(ctx, merchantID)
		healthCh <- healthResult{rows, err}
	}()
	go func() {
		n, err := uc.analyticsRepo.CountMovementsSince(ctx, merchantID, now.Add(-24*time.Hour))
		movementsCh <- countResult{n, err}
	}()

	value := <-valueCh
	low := <-lowCh
	unmatched := <-unmatchedCh
	health := <-healthCh
	movements := <-movementsCh

	if value.err != nil {
		return nil, fmt.Errorf("dashboard: valoración por ubicación: %w", value.err)
	}
	if low.err != nil {
		return nil, fmt.Errorf("dashboard: conteo de bajo stock: %w", low.err)
	}
	if unmatched.err != nil {
		return nil, fmt.Errorf("dashboard: cola de reconciliación: %w", unmatched.err)
	}
	if health.err != nil {
		return nil, fmt.Errorf("dashboard: salud de sincronización: %w", health.err)
	}
	if movements.err != nil {
		return nil, fmt.Errorf("dashboard: movimientos recientes: %w", movements.err)
	}

	// ── Construir DTO ──────────────────────────────────────────────────────────
	stockValue := make([]dto.LocationStockValueDTO, 0, len(value.rows))
	totalValue := decimal.Zero
	for _, row := range value.rows {
		stockValue = append(stockValue, dto.LocationStockValueDTO{
			LocationID:   row.LocationID,
			LocationName: row.LocationName,
			Products:     row.Products,
			UnitsOnHand:  row.UnitsOnHand,
			TotalValue:   row.TotalValue.Round(2),
		})
		totalValue = totalValue.Add(row.TotalValue)
	}

	syncHealth := make([]dto.CursorHealthDTO, 0, len(health.rows))
	for _, row := range health.rows {
		syncHealth = append(syncHealth, dto.CursorHealthDTO{
			CursorID:            row.CursorID,
			Channel:             row.Channel,
			Entity:              row.Entity,
			LocationID:          row.LocationID,
			Status:              row.Status,
			ConsecutiveFailures: row.ConsecutiveFailures,
			LastSuccessAt:       row.LastSuccessAt,
			LastError:           row.LastError,
			NextSyncAt:          row.NextSyncAt,
			BackfillState:       row.BackfillState,
		})
	}

	return &dto.DashboardOverviewDTO{
		StockValue:       stockValue,
		TotalValue:       totalValue.Round(2),
		LowStockCount:    low.n,
		PendingUnmatched: unmatched.n,
		MovementsLast24h: movements.n,
		SyncHealth:       syncHealth,
		GeneratedAt:      now,
	}, nil
}
