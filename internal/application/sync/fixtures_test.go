package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/StockSync-api/internal/application/identity"
	"github.com/jhoicas/StockSync-api/internal/application/ledger"
	appsync "github.com/jhoicas/StockSync-api/internal/application/sync"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/infrastructure/memory"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture de sincronización: un comercio con el canal POS habilitado, una
// ubicación y un producto con barcode registrado. El canal externo es un
// adaptador guionado que sirve páginas predefinidas (o falla a pedido).
// ──────────────────────────────────────────────────────────────────────────────

const (
	syncMerchantID = "11111111-1111-1111-1111-111111111131"
	syncProductID  = "22222222-2222-2222-2222-222222222231"
	syncTiendaID   = "33333333-3333-3333-3333-333333333331"
	syncBarcode    = "7701234567890"
)

// scriptedSource sirve las páginas en orden; cada llamada consume una.
// failNext hace fallar el próximo fetch una sola vez.
type scriptedSource struct {
	pages    []appsync.FetchBatch
	next     int
	failNext error
	requests []appsync.FetchRequest
}

func (s *scriptedSource) FetchBatch(_ context.Context, req appsync.FetchRequest) (*appsync.FetchBatch, error) {
	s.requests = append(s.requests, req)
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return nil, err
	}
	if s.next >= len(s.pages) {
		return &appsync.FetchBatch{}, nil
	}
	page := s.pages[s.next]
	s.next++
	return &page, nil
}

type fixture struct {
	store    *memory.Store
	alerts   *memory.AlertRecorder
	source   *scriptedSource
	manager  *appsync.CursorManager
	worker   *appsync.Worker
	queries  *ledger.QueryUseCase
	settings appsync.Settings

	merchantRepo  *memory.MerchantRepo
	cursorRepo    *memory.CursorRepo
	unmatchedRepo *memory.UnmatchedRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	alerts := memory.NewAlertRecorder()
	log := logger.NewNop()

	tx := memory.NewTxRunner(store)
	merchantRepo := memory.NewMerchantRepo(store)
	locationRepo := memory.NewLocationRepo(store)
	productRepo := memory.NewProductRepo(store)
	identRepo := memory.NewIdentifierRepo(store)
	plRepo := memory.NewProductLocationRepo(store)
	movRepo := memory.NewMovementRepo(store)
	levelRepo := memory.NewLevelRepo(store)
	snapRepo := memory.NewSnapshotRepo(store)
	cursorRepo := memory.NewCursorRepo(store)
	unmatchedRepo := memory.NewUnmatchedRepo(store)

	settings := appsync.Settings{
		PollInterval: 5 * time.Minute,
		BatchSize:    10,
		LeaseTTL:     time.Minute,
		BackoffBase:  time.Minute,
		BackoffMax:   30 * time.Minute,
	}

	appender := ledger.NewAppendMovementUseCase(
		tx, movRepo, levelRepo, productRepo, locationRepo, snapRepo, plRepo, identRepo, alerts)
	resolver := identity.NewResolverUseCase(identRepo, productRepo, unmatchedRepo, alerts, false, log)
	manager := appsync.NewCursorManager(cursorRepo, merchantRepo, locationRepo, alerts, settings, log)
	source := &scriptedSource{}
	worker := appsync.NewWorker(manager, resolver, appender, appsync.SourceRegistry{
		entity.ChannelPOS: source,
	}, settings, log)

	f := &fixture{
		store:         store,
		alerts:        alerts,
		source:        source,
		manager:       manager,
		worker:        worker,
		queries:       ledger.NewQueryUseCase(movRepo, levelRepo),
		settings:      settings,
		merchantRepo:  merchantRepo,
		cursorRepo:    cursorRepo,
		unmatchedRepo: unmatchedRepo,
	}

	ctx := context.Background()
	require.NoError(t, merchantRepo.Create(ctx, &entity.Merchant{
		ID: syncMerchantID, Name: "Comercio Demo", Active: true,
	}))
	require.NoError(t, merchantRepo.UpsertChannel(ctx, &entity.MerchantChannel{
		MerchantID:  syncMerchantID,
		Channel:     entity.ChannelPOS,
		IsActive:    true,
		ActivatedAt: time.Now().UTC(),
	}))
	require.NoError(t, locationRepo.Create(ctx, &entity.Location{
		ID: syncTiendaID, MerchantID: syncMerchantID, Name: "Tienda Centro", Active: true,
	}))
	require.NoError(t, productRepo.Create(ctx, &entity.Product{
		ID:         syncProductID,
		MerchantID: syncMerchantID,
		Name:       "Café Orgánico 500g",
		UnitCost:   decimal.NewFromInt(8000),
		UnitPrice:  decimal.NewFromInt(15000),
		Active:     true,
	}))
	require.NoError(t, identRepo.Create(ctx, &entity.ProductIdentifier{
		ID:          uuid.New().String(),
		ProductID:   syncProductID,
		MerchantID:  syncMerchantID,
		Type:        "barcode",
		Value:       syncBarcode,
		Source:      entity.ChannelPOS,
		MatchMethod: entity.MatchMethodManual,
		Verified:    true,
		CreatedAt:   time.Now().UTC(),
	}))
	return f
}

// registerCursor da de alta un cursor POS/inventory fijado a la tienda.
func (f *fixture) registerCursor(t *testing.T) *entity.SyncCursor {
	t.Helper()
	loc := syncTiendaID
	cursor, err := f.manager.Register(context.Background(), appsync.RegisterInput{
		MerchantID: syncMerchantID,
		Channel:    entity.ChannelPOS,
		LocationID: &loc,
		Entity:     entity.SyncEntityInventory,
	})
	require.NoError(t, err)
	return cursor
}

// posEvent arma un evento normalizado del POS con el barcode del catálogo.
func posEvent(refID string, qty int64, reason entity.MovementReason) appsync.InventoryEvent {
	return appsync.InventoryEvent{
		ExternalRefID:   refID,
		RefType:         "pos_ticket",
		IdentifierType:  "barcode",
		IdentifierValue: syncBarcode,
		QtyChange:       qty,
		Reason:          reason,
		OccurredAt:      time.Now().UTC(),
	}
}

// onHand lee el on_hand vigente del producto en la tienda.
func (f *fixture) onHand(t *testing.T) int64 {
	t.Helper()
	level, err := f.queries.GetLevel(context.Background(), syncProductID, syncTiendaID)
	require.NoError(t, err)
	if level == nil {
		return 0
	}
	return level.OnHand
}
