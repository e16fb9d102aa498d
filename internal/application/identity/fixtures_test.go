package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/StockSync-api/internal/application/identity"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/infrastructure/memory"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

// Fixture de identidad: un comercio con dos productos de catálogo y una
// ubicación para el replay de eventos diferidos.

const (
	idMerchantID = "11111111-1111-1111-1111-111111111121"
	idCafeID     = "22222222-2222-2222-2222-222222222221"
	idPanelaID   = "22222222-2222-2222-2222-222222222222"
	idTiendaID   = "33333333-3333-3333-3333-333333333321"
)

type fixture struct {
	store      *memory.Store
	alerts     *memory.AlertRecorder
	resolver   *identity.ResolverUseCase
	reconciler *identity.ReconcileUseCase
}

// newFixture arma el resolver con el fallback difuso según fuzzy.
func newFixture(t *testing.T, fuzzy bool) *fixture {
	t.Helper()
	store := memory.NewStore()
	alerts := memory.NewAlertRecorder()
	log := logger.NewNop()

	identRepo := memory.NewIdentifierRepo(store)
	productRepo := memory.NewProductRepo(store)
	unmatchedRepo := memory.NewUnmatchedRepo(store)
	locationRepo := memory.NewLocationRepo(store)

	f := &fixture{
		store:      store,
		alerts:     alerts,
		resolver:   identity.NewResolverUseCase(identRepo, productRepo, unmatchedRepo, alerts, fuzzy, log),
		reconciler: identity.NewReconcileUseCase(memory.NewTxRunner(store), unmatchedRepo, productRepo, locationRepo, log),
	}

	ctx := context.Background()
	require.NoError(t, locationRepo.Create(ctx, &entity.Location{
		ID: idTiendaID, MerchantID: idMerchantID, Name: "Tienda Centro", Active: true,
	}))
	require.NoError(t, productRepo.Create(ctx, &entity.Product{
		ID:         idCafeID,
		MerchantID: idMerchantID,
		Name:       "Café Orgánico 500g",
		UnitCost:   decimal.NewFromInt(8000),
		Active:     true,
	}))
	require.NoError(t, productRepo.Create(ctx, &entity.Product{
		ID:         idPanelaID,
		MerchantID: idMerchantID,
		Name:       "Panela Redonda 1kg",
		UnitCost:   decimal.NewFromInt(3000),
		Active:     true,
	}))
	return f
}

// seedIdentifier registra un identificador verificado del catálogo.
func (f *fixture) seedIdentifier(t *testing.T, productID, source, identType, value string) {
	t.Helper()
	require.NoError(t, memory.NewIdentifierRepo(f.store).Create(context.Background(), &entity.ProductIdentifier{
		ID:          uuid.New().String(),
		ProductID:   productID,
		MerchantID:  idMerchantID,
		Type:        identType,
		Value:       value,
		Source:      source,
		MatchMethod: entity.MatchMethodManual,
		Verified:    true,
		CreatedAt:   time.Now().UTC(),
	}))
}

// enqueue deja un ítem pendiente en la cola con un evento diferido.
func (f *fixture) enqueue(t *testing.T, source, identType, value string, events ...entity.DeferredEvent) *entity.UnmatchedItem {
	t.Helper()
	var item *entity.UnmatchedItem
	for _, ev := range events {
		var err error
		item, err = f.resolver.EnqueueUnmatched(context.Background(), identity.EnqueueInput{
			MerchantID:     idMerchantID,
			Source:         source,
			IdentifierType: identType,
			Value:          value,
			Event:          ev,
		})
		require.NoError(t, err)
	}
	require.NotNil(t, item)
	return item
}
