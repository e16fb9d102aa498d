package identity_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/StockSync-api/internal/application/identity"
	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Resolución manual de la cola: link/create re-aplican los eventos diferidos al
// ledger con su clave de idempotencia original, en orden de ocurrencia, dentro
// de la misma transacción que marca el ítem como resuelto.
// ──────────────────────────────────────────────────────────────────────────────

func TestResolveUnmatched_VincularReaplicaEnOrden(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	t1 := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC)
	// Encolados fuera de orden: la venta (posterior) llega primero
	item := f.enqueue(t, "marketplace", entity.IdentifierTypeBarcode, "B-777",
		entity.DeferredEvent{ExternalRefID: "ev-venta", LocationID: idTiendaID, QtyChange: -2, Reason: entity.ReasonSale, OccurredAt: t2},
		entity.DeferredEvent{ExternalRefID: "ev-grn", LocationID: idTiendaID, QtyChange: 5, Reason: entity.ReasonReceipt, OccurredAt: t1},
	)

	res, err := f.reconciler.ResolveUnmatched(ctx, identity.ResolveActionInput{
		ItemID:     item.ID,
		Action:     entity.ResolveActionLink,
		ProductID:  idCafeID,
		ResolvedBy: "operador",
	})
	require.NoError(t, err)
	assert.Equal(t, idCafeID, res.ProductID)
	assert.Equal(t, 2, res.EventsReplayed)
	assert.Equal(t, 0, res.EventsSkipped)

	movs, err := memory.NewMovementRepo(f.store).ListByProductLocation(ctx, idCafeID, idTiendaID, nil, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Equal(t, "ev-grn", movs[0].RefID, "el replay respeta occurred_at, no el orden de llegada")
	assert.Equal(t, int64(5), movs[0].BalanceAfter)
	assert.Equal(t, "ev-venta", movs[1].RefID)
	assert.Equal(t, int64(3), movs[1].BalanceAfter)
	assert.Equal(t, string(entity.ReasonSync), movs[0].RefType,
		"sin ref_type propio el replay usa el del sync")
	assert.Equal(t, "operador", movs[0].CreatedBy)

	level, err := memory.NewLevelRepo(f.store).Get(ctx, idCafeID, idTiendaID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), level.OnHand)

	// El ítem quedó resuelto y el identificador registrado como verificado
	resolved, err := f.reconciler.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.UnmatchedStatusMatched, resolved.Status)
	require.NotNil(t, resolved.MatchedProductID)
	assert.Equal(t, idCafeID, *resolved.MatchedProductID)
	assert.Equal(t, entity.MatchMethodReconciliation, resolved.MatchMethod)
	assert.NotNil(t, resolved.ResolvedAt)

	ident, err := memory.NewIdentifierRepo(f.store).GetByTypeValue(
		ctx, idMerchantID, "marketplace", entity.IdentifierTypeBarcode, "B-777")
	require.NoError(t, err)
	require.NotNil(t, ident)
	assert.True(t, ident.Verified)
	assert.Equal(t, entity.MatchMethodReconciliation, ident.MatchMethod)

	// Reportes futuros del mismo código ya resuelven exactos
	r, err := f.resolver.Resolve(ctx, identity.ResolveInput{
		MerchantID:     idMerchantID,
		Source:         "marketplace",
		IdentifierType: entity.IdentifierTypeBarcode,
		Value:          "B-777",
	})
	require.NoError(t, err)
	assert.Equal(t, idCafeID, r.ProductID)
}

func TestResolveUnmatched_ReplaySaltaRefsYaAplicadas(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	// La ref ev-dup ya entró al ledger (el sync la aplicó después del vínculo manual)
	require.NoError(t, memory.NewMovementRepo(f.store).Create(ctx, &entity.StockMovement{
		ID:         uuid.New().String(),
		MerchantID: idMerchantID,
		ProductID:  idCafeID,
		LocationID: idTiendaID,
		QtyChange:  -2,
		Reason:     entity.ReasonSync,
		RefType:    string(entity.ReasonSync),
		RefID:      "ev-dup",
		OccurredAt: time.Now().UTC(),
	}))

	item := f.enqueue(t, "pos", entity.IdentifierTypeSKU, "SKU-9",
		entity.DeferredEvent{ExternalRefID: "ev-dup", LocationID: idTiendaID, QtyChange: -2, Reason: entity.ReasonSale, OccurredAt: time.Now().UTC()},
		entity.DeferredEvent{ExternalRefID: "ev-nuevo", LocationID: idTiendaID, QtyChange: 5, Reason: entity.ReasonReceipt, OccurredAt: time.Now().UTC()},
	)

	res, err := f.reconciler.ResolveUnmatched(ctx, identity.ResolveActionInput{
		ItemID:    item.ID,
		Action:    entity.ResolveActionLink,
		ProductID: idCafeID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.EventsReplayed)
	assert.Equal(t, 1, res.EventsSkipped, "la clave repetida no se re-aplica")
}

func TestResolveUnmatched_EventosMalformadosSeSaltan(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	item := f.enqueue(t, "pos", entity.IdentifierTypeSKU, "SKU-MAL",
		entity.DeferredEvent{ExternalRefID: "ev-a", LocationID: idTiendaID, QtyChange: 0, Reason: entity.ReasonSale, OccurredAt: time.Now().UTC()},
		entity.DeferredEvent{ExternalRefID: "ev-b", QtyChange: -1, Reason: entity.ReasonSale, OccurredAt: time.Now().UTC()},
		entity.DeferredEvent{ExternalRefID: "ev-c", LocationID: uuid.New().String(), QtyChange: -1, Reason: entity.ReasonSale, OccurredAt: time.Now().UTC()},
	)

	res, err := f.reconciler.ResolveUnmatched(ctx, identity.ResolveActionInput{
		ItemID:    item.ID,
		Action:    entity.ResolveActionLink,
		ProductID: idCafeID,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.EventsReplayed)
	assert.Equal(t, 3, res.EventsSkipped,
		"qty cero, sin ubicación y ubicación desconocida se descartan")
}

func TestResolveUnmatched_MotivoVacioSeReaplicaComoSync(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	// El canal no informó reason: el replay aplica el mismo default que la
	// pasada en vivo; un motivo inventado en cambio se descarta, nunca entra
	// al ledger fuera del enum cerrado
	item := f.enqueue(t, "pos", entity.IdentifierTypeBarcode, "B-SIN-REASON",
		entity.DeferredEvent{ExternalRefID: "ev-sin-reason", LocationID: idTiendaID, QtyChange: 4, OccurredAt: time.Now().UTC()},
		entity.DeferredEvent{ExternalRefID: "ev-reason-raro", LocationID: idTiendaID, QtyChange: -1, Reason: entity.MovementReason("restock"), OccurredAt: time.Now().UTC()},
	)

	res, err := f.reconciler.ResolveUnmatched(ctx, identity.ResolveActionInput{
		ItemID:    item.ID,
		Action:    entity.ResolveActionLink,
		ProductID: idCafeID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.EventsReplayed)
	assert.Equal(t, 1, res.EventsSkipped)

	movs, err := memory.NewMovementRepo(f.store).ListByProductLocation(ctx, idCafeID, idTiendaID, nil, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.ReasonSync, movs[0].Reason)
	assert.True(t, movs[0].Reason.Valid())
	assert.Equal(t, "ev-sin-reason", movs[0].RefID)

	resolved, err := f.reconciler.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.UnmatchedStatusMatched, resolved.Status)
}

func TestResolveUnmatched_CrearProductoDesdeElPayload(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	payload := json.RawMessage(`{"titulo":"Cafe de Olla 250g","canal":"marketplace"}`)
	item, err := f.resolver.EnqueueUnmatched(ctx, identity.EnqueueInput{
		MerchantID:     idMerchantID,
		Source:         "marketplace",
		IdentifierType: entity.IdentifierTypeBarcode,
		Value:          "B-NUEVO",
		Payload:        payload,
		Event: entity.DeferredEvent{
			ExternalRefID: "ev-olla", LocationID: idTiendaID,
			QtyChange: 10, Reason: entity.ReasonReceipt, OccurredAt: time.Now().UTC(),
		},
	})
	require.NoError(t, err)

	res, err := f.reconciler.ResolveUnmatched(ctx, identity.ResolveActionInput{
		ItemID: item.ID,
		Action: entity.ResolveActionCreate,
		NewProduct: &identity.NewProductInput{
			Name:      "Café de Olla 250g",
			Category:  "bebidas",
			UnitCost:  decimal.NewFromInt(5000),
			UnitPrice: decimal.NewFromInt(9000),
		},
		ResolvedBy: "operador",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.ProductID)
	assert.Equal(t, 1, res.EventsReplayed)

	product, err := memory.NewProductRepo(f.store).GetByID(ctx, res.ProductID)
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "Café de Olla 250g", product.Name)
	assert.Equal(t, "bebidas", product.Category)
	assert.True(t, product.Active)
	assert.JSONEq(t, string(payload), string(product.Attributes),
		"el payload crudo del canal queda como atributos del producto")

	level, err := memory.NewLevelRepo(f.store).Get(ctx, res.ProductID, idTiendaID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), level.OnHand, "el stock diferido entró al producto nuevo")
}

func TestResolveUnmatched_CrearSinDatosUsaElIdentificador(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	item := f.enqueue(t, "pos", entity.IdentifierTypeSKU, "SKU-SOLO",
		entity.DeferredEvent{ExternalRefID: "ev-s", LocationID: idTiendaID, QtyChange: 1, Reason: entity.ReasonReceipt, OccurredAt: time.Now().UTC()})

	res, err := f.reconciler.ResolveUnmatched(ctx, identity.ResolveActionInput{
		ItemID: item.ID,
		Action: entity.ResolveActionCreate,
	})
	require.NoError(t, err)

	product, err := memory.NewProductRepo(f.store).GetByID(ctx, res.ProductID)
	require.NoError(t, err)
	assert.Equal(t, "SKU-SOLO", product.Name,
		"sin datos del operador, el valor reportado es el nombre provisional")
}

func TestResolveUnmatched_IgnorarNoTocaElLedger(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	item := f.enqueue(t, "pos", entity.IdentifierTypeSKU, "SKU-RUIDO",
		entity.DeferredEvent{ExternalRefID: "ev-r", LocationID: idTiendaID, QtyChange: -4, Reason: entity.ReasonSale, OccurredAt: time.Now().UTC()})

	res, err := f.reconciler.ResolveUnmatched(ctx, identity.ResolveActionInput{
		ItemID:     item.ID,
		Action:     entity.ResolveActionIgnore,
		ResolvedBy: "operador",
	})
	require.NoError(t, err)
	assert.Empty(t, res.ProductID)
	assert.Equal(t, 0, res.EventsReplayed)

	resolved, err := f.reconciler.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.UnmatchedStatusIgnored, resolved.Status)
	assert.Nil(t, resolved.MatchedProductID)

	movs, err := memory.NewMovementRepo(f.store).ListByProductLocation(ctx, idCafeID, idTiendaID, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, movs)
}

func TestResolveUnmatched_ItemYaResueltoEsConflicto(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	item := f.enqueue(t, "pos", entity.IdentifierTypeSKU, "SKU-DOBLE",
		entity.DeferredEvent{ExternalRefID: "ev-d", LocationID: idTiendaID, QtyChange: 1, Reason: entity.ReasonReceipt, OccurredAt: time.Now().UTC()})

	_, err := f.reconciler.ResolveUnmatched(ctx, identity.ResolveActionInput{
		ItemID: item.ID, Action: entity.ResolveActionIgnore,
	})
	require.NoError(t, err)

	_, err = f.reconciler.ResolveUnmatched(ctx, identity.ResolveActionInput{
		ItemID: item.ID, Action: entity.ResolveActionLink, ProductID: idCafeID,
	})
	assert.ErrorIs(t, err, domain.ErrConflict, "solo los pendientes admiten acción")
}

func TestResolveUnmatched_ProductoAjenoEsNotFound(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	ajeno := &entity.Product{
		ID: uuid.New().String(), MerchantID: "otro-comercio", Name: "Ajeno", Active: true,
	}
	require.NoError(t, memory.NewProductRepo(f.store).Create(ctx, ajeno))

	item := f.enqueue(t, "pos", entity.IdentifierTypeSKU, "SKU-AJENO",
		entity.DeferredEvent{ExternalRefID: "ev-x", LocationID: idTiendaID, QtyChange: 1, Reason: entity.ReasonReceipt, OccurredAt: time.Now().UTC()})

	_, err := f.reconciler.ResolveUnmatched(ctx, identity.ResolveActionInput{
		ItemID: item.ID, Action: entity.ResolveActionLink, ProductID: ajeno.ID,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveUnmatched_IdentificadorPrevioAlMismoProductoSeTolera(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	// El identificador ya existe (lo creó un match difuso previo) apuntando al café
	f.seedIdentifier(t, idCafeID, "marketplace", entity.IdentifierTypeBarcode, "B-REP")
	item := f.enqueue(t, "marketplace", entity.IdentifierTypeBarcode, "B-REP",
		entity.DeferredEvent{ExternalRefID: "ev-rep", LocationID: idTiendaID, QtyChange: 2, Reason: entity.ReasonReceipt, OccurredAt: time.Now().UTC()})

	_, err := f.reconciler.ResolveUnmatched(ctx, identity.ResolveActionInput{
		ItemID: item.ID, Action: entity.ResolveActionLink, ProductID: idCafeID,
	})
	assert.NoError(t, err, "vincular al mismo producto del identificador existente es válido")
}

func TestResolveUnmatched_IdentificadorPrevioAOtroProductoEsConflicto(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	f.seedIdentifier(t, idCafeID, "marketplace", entity.IdentifierTypeBarcode, "B-CRUCE")
	item := f.enqueue(t, "marketplace", entity.IdentifierTypeBarcode, "B-CRUCE",
		entity.DeferredEvent{ExternalRefID: "ev-c", LocationID: idTiendaID, QtyChange: 2, Reason: entity.ReasonReceipt, OccurredAt: time.Now().UTC()})

	_, err := f.reconciler.ResolveUnmatched(ctx, identity.ResolveActionInput{
		ItemID: item.ID, Action: entity.ResolveActionLink, ProductID: idPanelaID,
	})
	assert.ErrorIs(t, err, domain.ErrConflict,
		"el mismo código no puede apuntar a dos productos")
}

func TestResolveUnmatched_EntradasInvalidas(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	casos := []struct {
		nombre string
		input  identity.ResolveActionInput
	}{
		{"sin item", identity.ResolveActionInput{Action: entity.ResolveActionIgnore}},
		{"acción desconocida", identity.ResolveActionInput{ItemID: "x", Action: "merge"}},
		{"link sin producto", identity.ResolveActionInput{ItemID: "x", Action: entity.ResolveActionLink}},
	}
	for _, c := range casos {
		_, err := f.reconciler.ResolveUnmatched(ctx, c.input)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "caso %q", c.nombre)
	}

	_, err := f.reconciler.ResolveUnmatched(ctx, identity.ResolveActionInput{
		ItemID: uuid.New().String(), Action: entity.ResolveActionIgnore,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound, "ítem inexistente")
}

func TestListPending_FiltraPorEstado(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	a := f.enqueue(t, "pos", entity.IdentifierTypeSKU, "SKU-L1",
		entity.DeferredEvent{ExternalRefID: "ev-1", LocationID: idTiendaID, QtyChange: 1, Reason: entity.ReasonReceipt, OccurredAt: time.Now().UTC()})
	f.enqueue(t, "pos", entity.IdentifierTypeSKU, "SKU-L2",
		entity.DeferredEvent{ExternalRefID: "ev-2", LocationID: idTiendaID, QtyChange: 1, Reason: entity.ReasonReceipt, OccurredAt: time.Now().UTC()})

	pendientes, err := f.reconciler.ListPending(ctx, idMerchantID, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, pendientes, 2, "sin estado explícito lista los pendientes")

	_, err = f.reconciler.ResolveUnmatched(ctx, identity.ResolveActionInput{
		ItemID: a.ID, Action: entity.ResolveActionIgnore,
	})
	require.NoError(t, err)

	pendientes, err = f.reconciler.ListPending(ctx, idMerchantID, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, pendientes, 1)

	ignorados, err := f.reconciler.ListPending(ctx, idMerchantID, entity.UnmatchedStatusIgnored, 0, 0)
	require.NoError(t, err)
	assert.Len(t, ignorados, 1)
}
