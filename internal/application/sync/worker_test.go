package sync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/StockSync-api/internal/application/ports"
	appsync "github.com/jhoicas/StockSync-api/internal/application/sync"
	"github.com/jhoicas/StockSync-api/internal/domain"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
)

func TestRunOnce_PasadaMultiPagina(t *testing.T) {
	f := newFixture(t)
	cursor := f.registerCursor(t)

	f.source.pages = []appsync.FetchBatch{
		{
			Events: []appsync.InventoryEvent{
				posEvent("tk-001", 10, entity.ReasonReceipt),
				posEvent("tk-002", -3, entity.ReasonSale),
			},
			NextToken: "page-2",
			HasMore:   true,
		},
		{
			Events: []appsync.InventoryEvent{
				posEvent("tk-003", -2, entity.ReasonSale),
			},
			NextToken: "page-3",
		},
	}

	report, err := f.worker.RunOnce(context.Background(), cursor.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Batches)
	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 3, report.Applied)
	assert.Zero(t, report.Duplicates)
	assert.Zero(t, report.Queued)
	assert.Equal(t, "page-3", report.NextToken)

	// 10 − 3 − 2 aplicados al ledger por la ruta de sincronización
	assert.EqualValues(t, 5, f.onHand(t))

	refreshed, err := f.manager.Get(context.Background(), cursor.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CursorStatusCompleted, refreshed.Status)
	assert.Equal(t, "page-3", refreshed.CursorToken)
	assert.Equal(t, "tk-003", refreshed.LastProcessedID)
	assert.EqualValues(t, 3, refreshed.RecordsSynced)
	assert.Empty(t, refreshed.LeaseToken, "el lease se libera al cerrar la pasada")

	// La segunda página se pidió con el token devuelto por la primera
	require.Len(t, f.source.requests, 2)
	assert.Empty(t, f.source.requests[0].CursorToken)
	assert.Equal(t, "page-2", f.source.requests[1].CursorToken)
}

func TestRunOnce_ReentregaDelCanalEsNoOp(t *testing.T) {
	f := newFixture(t)
	cursor := f.registerCursor(t)

	events := []appsync.InventoryEvent{
		posEvent("tk-010", 10, entity.ReasonReceipt),
		posEvent("tk-011", -3, entity.ReasonSale),
	}
	f.source.pages = []appsync.FetchBatch{{Events: events}}

	_, err := f.worker.RunOnce(context.Background(), cursor.ID)
	require.NoError(t, err)
	require.EqualValues(t, 7, f.onHand(t))

	// El canal re-entrega el mismo lote completo (timeout del lado externo)
	f.source.pages = []appsync.FetchBatch{{Events: events}}
	f.source.next = 0

	report, err := f.worker.RunOnce(context.Background(), cursor.ID)
	require.NoError(t, err)

	assert.Zero(t, report.Applied)
	assert.Equal(t, 2, report.Duplicates, "ambos eventos ya estaban aplicados")
	assert.EqualValues(t, 7, f.onHand(t), "la re-entrega no mueve el balance")

	movs, err := f.queries.ListMovements(context.Background(), syncProductID, syncTiendaID, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, movs, 2, "sin filas duplicadas en el ledger")
}

func TestRunOnce_IdentificadorSinResolverSeDifiere(t *testing.T) {
	f := newFixture(t)
	cursor := f.registerCursor(t)

	desconocido := posEvent("tk-020", -4, entity.ReasonSale)
	desconocido.IdentifierValue = "0000000000"
	desconocido.NameHint = "Producto Misterioso"
	f.source.pages = []appsync.FetchBatch{{
		Events: []appsync.InventoryEvent{desconocido},
	}}

	report, err := f.worker.RunOnce(context.Background(), cursor.ID)
	require.NoError(t, err, "un identificador sin resolver no es fallo de la pasada")

	assert.Equal(t, 1, report.Queued)
	assert.Zero(t, report.Applied)

	// Exactamente un ítem pendiente con el evento diferido, cero movimientos
	item, err := f.unmatchedRepo.GetPending(context.Background(),
		syncMerchantID, entity.ChannelPOS, "barcode", "0000000000")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, entity.UnmatchedStatusPending, item.Status)
	require.Len(t, item.PendingEvents, 1)
	assert.Equal(t, "tk-020", item.PendingEvents[0].ExternalRefID)
	assert.Equal(t, syncTiendaID, item.PendingEvents[0].LocationID)

	movs, err := f.queries.ListMovements(context.Background(), syncProductID, syncTiendaID, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, movs)

	// La pasada cerró en éxito: la cola absorbe el miss, el cursor no se castiga
	refreshed, err := f.manager.Get(context.Background(), cursor.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CursorStatusCompleted, refreshed.Status)
	assert.Zero(t, refreshed.ConsecutiveFailures)
}

func TestRunOnce_EventoMalformadoSeSalta(t *testing.T) {
	f := newFixture(t)
	cursor := f.registerCursor(t)

	sinRef := posEvent("", 5, entity.ReasonReceipt)
	f.source.pages = []appsync.FetchBatch{{
		Events: []appsync.InventoryEvent{sinRef, posEvent("tk-030", 5, entity.ReasonReceipt)},
	}}

	report, err := f.worker.RunOnce(context.Background(), cursor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Applied)
	assert.EqualValues(t, 5, f.onHand(t))
}

func TestRunOnce_MotivoDesconocidoNoAtascaElCursor(t *testing.T) {
	f := newFixture(t)
	cursor := f.registerCursor(t)

	// Un motivo fuera del enum no puede abortar la pasada: el token no
	// avanzaría y cada reintento refetchearía la misma página para siempre
	raro := posEvent("tk-031", 3, entity.MovementReason("restock"))
	f.source.pages = []appsync.FetchBatch{{
		Events:    []appsync.InventoryEvent{raro, posEvent("tk-032", 7, entity.ReasonReceipt)},
		NextToken: "page-2",
	}}

	report, err := f.worker.RunOnce(context.Background(), cursor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Applied)
	assert.EqualValues(t, 7, f.onHand(t))

	refreshed, err := f.manager.Get(context.Background(), cursor.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CursorStatusCompleted, refreshed.Status)
	assert.Equal(t, 0, refreshed.ConsecutiveFailures)
	assert.Equal(t, "page-2", refreshed.CursorToken, "la pasada completó y el token avanzó")
}

func TestRunOnce_FalloDelCanalAgendaBackoff(t *testing.T) {
	f := newFixture(t)
	cursor := f.registerCursor(t)
	f.source.failNext = errors.New("503 del POS")

	_, err := f.worker.RunOnce(context.Background(), cursor.ID)
	require.Error(t, err)

	refreshed, err := f.manager.Get(context.Background(), cursor.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CursorStatusFailed, refreshed.Status)
	assert.Equal(t, 1, refreshed.ConsecutiveFailures)
	assert.Contains(t, refreshed.LastError, "503 del POS")
	require.NotNil(t, refreshed.NextSyncAt)
	assert.True(t, refreshed.NextSyncAt.After(time.Now().UTC()), "el reintento queda en el futuro")
	assert.Empty(t, refreshed.LeaseToken)

	require.Len(t, f.alerts.ByType(ports.AlertSyncFailed), 1)
}

func TestRunOnce_LeaseAjenoDevuelveAlreadyRunning(t *testing.T) {
	f := newFixture(t)
	cursor := f.registerCursor(t)

	_, lease, err := f.manager.AcquireForRun(context.Background(), cursor.ID)
	require.NoError(t, err)
	defer func() { _ = f.manager.Release(context.Background(), lease) }()

	_, err = f.worker.RunOnce(context.Background(), cursor.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyRunning)
}

func TestRunBackfill_IndependienteDelIncremental(t *testing.T) {
	f := newFixture(t)
	cursor := f.registerCursor(t)

	// Primero una pasada incremental que deja token propio
	f.source.pages = []appsync.FetchBatch{{
		Events:    []appsync.InventoryEvent{posEvent("tk-040", 8, entity.ReasonReceipt)},
		NextToken: "inc-token",
	}}
	_, err := f.worker.RunOnce(context.Background(), cursor.ID)
	require.NoError(t, err)

	// Luego el histórico sobre un rango viejo, con su propio marcador; un evento
	// re-entregado entre ambos flujos lo absorbe la clave de idempotencia
	f.source.pages = []appsync.FetchBatch{
		{
			Events: []appsync.InventoryEvent{
				posEvent("tk-hist-001", 20, entity.ReasonReceipt),
				posEvent("tk-040", 8, entity.ReasonReceipt), // solape con el incremental
			},
			NextToken: "bf-page-2",
			HasMore:   true,
		},
		{
			Events:    []appsync.InventoryEvent{posEvent("tk-hist-002", -6, entity.ReasonSale)},
			NextToken: "bf-final",
		},
	}
	f.source.next = 0
	f.source.requests = nil

	from := time.Now().UTC().AddDate(0, -6, 0)
	to := time.Now().UTC().AddDate(0, 0, -1)
	report, err := f.worker.RunBackfill(context.Background(), cursor.ID, from, to)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Applied)
	assert.Equal(t, 1, report.Duplicates, "el solape con el incremental es no-op")
	assert.EqualValues(t, 8+20-6, f.onHand(t))

	refreshed, err := f.manager.Get(context.Background(), cursor.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BackfillCompleted, refreshed.BackfillState)
	assert.Equal(t, "bf-final", refreshed.BackfillCursor)
	assert.Equal(t, "inc-token", refreshed.CursorToken, "el token incremental no se toca")

	// El fetch histórico viaja acotado por el rango
	require.NotEmpty(t, f.source.requests)
	require.NotNil(t, f.source.requests[0].RangeStart)
	require.NotNil(t, f.source.requests[0].RangeEnd)
}
