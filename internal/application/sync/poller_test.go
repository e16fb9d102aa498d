package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsync "github.com/jhoicas/StockSync-api/internal/application/sync"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

func TestRunDue_GatingPorCanalYAgenda(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cursor := f.registerCursor(t)

	poller := appsync.NewPoller(f.manager, f.worker, f.merchantRepo, appsync.SourceRegistry{
		entity.ChannelPOS: f.source,
	}, f.settings, logger.NewNop())

	f.source.pages = []appsync.FetchBatch{{
		Events: []appsync.InventoryEvent{posEvent("tk-100", 6, entity.ReasonReceipt)},
	}}

	// El cursor recién dado de alta está vencido: el barrido lo corre
	ran := poller.RunDue(ctx)
	assert.Equal(t, 1, ran)
	assert.EqualValues(t, 6, f.onHand(t))

	// Tras el éxito quedó agendado a futuro: el siguiente barrido no hace nada
	ran = poller.RunDue(ctx)
	assert.Zero(t, ran)

	// Canal desactivado: aunque el cursor venza, el barrido lo ignora
	require.NoError(t, f.merchantRepo.UpsertChannel(ctx, &entity.MerchantChannel{
		MerchantID: syncMerchantID,
		Channel:    entity.ChannelPOS,
		IsActive:   false,
	}))
	forzarVencimiento(t, f, cursor.ID)
	ran = poller.RunDue(ctx)
	assert.Zero(t, ran)

	// Reactivado, vuelve a correr
	require.NoError(t, f.merchantRepo.UpsertChannel(ctx, &entity.MerchantChannel{
		MerchantID:  syncMerchantID,
		Channel:     entity.ChannelPOS,
		IsActive:    true,
		ActivatedAt: time.Now().UTC(),
	}))
	f.source.pages = []appsync.FetchBatch{{
		Events: []appsync.InventoryEvent{posEvent("tk-101", 4, entity.ReasonReceipt)},
	}}
	f.source.next = 0
	ran = poller.RunDue(ctx)
	assert.Equal(t, 1, ran)
	assert.EqualValues(t, 10, f.onHand(t))
}

func TestRunDue_CanalSinAdaptadorSeIgnora(t *testing.T) {
	f := newFixture(t)
	f.registerCursor(t)

	// Esta instancia no tiene conector para POS: otro binario atiende ese canal
	poller := appsync.NewPoller(f.manager, f.worker, f.merchantRepo,
		appsync.SourceRegistry{}, f.settings, logger.NewNop())

	ran := poller.RunDue(context.Background())
	assert.Zero(t, ran)
}

// forzarVencimiento adelanta el next_sync_at del cursor para que el próximo
// barrido lo considere vencido.
func forzarVencimiento(t *testing.T, f *fixture, cursorID string) {
	t.Helper()
	pasado := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, f.cursorRepo.ForceNextSync(context.Background(), cursorID, pasado))
}
