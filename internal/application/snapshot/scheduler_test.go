package snapshot_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/StockSync-api/internal/application/snapshot"
	"github.com/jhoicas/StockSync-api/internal/domain/entity"
	"github.com/jhoicas/StockSync-api/internal/infrastructure/memory"
	"github.com/jhoicas/StockSync-api/pkg/logger"
)

// El scheduler no cierra solo ayer: retoma desde el último día cerrado, así
// una caída de varios días no deja huecos en la serie de snapshots.

func (f *fixture) scheduler() *snapshot.Scheduler {
	return snapshot.NewScheduler(f.closer, memory.NewLocationRepo(f.store), time.Hour, logger.NewNop())
}

func TestCloseDueDays_RetomaTrasCaidaDeVariosDias(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	f.seed(t, 30, entity.ReasonReceipt, dia(-4).Add(10*time.Hour))
	f.seed(t, -5, entity.ReasonSale, dia(-3).Add(12*time.Hour))
	f.seed(t, -7, entity.ReasonSale, dia(-1).Add(15*time.Hour))

	// Último cierre antes de la caída: hace cuatro días
	_, err := f.closer.CloseDay(ctx, snapTiendaID, dia(-4))
	require.NoError(t, err)

	f.scheduler().CloseDueDays(ctx)

	// Los tres días pendientes quedaron cerrados, incluido el -2 sin movimientos
	assert.Equal(t, int64(25), f.snap(t, dia(-3)).ClosingQty)
	assert.Equal(t, int64(25), f.snap(t, dia(-2)).ClosingQty, "el día sin actividad arrastra la apertura")
	assert.Equal(t, int64(18), f.snap(t, dia(-1)).ClosingQty)
	assert.Equal(t, int64(25), f.snap(t, dia(-1)).OpeningQty,
		"la serie queda contigua: apertura de ayer = cierre del día previo")
}

func TestCloseDueDays_SinHistoriaSoloCierraAyer(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	f.seed(t, 30, entity.ReasonReceipt, dia(-3).Add(10*time.Hour))
	f.seed(t, -4, entity.ReasonSale, dia(-1).Add(12*time.Hour))

	f.scheduler().CloseDueDays(ctx)

	// Sin un cierre previo no hay desde dónde retomar: solo se cierra ayer
	snaps, err := memory.NewSnapshotRepo(f.store).Range(ctx, snapProductID, snapTiendaID, dia(-30), dia(0))
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.True(t, dia(-1).Equal(snaps[0].SnapshotDate))
	assert.Equal(t, int64(26), snaps[0].ClosingQty, "la apertura sale del ledger previo, no de un snapshot")
}

func TestCloseDueDays_RespetaLaVentanaDeLookback(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	f.seed(t, 30, entity.ReasonReceipt, dia(-10).Add(10*time.Hour))
	f.seed(t, -5, entity.ReasonSale, dia(-2).Add(12*time.Hour))

	// El último cierre quedó fuera de la ventana: sin el piso, el scheduler
	// pediría dia(-9), CloseDay lo rechazaría y los días recientes quedarían
	// sin cerrar
	_, err := f.closer.CloseDay(ctx, snapTiendaID, dia(-10))
	require.NoError(t, err)

	f.scheduler().CloseDueDays(ctx)

	snaps, err := memory.NewSnapshotRepo(f.store).Range(ctx, snapProductID, snapTiendaID, dia(-9), dia(-1))
	require.NoError(t, err)
	require.Len(t, snaps, 2, "solo los días con actividad o arrastre dentro del lookback")
	assert.True(t, dia(-2).Equal(snaps[0].SnapshotDate))
	assert.Equal(t, int64(30), snaps[0].OpeningQty, "la apertura arrastra el último cierre conocido")
	assert.Equal(t, int64(25), snaps[0].ClosingQty)
	assert.True(t, dia(-1).Equal(snaps[1].SnapshotDate))
	assert.Equal(t, int64(25), snaps[1].ClosingQty)
}
