package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/StockSync-api/internal/domain"
)

// Las reservas mueven solo allocated: el on_hand físico no cambia y el ledger
// no recibe filas. available = on_hand - allocated es lo único que ve una venta.

func TestAllocate_ReservaSinTocarExistencias(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testTiendaID, 50)

	level, err := f.alloc.Allocate(ctx, testProductID, testTiendaID, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(50), level.OnHand, "reservar no mueve stock físico")
	assert.Equal(t, int64(20), level.Allocated)
	assert.Equal(t, int64(30), level.Available)
	assert.Len(t, f.movements(t, testTiendaID), 1,
		"la reserva no genera fila en el ledger")
}

func TestAllocate_SinDisponibleFalla(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testTiendaID, 10)

	_, err := f.alloc.Allocate(ctx, testProductID, testTiendaID, 8)
	require.NoError(t, err)

	// quedan 2 disponibles: reservar 3 no alcanza
	_, err = f.alloc.Allocate(ctx, testProductID, testTiendaID, 3)
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailable)

	level := f.level(t, testTiendaID)
	assert.Equal(t, int64(8), level.Allocated, "la reserva fallida no dejó rastro")
	assert.Equal(t, int64(2), level.Available)
}

func TestRelease_DevuelveElDisponible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testTiendaID, 50)

	_, err := f.alloc.Allocate(ctx, testProductID, testTiendaID, 20)
	require.NoError(t, err)

	level, err := f.alloc.Release(ctx, testProductID, testTiendaID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), level.Allocated)
	assert.Equal(t, int64(35), level.Available)
	assert.Equal(t, int64(50), level.OnHand)
}

func TestRelease_MasDeLoReservadoAterrizaEnCero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, testTiendaID, 50)

	_, err := f.alloc.Allocate(ctx, testProductID, testTiendaID, 10)
	require.NoError(t, err)

	// Liberaciones repetidas (retry de cancelación) no deben dejar allocated < 0
	level, err := f.alloc.Release(ctx, testProductID, testTiendaID, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(0), level.Allocated)
	assert.Equal(t, int64(50), level.Available)
}

func TestAllocation_EntradasInvalidas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	casos := []struct {
		nombre     string
		productID  string
		locationID string
		qty        int64
	}{
		{"cantidad cero", testProductID, testTiendaID, 0},
		{"cantidad negativa", testProductID, testTiendaID, -5},
		{"sin producto", "", testTiendaID, 5},
		{"sin ubicación", testProductID, "", 5},
	}
	for _, c := range casos {
		_, err := f.alloc.Allocate(ctx, c.productID, c.locationID, c.qty)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "allocate: caso %q", c.nombre)
		_, err = f.alloc.Release(ctx, c.productID, c.locationID, c.qty)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "release: caso %q", c.nombre)
	}
}
