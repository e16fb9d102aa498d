package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/StockSync-api/internal/domain/inventory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tests de WeightedAverageCost — costo promedio ponderado al recibir mercancía.
// ──────────────────────────────────────────────────────────────────────────────

func TestWeightedAverageCost_PromedioBasico(t *testing.T) {
	// 10 unidades a $100 + 10 unidades a $200 → promedio $150.
	got := inventory.WeightedAverageCost(
		10, decimal.NewFromInt(100),
		10, decimal.NewFromInt(200),
	)
	assert.True(t, decimal.NewFromInt(150).Equal(got),
		"promedio ponderado esperado 150, obtenido %s", got)
}

func TestWeightedAverageCost_PonderaPorCantidad(t *testing.T) {
	// 30 a $10 + 10 a $30 → (300 + 300) / 40 = 15.
	got := inventory.WeightedAverageCost(
		30, decimal.NewFromInt(10),
		10, decimal.NewFromInt(30),
	)
	assert.True(t, decimal.NewFromInt(15).Equal(got),
		"la entrada pequeña no debe arrastrar el promedio: esperado 15, obtenido %s", got)
}

func TestWeightedAverageCost_SinExistenciasReiniciaPromedio(t *testing.T) {
	// Con stock cero (o negativo tras sobreventa) el promedio histórico ya no
	// representa nada: el costo pasa a ser el de la entrada.
	inCost := decimal.RequireFromString("12.50")

	got := inventory.WeightedAverageCost(0, decimal.NewFromInt(999), 20, inCost)
	assert.True(t, inCost.Equal(got), "con qty=0 el promedio se reinicia al costo de entrada")

	got = inventory.WeightedAverageCost(-5, decimal.NewFromInt(999), 20, inCost)
	assert.True(t, inCost.Equal(got), "con qty negativa también se reinicia")
}

func TestWeightedAverageCost_DecimalesSinPerdida(t *testing.T) {
	// 3 a $10.00 + 1 a $11.00 → 41/4 = 10.25 exacto (decimal, no float).
	got := inventory.WeightedAverageCost(
		3, decimal.RequireFromString("10.00"),
		1, decimal.RequireFromString("11.00"),
	)
	assert.True(t, decimal.RequireFromString("10.25").Equal(got),
		"esperado 10.25 exacto, obtenido %s", got)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests de TurnoverVelocity — rotación diaria para el dashboard.
// ──────────────────────────────────────────────────────────────────────────────

func TestTurnoverVelocity_CalculoBasico(t *testing.T) {
	// Apertura 100, cierre 60, salidas 40 → 40 / 80 = 0.5.
	got := inventory.TurnoverVelocity(100, 60, 40)
	assert.True(t, decimal.RequireFromString("0.5").Equal(got),
		"esperado 0.5, obtenido %s", got)
}

func TestTurnoverVelocity_InventarioPromedioCeroEsCero(t *testing.T) {
	// Guardia de división por cero: día que abre y cierra en 0.
	got := inventory.TurnoverVelocity(0, 0, 10)
	assert.True(t, got.IsZero(),
		"con inventario promedio no positivo la rotación se define como 0")

	// Promedio negativo (sobreventa sostenida) también queda en 0.
	got = inventory.TurnoverVelocity(-10, -2, 5)
	assert.True(t, got.IsZero())
}

func TestTurnoverVelocity_RedondeaACuatroDecimales(t *testing.T) {
	// 1 / 3 → 0.3333 (redondeo a 4 decimales para no ensuciar el dashboard).
	got := inventory.TurnoverVelocity(2, 4, 1)
	assert.True(t, decimal.RequireFromString("0.3333").Equal(got),
		"esperado 0.3333, obtenido %s", got)
}
