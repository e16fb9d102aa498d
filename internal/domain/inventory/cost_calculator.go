package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((QtyActual * CostoActual) + (QtyEntrada * CostoEntrada)) / (QtyActual + QtyEntrada)
// Si la suma de cantidades no es positiva devuelve el costo de la entrada (reinicio de promedio).
func WeightedAverageCost(currentQty int64, currentCost decimal.Decimal, inQty int64, inCost decimal.Decimal) decimal.Decimal {
	cur := decimal.NewFromInt(currentQty)
	in := decimal.NewFromInt(inQty)
	sum := cur.Add(in)
	if sum.LessThanOrEqual(decimal.Zero) {
		return inCost
	}
	if cur.LessThanOrEqual(decimal.Zero) {
		// Sin existencias previas el promedio es el costo de la entrada
		return inCost
	}
	num := cur.Mul(currentCost).Add(in.Mul(inCost))
	return num.Div(sum)
}

// TurnoverVelocity calcula la rotación del día: OutQty / ((Opening + Closing) / 2).
// Definida como 0 cuando el inventario promedio no es positivo (guardia de división por cero).
func TurnoverVelocity(openingQty, closingQty, outQty int64) decimal.Decimal {
	avg := decimal.NewFromInt(openingQty + closingQty).Div(decimal.NewFromInt(2))
	if avg.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return decimal.NewFromInt(outQty).Div(avg).Round(4)
}
