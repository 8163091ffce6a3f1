// Package quoting contiene las reglas puras de facturación de cotizaciones:
// redondeo monetario, máquina de estados, motor de asignación (facturas
// parciales) y agregador de avance de facturación.
//
// Ninguna función de este paquete hace I/O; todas son deterministas.
package quoting

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)

	// Tolerance margen en unidades monetarias para "saldado" y "saldo pendiente".
	// Fijo a 0.01: asume monedas con 2 decimales.
	Tolerance = decimal.New(1, -2)
)

// RoundCurrency redondea a 2 decimales, mitad hacia arriba (+∞) sobre x*100.
func RoundCurrency(x decimal.Decimal) decimal.Decimal {
	return roundHalfUp(x, 2)
}

// RoundPercentage redondea un porcentaje a 0 o 1 decimales (mitad hacia arriba).
func RoundPercentage(x decimal.Decimal, decimals int32) decimal.Decimal {
	if decimals < 0 {
		decimals = 0
	}
	if decimals > 1 {
		decimals = 1
	}
	return roundHalfUp(x, decimals)
}

// FloorPercentage parte entera por defecto; se usa como techo de los límites de la UI.
func FloorPercentage(x decimal.Decimal) int {
	return int(x.Floor().IntPart())
}

// Percentage devuelve part/total*100, o 0 si total es 0.
func Percentage(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(hundred)
}

// SumCurrency suma montos redondeando cada sumando y el resultado.
func SumCurrency(amounts ...decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(RoundCurrency(a))
	}
	return RoundCurrency(sum)
}

func roundHalfUp(x decimal.Decimal, places int32) decimal.Decimal {
	half := decimal.New(5, -(places + 1))
	return x.Add(half).RoundFloor(places)
}
