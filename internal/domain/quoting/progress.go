package quoting

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
)

// ProgressSnapshot avance de facturación de una cotización.
// Porcentajes sobre el total de la cotización, a 1 decimal; 0 si el total es 0.
type ProgressSnapshot struct {
	QuoteTotal          decimal.Decimal
	InvoicedAmount      decimal.Decimal
	InvoicedPercentage  decimal.Decimal
	CompletedAmount     decimal.Decimal // solo facturas COMPLETED
	CompletedPercentage decimal.Decimal
	RemainingAmount     decimal.Decimal
	RemainingPercentage decimal.Decimal
	InvoiceCount        int
}

// ComputeProgress calcula el avance a partir del total y las facturas vinculadas.
// Es pura y reentrante: mismas entradas, misma salida.
func ComputeProgress(total decimal.Decimal, linked []entity.LinkedInvoice) ProgressSnapshot {
	invoiced := decimal.Zero
	completed := decimal.Zero
	for _, inv := range linked {
		amount := RoundCurrency(inv.Amount())
		invoiced = invoiced.Add(amount)
		if inv.Status == entity.InvoiceStatusCompleted {
			completed = completed.Add(amount)
		}
	}
	invoiced = RoundCurrency(invoiced)
	completed = RoundCurrency(completed)
	remaining := RoundCurrency(total.Sub(invoiced))

	return ProgressSnapshot{
		QuoteTotal:          RoundCurrency(total),
		InvoicedAmount:      invoiced,
		InvoicedPercentage:  RoundPercentage(Percentage(invoiced, total), 1),
		CompletedAmount:     completed,
		CompletedPercentage: RoundPercentage(Percentage(completed, total), 1),
		RemainingAmount:     remaining,
		RemainingPercentage: RoundPercentage(Percentage(remaining, total), 1),
		InvoiceCount:        len(linked),
	}
}

// IsFullyPaid la cotización tiene al menos una factura, todas COMPLETED,
// y el saldo pendiente es 0 dentro de la tolerancia.
func (p ProgressSnapshot) IsFullyPaid(linked []entity.LinkedInvoice) bool {
	if len(linked) == 0 {
		return false
	}
	for _, inv := range linked {
		if inv.Status != entity.InvoiceStatusCompleted {
			return false
		}
	}
	return p.RemainingAmount.Abs().LessThan(Tolerance)
}

// HasRemainingBalance queda saldo por facturar (mayor que la tolerancia cero).
func (p ProgressSnapshot) HasRemainingBalance() bool {
	return p.RemainingAmount.GreaterThan(decimal.Zero)
}
