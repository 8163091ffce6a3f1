package quoting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Cotizaciones-api/internal/domain"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
)

// Totals totales de una cotización.
type Totals struct {
	TotalHT       decimal.Decimal
	TotalVAT      decimal.Decimal
	TotalTTC      decimal.Decimal
	FinalTotalHT  decimal.Decimal
	FinalTotalTTC decimal.Decimal
}

// ComputeTotals calcula subtotal (HT), IVA y total (TTC) de las líneas y aplica
// el descuento global sobre el HT. El IVA final se escala en la misma proporción
// que el HT descontado.
func ComputeTotals(items []entity.QuoteItem, discount entity.Discount) (Totals, error) {
	var ht, vat decimal.Decimal
	for _, it := range items {
		if it.Quantity.IsNegative() || it.UnitPrice.IsNegative() || it.VATRate.IsNegative() {
			return Totals{}, fmt.Errorf("%w: línea %q con valores negativos", domain.ErrInvalidInput, it.Description)
		}
		line := RoundCurrency(it.Quantity.Mul(it.UnitPrice))
		ht = ht.Add(line)
		vat = vat.Add(RoundCurrency(line.Mul(it.VATRate).Div(hundred)))
	}
	ht = RoundCurrency(ht)
	vat = RoundCurrency(vat)

	discountAmount := decimal.Zero
	switch discount.Type {
	case "":
	case entity.DiscountAmount:
		discountAmount = RoundCurrency(discount.Value)
	case entity.DiscountPercentage:
		if discount.Value.GreaterThan(hundred) {
			return Totals{}, fmt.Errorf("%w: descuento mayor a 100%%", domain.ErrInvalidInput)
		}
		discountAmount = RoundCurrency(ht.Mul(discount.Value).Div(hundred))
	default:
		return Totals{}, fmt.Errorf("%w: tipo de descuento %q", domain.ErrInvalidInput, discount.Type)
	}
	if discountAmount.IsNegative() || discountAmount.GreaterThan(ht) {
		return Totals{}, fmt.Errorf("%w: descuento fuera de rango", domain.ErrInvalidInput)
	}

	finalHT := RoundCurrency(ht.Sub(discountAmount))
	finalVAT := vat
	if !ht.IsZero() && !discountAmount.IsZero() {
		finalVAT = RoundCurrency(vat.Mul(finalHT).Div(ht))
	}
	return Totals{
		TotalHT:       ht,
		TotalVAT:      vat,
		TotalTTC:      RoundCurrency(ht.Add(vat)),
		FinalTotalHT:  finalHT,
		FinalTotalTTC: RoundCurrency(finalHT.Add(finalVAT)),
	}, nil
}
