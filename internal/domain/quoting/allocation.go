package quoting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Cotizaciones-api/internal/domain"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
)

// Límites de la facturación parcial.
const (
	MaxInvoicesPerQuote  = 3
	MinPercentage        = 5
	MaxPartialPercentage = 95
	DefaultPercentage    = 30
)

// Códigos de rechazo (estables, para el Notifier y la API).
const (
	CodeInvoiceCapReached    = "INVOICE_CAP_REACHED"
	CodeDepositNotAllowed    = "DEPOSIT_NOT_ALLOWED"
	CodeNoRemainingBalance   = "NO_REMAINING_BALANCE"
	CodePercentageOutOfRange = "PERCENTAGE_OUT_OF_RANGE"
)

// AllocationDefaults valores iniciales del diálogo "crear factura desde cotización".
type AllocationDefaults struct {
	Percentage          int
	MinPercentage       int
	MaxPercentage       int
	Amount              decimal.Decimal
	UseRemainingBalance bool // forzado en la última factura permitida
	DepositAllowed      bool // solo si aún no hay facturas
	CanCreate           bool
	InvoiceCount        int
	InvoicedAmount      decimal.Decimal
	RemainingAmount     decimal.Decimal
	RemainingPercentage decimal.Decimal
}

// AllocationRequest solicitud de una factura sobre una cotización.
type AllocationRequest struct {
	QuoteID             string
	Percentage          int // entero 5–100
	Kind                entity.InvoiceKind
	UseRemainingBalance bool
}

// ValidRequest solicitud validada, con el porcentaje re-acotado y el monto exacto.
type ValidRequest struct {
	QuoteID             string
	Percentage          int
	Kind                entity.InvoiceKind
	UseRemainingBalance bool
	Amount              decimal.Decimal
}

// IsDeposit indica si la factura resultante es un anticipo.
func (v ValidRequest) IsDeposit() bool { return v.Kind == entity.InvoiceKindDeposit }

// RejectionError rechazo del motor de asignación. Envuelve el error de dominio.
type RejectionError struct {
	Code      string
	Err       error
	Requested int // porcentaje pedido (solo PERCENTAGE_OUT_OF_RANGE)
	Min       int
	Ceiling   int
}

func (e *RejectionError) Error() string {
	if e.Code == CodePercentageOutOfRange {
		return fmt.Sprintf("%s: %d no está entre %d y %d", e.Err, e.Requested, e.Min, e.Ceiling)
	}
	return e.Err.Error()
}

func (e *RejectionError) Unwrap() error { return e.Err }

// balance avance mínimo que necesita el motor.
type balance struct {
	invoiced     decimal.Decimal
	remaining    decimal.Decimal
	remainingPct decimal.Decimal
	ceiling      int
}

func computeBalance(total decimal.Decimal, linked []entity.LinkedInvoice) balance {
	invoiced := decimal.Zero
	for _, inv := range linked {
		invoiced = invoiced.Add(RoundCurrency(inv.Amount()))
	}
	invoiced = RoundCurrency(invoiced)
	remaining := RoundCurrency(total.Sub(invoiced))
	remainingPct := RoundPercentage(Percentage(remaining, total), 1)
	return balance{
		invoiced:     invoiced,
		remaining:    remaining,
		remainingPct: remainingPct,
		ceiling:      FloorPercentage(remainingPct),
	}
}

// isLastInvoice la próxima factura es la última permitida y debe cerrar el saldo.
func isLastInvoice(linked []entity.LinkedInvoice) bool {
	return len(linked) == MaxInvoicesPerQuote-1
}

// invoiceable quedan cupos y saldo pendiente.
func invoiceable(linked []entity.LinkedInvoice, b balance) bool {
	return len(linked) < MaxInvoicesPerQuote && !b.remaining.LessThan(Tolerance)
}

// closingCeiling porcentaje que representa la factura de cierre. Nunca es menor
// que 1 mientras quede saldo: un residuo bajo el mínimo también se factura.
func (b balance) closingCeiling() int {
	if b.ceiling < 1 {
		return 1
	}
	return b.ceiling
}

// partialCeiling tope de una factura que no cierra el saldo.
func (b balance) partialCeiling() int {
	return minInt(MaxPartialPercentage, b.ceiling)
}

// ProposeAllocation calcula los valores por defecto del diálogo de creación.
// hint es el último porcentaje usado (0 = sin pista, se usa 30).
func ProposeAllocation(total decimal.Decimal, linked []entity.LinkedInvoice, hint int) AllocationDefaults {
	b := computeBalance(total, linked)
	d := AllocationDefaults{
		MinPercentage:       MinPercentage,
		DepositAllowed:      len(linked) == 0,
		InvoiceCount:        len(linked),
		InvoicedAmount:      b.invoiced,
		RemainingAmount:     b.remaining,
		RemainingPercentage: b.remainingPct,
		Amount:              decimal.Zero,
	}
	if !invoiceable(linked, b) {
		return d
	}
	d.CanCreate = true

	// Última factura, o un saldo menor al mínimo parcial: se cierra completo.
	if isLastInvoice(linked) || b.partialCeiling() < MinPercentage {
		ceiling := b.closingCeiling()
		d.UseRemainingBalance = true
		d.Percentage = ceiling
		d.MinPercentage = minInt(MinPercentage, ceiling)
		d.MaxPercentage = ceiling
		d.Amount = b.remaining
		return d
	}

	if hint <= 0 {
		hint = DefaultPercentage
	}
	d.MaxPercentage = b.partialCeiling()
	d.Percentage = minInt(hint, d.MaxPercentage)
	if d.Percentage < MinPercentage {
		d.Percentage = MinPercentage
	}
	d.Amount = decimal.Min(ComputeAllocationAmount(total, d.Percentage), b.remaining)
	return d
}

// Offer propuesta para el diálogo de una cotización en status. CanCreate
// coincide con CREATE_INVOICE en StatusActions: la máquina de estados debe
// admitir la acción y la cotización debe tener cupo y saldo.
func Offer(status entity.QuoteStatus, total decimal.Decimal, linked []entity.LinkedInvoice, hint int) AllocationDefaults {
	d := ProposeAllocation(total, linked, hint)
	d.CanCreate = d.CanCreate && CanPerform(status, ActionCreateInvoice)
	return d
}

// ComputeAllocationAmount monto de una factura que cubre percentage% del total.
func ComputeAllocationAmount(total decimal.Decimal, percentage int) decimal.Decimal {
	return RoundCurrency(total.Mul(decimal.NewFromInt(int64(percentage))).Div(hundred))
}

// ValidateAllocationRequest única validación autoritativa de una solicitud.
// Se ejecuta al enviar (aunque la UI ya haya acotado) porque el estado puede
// haber cambiado desde que se abrió el diálogo.
func ValidateAllocationRequest(req AllocationRequest, linked []entity.LinkedInvoice, total decimal.Decimal) (ValidRequest, error) {
	if len(linked) >= MaxInvoicesPerQuote {
		return ValidRequest{}, &RejectionError{Code: CodeInvoiceCapReached, Err: domain.ErrInvoiceCapReached}
	}
	kind := req.Kind
	if kind == "" {
		kind = entity.InvoiceKindRegular
	}
	if kind == entity.InvoiceKindDeposit && len(linked) > 0 {
		return ValidRequest{}, &RejectionError{Code: CodeDepositNotAllowed, Err: domain.ErrDepositNotAllowed}
	}

	b := computeBalance(total, linked)
	if b.remaining.LessThan(Tolerance) {
		return ValidRequest{}, &RejectionError{Code: CodeNoRemainingBalance, Err: domain.ErrNoRemainingBalance}
	}

	// La factura de cierre acepta un residuo bajo el mínimo y factura siempre
	// el saldo completo, con el porcentaje que este representa.
	useRemaining := req.UseRemainingBalance || isLastInvoice(linked)
	floor, ceiling := MinPercentage, b.partialCeiling()
	if useRemaining {
		ceiling = b.closingCeiling()
		floor = minInt(MinPercentage, ceiling)
	}
	if req.Percentage < floor || req.Percentage > ceiling {
		return ValidRequest{}, &RejectionError{
			Code:      CodePercentageOutOfRange,
			Err:       domain.ErrPercentageOutOfRange,
			Requested: req.Percentage,
			Min:       floor,
			Ceiling:   ceiling,
		}
	}

	pct := ceiling
	amount := b.remaining
	if !useRemaining {
		pct = req.Percentage
		amount = decimal.Min(ComputeAllocationAmount(total, pct), b.remaining)
	}
	return ValidRequest{
		QuoteID:             req.QuoteID,
		Percentage:          pct,
		Kind:                kind,
		UseRemainingBalance: useRemaining,
		Amount:              amount,
	}, nil
}

// PlanDistribution valida una lista de porcentajes aplicándolos en orden, como
// si cada factura ya estuviera vinculada al validar la siguiente. Solo la
// primera puede ser anticipo y solo la última puede usar el saldo restante.
func PlanDistribution(
	quoteID string,
	total decimal.Decimal,
	linked []entity.LinkedInvoice,
	percentages []int,
	isDeposit, useRemaining bool,
) ([]ValidRequest, error) {
	if len(percentages) == 0 {
		return nil, fmt.Errorf("%w: distribución vacía", domain.ErrInvalidInput)
	}
	current := make([]entity.LinkedInvoice, len(linked), len(linked)+len(percentages))
	copy(current, linked)

	plan := make([]ValidRequest, 0, len(percentages))
	for i, pct := range percentages {
		req := AllocationRequest{
			QuoteID:             quoteID,
			Percentage:          pct,
			Kind:                entity.InvoiceKindRegular,
			UseRemainingBalance: useRemaining && i == len(percentages)-1,
		}
		if isDeposit && i == 0 {
			req.Kind = entity.InvoiceKindDeposit
		}
		valid, err := ValidateAllocationRequest(req, current, total)
		if err != nil {
			return nil, err
		}
		plan = append(plan, valid)
		amount := valid.Amount
		current = append(current, entity.LinkedInvoice{
			Status:        entity.InvoiceStatusDraft,
			FinalTotalTTC: &amount,
			IsDeposit:     valid.IsDeposit(),
		})
	}
	return plan, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
