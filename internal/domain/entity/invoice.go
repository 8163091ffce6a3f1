package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus estado de una factura generada desde una cotización.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusCompleted InvoiceStatus = "COMPLETED" // Cobrada
)

// ParseInvoiceStatus convierte un string al enum.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch st := InvoiceStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("estado de factura desconocido: %q", s)
}

// CanAdvanceTo indica si la factura puede pasar a next (DRAFT → PENDING → COMPLETED).
func (s InvoiceStatus) CanAdvanceTo(next InvoiceStatus) bool {
	switch s {
	case InvoiceStatusDraft:
		return next == InvoiceStatusPending
	case InvoiceStatusPending:
		return next == InvoiceStatusCompleted
	}
	return false
}

// InvoiceKind tipo de factura solicitada al convertir una cotización.
type InvoiceKind string

const (
	InvoiceKindRegular InvoiceKind = "REGULAR"
	InvoiceKindDeposit InvoiceKind = "DEPOSIT" // Anticipo: solo como primera factura
)

// Invoice factura generada a partir de una cotización.
type Invoice struct {
	ID            string
	CompanyID     string
	QuoteID       string
	Prefix        string
	Number        int
	Status        InvoiceStatus
	IsDeposit     bool
	Percentage    decimal.Decimal // porcentaje de la cotización que cubre
	FinalTotalTTC decimal.Decimal
	IssueDate     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Link proyecta la factura como LinkedInvoice de su cotización.
func (i *Invoice) Link() LinkedInvoice {
	total := i.FinalTotalTTC
	return LinkedInvoice{
		ID:            i.ID,
		Prefix:        i.Prefix,
		Number:        i.Number,
		Status:        i.Status,
		FinalTotalTTC: &total,
		IsDeposit:     i.IsDeposit,
	}
}

// LinkedInvoice proyección ligera de una factura vista desde su cotización.
// Solo guarda la referencia débil (ID) para navegación.
type LinkedInvoice struct {
	ID            string
	Prefix        string
	Number        int
	Status        InvoiceStatus
	FinalTotalTTC *decimal.Decimal // nil se trata como 0
	IsDeposit     bool
}

// Amount devuelve el total de la factura, 0 si no está informado.
func (l LinkedInvoice) Amount() decimal.Decimal {
	if l.FinalTotalTTC == nil {
		return decimal.Zero
	}
	return *l.FinalTotalTTC
}
