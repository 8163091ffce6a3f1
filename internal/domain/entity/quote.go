package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// QuoteStatus estado de una cotización. Conjunto cerrado: no existen otros valores.
type QuoteStatus string

const (
	QuoteStatusDraft     QuoteStatus = "DRAFT"     // Borrador, editable y eliminable
	QuoteStatusPending   QuoteStatus = "PENDING"   // Enviada al cliente
	QuoteStatusCompleted QuoteStatus = "COMPLETED" // Aceptada; admite facturas
	QuoteStatusCanceled  QuoteStatus = "CANCELED"  // Cancelada (terminal)
)

// ParseQuoteStatus convierte un string al enum; cualquier otro valor es inválido.
func ParseQuoteStatus(s string) (QuoteStatus, error) {
	switch st := QuoteStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case QuoteStatusDraft, QuoteStatusPending, QuoteStatusCompleted, QuoteStatusCanceled:
		return st, nil
	}
	return "", fmt.Errorf("estado de cotización desconocido: %q", s)
}

// IsTerminal indica si el estado ya no ofrece acciones de cambio de estado.
func (s QuoteStatus) IsTerminal() bool {
	return s == QuoteStatusCompleted || s == QuoteStatusCanceled
}

// Tipos de descuento.
const (
	DiscountAmount     = "AMOUNT"
	DiscountPercentage = "PERCENTAGE"
)

// Discount descuento global sobre el subtotal (HT) de la cotización.
type Discount struct {
	Type  string // AMOUNT | PERCENTAGE; vacío = sin descuento
	Value decimal.Decimal
}

// Quote representa la cabecera de una cotización con sus líneas y facturas vinculadas.
type Quote struct {
	ID            string
	CompanyID     string
	ClientName    string
	Prefix        string
	Number        int
	Status        QuoteStatus
	IssueDate     time.Time
	ValidUntil    time.Time
	TotalHT       decimal.Decimal
	TotalVAT      decimal.Decimal
	TotalTTC      decimal.Decimal
	FinalTotalHT  decimal.Decimal
	FinalTotalTTC *decimal.Decimal // nil = sin total final, se usa TotalTTC
	Discount      Discount
	Items         []QuoteItem
	// LinkedInvoices proyección de las facturas generadas desde la cotización (máx. 3).
	LinkedInvoices []LinkedInvoice
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BillableTotal monto contra el que se mide el avance de facturación.
func (q *Quote) BillableTotal() decimal.Decimal {
	if q.FinalTotalTTC != nil {
		return *q.FinalTotalTTC
	}
	return q.TotalTTC
}

// Reference devuelve prefijo + número con ceros a la izquierda (ej. COT-000012).
func (q *Quote) Reference() string {
	return fmt.Sprintf("%s-%06d", q.Prefix, q.Number)
}

// QuoteItem línea de una cotización.
type QuoteItem struct {
	ID          string
	QuoteID     string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	VATRate     decimal.Decimal // porcentaje, ej. 20
	Position    int
}
