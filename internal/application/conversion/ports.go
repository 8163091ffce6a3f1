package conversion

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/quoting"
)

// FetchOptions opciones de lectura de la cotización.
type FetchOptions struct {
	BypassCache bool // lectura directa al servidor, sin cache local
}

// QuoteReader lee la cotización con sus facturas vinculadas (total, estado, linked invoices).
type QuoteReader interface {
	FetchQuote(ctx context.Context, quoteID string, opts FetchOptions) (*entity.Quote, error)
}

// ConversionRequest solicitud enviada al servidor; cada porcentaje genera una factura.
type ConversionRequest struct {
	DistributionPercentages []int
	IsDeposit               bool
	UseRemainingBalance     bool
	SkipValidation          bool
}

// ConversionResult primera factura creada.
type ConversionResult struct {
	InvoiceID string
	Number    int
	Prefix    string
}

// ConversionWriter crea facturas a partir de una cotización.
// Un rechazo del servidor se devuelve como *RemoteError.
type ConversionWriter interface {
	ConvertQuoteToInvoice(ctx context.Context, quoteID string, req ConversionRequest) (*ConversionResult, error)
}

// StatusWriter cambia el estado de la cotización; el servidor es la autoridad
// y puede rechazar una transición que el cliente creía legal.
type StatusWriter interface {
	ChangeQuoteStatus(ctx context.Context, quoteID string, status entity.QuoteStatus) (entity.QuoteStatus, error)
}

// EventKind tipo de evento notificado a la capa de presentación.
type EventKind string

const (
	EventConverted     EventKind = "CONVERTED"
	EventStatusChanged EventKind = "STATUS_CHANGED"
	EventRejected      EventKind = "REJECTED" // rechazo local, no se envió nada
	EventFailed        EventKind = "FAILED"   // rechazo del servidor o fallo de red
)

// Event datos estructurados para el Notifier. El texto final lo arma la presentación;
// Message solo trae el mensaje del servidor tal cual.
type Event struct {
	Kind     EventKind
	QuoteID  string
	Code     string
	Message  string
	Values   map[string]int // requested, min, ceiling (PERCENTAGE_OUT_OF_RANGE)
	Result   *ConversionResult
	Amount   decimal.Decimal
	Status   entity.QuoteStatus
	Progress *quoting.ProgressSnapshot
	Stale    bool // la re-lectura posterior a la escritura falló
}

// Notifier recibe los eventos de éxito y error.
type Notifier interface {
	Notify(ev Event)
}

// NopNotifier descarta los eventos.
type NopNotifier struct{}

// Notify no hace nada.
func (NopNotifier) Notify(Event) {}
