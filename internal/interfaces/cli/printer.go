// Package cli arma los textos que quotectl muestra: eventos del orquestador de
// conversión, propuesta del diálogo y avance del polling, con montos y
// porcentajes formateados según el locale (API_LOCALE).
package cli

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/number"

	"github.com/jhoicas/Cotizaciones-api/internal/application/conversion"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/quoting"
)

// Claves del catálogo.
const (
	keyConverted     = "converted"
	keyStale         = "stale"
	keyStatusChanged = "status_changed"
	keyCapReached    = "invoice_cap_reached"
	keyDeposit       = "deposit_not_allowed"
	keyNoBalance     = "no_remaining_balance"
	keyOutOfRange    = "percentage_out_of_range"
	keyTransition    = "invalid_transition"
	keyFetchFailed   = "fetch_failed"
	keyNetwork       = "network_error"
	keyHeader        = "header"
	keyProgress      = "progress"
	keyProposal      = "proposal"
	keyProposalLast  = "proposal_last"
	keyCannotCreate  = "cannot_create"
	keyActions       = "actions"
	keyFullyPaid     = "fully_paid"
	keyPollFailed    = "poll_failed"
)

var supported = []language.Tag{language.Spanish, language.English}

var matcher = language.NewMatcher(supported)

var messages = map[language.Tag]map[string]string{
	language.Spanish: {
		keyConverted:     "Factura %s creada por %s.",
		keyStale:         "No se pudo actualizar el avance; vuelva a consultar la cotización.",
		keyStatusChanged: "La cotización pasó a %s.",
		keyCapReached:    "La cotización ya tiene el máximo de %d facturas.",
		keyDeposit:       "Solo la primera factura puede ser un anticipo.",
		keyNoBalance:     "La cotización no tiene saldo pendiente por facturar.",
		keyOutOfRange:    "El porcentaje %d%% debe estar entre %d%% y %d%%.",
		keyTransition:    "La acción no está disponible en el estado actual.",
		keyFetchFailed:   "No se pudo leer la cotización: %s",
		keyNetwork:       "Error de comunicación con el servidor: %s",
		keyHeader:        "%s · %s · %s",
		keyProgress:      "Facturado %s de %s (%s%%) · cobrado %s (%s%%) · saldo %s (%s%%) · %d/%d facturas",
		keyProposal:      "Propuesta: %d%% = %s (entre %d%% y %d%%)",
		keyProposalLast:  "Última factura: saldo restante %s (%d%%)",
		keyCannotCreate:  "No se pueden crear más facturas.",
		keyActions:       "Acciones: %s",
		keyFullyPaid:     "Cotización totalmente pagada.",
		keyPollFailed:    "Lectura fallida: %s",
	},
	language.English: {
		keyConverted:     "Invoice %s created for %s.",
		keyStale:         "Progress could not be refreshed; reload the quote.",
		keyStatusChanged: "Quote moved to %s.",
		keyCapReached:    "The quote already has the maximum of %d invoices.",
		keyDeposit:       "Only the first invoice can be a deposit.",
		keyNoBalance:     "The quote has no remaining balance to invoice.",
		keyOutOfRange:    "Percentage %d%% must be between %d%% and %d%%.",
		keyTransition:    "The action is not available in the current status.",
		keyFetchFailed:   "Could not read the quote: %s",
		keyNetwork:       "Could not reach the server: %s",
		keyHeader:        "%s · %s · %s",
		keyProgress:      "Invoiced %s of %s (%s%%) · collected %s (%s%%) · remaining %s (%s%%) · %d/%d invoices",
		keyProposal:      "Proposal: %d%% = %s (between %d%% and %d%%)",
		keyProposalLast:  "Last invoice: remaining balance %s (%d%%)",
		keyCannotCreate:  "No more invoices can be created.",
		keyActions:       "Actions: %s",
		keyFullyPaid:     "Quote fully paid.",
		keyPollFailed:    "Read failed: %s",
	},
}

var cat = newCatalog()

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.Spanish))
	for tag, msgs := range messages {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Printer traduce y formatea para un locale.
type Printer struct {
	p *message.Printer
}

// NewPrinter locale BCP 47 (es-CO, en-US...). Un locale inválido o sin
// catálogo usa español.
func NewPrinter(locale string) *Printer {
	return &Printer{p: message.NewPrinter(resolveTag(locale), message.Catalog(cat))}
}

func resolveTag(locale string) language.Tag {
	t, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return language.Spanish
	}
	if _, _, conf := matcher.Match(t); conf == language.No {
		return language.Spanish
	}
	return t
}

// Amount monto con dos decimales y separadores del locale.
func (p *Printer) Amount(d decimal.Decimal) string {
	return p.p.Sprintf("%v", number.Decimal(quoting.RoundCurrency(d).InexactFloat64(), number.Scale(2)))
}

// Percent porcentaje con un decimal, sin el signo.
func (p *Printer) Percent(d decimal.Decimal) string {
	return p.p.Sprintf("%v", number.Decimal(d.InexactFloat64(), number.Scale(1)))
}

// Event texto de un evento del orquestador. Un rechazo del servidor con
// mensaje se muestra tal cual.
func (p *Printer) Event(ev conversion.Event) string {
	switch ev.Kind {
	case conversion.EventConverted:
		ref := ""
		if ev.Result != nil {
			ref = reference(ev.Result.Prefix, ev.Result.Number)
		}
		out := p.p.Sprintf(keyConverted, ref, p.Amount(ev.Amount))
		if ev.Stale {
			return out + "\n" + p.p.Sprintf(keyStale)
		}
		if ev.Progress != nil {
			out += "\n" + p.progress(*ev.Progress)
		}
		return out
	case conversion.EventStatusChanged:
		return p.p.Sprintf(keyStatusChanged, string(ev.Status))
	case conversion.EventFailed:
		if ev.Code == conversion.CodeFetchFailed {
			return p.p.Sprintf(keyFetchFailed, ev.Message)
		}
		if ev.Code == conversion.CodeNetworkError {
			return p.p.Sprintf(keyNetwork, ev.Message)
		}
		if ev.Message != "" {
			return ev.Message
		}
	}
	return p.rejection(ev)
}

func (p *Printer) rejection(ev conversion.Event) string {
	switch ev.Code {
	case quoting.CodeInvoiceCapReached:
		return p.p.Sprintf(keyCapReached, quoting.MaxInvoicesPerQuote)
	case quoting.CodeDepositNotAllowed:
		return p.p.Sprintf(keyDeposit)
	case quoting.CodeNoRemainingBalance:
		return p.p.Sprintf(keyNoBalance)
	case quoting.CodePercentageOutOfRange:
		return p.p.Sprintf(keyOutOfRange, ev.Values["requested"], ev.Values["min"], ev.Values["ceiling"])
	}
	return p.p.Sprintf(keyTransition)
}

// Proposal resumen del diálogo después de Open.
func (p *Printer) Proposal(v conversion.View) string {
	if v.Quote == nil {
		return ""
	}
	lines := []string{
		p.p.Sprintf(keyHeader, v.Quote.Reference(), v.Quote.ClientName, string(v.Quote.Status)),
		p.progress(v.Progress),
	}
	d := v.Defaults
	switch {
	case v.FullyPaid:
		lines = append(lines, p.p.Sprintf(keyFullyPaid))
	case !d.CanCreate:
		lines = append(lines, p.p.Sprintf(keyCannotCreate))
	case d.UseRemainingBalance:
		lines = append(lines, p.p.Sprintf(keyProposalLast, p.Amount(d.Amount), d.Percentage))
	default:
		lines = append(lines, p.p.Sprintf(keyProposal, d.Percentage, p.Amount(d.Amount), d.MinPercentage, d.MaxPercentage))
	}
	if len(v.Actions) > 0 {
		lines = append(lines, p.p.Sprintf(keyActions, joinActions(v.Actions)))
	}
	return strings.Join(lines, "\n")
}

// Poll línea del panel de progreso para una lectura del poller.
func (p *Printer) Poll(u conversion.PollUpdate) string {
	if u.Err != nil {
		return p.p.Sprintf(keyPollFailed, u.Err.Error())
	}
	out := p.progress(u.Progress)
	if u.FullyPaid {
		out += "\n" + p.p.Sprintf(keyFullyPaid)
	}
	return out
}

func (p *Printer) progress(s quoting.ProgressSnapshot) string {
	return p.p.Sprintf(keyProgress,
		p.Amount(s.InvoicedAmount), p.Amount(s.QuoteTotal), p.Percent(s.InvoicedPercentage),
		p.Amount(s.CompletedAmount), p.Percent(s.CompletedPercentage),
		p.Amount(s.RemainingAmount), p.Percent(s.RemainingPercentage),
		s.InvoiceCount, quoting.MaxInvoicesPerQuote,
	)
}

func reference(prefix string, n int) string {
	if prefix == "" {
		return "#" + strconv.Itoa(n)
	}
	return prefix + "-" + strconv.Itoa(n)
}

func joinActions(actions []quoting.Action) string {
	s := make([]string, len(actions))
	for i, a := range actions {
		s[i] = string(a)
	}
	return strings.Join(s, ", ")
}
