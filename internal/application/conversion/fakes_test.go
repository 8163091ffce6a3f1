package conversion_test

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Cotizaciones-api/internal/application/conversion"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// backend simula el servidor: lectura de la cotización y creación de facturas.
type backend struct {
	mu       sync.Mutex
	quote    entity.Quote
	fetches  int
	requests []conversion.ConversionRequest
	statuses []entity.QuoteStatus

	fetchBlock chan struct{} // si no es nil, FetchQuote espera a que se cierre o al ctx
	fetchErr   error
	writeBlock chan struct{}
	writeErr   error
	writeCtx   context.Context
	statusErr  error
	invoiceSeq int
}

func newBackend(status entity.QuoteStatus, total string, invoices ...entity.LinkedInvoice) *backend {
	t := dec(total)
	return &backend{quote: entity.Quote{
		ID:             "q1",
		ClientName:     "ACME",
		Status:         status,
		TotalTTC:       t,
		FinalTotalTTC:  &t,
		LinkedInvoices: invoices,
	}}
}

func invoice(status entity.InvoiceStatus, amount string) entity.LinkedInvoice {
	a := dec(amount)
	return entity.LinkedInvoice{ID: "inv-" + amount, Prefix: "FAC", Status: status, FinalTotalTTC: &a}
}

func (b *backend) FetchQuote(ctx context.Context, _ string, opts conversion.FetchOptions) (*entity.Quote, error) {
	b.mu.Lock()
	b.fetches++
	block := b.fetchBlock
	b.mu.Unlock()
	if !opts.BypassCache {
		panic("el orquestador siempre lee sin cache")
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	cp := b.quote
	cp.LinkedInvoices = append([]entity.LinkedInvoice(nil), b.quote.LinkedInvoices...)
	return &cp, nil
}

func (b *backend) ConvertQuoteToInvoice(ctx context.Context, _ string, req conversion.ConversionRequest) (*conversion.ConversionResult, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	block := b.writeBlock
	b.mu.Unlock()
	if block != nil {
		<-block
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeCtx = ctx
	if b.writeErr != nil {
		return nil, b.writeErr
	}
	total := b.quote.BillableTotal()
	var invoiced decimal.Decimal
	for _, l := range b.quote.LinkedInvoices {
		invoiced = invoiced.Add(l.Amount())
	}
	amount := total.Mul(decimal.NewFromInt(int64(req.DistributionPercentages[0]))).Div(decimal.NewFromInt(100)).Round(2)
	if req.UseRemainingBalance {
		amount = total.Sub(invoiced)
	}
	b.invoiceSeq++
	b.quote.LinkedInvoices = append(b.quote.LinkedInvoices, entity.LinkedInvoice{
		ID:            "new",
		Prefix:        "FAC",
		Number:        b.invoiceSeq,
		Status:        entity.InvoiceStatusDraft,
		FinalTotalTTC: &amount,
		IsDeposit:     req.IsDeposit,
	})
	return &conversion.ConversionResult{InvoiceID: "new", Number: b.invoiceSeq, Prefix: "FAC"}, nil
}

func (b *backend) ChangeQuoteStatus(_ context.Context, _ string, status entity.QuoteStatus) (entity.QuoteStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, status)
	if b.statusErr != nil {
		return "", b.statusErr
	}
	b.quote.Status = status
	return status, nil
}

func (b *backend) fetchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches
}

func (b *backend) requestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// recorder guarda eventos y transiciones.
type recorder struct {
	mu          sync.Mutex
	events      []conversion.Event
	transitions [][2]conversion.State
}

func (r *recorder) Notify(ev conversion.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) onTransition(from, to conversion.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, [2]conversion.State{from, to})
}

func (r *recorder) Events() []conversion.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]conversion.Event(nil), r.events...)
}

func (r *recorder) Transitions() [][2]conversion.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][2]conversion.State(nil), r.transitions...)
}
