package quote_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Cotizaciones-api/internal/application/quote"
	"github.com/jhoicas/Cotizaciones-api/internal/domain"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Store en memoria: implementa QuoteRepository, InvoiceRepository y QuotingTxRunner
// ──────────────────────────────────────────────────────────────────────────────

type memStore struct {
	mu       sync.Mutex
	quotes   map[string]*entity.Quote
	invoices []*entity.Invoice
}

func newMemStore() *memStore {
	return &memStore{quotes: map[string]*entity.Quote{}}
}

type memQuotes struct{ s *memStore }
type memInvoices struct{ s *memStore }

func (m *memStore) Quotes() repository.QuoteRepository     { return memQuotes{m} }
func (m *memStore) Invoices() repository.InvoiceRepository { return memInvoices{m} }

func (m *memStore) RunQuoting(ctx context.Context, fn func(repository.QuoteRepository, repository.InvoiceRepository) error) error {
	return fn(m.Quotes(), m.Invoices())
}

// seed guarda una cotización con una línea y total final dado.
func (m *memStore) seed(id, companyID string, status entity.QuoteStatus, total string) *entity.Quote {
	t := decimal.RequireFromString(total)
	q := &entity.Quote{
		ID:            id,
		CompanyID:     companyID,
		ClientName:    "ACME S.A.S.",
		Prefix:        "COT",
		Number:        len(m.quotes) + 1,
		Status:        status,
		TotalTTC:      t,
		FinalTotalTTC: &t,
		Items: []entity.QuoteItem{
			{ID: id + "-1", QuoteID: id, Description: "Servicio", Quantity: decimal.NewFromInt(1), UnitPrice: t},
		},
	}
	m.mu.Lock()
	m.quotes[id] = q
	m.mu.Unlock()
	return q
}

func (m *memStore) addInvoice(quoteID, companyID string, status entity.InvoiceStatus, amount string) *entity.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv := &entity.Invoice{
		ID:            quoteID + "-inv-" + amount,
		CompanyID:     companyID,
		QuoteID:       quoteID,
		Prefix:        "FAC",
		Number:        len(m.invoices) + 1,
		Status:        status,
		FinalTotalTTC: decimal.RequireFromString(amount),
		IssueDate:     time.Now(),
	}
	m.invoices = append(m.invoices, inv)
	return inv
}

func (r memQuotes) Create(_ context.Context, q *entity.Quote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.quotes[q.ID]; ok {
		return domain.ErrDuplicate
	}
	cp := *q
	cp.Items = nil
	r.s.quotes[q.ID] = &cp
	return nil
}

func (r memQuotes) CreateItem(_ context.Context, item *entity.QuoteItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.quotes[item.QuoteID]
	if !ok {
		return domain.ErrNotFound
	}
	q.Items = append(q.Items, *item)
	return nil
}

func (r memQuotes) GetByID(_ context.Context, id string) (*entity.Quote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.quotes[id]
	if !ok {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

func (r memQuotes) GetForUpdate(ctx context.Context, id string) (*entity.Quote, error) {
	return r.GetByID(ctx, id)
}

func (r memQuotes) ListByCompany(_ context.Context, companyID string) ([]*entity.Quote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Quote
	for _, q := range r.s.quotes {
		if q.CompanyID == companyID {
			cp := *q
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r memQuotes) UpdateStatus(_ context.Context, id string, status entity.QuoteStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.quotes[id]
	if !ok {
		return domain.ErrNotFound
	}
	q.Status = status
	return nil
}

func (r memQuotes) Update(_ context.Context, q *entity.Quote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.quotes[q.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *q
	cp.Items = cur.Items
	cp.LinkedInvoices = nil
	r.s.quotes[q.ID] = &cp
	return nil
}

func (r memQuotes) DeleteItems(_ context.Context, quoteID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if q, ok := r.s.quotes[quoteID]; ok {
		q.Items = nil
	}
	return nil
}

func (r memQuotes) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.quotes, id)
	return nil
}

func (r memQuotes) NextNumber(_ context.Context, companyID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	max := 0
	for _, q := range r.s.quotes {
		if q.CompanyID == companyID && q.Number > max {
			max = q.Number
		}
	}
	return max + 1, nil
}

func (r memInvoices) Create(_ context.Context, inv *entity.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *inv
	r.s.invoices = append(r.s.invoices, &cp)
	return nil
}

func (r memInvoices) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invoices {
		if inv.ID == id {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memInvoices) ListByQuoteID(_ context.Context, quoteID string) ([]*entity.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Invoice
	for _, inv := range r.s.invoices {
		if inv.QuoteID == quoteID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memInvoices) ListByCompany(_ context.Context, companyID string) ([]*entity.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Invoice
	for _, inv := range r.s.invoices {
		if inv.CompanyID == companyID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memInvoices) UpdateStatus(_ context.Context, id string, status entity.InvoiceStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invoices {
		if inv.ID == id {
			inv.Status = status
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r memInvoices) NextNumber(_ context.Context, companyID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	max := 0
	for _, inv := range r.s.invoices {
		if inv.CompanyID == companyID && inv.Number > max {
			max = inv.Number
		}
	}
	return max + 1, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Locker falso
// ──────────────────────────────────────────────────────────────────────────────

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	released int
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: map[string]bool{}} }

type fakeLock struct {
	l   *fakeLocker
	key string
}

func (l *fakeLocker) Obtain(_ context.Context, key string, _ time.Duration) (quote.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrConflict
	}
	l.held[key] = true
	return &fakeLock{l: l, key: key}, nil
}

func (k *fakeLock) Release(context.Context) error {
	k.l.mu.Lock()
	defer k.l.mu.Unlock()
	if k.l.held[k.key] {
		delete(k.l.held, k.key)
		k.l.released++
	}
	return nil
}
