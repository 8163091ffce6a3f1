package analytics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Cotizaciones-api/internal/application/analytics"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/repository"
)

// Los fakes solo implementan ListByCompany; el resto del puerto queda nil.
type stubQuotes struct {
	repository.QuoteRepository
	quotes []*entity.Quote
	err    error
}

func (s stubQuotes) ListByCompany(context.Context, string) ([]*entity.Quote, error) {
	return s.quotes, s.err
}

type stubInvoices struct {
	repository.InvoiceRepository
	invoices []*entity.Invoice
}

func (s stubInvoices) ListByCompany(context.Context, string) ([]*entity.Invoice, error) {
	return s.invoices, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func quoteWith(id string, status entity.QuoteStatus, total string) *entity.Quote {
	t := dec(total)
	return &entity.Quote{ID: id, Status: status, TotalTTC: t, FinalTotalTTC: &t}
}

func invoiceOf(quoteID string, status entity.InvoiceStatus, amount string, issued time.Time) *entity.Invoice {
	return &entity.Invoice{ID: quoteID + amount, QuoteID: quoteID, Status: status, FinalTotalTTC: dec(amount), IssueDate: issued}
}

func TestGetSummary_AgregaAvancePorCotizacion(t *testing.T) {
	now := time.Now()
	lastYear := now.AddDate(-1, 0, 0)

	uc := analytics.NewDashboardUseCase(
		stubQuotes{quotes: []*entity.Quote{
			quoteWith("q1", entity.QuoteStatusCompleted, "1000"),
			quoteWith("q2", entity.QuoteStatusCompleted, "500"),
			quoteWith("q3", entity.QuoteStatusDraft, "800"),
			quoteWith("q4", entity.QuoteStatusCanceled, "100"),
		}},
		stubInvoices{invoices: []*entity.Invoice{
			invoiceOf("q1", entity.InvoiceStatusCompleted, "300", now),
			invoiceOf("q1", entity.InvoiceStatusPending, "200", lastYear),
			invoiceOf("q2", entity.InvoiceStatusCompleted, "500", lastYear),
		}},
	)

	s, err := uc.GetSummary(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, 2, s.QuotesByStatus["COMPLETED"])
	assert.Equal(t, 1, s.QuotesByStatus["DRAFT"])
	assert.Equal(t, 1, s.QuotesByStatus["CANCELED"])
	assert.Equal(t, 0, s.QuotesByStatus["PENDING"])

	assert.True(t, dec("1500").Equal(s.QuotedTotal))
	assert.True(t, dec("1000").Equal(s.InvoicedTotal))
	assert.True(t, dec("800").Equal(s.CollectedTotal))
	assert.True(t, dec("500").Equal(s.RemainingTotal))
	assert.Equal(t, 1, s.FullyPaidCount)

	assert.True(t, dec("300").Equal(s.MonthlyInvoiced))
	assert.Equal(t, 1, s.MonthlyCount)
	assert.NotEmpty(t, s.DateLabel)
}

func TestGetSummary_ErrorDeRepositorio(t *testing.T) {
	uc := analytics.NewDashboardUseCase(stubQuotes{err: errors.New("db caída")}, stubInvoices{})
	_, err := uc.GetSummary(context.Background(), "c1")
	assert.Error(t, err)
}
