// Package analytics contiene los reportes de facturación de cotizaciones.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/quoting"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/repository"
)

// DashboardUseCase genera el resumen de facturación de la empresa.
//
// No consulta agregados en SQL: el avance de cada cotización se calcula con
// quoting.ComputeProgress, el mismo agregador que usa el panel de progreso.
type DashboardUseCase struct {
	quoteRepo   repository.QuoteRepository
	invoiceRepo repository.InvoiceRepository
	now         func() time.Time
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(quoteRepo repository.QuoteRepository, invoiceRepo repository.InvoiceRepository) *DashboardUseCase {
	return &DashboardUseCase{quoteRepo: quoteRepo, invoiceRepo: invoiceRepo, now: time.Now}
}

// GetSummary construye el DashboardSummaryDTO para la empresa indicada.
//
// Dos lecturas en paralelo (cotizaciones y facturas de la empresa); luego se
// agrupan las facturas por cotización.
func (uc *DashboardUseCase) GetSummary(ctx context.Context, companyID string) (*dto.DashboardSummaryDTO, error) {
	now := uc.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var (
		quotes   []*entity.Quote
		invoices []*entity.Invoice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quotes, err = uc.quoteRepo.ListByCompany(gctx, companyID)
		if err != nil {
			return fmt.Errorf("dashboard: cotizaciones: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		invoices, err = uc.invoiceRepo.ListByCompany(gctx, companyID)
		if err != nil {
			return fmt.Errorf("dashboard: facturas: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byQuote := make(map[string][]entity.LinkedInvoice, len(quotes))
	monthly := decimal.Zero
	monthlyCount := 0
	for _, inv := range invoices {
		byQuote[inv.QuoteID] = append(byQuote[inv.QuoteID], inv.Link())
		if !inv.IssueDate.Before(monthStart) {
			monthly = monthly.Add(quoting.RoundCurrency(inv.FinalTotalTTC))
			monthlyCount++
		}
	}

	summary := &dto.DashboardSummaryDTO{
		QuotesByStatus: map[string]int{
			string(entity.QuoteStatusDraft):     0,
			string(entity.QuoteStatusPending):   0,
			string(entity.QuoteStatusCompleted): 0,
			string(entity.QuoteStatusCanceled):  0,
		},
		QuotedTotal:     decimal.Zero,
		InvoicedTotal:   decimal.Zero,
		CollectedTotal:  decimal.Zero,
		RemainingTotal:  decimal.Zero,
		MonthlyInvoiced: quoting.RoundCurrency(monthly),
		MonthlyCount:    monthlyCount,
		DateLabel:       monthLabel(now),
	}
	for _, q := range quotes {
		summary.QuotesByStatus[string(q.Status)]++
		if q.Status != entity.QuoteStatusCompleted {
			continue
		}
		linked := byQuote[q.ID]
		p := quoting.ComputeProgress(q.BillableTotal(), linked)
		summary.QuotedTotal = summary.QuotedTotal.Add(p.QuoteTotal)
		summary.InvoicedTotal = summary.InvoicedTotal.Add(p.InvoicedAmount)
		summary.CollectedTotal = summary.CollectedTotal.Add(p.CompletedAmount)
		if p.HasRemainingBalance() {
			summary.RemainingTotal = summary.RemainingTotal.Add(p.RemainingAmount)
		}
		if p.IsFullyPaid(linked) {
			summary.FullyPaidCount++
		}
	}
	return summary, nil
}

// monthLabel devuelve una etiqueta legible del mes, ej: "Febrero 2026".
func monthLabel(t time.Time) string {
	months := [...]string{
		"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
		"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
	}
	return fmt.Sprintf("%s %d", months[t.Month()-1], t.Year())
}
