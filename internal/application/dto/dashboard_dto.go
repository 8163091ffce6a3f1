package dto

import "github.com/shopspring/decimal"

// DashboardSummaryDTO respuesta de GET /api/dashboard/summary.
// Resume la facturación de las cotizaciones de la empresa.
type DashboardSummaryDTO struct {
	QuotesByStatus map[string]int `json:"quotes_by_status"` // DRAFT|PENDING|COMPLETED|CANCELED

	// Solo cotizaciones COMPLETED (las únicas facturables)
	QuotedTotal    decimal.Decimal `json:"quoted_total"`
	InvoicedTotal  decimal.Decimal `json:"invoiced_total"`
	CollectedTotal decimal.Decimal `json:"collected_total"` // facturas COMPLETED
	RemainingTotal decimal.Decimal `json:"remaining_total"`
	FullyPaidCount int             `json:"fully_paid_count"`

	// Facturas emitidas en el mes en curso
	MonthlyInvoiced decimal.Decimal `json:"monthly_invoiced"`
	MonthlyCount    int             `json:"monthly_count"`

	DateLabel string `json:"date_label"` // ej: "Febrero 2026"
}
