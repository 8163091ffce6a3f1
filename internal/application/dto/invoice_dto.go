package dto

import "github.com/shopspring/decimal"

// InvoiceResponse factura generada desde una cotización (GET /api/invoices/:id).
type InvoiceResponse struct {
	ID            string          `json:"id"`
	CompanyID     string          `json:"company_id"`
	QuoteID       string          `json:"quote_id"`
	Prefix        string          `json:"prefix"`
	Number        int             `json:"number"`
	Status        string          `json:"status"`
	IsDeposit     bool            `json:"is_deposit"`
	Percentage    decimal.Decimal `json:"percentage"`
	FinalTotalTTC decimal.Decimal `json:"final_total_ttc"`
	IssueDate     string          `json:"issue_date"`
}

// UpdateInvoiceStatusRequest body para PATCH /api/invoices/:id/status.
// Solo avanza: DRAFT → PENDING → COMPLETED.
type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING COMPLETED"`
}
