package dto

import "github.com/shopspring/decimal"

// CreateQuoteRequest body para POST /api/quotes.
// Las fechas van en formato YYYY-MM-DD; si IssueDate va vacía se usa la fecha actual.
type CreateQuoteRequest struct {
	ClientName string             `json:"client_name" validate:"required,max=200"`
	IssueDate  string             `json:"issue_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ValidUntil string             `json:"valid_until,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Discount   *DiscountRequest   `json:"discount,omitempty"`
	Items      []QuoteItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateQuoteRequest body para PATCH /api/quotes/:id. Solo se cambian los
// campos enviados; Items, si viene, reemplaza todas las líneas.
type UpdateQuoteRequest struct {
	ClientName *string            `json:"client_name,omitempty" validate:"omitempty,max=200"`
	IssueDate  *string            `json:"issue_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ValidUntil *string            `json:"valid_until,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Discount   *DiscountRequest   `json:"discount,omitempty"`
	Items      []QuoteItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

// DiscountRequest descuento global sobre el subtotal.
type DiscountRequest struct {
	Type  string          `json:"type" validate:"required,oneof=AMOUNT PERCENTAGE"`
	Value decimal.Decimal `json:"value"`
}

// QuoteItemRequest línea de la cotización.
type QuoteItemRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"` // porcentaje, ej. 19
}

// QuoteResponse cotización con líneas y facturas vinculadas (GET /api/quotes/:id).
type QuoteResponse struct {
	ID             string                  `json:"id"`
	CompanyID      string                  `json:"company_id"`
	ClientName     string                  `json:"client_name"`
	Prefix         string                  `json:"prefix"`
	Number         int                     `json:"number"`
	Reference      string                  `json:"reference"`
	Status         string                  `json:"status"`
	IssueDate      string                  `json:"issue_date"`
	ValidUntil     string                  `json:"valid_until,omitempty"`
	TotalHT        decimal.Decimal         `json:"total_ht"`
	TotalVAT       decimal.Decimal         `json:"total_vat"`
	TotalTTC       decimal.Decimal         `json:"total_ttc"`
	FinalTotalHT   decimal.Decimal         `json:"final_total_ht"`
	FinalTotalTTC  *decimal.Decimal        `json:"final_total_ttc"`
	Discount       *DiscountResponse       `json:"discount,omitempty"`
	Items          []QuoteItemResponse     `json:"items"`
	LinkedInvoices []LinkedInvoiceResponse `json:"linked_invoices"`
}

// DiscountResponse descuento aplicado.
type DiscountResponse struct {
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// QuoteItemResponse línea en la respuesta.
type QuoteItemResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
}

// LinkedInvoiceResponse factura vista desde su cotización.
type LinkedInvoiceResponse struct {
	ID            string           `json:"id"`
	Prefix        string           `json:"prefix"`
	Number        int              `json:"number"`
	Status        string           `json:"status"`
	FinalTotalTTC *decimal.Decimal `json:"final_total_ttc"`
	IsDeposit     bool             `json:"is_deposit"`
}

// ProgressResponse avance de facturación (GET /api/quotes/:id/progress).
type ProgressResponse struct {
	QuoteID             string          `json:"quote_id"`
	QuoteTotal          decimal.Decimal `json:"quote_total"`
	InvoicedAmount      decimal.Decimal `json:"invoiced_amount"`
	InvoicedPercentage  decimal.Decimal `json:"invoiced_percentage"`
	CompletedAmount     decimal.Decimal `json:"completed_amount"`
	CompletedPercentage decimal.Decimal `json:"completed_percentage"`
	RemainingAmount     decimal.Decimal `json:"remaining_amount"`
	RemainingPercentage decimal.Decimal `json:"remaining_percentage"`
	InvoiceCount        int             `json:"invoice_count"`
	IsFullyPaid         bool            `json:"is_fully_paid"`
}

// AllocationResponse valores por defecto del diálogo de creación de factura
// (GET /api/quotes/:id/allocation?hint=).
type AllocationResponse struct {
	QuoteID             string          `json:"quote_id"`
	Percentage          int             `json:"percentage"`
	MinPercentage       int             `json:"min_percentage"`
	MaxPercentage       int             `json:"max_percentage"`
	Amount              decimal.Decimal `json:"amount"`
	UseRemainingBalance bool            `json:"use_remaining_balance"`
	DepositAllowed      bool            `json:"deposit_allowed"`
	CanCreate           bool            `json:"can_create"`
	InvoiceCount        int             `json:"invoice_count"`
	InvoicedAmount      decimal.Decimal `json:"invoiced_amount"`
	RemainingAmount     decimal.Decimal `json:"remaining_amount"`
	RemainingPercentage decimal.Decimal `json:"remaining_percentage"`
}

// ActionsResponse acciones disponibles (GET /api/quotes/:id/actions).
type ActionsResponse struct {
	QuoteID string   `json:"quote_id"`
	Status  string   `json:"status"`
	Actions []string `json:"actions"`
}

// ChangeQuoteStatusRequest body para PATCH /api/quotes/:id/status.
type ChangeQuoteStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING COMPLETED CANCELED"`
}

// QuoteStatusResponse respuesta del cambio de estado.
type QuoteStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ConvertQuoteRequest body para POST /api/quotes/:id/invoices.
// Cada porcentaje genera una factura, en orden.
type ConvertQuoteRequest struct {
	DistributionPercentages []int `json:"distribution_percentages" validate:"required,min=1,max=3,dive,min=1,max=100"`
	IsDeposit               bool  `json:"is_deposit,omitempty"`
	UseRemainingBalance     bool  `json:"use_remaining_balance,omitempty"`
	SkipValidation          bool  `json:"skip_validation,omitempty"`
}

// ConvertQuoteResponse primera factura creada (invoice_id, number, prefix) y el detalle completo.
type ConvertQuoteResponse struct {
	InvoiceID string            `json:"invoice_id"`
	Number    int               `json:"number"`
	Prefix    string            `json:"prefix"`
	Invoices  []InvoiceResponse `json:"invoices"`
}
