package quote

import (
	"github.com/jhoicas/Cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/quoting"
)

const dateLayout = "2006-01-02"

func toQuoteResponse(q *entity.Quote) *dto.QuoteResponse {
	res := &dto.QuoteResponse{
		ID:             q.ID,
		CompanyID:      q.CompanyID,
		ClientName:     q.ClientName,
		Prefix:         q.Prefix,
		Number:         q.Number,
		Reference:      q.Reference(),
		Status:         string(q.Status),
		IssueDate:      q.IssueDate.Format(dateLayout),
		TotalHT:        q.TotalHT,
		TotalVAT:       q.TotalVAT,
		TotalTTC:       q.TotalTTC,
		FinalTotalHT:   q.FinalTotalHT,
		FinalTotalTTC:  q.FinalTotalTTC,
		Items:          make([]dto.QuoteItemResponse, 0, len(q.Items)),
		LinkedInvoices: make([]dto.LinkedInvoiceResponse, 0, len(q.LinkedInvoices)),
	}
	if !q.ValidUntil.IsZero() {
		res.ValidUntil = q.ValidUntil.Format(dateLayout)
	}
	if q.Discount.Type != "" {
		res.Discount = &dto.DiscountResponse{Type: q.Discount.Type, Value: q.Discount.Value}
	}
	for _, it := range q.Items {
		res.Items = append(res.Items, dto.QuoteItemResponse{
			ID:          it.ID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			VATRate:     it.VATRate,
		})
	}
	for _, l := range q.LinkedInvoices {
		res.LinkedInvoices = append(res.LinkedInvoices, dto.LinkedInvoiceResponse{
			ID:            l.ID,
			Prefix:        l.Prefix,
			Number:        l.Number,
			Status:        string(l.Status),
			FinalTotalTTC: l.FinalTotalTTC,
			IsDeposit:     l.IsDeposit,
		})
	}
	return res
}

func toInvoiceResponse(inv *entity.Invoice) dto.InvoiceResponse {
	return dto.InvoiceResponse{
		ID:            inv.ID,
		CompanyID:     inv.CompanyID,
		QuoteID:       inv.QuoteID,
		Prefix:        inv.Prefix,
		Number:        inv.Number,
		Status:        string(inv.Status),
		IsDeposit:     inv.IsDeposit,
		Percentage:    inv.Percentage,
		FinalTotalTTC: inv.FinalTotalTTC,
		IssueDate:     inv.IssueDate.Format(dateLayout),
	}
}

func toProgressResponse(quoteID string, p quoting.ProgressSnapshot, fullyPaid bool) *dto.ProgressResponse {
	return &dto.ProgressResponse{
		QuoteID:             quoteID,
		QuoteTotal:          p.QuoteTotal,
		InvoicedAmount:      p.InvoicedAmount,
		InvoicedPercentage:  p.InvoicedPercentage,
		CompletedAmount:     p.CompletedAmount,
		CompletedPercentage: p.CompletedPercentage,
		RemainingAmount:     p.RemainingAmount,
		RemainingPercentage: p.RemainingPercentage,
		InvoiceCount:        p.InvoiceCount,
		IsFullyPaid:         fullyPaid,
	}
}

func toAllocationResponse(quoteID string, a quoting.AllocationDefaults) *dto.AllocationResponse {
	return &dto.AllocationResponse{
		QuoteID:             quoteID,
		Percentage:          a.Percentage,
		MinPercentage:       a.MinPercentage,
		MaxPercentage:       a.MaxPercentage,
		Amount:              a.Amount,
		UseRemainingBalance: a.UseRemainingBalance,
		DepositAllowed:      a.DepositAllowed,
		CanCreate:           a.CanCreate,
		InvoiceCount:        a.InvoiceCount,
		InvoicedAmount:      a.InvoicedAmount,
		RemainingAmount:     a.RemainingAmount,
		RemainingPercentage: a.RemainingPercentage,
	}
}

func linkAll(invoices []*entity.Invoice) []entity.LinkedInvoice {
	linked := make([]entity.LinkedInvoice, 0, len(invoices))
	for _, inv := range invoices {
		linked = append(linked, inv.Link())
	}
	return linked
}
