package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, company_id, quote_id, prefix, number, status, is_deposit,
	percentage, final_total_ttc, issue_date, created_at, updated_at`

// Create persiste la factura.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	now := time.Now()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	query := `INSERT INTO quote_invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.CompanyID, inv.QuoteID, inv.Prefix, inv.Number, inv.Status, inv.IsDeposit,
		inv.Percentage, inv.FinalTotalTTC, inv.IssueDate, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice number already exists: %w", err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID obtiene una factura por ID; (nil, nil) si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM quote_invoices WHERE id = $1`
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// ListByQuoteID facturas de la cotización en orden de creación.
func (r *InvoiceRepo) ListByQuoteID(ctx context.Context, quoteID string) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM quote_invoices WHERE quote_id = $1 ORDER BY created_at, number`
	return r.list(ctx, query, quoteID)
}

// ListByCompany todas las facturas de la empresa.
func (r *InvoiceRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM quote_invoices WHERE company_id = $1 ORDER BY created_at`
	return r.list(ctx, query, companyID)
}

// UpdateStatus cambia el estado de cobro.
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, id string, status entity.InvoiceStatus) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE quote_invoices SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update invoice status: %w", pgx.ErrNoRows)
	}
	return nil
}

// NextNumber siguiente consecutivo de factura de la empresa. Dentro de una tx
// bloquea el contador hasta el commit.
func (r *InvoiceRepo) NextNumber(ctx context.Context, companyID string) (int, error) {
	return nextSequence(ctx, r.q, companyID, "invoice")
}

func (r *InvoiceRepo) list(ctx context.Context, query string, arg string) ([]*entity.Invoice, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.QuoteID, &inv.Prefix, &inv.Number, &inv.Status, &inv.IsDeposit,
		&inv.Percentage, &inv.FinalTotalTTC, &inv.IssueDate, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// nextSequence incrementa el contador (company_id, kind) y devuelve el nuevo valor.
func nextSequence(ctx context.Context, q Querier, companyID, kind string) (int, error) {
	const query = `
		INSERT INTO document_sequences (company_id, kind, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (company_id, kind)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number`
	var n int
	if err := q.QueryRow(ctx, query, companyID, kind).Scan(&n); err != nil {
		return 0, fmt.Errorf("next %s number: %w", kind, err)
	}
	return n, nil
}
