package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/repository"
)

var _ repository.QuoteRepository = (*QuoteRepo)(nil)

// QuoteRepo implementación de QuoteRepository (usable con pool o tx).
type QuoteRepo struct {
	q Querier
}

// NewQuoteRepository construye el adaptador. Pasar pool o tx (Querier).
func NewQuoteRepository(q Querier) *QuoteRepo {
	return &QuoteRepo{q: q}
}

const quoteColumns = `id, company_id, client_name, prefix, number, status, issue_date, valid_until,
	total_ht, total_vat, total_ttc, final_total_ht, final_total_ttc,
	discount_type, discount_value, created_at, updated_at`

// Create persiste la cabecera de la cotización (las líneas van con CreateItem).
func (r *QuoteRepo) Create(ctx context.Context, q *entity.Quote) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	now := time.Now()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now
	query := `INSERT INTO quotes (` + quoteColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		q.ID, q.CompanyID, q.ClientName, q.Prefix, q.Number, q.Status, q.IssueDate, q.ValidUntil,
		q.TotalHT, q.TotalVAT, q.TotalTTC, q.FinalTotalHT, q.FinalTotalTTC,
		nullIfEmpty(q.Discount.Type), q.Discount.Value, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("quote number already exists: %w", err)
		}
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

// CreateItem persiste una línea.
func (r *QuoteRepo) CreateItem(ctx context.Context, item *entity.QuoteItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	query := `
		INSERT INTO quote_items (id, quote_id, description, quantity, unit_price, vat_rate, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.QuoteID, item.Description, item.Quantity, item.UnitPrice, item.VATRate, item.Position,
	)
	if err != nil {
		return fmt.Errorf("insert quote item: %w", err)
	}
	return nil
}

// GetByID cabecera con líneas; (nil, nil) si no existe.
func (r *QuoteRepo) GetByID(ctx context.Context, id string) (*entity.Quote, error) {
	return r.get(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id)
}

// GetForUpdate como GetByID pero con la fila bloqueada hasta el fin de la tx.
func (r *QuoteRepo) GetForUpdate(ctx context.Context, id string) (*entity.Quote, error) {
	return r.get(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1 FOR UPDATE`, id)
}

func (r *QuoteRepo) get(ctx context.Context, query, id string) (*entity.Quote, error) {
	q, err := scanQuote(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get quote: %w", err)
	}
	items, err := r.items(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	q.Items = items
	return q, nil
}

// ListByCompany cabeceras de la empresa, sin líneas.
func (r *QuoteRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.Quote, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE company_id = $1 ORDER BY number DESC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()
	var list []*entity.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		list = append(list, q)
	}
	return list, rows.Err()
}

// UpdateStatus cambia el estado.
func (r *QuoteRepo) UpdateStatus(ctx context.Context, id string, status entity.QuoteStatus) error {
	_, err := r.q.Exec(ctx, `UPDATE quotes SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update quote status: %w", err)
	}
	return nil
}

// Update reescribe los campos editables de la cabecera.
func (r *QuoteRepo) Update(ctx context.Context, q *entity.Quote) error {
	q.UpdatedAt = time.Now()
	query := `
		UPDATE quotes SET client_name = $2, issue_date = $3, valid_until = $4,
			total_ht = $5, total_vat = $6, total_ttc = $7, final_total_ht = $8, final_total_ttc = $9,
			discount_type = $10, discount_value = $11, updated_at = $12
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		q.ID, q.ClientName, q.IssueDate, q.ValidUntil,
		q.TotalHT, q.TotalVAT, q.TotalTTC, q.FinalTotalHT, q.FinalTotalTTC,
		nullIfEmpty(q.Discount.Type), q.Discount.Value, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update quote: %w", err)
	}
	return nil
}

// DeleteItems borra todas las líneas de la cotización.
func (r *QuoteRepo) DeleteItems(ctx context.Context, quoteID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1`, quoteID); err != nil {
		return fmt.Errorf("delete quote items: %w", err)
	}
	return nil
}

// Delete elimina la cotización; las líneas caen por ON DELETE CASCADE.
func (r *QuoteRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	return nil
}

// NextNumber siguiente consecutivo de cotización de la empresa.
func (r *QuoteRepo) NextNumber(ctx context.Context, companyID string) (int, error) {
	return nextSequence(ctx, r.q, companyID, "quote")
}

func (r *QuoteRepo) items(ctx context.Context, quoteID string) ([]entity.QuoteItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, quote_id, description, quantity, unit_price, vat_rate, position
		FROM quote_items WHERE quote_id = $1 ORDER BY position`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("list quote items: %w", err)
	}
	defer rows.Close()
	var items []entity.QuoteItem
	for rows.Next() {
		var it entity.QuoteItem
		if err := rows.Scan(&it.ID, &it.QuoteID, &it.Description, &it.Quantity, &it.UnitPrice, &it.VATRate, &it.Position); err != nil {
			return nil, fmt.Errorf("scan quote item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (*entity.Quote, error) {
	var (
		q            entity.Quote
		finalTTC     decimal.NullDecimal
		discountType *string
	)
	err := row.Scan(
		&q.ID, &q.CompanyID, &q.ClientName, &q.Prefix, &q.Number, &q.Status, &q.IssueDate, &q.ValidUntil,
		&q.TotalHT, &q.TotalVAT, &q.TotalTTC, &q.FinalTotalHT, &finalTTC,
		&discountType, &q.Discount.Value, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if finalTTC.Valid {
		v := finalTTC.Decimal
		q.FinalTotalTTC = &v
	}
	q.Discount.Type = derefStr(discountType)
	return &q, nil
}
