// Package quote contiene los casos de uso del lado servidor: alta y lectura de
// cotizaciones, avance de facturación, cambios de estado y conversión a facturas.
package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/Cotizaciones-api/internal/domain"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/quoting"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/repository"
)

// QuotePrefix prefijo del consecutivo de cotizaciones.
const QuotePrefix = "COT"

// QuoteUseCase casos de uso de lectura y ciclo de vida de cotizaciones.
type QuoteUseCase struct {
	quoteRepo         repository.QuoteRepository
	invoiceRepo       repository.InvoiceRepository
	txRunner          QuotingTxRunner
	log               zerolog.Logger
	defaultPercentage int
}

// NewQuoteUseCase construye el caso de uso. defaultPercentage es la pista de
// porcentaje cuando el cliente no envía una (0 = quoting.DefaultPercentage).
func NewQuoteUseCase(
	quoteRepo repository.QuoteRepository,
	invoiceRepo repository.InvoiceRepository,
	txRunner QuotingTxRunner,
	log zerolog.Logger,
	defaultPercentage int,
) *QuoteUseCase {
	if defaultPercentage <= 0 {
		defaultPercentage = quoting.DefaultPercentage
	}
	return &QuoteUseCase{
		quoteRepo:         quoteRepo,
		invoiceRepo:       invoiceRepo,
		txRunner:          txRunner,
		log:               log.With().Str("component", "quote").Logger(),
		defaultPercentage: defaultPercentage,
	}
}

// Create crea una cotización en DRAFT con sus líneas y totales calculados.
func (uc *QuoteUseCase) Create(ctx context.Context, companyID string, in dto.CreateQuoteRequest) (*dto.QuoteResponse, error) {
	if companyID == "" || strings.TrimSpace(in.ClientName) == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}

	now := time.Now()
	issueDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if in.IssueDate != "" {
		t, err := parseDate("issue_date", in.IssueDate)
		if err != nil {
			return nil, err
		}
		issueDate = t
	}
	var validUntil time.Time
	if in.ValidUntil != "" {
		t, err := parseDate("valid_until", in.ValidUntil)
		if err != nil {
			return nil, err
		}
		validUntil = t
	}
	if err := checkValidity(issueDate, validUntil); err != nil {
		return nil, err
	}

	items, err := buildItems(in.Items)
	if err != nil {
		return nil, err
	}
	discount := toDiscount(in.Discount)

	totals, err := quoting.ComputeTotals(items, discount)
	if err != nil {
		return nil, err
	}
	finalTTC := totals.FinalTotalTTC

	q := &entity.Quote{
		ID:            uuid.New().String(),
		CompanyID:     companyID,
		ClientName:    strings.TrimSpace(in.ClientName),
		Prefix:        QuotePrefix,
		Status:        entity.QuoteStatusDraft,
		IssueDate:     issueDate,
		ValidUntil:    validUntil,
		TotalHT:       totals.TotalHT,
		TotalVAT:      totals.TotalVAT,
		TotalTTC:      totals.TotalTTC,
		FinalTotalHT:  totals.FinalTotalHT,
		FinalTotalTTC: &finalTTC,
		Discount:      discount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = uc.txRunner.RunQuoting(ctx, func(quoteRepo repository.QuoteRepository, _ repository.InvoiceRepository) error {
		number, err := quoteRepo.NextNumber(ctx, companyID)
		if err != nil {
			return err
		}
		q.Number = number
		if err := quoteRepo.Create(ctx, q); err != nil {
			return err
		}
		for i := range items {
			items[i].QuoteID = q.ID
			if err := quoteRepo.CreateItem(ctx, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	q.Items = items

	uc.log.Info().
		Str("quote_id", q.ID).
		Str("reference", q.Reference()).
		Str("total", finalTTC.String()).
		Msg("cotización creada")
	return toQuoteResponse(q), nil
}

// Update edita una cotización en DRAFT o PENDING y recalcula sus totales. La
// máquina de estados se verifica con la fila bloqueada.
func (uc *QuoteUseCase) Update(ctx context.Context, companyID, id string, in dto.UpdateQuoteRequest) (*dto.QuoteResponse, error) {
	if in.ClientName != nil && strings.TrimSpace(*in.ClientName) == "" {
		return nil, fmt.Errorf("%w: client_name", domain.ErrInvalidInput)
	}
	var (
		items []entity.QuoteItem
		err   error
	)
	if in.Items != nil {
		if items, err = buildItems(in.Items); err != nil {
			return nil, err
		}
	}

	var q *entity.Quote
	err = uc.txRunner.RunQuoting(ctx, func(quoteRepo repository.QuoteRepository, _ repository.InvoiceRepository) error {
		cur, err := quoteRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return domain.ErrNotFound
		}
		if cur.CompanyID != companyID {
			return domain.ErrForbidden
		}
		if _, err := quoting.Apply(cur.Status, quoting.ActionEdit); err != nil {
			return err
		}

		if in.ClientName != nil {
			cur.ClientName = strings.TrimSpace(*in.ClientName)
		}
		if in.IssueDate != nil {
			if cur.IssueDate, err = parseDate("issue_date", *in.IssueDate); err != nil {
				return err
			}
		}
		if in.ValidUntil != nil {
			cur.ValidUntil = time.Time{}
			if *in.ValidUntil != "" {
				if cur.ValidUntil, err = parseDate("valid_until", *in.ValidUntil); err != nil {
					return err
				}
			}
		}
		if err := checkValidity(cur.IssueDate, cur.ValidUntil); err != nil {
			return err
		}
		if in.Discount != nil {
			cur.Discount = toDiscount(in.Discount)
		}
		if items == nil {
			items = cur.Items
		}

		totals, err := quoting.ComputeTotals(items, cur.Discount)
		if err != nil {
			return err
		}
		finalTTC := totals.FinalTotalTTC
		cur.TotalHT = totals.TotalHT
		cur.TotalVAT = totals.TotalVAT
		cur.TotalTTC = totals.TotalTTC
		cur.FinalTotalHT = totals.FinalTotalHT
		cur.FinalTotalTTC = &finalTTC
		if err := quoteRepo.Update(ctx, cur); err != nil {
			return err
		}

		if in.Items != nil {
			if err := quoteRepo.DeleteItems(ctx, cur.ID); err != nil {
				return err
			}
			for i := range items {
				items[i].QuoteID = cur.ID
				if err := quoteRepo.CreateItem(ctx, &items[i]); err != nil {
					return err
				}
			}
		}
		cur.Items = items
		q = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("quote_id", q.ID).
		Str("status", string(q.Status)).
		Str("total", q.FinalTotalTTC.String()).
		Msg("cotización editada")
	return toQuoteResponse(q), nil
}

// Get devuelve la cotización con sus líneas y facturas vinculadas.
func (uc *QuoteUseCase) Get(ctx context.Context, companyID, id string) (*dto.QuoteResponse, error) {
	q, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return toQuoteResponse(q), nil
}

// Progress devuelve el avance de facturación de la cotización.
func (uc *QuoteUseCase) Progress(ctx context.Context, companyID, id string) (*dto.ProgressResponse, error) {
	q, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	p := quoting.ComputeProgress(q.BillableTotal(), q.LinkedInvoices)
	return toProgressResponse(q.ID, p, p.IsFullyPaid(q.LinkedInvoices)), nil
}

// Allocation devuelve los valores por defecto para crear la siguiente factura.
// hint es el último porcentaje usado por el cliente (0 = valor por defecto).
func (uc *QuoteUseCase) Allocation(ctx context.Context, companyID, id string, hint int) (*dto.AllocationResponse, error) {
	q, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if hint <= 0 {
		hint = uc.defaultPercentage
	}
	a := quoting.Offer(q.Status, q.BillableTotal(), q.LinkedInvoices, hint)
	return toAllocationResponse(q.ID, a), nil
}

// Actions devuelve las acciones disponibles según estado y avance.
func (uc *QuoteUseCase) Actions(ctx context.Context, companyID, id string) (*dto.ActionsResponse, error) {
	q, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	actions := quoting.StatusActions(q.Status, q.BillableTotal(), q.LinkedInvoices)
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, string(a))
	}
	return &dto.ActionsResponse{QuoteID: q.ID, Status: string(q.Status), Actions: names}, nil
}

// ChangeStatus cambia el estado de la cotización. El servidor vuelve a verificar
// la transición con la fila bloqueada, aunque el cliente ya la haya validado.
func (uc *QuoteUseCase) ChangeStatus(ctx context.Context, companyID, id string, in dto.ChangeQuoteStatusRequest) (*dto.QuoteStatusResponse, error) {
	target, err := entity.ParseQuoteStatus(in.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err.Error())
	}

	var from entity.QuoteStatus
	err = uc.txRunner.RunQuoting(ctx, func(quoteRepo repository.QuoteRepository, _ repository.InvoiceRepository) error {
		q, err := quoteRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if q == nil {
			return domain.ErrNotFound
		}
		if q.CompanyID != companyID {
			return domain.ErrForbidden
		}
		if _, err := quoting.ActionTo(q.Status, target); err != nil {
			return err
		}
		from = q.Status
		return quoteRepo.UpdateStatus(ctx, id, target)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("quote_id", id).
		Str("from", string(from)).
		Str("to", string(target)).
		Msg("estado de cotización actualizado")
	return &dto.QuoteStatusResponse{ID: id, Status: string(target)}, nil
}

// Delete elimina una cotización en DRAFT sin facturas vinculadas.
func (uc *QuoteUseCase) Delete(ctx context.Context, companyID, id string) error {
	err := uc.txRunner.RunQuoting(ctx, func(quoteRepo repository.QuoteRepository, invoiceRepo repository.InvoiceRepository) error {
		q, err := quoteRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if q == nil {
			return domain.ErrNotFound
		}
		if q.CompanyID != companyID {
			return domain.ErrForbidden
		}
		if _, err := quoting.Apply(q.Status, quoting.ActionDelete); err != nil {
			return err
		}
		invoices, err := invoiceRepo.ListByQuoteID(ctx, id)
		if err != nil {
			return err
		}
		if len(invoices) > 0 {
			return fmt.Errorf("%w: la cotización tiene facturas vinculadas", domain.ErrConflict)
		}
		return quoteRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	uc.log.Info().Str("quote_id", id).Msg("cotización eliminada")
	return nil
}

// load lee cabecera y facturas en paralelo y verifica la empresa.
func (uc *QuoteUseCase) load(ctx context.Context, companyID, id string) (*entity.Quote, error) {
	var (
		q        *entity.Quote
		invoices []*entity.Invoice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		q, err = uc.quoteRepo.GetByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		invoices, err = uc.invoiceRepo.ListByQuoteID(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cargar cotización: %w", err)
	}
	if q == nil {
		return nil, domain.ErrNotFound
	}
	if q.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	q.LinkedInvoices = linkAll(invoices)
	return q, nil
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrInvalidInput, field)
	}
	return t, nil
}

// checkValidity valid_until (si existe) no puede ser anterior a la emisión.
func checkValidity(issue, validUntil time.Time) error {
	if !validUntil.IsZero() && validUntil.Before(issue) {
		return fmt.Errorf("%w: valid_until", domain.ErrInvalidInput)
	}
	return nil
}

func buildItems(in []dto.QuoteItemRequest) ([]entity.QuoteItem, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: la cotización necesita al menos una línea", domain.ErrInvalidInput)
	}
	items := make([]entity.QuoteItem, 0, len(in))
	for i, it := range in {
		if strings.TrimSpace(it.Description) == "" || !it.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: línea %d", domain.ErrInvalidInput, i+1)
		}
		items = append(items, entity.QuoteItem{
			ID:          uuid.New().String(),
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			VATRate:     it.VATRate,
			Position:    i + 1,
		})
	}
	return items, nil
}

func toDiscount(in *dto.DiscountRequest) entity.Discount {
	if in == nil {
		return entity.Discount{}
	}
	return entity.Discount{Type: in.Type, Value: in.Value}
}
