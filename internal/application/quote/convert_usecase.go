package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/Cotizaciones-api/internal/domain"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/quoting"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/repository"
)

const (
	// InvoicePrefix prefijo del consecutivo de facturas.
	InvoicePrefix = "FAC"

	defaultLockTTL = 15 * time.Second
)

// ConvertUseCase convierte una cotización COMPLETED en una o varias facturas.
//
// Es el árbitro final del tope de 3 facturas y del saldo: bloquea la cotización
// (lock distribuido + SELECT ... FOR UPDATE) y vuelve a validar cada porcentaje
// contra las facturas vinculadas en ese momento.
type ConvertUseCase struct {
	txRunner QuotingTxRunner
	locker   Locker
	lockTTL  time.Duration
	log      zerolog.Logger
}

// NewConvertUseCase construye el caso de uso. lockTTL 0 usa 15s.
func NewConvertUseCase(txRunner QuotingTxRunner, locker Locker, lockTTL time.Duration, log zerolog.Logger) *ConvertUseCase {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &ConvertUseCase{
		txRunner: txRunner,
		locker:   locker,
		lockTTL:  lockTTL,
		log:      log.With().Str("component", "convert").Logger(),
	}
}

// Convert crea una factura por cada porcentaje de in.DistributionPercentages.
// Si cualquier validación falla no se crea ninguna.
func (uc *ConvertUseCase) Convert(ctx context.Context, companyID, quoteID string, in dto.ConvertQuoteRequest) (*dto.ConvertQuoteResponse, error) {
	if companyID == "" || quoteID == "" || len(in.DistributionPercentages) == 0 {
		return nil, domain.ErrInvalidInput
	}

	lock, err := uc.locker.Obtain(ctx, "quote:convert:"+quoteID, uc.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			uc.log.Warn().Err(err).Str("quote_id", quoteID).Msg("liberar lock de conversión")
		}
	}()

	now := time.Now()
	var created []*entity.Invoice
	err = uc.txRunner.RunQuoting(ctx, func(quoteRepo repository.QuoteRepository, invoiceRepo repository.InvoiceRepository) error {
		q, err := quoteRepo.GetForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if q == nil {
			return domain.ErrNotFound
		}
		if q.CompanyID != companyID {
			return domain.ErrForbidden
		}
		if _, err := quoting.Apply(q.Status, quoting.ActionCreateInvoice); err != nil {
			return err
		}
		if !in.SkipValidation {
			if err := checkComplete(q); err != nil {
				return err
			}
		}

		existing, err := invoiceRepo.ListByQuoteID(ctx, quoteID)
		if err != nil {
			return err
		}
		total := q.BillableTotal()
		plan, err := quoting.PlanDistribution(quoteID, total, linkAll(existing),
			in.DistributionPercentages, in.IsDeposit, in.UseRemainingBalance)
		if err != nil {
			return err
		}

		for _, v := range plan {
			number, err := invoiceRepo.NextNumber(ctx, companyID)
			if err != nil {
				return err
			}
			inv := &entity.Invoice{
				ID:            uuid.New().String(),
				CompanyID:     companyID,
				QuoteID:       quoteID,
				Prefix:        InvoicePrefix,
				Number:        number,
				Status:        entity.InvoiceStatusDraft,
				IsDeposit:     v.IsDeposit(),
				Percentage:    coverage(v, total),
				FinalTotalTTC: v.Amount,
				IssueDate:     now,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := invoiceRepo.Create(ctx, inv); err != nil {
				return err
			}
			created = append(created, inv)
		}
		return nil
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("quote_id", quoteID).Ints("percentages", in.DistributionPercentages).Msg("conversión rechazada")
		return nil, err
	}

	res := &dto.ConvertQuoteResponse{
		InvoiceID: created[0].ID,
		Number:    created[0].Number,
		Prefix:    created[0].Prefix,
		Invoices:  make([]dto.InvoiceResponse, 0, len(created)),
	}
	for _, inv := range created {
		res.Invoices = append(res.Invoices, toInvoiceResponse(inv))
		uc.log.Info().
			Str("quote_id", quoteID).
			Str("invoice_id", inv.ID).
			Int("number", inv.Number).
			Str("amount", inv.FinalTotalTTC.String()).
			Bool("deposit", inv.IsDeposit).
			Msg("factura creada desde cotización")
	}
	return res, nil
}

// checkComplete datos mínimos para facturar; skip_validation los omite.
func checkComplete(q *entity.Quote) error {
	if strings.TrimSpace(q.ClientName) == "" {
		return fmt.Errorf("%w: la cotización no tiene cliente", domain.ErrInvalidInput)
	}
	if len(q.Items) == 0 {
		return fmt.Errorf("%w: la cotización no tiene líneas", domain.ErrInvalidInput)
	}
	return nil
}

// coverage porcentaje real del total que cubre la factura (1 decimal).
func coverage(v quoting.ValidRequest, total decimal.Decimal) decimal.Decimal {
	if !v.UseRemainingBalance {
		return decimal.NewFromInt(int64(v.Percentage))
	}
	return quoting.RoundPercentage(quoting.Percentage(v.Amount, total), 1)
}
