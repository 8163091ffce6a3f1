package quote

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/Cotizaciones-api/internal/domain"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/repository"
)

// InvoiceUseCase lectura y avance de estado de las facturas generadas.
type InvoiceUseCase struct {
	invoiceRepo repository.InvoiceRepository
	txRunner    QuotingTxRunner
	log         zerolog.Logger
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(invoiceRepo repository.InvoiceRepository, txRunner QuotingTxRunner, log zerolog.Logger) *InvoiceUseCase {
	return &InvoiceUseCase{
		invoiceRepo: invoiceRepo,
		txRunner:    txRunner,
		log:         log.With().Str("component", "invoice").Logger(),
	}
}

// Get devuelve una factura de la empresa.
func (uc *InvoiceUseCase) Get(ctx context.Context, companyID, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	res := toInvoiceResponse(inv)
	return &res, nil
}

// UpdateStatus avanza el estado de la factura (DRAFT → PENDING → COMPLETED).
// Al pasar a COMPLETED el monto cuenta como cobrado en el avance de la cotización.
func (uc *InvoiceUseCase) UpdateStatus(ctx context.Context, companyID, id string, in dto.UpdateInvoiceStatusRequest) (*dto.InvoiceResponse, error) {
	next, err := entity.ParseInvoiceStatus(in.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err.Error())
	}

	var inv *entity.Invoice
	err = uc.txRunner.RunQuoting(ctx, func(_ repository.QuoteRepository, invoiceRepo repository.InvoiceRepository) error {
		var err error
		inv, err = invoiceRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}
		if inv.CompanyID != companyID {
			return domain.ErrForbidden
		}
		if !inv.Status.CanAdvanceTo(next) {
			return fmt.Errorf("%w: factura %s → %s", domain.ErrInvalidTransition, inv.Status, next)
		}
		if err := invoiceRepo.UpdateStatus(ctx, id, next); err != nil {
			return err
		}
		inv.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("invoice_id", id).Str("status", string(next)).Msg("estado de factura actualizado")
	res := toInvoiceResponse(inv)
	return &res, nil
}
