package repository

import (
	"context"

	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para las facturas generadas desde cotizaciones.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	// GetByID devuelve (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// ListByQuoteID devuelve las facturas de la cotización en orden de creación.
	ListByQuoteID(ctx context.Context, quoteID string) ([]*entity.Invoice, error)
	UpdateStatus(ctx context.Context, id string, status entity.InvoiceStatus) error
	// ListByCompany todas las facturas de la empresa (resumen de facturación).
	ListByCompany(ctx context.Context, companyID string) ([]*entity.Invoice, error)
	// NextNumber siguiente consecutivo de factura de la empresa (dentro de la tx).
	NextNumber(ctx context.Context, companyID string) (int, error)
}
