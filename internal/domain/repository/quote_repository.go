package repository

import (
	"context"

	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
)

// QuoteRepository define el puerto de persistencia para Quote y sus líneas.
type QuoteRepository interface {
	Create(ctx context.Context, quote *entity.Quote) error
	CreateItem(ctx context.Context, item *entity.QuoteItem) error
	// GetByID devuelve la cabecera con sus líneas; (nil, nil) si no existe.
	// No carga LinkedInvoices.
	GetByID(ctx context.Context, id string) (*entity.Quote, error)
	// GetForUpdate como GetByID pero bloquea la fila hasta el fin de la tx (SELECT ... FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Quote, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.Quote, error)
	UpdateStatus(ctx context.Context, id string, status entity.QuoteStatus) error
	// Update reescribe cliente, fechas, descuento y totales de la cabecera.
	Update(ctx context.Context, quote *entity.Quote) error
	DeleteItems(ctx context.Context, quoteID string) error
	Delete(ctx context.Context, id string) error
	NextNumber(ctx context.Context, companyID string) (int, error)
}

