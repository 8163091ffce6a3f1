package quote

import (
	"context"
	"time"

	"github.com/jhoicas/Cotizaciones-api/internal/domain/repository"
)

// QuotingTxRunner ejecuta una función dentro de una transacción con los repos de cotizaciones y facturas.
type QuotingTxRunner interface {
	RunQuoting(ctx context.Context, fn func(
		quoteRepo repository.QuoteRepository,
		invoiceRepo repository.InvoiceRepository,
	) error) error
}

// Locker bloqueo distribuido por clave. Obtain falla con domain.ErrConflict si otro
// proceso ya tiene la clave.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// Lock bloqueo obtenido; Release es idempotente.
type Lock interface {
	Release(ctx context.Context) error
}
