package conversion

import (
	"errors"
	"fmt"

	"github.com/jhoicas/Cotizaciones-api/internal/domain"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/quoting"
)

var (
	ErrClosed        = errors.New("conversión: el orquestador está cerrado")
	ErrBusy          = errors.New("conversión: hay una operación en curso")
	ErrNotReady      = errors.New("conversión: la cotización no está cargada")
	ErrPollerRunning = errors.New("conversión: el poller ya está iniciado")
)

// Códigos de evento que no vienen del motor de asignación.
const (
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeFetchFailed       = "FETCH_FAILED"
	CodeNetworkError      = "NETWORK_ERROR"
)

// RemoteError rechazo estructurado del servidor. Message se muestra tal cual.
type RemoteError struct {
	Status  int    // código HTTP
	Code    string // código de máquina, puede venir vacío
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("error del servidor (%d)", e.Status)
	}
	return e.Message
}

// Unwrap permite errors.Is contra los errores de dominio cuando el código es conocido.
func (e *RemoteError) Unwrap() error {
	return remoteCodes[e.Code]
}

var remoteCodes = map[string]error{
	quoting.CodeInvoiceCapReached:    domain.ErrInvoiceCapReached,
	quoting.CodeDepositNotAllowed:    domain.ErrDepositNotAllowed,
	quoting.CodeNoRemainingBalance:   domain.ErrNoRemainingBalance,
	quoting.CodePercentageOutOfRange: domain.ErrPercentageOutOfRange,
	CodeInvalidTransition:            domain.ErrInvalidTransition,
	"NOT_FOUND":                      domain.ErrNotFound,
	"CONFLICT":                       domain.ErrConflict,
	"FORBIDDEN":                      domain.ErrForbidden,
	"UNAUTHORIZED":                   domain.ErrUnauthorized,
	"INVALID_INPUT":                  domain.ErrInvalidInput,
	"VALIDATION":                     domain.ErrInvalidInput,
}

// rejectionEvent evento para un rechazo local (motor de asignación o máquina de estados).
func rejectionEvent(quoteID string, err error) Event {
	ev := Event{Kind: EventRejected, QuoteID: quoteID, Code: CodeInvalidTransition}
	var rej *quoting.RejectionError
	if errors.As(err, &rej) {
		ev.Code = rej.Code
		if rej.Code == quoting.CodePercentageOutOfRange {
			ev.Values = map[string]int{"requested": rej.Requested, "min": rej.Min, "ceiling": rej.Ceiling}
		}
	}
	return ev
}

// failureEvent evento para un fallo remoto; el mensaje del servidor pasa sin cambios.
func failureEvent(quoteID string, err error) Event {
	ev := Event{Kind: EventFailed, QuoteID: quoteID, Code: CodeNetworkError, Message: err.Error()}
	var re *RemoteError
	if errors.As(err, &re) {
		ev.Code = re.Code
		ev.Message = re.Message
	}
	return ev
}
