package quoting

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Cotizaciones-api/internal/domain"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
)

// Action acción de usuario sobre una cotización.
type Action string

const (
	ActionMarkAsSent     Action = "MARK_AS_SENT"
	ActionMarkAsAccepted Action = "MARK_AS_ACCEPTED"
	ActionCancel         Action = "CANCEL"
	ActionDelete         Action = "DELETE"
	ActionCreateInvoice  Action = "CREATE_INVOICE"
	ActionEdit           Action = "EDIT"
)

// ParseAction convierte un string a Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(s))); a {
	case ActionMarkAsSent, ActionMarkAsAccepted, ActionCancel, ActionDelete, ActionCreateInvoice, ActionEdit:
		return a, nil
	}
	return "", fmt.Errorf("%w: acción desconocida %q", domain.ErrInvalidInput, s)
}

// transition fila de la tabla de transiciones.
type transition struct {
	from entity.QuoteStatus
	to   entity.QuoteStatus
}

// transitions única fuente de verdad de las transiciones legales.
// DELETE no tiene destino: el llamador elimina la cotización.
var transitions = map[Action][]transition{
	ActionMarkAsSent:     {{entity.QuoteStatusDraft, entity.QuoteStatusPending}},
	ActionMarkAsAccepted: {{entity.QuoteStatusPending, entity.QuoteStatusCompleted}},
	ActionCancel:         {{entity.QuoteStatusPending, entity.QuoteStatusCanceled}},
	ActionDelete:         {{entity.QuoteStatusDraft, ""}},
	ActionCreateInvoice:  {{entity.QuoteStatusCompleted, entity.QuoteStatusCompleted}},
	ActionEdit: {
		{entity.QuoteStatusDraft, entity.QuoteStatusDraft},
		{entity.QuoteStatusPending, entity.QuoteStatusPending},
	},
}

// TransitionError transición rechazada por la máquina de estados.
type TransitionError struct {
	From   entity.QuoteStatus
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s desde %s", domain.ErrInvalidTransition, e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return domain.ErrInvalidTransition }

// Apply devuelve el estado resultante de aplicar action sobre from.
// Para DELETE el estado devuelto es vacío (la cotización deja de existir).
func Apply(from entity.QuoteStatus, action Action) (entity.QuoteStatus, error) {
	for _, t := range transitions[action] {
		if t.from == from {
			return t.to, nil
		}
	}
	return "", &TransitionError{From: from, Action: action}
}

// CanPerform indica si la máquina de estados admite action desde status.
func CanPerform(status entity.QuoteStatus, action Action) bool {
	_, err := Apply(status, action)
	return err == nil
}

// StatusFor estado destino de una acción de cambio de estado (para el Status Writer).
// ok es false para acciones que no cambian el estado.
func StatusFor(action Action) (entity.QuoteStatus, bool) {
	switch action {
	case ActionMarkAsSent:
		return entity.QuoteStatusPending, true
	case ActionMarkAsAccepted:
		return entity.QuoteStatusCompleted, true
	case ActionCancel:
		return entity.QuoteStatusCanceled, true
	}
	return "", false
}

// ActionTo acción de cambio de estado que lleva de from a to.
// Devuelve *TransitionError si la tabla no la admite.
func ActionTo(from, to entity.QuoteStatus) (Action, error) {
	for _, a := range []Action{ActionMarkAsSent, ActionMarkAsAccepted, ActionCancel} {
		if next, err := Apply(from, a); err == nil && next == to {
			return a, nil
		}
	}
	action := Action("")
	for _, a := range []Action{ActionMarkAsSent, ActionMarkAsAccepted, ActionCancel} {
		if st, _ := StatusFor(a); st == to {
			action = a
		}
	}
	return "", &TransitionError{From: from, Action: action}
}

// StatusActions acciones ofrecidas para una cotización según su estado y avance.
//
//   - CANCELED o saldada: ninguna acción.
//   - COMPLETED: solo CREATE_INVOICE, con la misma condición que Offer.CanCreate.
//   - DRAFT / PENDING: las de la tabla de transiciones.
func StatusActions(status entity.QuoteStatus, total decimal.Decimal, linked []entity.LinkedInvoice) []Action {
	if status == entity.QuoteStatusCanceled {
		return []Action{}
	}
	progress := ComputeProgress(total, linked)
	if progress.IsFullyPaid(linked) {
		return []Action{}
	}
	switch status {
	case entity.QuoteStatusDraft:
		actions := []Action{ActionMarkAsSent, ActionEdit}
		if len(linked) == 0 {
			actions = append(actions, ActionDelete)
		}
		return actions
	case entity.QuoteStatusPending:
		return []Action{ActionMarkAsAccepted, ActionCancel, ActionEdit}
	case entity.QuoteStatusCompleted:
		if invoiceable(linked, computeBalance(total, linked)) {
			return []Action{ActionCreateInvoice}
		}
	}
	return []Action{}
}

// HasAction indica si actions contiene a.
func HasAction(actions []Action, a Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}
