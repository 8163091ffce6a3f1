// Package conversion orquesta, del lado cliente, la conversión de una cotización
// en factura: lectura sin cache, propuesta de porcentaje, validación local,
// envío, re-lectura y notificación. Incluye el poller del panel de progreso.
package conversion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Cotizaciones-api/internal/domain"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/Cotizaciones-api/internal/domain/quoting"
)

// State estado de un intento de conversión.
type State string

const (
	StateIdle       State = "IDLE"
	StateLoading    State = "LOADING"
	StateProposing  State = "PROPOSING"
	StateSubmitting State = "SUBMITTING"
	StateSucceeded  State = "SUCCEEDED"
	StateFailed     State = "FAILED"
)

// Input valores del diálogo que el usuario confirma.
type Input struct {
	Percentage          int
	Kind                entity.InvoiceKind
	UseRemainingBalance bool
	SkipValidation      bool
}

// View copia del estado observable del orquestador.
type View struct {
	State     State
	Quote     *entity.Quote
	Progress  quoting.ProgressSnapshot
	FullyPaid bool
	Defaults  quoting.AllocationDefaults
	Actions   []quoting.Action
	Input     Input
	LastError error
}

// PollUpdate resultado entregado por el polling del panel de progreso.
type PollUpdate struct {
	Quote     *entity.Quote
	Progress  quoting.ProgressSnapshot
	FullyPaid bool
	Actions   []quoting.Action
	Err       error
}

// Options dependencias del orquestador.
type Options struct {
	QuoteID      string
	Reader       QuoteReader
	Writer       ConversionWriter
	StatusWriter StatusWriter // opcional; sin él ChangeStatus falla
	Notifier     Notifier     // opcional
	Logger       zerolog.Logger
	// DefaultPercentage pista inicial de porcentaje (0 = quoting.DefaultPercentage).
	DefaultPercentage int
	// OnTransition se llama con el lock tomado; no debe llamar al orquestador.
	OnTransition func(from, to State)
}

// Orchestrator controla una sesión del diálogo de conversión sobre una cotización.
//
// Close cancela las lecturas en vuelo y deja el estado congelado; una escritura
// ya enviada no se cancela (usa el ctx del llamador).
type Orchestrator struct {
	quoteID      string
	reader       QuoteReader
	writer       ConversionWriter
	statusWriter StatusWriter
	notifier     Notifier
	log          zerolog.Logger
	defaultPct   int
	onTransition func(from, to State)

	lifetime context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	state    State
	closed   bool
	quote    *entity.Quote
	progress quoting.ProgressSnapshot
	defaults quoting.AllocationDefaults
	input    Input
	hint     int // último porcentaje enviado con éxito
	lastErr  error
	poller   *Poller
}

// New construye el orquestador en estado IDLE.
func New(opts Options) (*Orchestrator, error) {
	if opts.QuoteID == "" || opts.Reader == nil || opts.Writer == nil {
		return nil, fmt.Errorf("%w: quote id, reader y writer son obligatorios", domain.ErrInvalidInput)
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.DefaultPercentage <= 0 {
		opts.DefaultPercentage = quoting.DefaultPercentage
	}
	lifetime, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		quoteID:      opts.QuoteID,
		reader:       opts.Reader,
		writer:       opts.Writer,
		statusWriter: opts.StatusWriter,
		notifier:     opts.Notifier,
		log:          opts.Logger.With().Str("component", "conversion").Str("quote_id", opts.QuoteID).Logger(),
		defaultPct:   opts.DefaultPercentage,
		onTransition: opts.OnTransition,
		lifetime:     lifetime,
		cancel:       cancel,
		state:        StateIdle,
	}, nil
}

// Open lee la cotización sin cache y propone los valores del diálogo.
func (o *Orchestrator) Open(ctx context.Context) (View, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return View{}, ErrClosed
	}
	if o.state == StateLoading || o.state == StateSubmitting {
		o.mu.Unlock()
		return View{}, ErrBusy
	}
	o.transition(StateLoading)
	o.mu.Unlock()

	q, err := o.fetch(ctx)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return View{}, ErrClosed
	}
	if err != nil {
		o.lastErr = err
		o.transition(StateIdle)
		o.mu.Unlock()
		o.notifier.Notify(Event{Kind: EventFailed, QuoteID: o.quoteID, Code: CodeFetchFailed, Message: err.Error()})
		return View{}, err
	}
	o.apply(q)
	o.input = Input{
		Percentage:          o.defaults.Percentage,
		Kind:                entity.InvoiceKindRegular,
		UseRemainingBalance: o.defaults.UseRemainingBalance,
	}
	o.lastErr = nil
	o.transition(StateProposing)
	v := o.view()
	o.mu.Unlock()
	return v, nil
}

// Submit valida localmente y envía la solicitud. Un rechazo local vuelve a
// PROPOSING sin llamar al servidor. Un fallo remoto pasa por FAILED y vuelve a
// PROPOSING con los valores ingresados intactos. No hay reintentos automáticos.
func (o *Orchestrator) Submit(ctx context.Context, in Input) (*ConversionResult, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	if o.quote == nil {
		o.mu.Unlock()
		return nil, ErrNotReady
	}
	if o.state != StateProposing {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	if in.Kind == "" {
		in.Kind = entity.InvoiceKindRegular
	}
	o.input = in
	o.transition(StateSubmitting)

	valid, err := o.validate(in)
	if err != nil {
		o.lastErr = err
		o.transition(StateProposing)
		o.mu.Unlock()
		o.log.Info().Err(err).Int("percentage", in.Percentage).Msg("solicitud rechazada localmente")
		o.notifier.Notify(rejectionEvent(o.quoteID, err))
		return nil, err
	}
	o.mu.Unlock()

	res, err := o.writer.ConvertQuoteToInvoice(ctx, o.quoteID, ConversionRequest{
		DistributionPercentages: []int{valid.Percentage},
		IsDeposit:               valid.IsDeposit(),
		UseRemainingBalance:     valid.UseRemainingBalance,
		SkipValidation:          in.SkipValidation,
	})
	if err != nil {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return nil, err
		}
		o.lastErr = err
		o.transition(StateFailed)
		o.transition(StateProposing)
		o.mu.Unlock()
		o.log.Warn().Err(err).Int("percentage", valid.Percentage).Msg("conversión fallida")
		o.notifier.Notify(failureEvent(o.quoteID, err))
		return nil, err
	}

	// Montos: se relee antes de notificar, nunca se confía en el estado local.
	q, ferr := o.fetch(ctx)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return res, nil
	}
	o.hint = valid.Percentage
	o.lastErr = nil
	ev := Event{Kind: EventConverted, QuoteID: o.quoteID, Result: res, Amount: valid.Amount}
	if ferr != nil {
		ev.Stale = true
		o.log.Warn().Err(ferr).Msg("re-lectura posterior a la conversión fallida")
	} else {
		o.apply(q)
		p := o.progress
		ev.Progress = &p
	}
	o.transition(StateSucceeded)
	o.mu.Unlock()

	o.log.Info().Str("invoice_id", res.InvoiceID).Str("amount", valid.Amount.String()).Msg("factura creada")
	o.notifier.Notify(ev)
	return res, nil
}

// ChangeStatus aplica una acción de cambio de estado (MARK_AS_SENT, MARK_AS_ACCEPTED, CANCEL).
// La acción debe estar entre las disponibles; el servidor puede igual rechazarla.
func (o *Orchestrator) ChangeStatus(ctx context.Context, action quoting.Action) (entity.QuoteStatus, error) {
	target, ok := quoting.StatusFor(action)
	if !ok {
		return "", fmt.Errorf("%w: %s no cambia el estado", domain.ErrInvalidInput, action)
	}
	if o.statusWriter == nil {
		return "", fmt.Errorf("%w: sin status writer", domain.ErrInvalidInput)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return "", ErrClosed
	}
	if o.quote == nil {
		o.mu.Unlock()
		return "", ErrNotReady
	}
	if o.state == StateLoading || o.state == StateSubmitting {
		o.mu.Unlock()
		return "", ErrBusy
	}
	actions := quoting.StatusActions(o.quote.Status, o.quote.BillableTotal(), o.quote.LinkedInvoices)
	if !quoting.HasAction(actions, action) {
		err := &quoting.TransitionError{From: o.quote.Status, Action: action}
		o.lastErr = err
		o.mu.Unlock()
		o.notifier.Notify(rejectionEvent(o.quoteID, err))
		return "", err
	}
	o.mu.Unlock()

	status, err := o.statusWriter.ChangeQuoteStatus(ctx, o.quoteID, target)
	if err != nil {
		o.mu.Lock()
		closed := o.closed
		if !closed {
			o.lastErr = err
		}
		o.mu.Unlock()
		if !closed {
			o.notifier.Notify(failureEvent(o.quoteID, err))
		}
		return "", err
	}

	q, ferr := o.fetch(ctx)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return status, nil
	}
	if ferr != nil {
		o.log.Warn().Err(ferr).Msg("re-lectura posterior al cambio de estado fallida")
		cp := *o.quote
		cp.Status = status
		q = &cp
	}
	o.apply(q)
	o.lastErr = nil
	ev := Event{Kind: EventStatusChanged, QuoteID: o.quoteID, Status: status, Stale: ferr != nil}
	o.mu.Unlock()

	o.log.Info().Str("action", string(action)).Str("status", string(status)).Msg("estado de cotización cambiado")
	o.notifier.Notify(ev)
	return status, nil
}

// StartPolling inicia el polling del panel de progreso. fn recibe cada lectura
// y no debe llamar a StopPolling ni a Close.
func (o *Orchestrator) StartPolling(interval time.Duration, fn func(PollUpdate)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if o.poller != nil {
		return ErrPollerRunning
	}
	p := NewPoller(
		func(ctx context.Context) (*entity.Quote, error) {
			return o.reader.FetchQuote(ctx, o.quoteID, FetchOptions{BypassCache: true})
		},
		func(q *entity.Quote, err error) { fn(newPollUpdate(q, err)) },
		o.log,
	)
	if err := p.Start(o.lifetime, interval); err != nil {
		return err
	}
	o.poller = p
	return nil
}

// StopPolling detiene el polling; no hay entregas después de que retorna.
func (o *Orchestrator) StopPolling() {
	o.mu.Lock()
	p := o.poller
	o.poller = nil
	o.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// Close cierra la sesión: cancela lecturas, detiene el polling y congela el estado.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.cancel()
	p := o.poller
	o.poller = nil
	state := o.state
	o.mu.Unlock()

	if p != nil {
		p.Stop()
	}
	o.log.Debug().Str("state", string(state)).Msg("orquestador cerrado")
}

// Snapshot devuelve el estado actual.
func (o *Orchestrator) Snapshot() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view()
}

// State estado actual.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// fetch lectura sin cache, cancelada por el ctx del llamador o por Close.
func (o *Orchestrator) fetch(ctx context.Context) (*entity.Quote, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(o.lifetime, cancel)
	defer stop()
	return o.reader.FetchQuote(ctx, o.quoteID, FetchOptions{BypassCache: true})
}

// apply recalcula avance y propuesta a partir de una lectura. Requiere o.mu.
func (o *Orchestrator) apply(q *entity.Quote) {
	hint := o.hint
	if hint <= 0 {
		hint = o.defaultPct
	}
	total := q.BillableTotal()
	o.quote = q
	o.progress = quoting.ComputeProgress(total, q.LinkedInvoices)
	o.defaults = quoting.Offer(q.Status, total, q.LinkedInvoices, hint)
}

// validate chequeo local previo al envío. Requiere o.mu.
func (o *Orchestrator) validate(in Input) (quoting.ValidRequest, error) {
	if _, err := quoting.Apply(o.quote.Status, quoting.ActionCreateInvoice); err != nil {
		return quoting.ValidRequest{}, err
	}
	return quoting.ValidateAllocationRequest(quoting.AllocationRequest{
		QuoteID:             o.quoteID,
		Percentage:          in.Percentage,
		Kind:                in.Kind,
		UseRemainingBalance: in.UseRemainingBalance,
	}, o.quote.LinkedInvoices, o.quote.BillableTotal())
}

// transition cambia de estado y lo registra. Requiere o.mu.
func (o *Orchestrator) transition(to State) {
	from := o.state
	o.state = to
	o.log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("transición")
	if o.onTransition != nil {
		o.onTransition(from, to)
	}
}

func (o *Orchestrator) view() View {
	v := View{
		State:     o.state,
		Progress:  o.progress,
		Defaults:  o.defaults,
		Input:     o.input,
		LastError: o.lastErr,
	}
	if o.quote != nil {
		cp := *o.quote
		v.Quote = &cp
		v.FullyPaid = o.progress.IsFullyPaid(o.quote.LinkedInvoices)
		v.Actions = quoting.StatusActions(o.quote.Status, o.quote.BillableTotal(), o.quote.LinkedInvoices)
	}
	return v
}

func newPollUpdate(q *entity.Quote, err error) PollUpdate {
	if err != nil || q == nil {
		return PollUpdate{Err: err}
	}
	total := q.BillableTotal()
	p := quoting.ComputeProgress(total, q.LinkedInvoices)
	return PollUpdate{
		Quote:     q,
		Progress:  p,
		FullyPaid: p.IsFullyPaid(q.LinkedInvoices),
		Actions:   quoting.StatusActions(q.Status, total, q.LinkedInvoices),
	}
}
