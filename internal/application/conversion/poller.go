package conversion

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/Cotizaciones-api/internal/domain/entity"
)

// DefaultPollInterval intervalo del panel de progreso.
const DefaultPollInterval = 2000 * time.Millisecond

const pollKey = "quote"

// FetchFunc lectura que repite el poller.
type FetchFunc func(ctx context.Context) (*entity.Quote, error)

// Poller relee la cotización a intervalo fijo mientras está iniciado.
//
// Las lecturas concurrentes (tick del loop y Poll manual) comparten la misma
// petición en vuelo. Después de que Stop retorna no se entrega ningún resultado.
type Poller struct {
	fetch   FetchFunc
	deliver func(*entity.Quote, error)
	log     zerolog.Logger
	group   singleflight.Group

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller construye el poller. deliver se llama desde la goroutine del loop
// y no debe llamar a Stop.
func NewPoller(fetch FetchFunc, deliver func(*entity.Quote, error), log zerolog.Logger) *Poller {
	return &Poller{
		fetch:   fetch,
		deliver: deliver,
		log:     log.With().Str("component", "poller").Logger(),
	}
}

// Start lanza el loop: una lectura inmediata y luego una por intervalo.
// interval <= 0 usa DefaultPollInterval. El loop termina con Stop o al cancelarse ctx.
func (p *Poller) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrPollerRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done

	p.log.Debug().Dur("interval", interval).Msg("polling iniciado")
	go p.loop(ctx, interval, done)
	return nil
}

// Stop detiene el loop y espera a que termine. Idempotente.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.log.Debug().Msg("polling detenido")
}

// Running indica si el loop está activo.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Poll lectura manual; se une a la lectura en vuelo si la hay.
func (p *Poller) Poll(ctx context.Context) (*entity.Quote, error) {
	ch := p.group.DoChan(pollKey, func() (interface{}, error) {
		return p.fetch(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		q, _ := r.Val.(*entity.Quote)
		return q, nil
	}
}

func (p *Poller) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	q, err := p.Poll(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.log.Warn().Err(err).Msg("lectura de polling fallida")
	}
	p.deliver(q, err)
}
