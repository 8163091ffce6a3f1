package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/jhoicas/Cotizaciones-api/internal/application/conversion"
)

var _ conversion.Notifier = (*Notifier)(nil)

// Notifier escribe cada evento del orquestador como texto, una entrada por evento.
type Notifier struct {
	mu sync.Mutex
	w  io.Writer
	p  *Printer
}

// NewNotifier construye el notifier sobre w.
func NewNotifier(w io.Writer, p *Printer) *Notifier {
	return &Notifier{w: w, p: p}
}

// Notify implementa conversion.Notifier.
func (n *Notifier) Notify(ev conversion.Event) {
	n.Println(n.p.Event(ev))
}

// Println escribe una línea serializada con los eventos (el poller escribe
// desde su propia goroutine).
func (n *Notifier) Println(s string) {
	if s == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, s)
}
