package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/Cotizaciones-api/internal/application/quote"
	"github.com/jhoicas/Cotizaciones-api/internal/domain"
)

var _ quote.Locker = (*MemoryLocker)(nil)

// MemoryLocker bloqueo por clave dentro del proceso, con vencimiento.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryEntry
	now   func() time.Time
	token uint64
}

type memoryEntry struct {
	token   uint64
	expires time.Time
}

// NewMemoryLocker construye el locker en memoria.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryEntry), now: time.Now}
}

// Obtain toma la clave por ttl. domain.ErrConflict si está tomada y no venció.
func (l *MemoryLocker) Obtain(_ context.Context, key string, ttl time.Duration) (quote.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, fmt.Errorf("%w: %s en uso", domain.ErrConflict, key)
	}
	l.token++
	l.held[key] = memoryEntry{token: l.token, expires: now.Add(ttl)}
	return &memoryLock{owner: l, key: key, token: l.token}, nil
}

type memoryLock struct {
	owner *MemoryLocker
	key   string
	token uint64
}

// Release solo borra la clave si sigue siendo de este lock.
func (m *memoryLock) Release(context.Context) error {
	m.owner.mu.Lock()
	defer m.owner.mu.Unlock()
	if e, ok := m.owner.held[m.key]; ok && e.token == m.token {
		delete(m.owner.held, m.key)
	}
	return nil
}
