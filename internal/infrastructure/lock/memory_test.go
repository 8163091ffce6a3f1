package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Cotizaciones-api/internal/domain"
)

func TestMemoryLocker_ClaveTomada(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	first, err := l.Obtain(ctx, "quote:convert:q1", time.Minute)
	require.NoError(t, err)

	_, err = l.Obtain(ctx, "quote:convert:q1", time.Minute)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = l.Obtain(ctx, "quote:convert:q2", time.Minute)
	assert.NoError(t, err, "otra cotización no se bloquea")

	require.NoError(t, first.Release(ctx))
	_, err = l.Obtain(ctx, "quote:convert:q1", time.Minute)
	assert.NoError(t, err)
}

func TestMemoryLocker_Vencimiento(t *testing.T) {
	l := NewMemoryLocker()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := l.Obtain(ctx, "k", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := l.Obtain(ctx, "k", time.Minute)
	require.NoError(t, err, "el lock vencido se puede retomar")

	// El lock vencido no libera al nuevo dueño.
	require.NoError(t, stale.Release(ctx))
	_, err = l.Obtain(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, fresh.Release(ctx))
	require.NoError(t, fresh.Release(ctx))
}
