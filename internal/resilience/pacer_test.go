package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_SpacesCalls(t *testing.T) {
	p := NewPacer(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Wait(ctx))
	}
	// First call passes immediately, the next two wait one interval each.
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestPacer_ZeroIntervalNeverBlocks(t *testing.T) {
	p := NewPacer(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPacer_CanceledContext(t *testing.T) {
	p := NewPacer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, p.Wait(ctx))

	cancel()
	assert.Error(t, p.Wait(ctx))
}
