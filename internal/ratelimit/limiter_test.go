package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitEnforcesInterval(t *testing.T) {
	t.Parallel()

	// 10 RPS with burst 1: second call waits roughly 100ms.
	l := New(Config{DefaultRPS: 10, DefaultBurst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "waqi"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "waqi"))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestWaitIndependentSources(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 1, DefaultBurst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "waqi"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "openweather"))
	assert.Less(t, time.Since(start), 50*time.Millisecond, "sources share a bucket")
}

func TestWaitSourceOverride(t *testing.T) {
	t.Parallel()

	l := New(Config{
		DefaultRPS:   1,
		DefaultBurst: 1,
		SourceRPS:    map[string]float64{"soilgrids": 100},
	})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx, "soilgrids"))
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestWaitHonorsContext(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 0.1, DefaultBurst: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx, "nasa-power"))
	err := l.Wait(ctx, "nasa-power")
	require.Error(t, err)
}

func TestUnlimitedDefault(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 50; i++ {
		require.NoError(t, l.Wait(ctx, "open-meteo"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
