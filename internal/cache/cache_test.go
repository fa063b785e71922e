package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/domain/outcome"
	"github.com/sawpanic/baccarun/internal/session"
)

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newMemory(func() time.Time { return now })

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Set(ctx, "forever", []byte("x"), 0)
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestMemoryCopiesValue(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	buf := []byte("abc")
	c.Set(ctx, "k", buf, 0)
	buf[0] = 'z'
	got, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
}

func TestNewAutoWithoutAddrIsMemory(t *testing.T) {
	_, ok := NewAuto("", 0).(*memory)
	assert.True(t, ok)
}

func TestForecastsRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := NewForecasts(NewMemory(), "bac", time.Minute)

	seq, err := outcome.ParseSequence("PPB")
	require.NoError(t, err)
	key := session.CacheKey(combine.Balanced, seq)

	_, ok := f.Get(ctx, key)
	assert.False(t, ok)

	want := session.Forecast{
		Mode:       combine.Balanced,
		Prediction: outcome.Directional(outcome.Banker, 61.2, "balanced: 5 analyzers combined, led by streak"),
		Winner:     "streak",
		Hands:      3,
	}
	f.Set(ctx, key, want)
	got, ok := f.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, want.Prediction, got.Prediction)
	assert.Equal(t, want.Winner, got.Winner)
	assert.Equal(t, 3, got.Hands)
}

func TestForecastsIgnoresGarbage(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mem.Set(ctx, "bac:forecast:x", []byte("not json"), 0)
	_, ok := NewForecasts(mem, "bac", 0).Get(ctx, "x")
	assert.False(t, ok)
}
