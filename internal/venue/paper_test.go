package venue

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixedPrices(price float64) *RandomWalkPriceSource {
	// stepPct为0时价格不游走，询价恒定
	return NewRandomWalkPriceSource(decimal.NewFromFloat(price), 0, 1)
}

func TestPaperVenueOpenAppliesSlippage(t *testing.T) {
	v := NewPaperVenue(&PaperConfig{SlippagePct: 1}, newFixedPrices(100))

	fill, err := v.Open(context.Background(), "tokenA", decimal.NewFromFloat(0.1))
	require.NoError(t, err)
	assert.True(t, fill.Price.Equal(decimal.NewFromInt(101)),
		"open fill should be marked up by slippage, got %s", fill.Price)
	assert.False(t, fill.Time.IsZero())
}

func TestPaperVenueCloseAppliesSlippage(t *testing.T) {
	v := NewPaperVenue(&PaperConfig{SlippagePct: 1}, newFixedPrices(100))

	fill, err := v.Close(context.Background(), "pos-1", "tokenA", decimal.NewFromFloat(0.1))
	require.NoError(t, err)
	assert.True(t, fill.Price.Equal(decimal.NewFromInt(99)),
		"close fill should be marked down by slippage, got %s", fill.Price)
}

func TestPaperVenueOpenFailureNotRetried(t *testing.T) {
	v := NewPaperVenue(&PaperConfig{FailRate: 1}, newFixedPrices(100))

	start := time.Now()
	_, err := v.Open(context.Background(), "tokenA", decimal.NewFromFloat(0.1))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "open should fail without retry backoff")
}

func TestPaperVenueCloseRetriesExhausted(t *testing.T) {
	v := NewPaperVenue(&PaperConfig{
		FailRate:        1,
		MaxCloseRetries: 2,
		RetryBackoff:    time.Millisecond,
	}, newFixedPrices(100))

	_, err := v.Close(context.Background(), "pos-1", "tokenA", decimal.NewFromFloat(0.1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close retries exhausted")
}

func TestPaperVenueCloseHonorsContextCancel(t *testing.T) {
	v := NewPaperVenue(&PaperConfig{
		FailRate:        1,
		MaxCloseRetries: 10,
		RetryBackoff:    time.Second,
	}, newFixedPrices(100))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := v.Close(ctx, "pos-1", "tokenA", decimal.NewFromFloat(0.1))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRandomWalkStaysWithinStep(t *testing.T) {
	s := NewRandomWalkPriceSource(decimal.NewFromInt(100), 5, 42)

	prev, err := s.Price(context.Background(), "tokenA")
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		cur, err := s.Price(context.Background(), "tokenA")
		require.NoError(t, err)
		assert.True(t, cur.IsPositive())

		ratio, _ := cur.Div(prev).Float64()
		assert.GreaterOrEqual(t, ratio, 0.95)
		assert.LessOrEqual(t, ratio, 1.05)
		prev = cur
	}
}

func TestRandomWalkSetPrice(t *testing.T) {
	s := newFixedPrices(100)
	s.SetPrice("tokenA", decimal.NewFromInt(42))

	price, err := s.Price(context.Background(), "tokenA")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(42)))

	// 其他代币不受影响，回落到基准价
	other, err := s.Price(context.Background(), "tokenB")
	require.NoError(t, err)
	assert.True(t, other.Equal(decimal.NewFromInt(100)))
}
