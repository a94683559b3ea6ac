package synthetic

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestGenerateShape(t *testing.T) {
	g := New(WithSeed(7), WithClock(clock))
	s := g.Generate("BTC-USD")

	require.Len(t, s.Candles, Candles)
	assert.True(t, s.Synthetic)
	assert.Equal(t, fixedNow.Unix(), s.Candles[len(s.Candles)-1].Time)
	assert.Equal(t, fixedNow.Unix()-120*3600, s.Candles[0].Time)

	for i, c := range s.Candles {
		assert.Truef(t, c.Consistent(), "candle %d violates low<=open,close<=high: %+v", i, c)
		assert.Truef(t, c.Open.Equal(c.Open.Round(2)), "candle %d open not rounded", i)
		if i > 0 {
			assert.Equal(t, int64(3600), c.Time-s.Candles[i-1].Time)
		}
	}
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	a := New(WithRand(rand.New(rand.NewSource(42))), WithClock(clock)).Generate("AAPL")
	b := New(WithRand(rand.New(rand.NewSource(42))), WithClock(clock)).Generate("AAPL")
	c := New(WithRand(rand.New(rand.NewSource(43))), WithClock(clock)).Generate("AAPL")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestGenerateStaysNearBase(t *testing.T) {
	s := New(WithSeed(1), WithClock(clock)).Generate("ETH-USD")
	// the first open moves at most half of 1% away from 2500
	first := s.Candles[0].Open
	assert.True(t, first.GreaterThanOrEqual(decimal.NewFromFloat(2487.5)), first.String())
	assert.True(t, first.LessThanOrEqual(decimal.NewFromFloat(2512.5)), first.String())
}

func TestBasePrice(t *testing.T) {
	cases := map[string]float64{
		"BTC-USD": 45000,
		"btcusdt": 45000,
		"ETH-USD": 2500,
		"AAPL":    180,
		"TSLA":    250,
		"GOOGL":   140,
		"MSFT":    100,
		"":        100,
		"ETHBTC":  45000,
		"GOOG":    100,
	}
	for symbol, want := range cases {
		assert.Equalf(t, want, BasePrice(symbol), "symbol %q", symbol)
	}
}
