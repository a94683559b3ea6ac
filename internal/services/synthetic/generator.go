// Package synthetic builds placeholder OHLC series for symbols the series source has no data for.
package synthetic

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"TradeSense/internal/domain/models"

	"github.com/shopspring/decimal"
)

const (
	// Candles is the number of hourly bars generated, covering five days plus the current hour.
	Candles = 121
	step    = int64(3600)
)

var basePrices = []struct {
	fragment string
	price    float64
}{
	{"BTC", 45000},
	{"ETH", 2500},
	{"AAPL", 180},
	{"TSLA", 250},
	{"GOOGL", 140},
}

// BasePrice returns the starting price for a symbol, matched by substring in table order.
func BasePrice(symbol string) float64 {
	s := strings.ToUpper(symbol)
	for _, bp := range basePrices {
		if strings.Contains(s, bp.fragment) {
			return bp.price
		}
	}
	return 100
}

type Option func(*Generator)

// WithSeed uses a deterministic random source.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.rng = rand.New(rand.NewSource(seed)) }
}

// WithRand uses the given source. The generator serialises access to it.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) {
		if r != nil {
			g.rng = r
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// Generator produces random-walk hourly candles ending at the current hour.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func New(opts ...Option) *Generator {
	g := &Generator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns Candles bars spaced one hour apart, the last one stamped now.
// Volatility is fixed at 1% of the base price; each bar opens at the previous close
// moved by up to half the volatility either way.
func (g *Generator) Generate(symbol string) models.Series {
	g.mu.Lock()
	defer g.mu.Unlock()

	base := BasePrice(symbol)
	vol := base * 0.01
	price := base
	end := g.now().Unix()

	candles := make([]models.Candle, 0, Candles)
	for i := int64(Candles - 1); i >= 0; i-- {
		price += (g.rng.Float64() - 0.5) * vol

		open := price
		high := price + g.rng.Float64()*vol*0.5
		low := price - g.rng.Float64()*vol*0.5
		closePrice := low + g.rng.Float64()*(high-low)

		// rounding is monotone, so low <= open,close <= high survives it
		candles = append(candles, models.Candle{
			Time:  end - i*step,
			Open:  round2(open),
			High:  round2(high),
			Low:   round2(low),
			Close: round2(closePrice),
		})

		price = closePrice
	}

	return models.Series{Candles: candles, Synthetic: true}
}

func round2(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
