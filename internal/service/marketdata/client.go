// Package marketdata adapts the upstream market API into quote and series sources.
package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"TradeSense/internal/domain/models"
	"TradeSense/internal/domain/repository"
	xhttp "TradeSense/pkg/http"
	"TradeSense/pkg/util"

	"github.com/shopspring/decimal"
)

// Credentials locate and authenticate the upstream API. They are fixed at construction.
type Credentials struct {
	BaseURL string
	Token   string
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithClock overrides time.Now for quote timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// Client talks to the market API. It serves generic quotes, region quotes and series.
type Client struct {
	baseURL string
	http    *xhttp.Client
	timeout time.Duration
	now     func() time.Time
}

// NewClient builds a client over creds.
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(creds.BaseURL, "/"),
		timeout: 10 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	clientOpts := []xhttp.ClientOption{xhttp.WithTimeout(c.timeout)}
	if creds.Token != "" {
		clientOpts = append(clientOpts, xhttp.WithHeader("Authorization", "Bearer "+creds.Token))
	}
	c.http = xhttp.NewClient(clientOpts...)
	return c
}

type quotePayload struct {
	Symbol    string              `json:"symbol"`
	Name      string              `json:"name"`
	Price     decimal.Decimal     `json:"price"`
	ChangePct decimal.NullDecimal `json:"change_pct"`
	Currency  string              `json:"currency"`
	Source    string              `json:"source"`
	Error     string              `json:"error"`
}

type candlePayload struct {
	Time  int64           `json:"time"`
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
}

type seriesPayload struct {
	Symbol string          `json:"symbol"`
	Data   []candlePayload `json:"data"`
	Error  string          `json:"error"`
}

func (c *Client) quote(ctx context.Context, path, symbol string) (*models.Quote, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("quote: empty symbol")
	}

	var p quotePayload
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		QueryParams: map[string][]string{"symbol": {symbol}},
	}, &p)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if p.Error != "" {
		return nil, fmt.Errorf("quote %s: %w: %s", symbol, models.ErrUpstreamPayload, p.Error)
	}
	if !p.Price.IsPositive() {
		return nil, fmt.Errorf("quote %s: %w", symbol, models.ErrPriceUnavailable)
	}

	q := &models.Quote{
		Symbol:    symbol,
		Price:     p.Price,
		ChangePct: p.ChangePct,
		Name:      p.Name,
		Currency:  p.Currency,
		Source:    p.Source,
		FetchedAt: c.now(),
	}
	return q, nil
}

// GetSeries fetches candles for symbol, sorted ascending by time.
func (c *Client) GetSeries(ctx context.Context, symbol string, interval repository.SeriesInterval, rng repository.SeriesRange) ([]models.Candle, error) {
	symbol = util.NormalizeSymbol(symbol)
	if !repository.IsValidInterval(interval) || !repository.IsValidRange(rng) {
		return nil, fmt.Errorf("series %s %s/%s: %w", symbol, interval, rng, models.ErrInvalidSeriesQuery)
	}

	var p seriesPayload
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/market/series",
		QueryParams: map[string][]string{
			"symbol":   {symbol},
			"interval": {string(interval)},
			"range":    {string(rng)},
		},
	}, &p)
	if err != nil {
		return nil, fmt.Errorf("series %s: %w", symbol, err)
	}
	if p.Error != "" {
		return nil, fmt.Errorf("series %s: %w: %s", symbol, models.ErrUpstreamPayload, p.Error)
	}

	candles := make([]models.Candle, 0, len(p.Data))
	for _, cp := range p.Data {
		candles = append(candles, models.Candle{
			Time:  cp.Time,
			Open:  cp.Open,
			High:  cp.High,
			Low:   cp.Low,
			Close: cp.Close,
		})
	}
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Time < candles[j].Time })
	return candles, nil
}

// Generic returns the QuoteSource for non-region symbols.
func (c *Client) Generic() repository.QuoteSource {
	return quoteEndpoint{c: c, path: "/market/quote"}
}

// Region returns the QuoteSource for region-set symbols.
func (c *Client) Region() repository.QuoteSource {
	return quoteEndpoint{c: c, path: "/market/ma-quote"}
}

type quoteEndpoint struct {
	c    *Client
	path string
}

func (e quoteEndpoint) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return e.c.quote(ctx, e.path, symbol)
}
