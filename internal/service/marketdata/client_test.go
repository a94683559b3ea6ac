package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"TradeSense/internal/domain/models"
	"TradeSense/internal/domain/repository"
	"TradeSense/pkg/cache"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Credentials{BaseURL: srv.URL + "/api", Token: "tok"},
		WithTimeout(time.Second), WithClock(func() time.Time { return fixedNow }))
}

func TestGenericQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/market/quote", r.URL.Path)
		assert.Equal(t, "BTC-USD", r.URL.Query().Get("symbol"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"symbol":"BTC-USD","price":45000,"change_pct":2.5,"currency":"USD"}`))
	})

	q, err := c.Generic().GetQuote(context.Background(), "btc-usd")
	require.NoError(t, err)

	assert.Equal(t, "BTC-USD", q.Symbol)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(45000)))
	require.True(t, q.ChangePct.Valid)
	assert.Equal(t, "2.5", q.ChangePct.Decimal.String())
	assert.Equal(t, fixedNow, q.FetchedAt)
}

func TestQuoteWithoutChangePct(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"IAM","price":128.5,"change_pct":null,"source":"fallback"}`))
	})

	q, err := c.Region().GetQuote(context.Background(), "iam")
	require.NoError(t, err)
	assert.False(t, q.ChangePct.Valid)
	assert.Equal(t, "fallback", q.Source)
}

func TestRegionQuotePath(t *testing.T) {
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"symbol":"ATW","price":485}`))
	})

	_, err := c.Region().GetQuote(context.Background(), "ATW")
	require.NoError(t, err)
	assert.Equal(t, "/api/market/ma-quote", path)
}

func TestQuoteFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"error payload": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"symbol":"XYZ","price":0,"error":"no data"}`))
		},
		"zero price": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"symbol":"XYZ","price":0}`))
		},
		"http 500": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{`))
		},
	}
	for name, h := range cases {
		c := newTestClient(t, h)
		_, err := c.Generic().GetQuote(context.Background(), "XYZ")
		assert.Errorf(t, err, name)
	}
}

func TestGetSeriesSortsAscending(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		assert.Equal(t, "5d", r.URL.Query().Get("range"))
		_, _ = w.Write([]byte(`{"symbol":"AAPL","data":[
			{"time":7200,"open":2,"high":3,"low":1,"close":2.5},
			{"time":3600,"open":1,"high":2,"low":0.5,"close":1.5}
		]}`))
	})

	candles, err := c.GetSeries(context.Background(), "AAPL", repository.Interval1h, repository.Range5d)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(3600), candles[0].Time)
	assert.Equal(t, int64(7200), candles[1].Time)
}

func TestGetSeriesRejectsUnknownInterval(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { hits.Add(1) })

	_, err := c.GetSeries(context.Background(), "AAPL", "2h", repository.Range5d)
	assert.ErrorIs(t, err, models.ErrInvalidSeriesQuery)
	assert.Zero(t, hits.Load())
}

type stubQuotes struct {
	name  string
	calls atomic.Int32
	err   error
}

func (s *stubQuotes) GetQuote(_ context.Context, symbol string) (*models.Quote, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &models.Quote{Symbol: symbol, Price: decimal.NewFromInt(1), Source: s.name}, nil
}

func TestRouterDispatchesByVenue(t *testing.T) {
	generic := &stubQuotes{name: "generic"}
	region := &stubQuotes{name: "region"}
	r := NewRouter(nil, generic, region)

	for _, sym := range []string{"IAM", "atw", "Bcp", "LHM", "cih"} {
		assert.Equalf(t, models.VenueRegion, r.Venue(sym), sym)
		q, err := r.GetQuote(context.Background(), sym)
		require.NoError(t, err)
		assert.Equal(t, "region", q.Source)
	}

	for _, sym := range []string{"BTC-USD", "AAPL", "IAMX"} {
		assert.Equalf(t, models.VenueGeneric, r.Venue(sym), sym)
		q, err := r.GetQuote(context.Background(), sym)
		require.NoError(t, err)
		assert.Equal(t, "generic", q.Source)
	}
	assert.Equal(t, int32(5), region.calls.Load())
	assert.Equal(t, int32(3), generic.calls.Load())
}

func TestCachedQuoteSource(t *testing.T) {
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mc.Close()
	inner := &stubQuotes{name: "generic"}
	s := NewCachedQuoteSource(inner, mc, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := s.GetQuote(context.Background(), "AAPL")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), inner.calls.Load())

	passthrough := NewCachedQuoteSource(inner, mc, 0)
	_, _ = passthrough.GetQuote(context.Background(), "AAPL")
	assert.Equal(t, int32(2), inner.calls.Load())
}

type stubSeries struct {
	calls   atomic.Int32
	candles []models.Candle
	err     error
}

func (s *stubSeries) GetSeries(context.Context, string, repository.SeriesInterval, repository.SeriesRange) ([]models.Candle, error) {
	s.calls.Add(1)
	return s.candles, s.err
}

func TestCachedSeriesSourceSkipsEmptyAndErrors(t *testing.T) {
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mc.Close()

	empty := &stubSeries{}
	s := NewCachedSeriesSource(empty, mc, time.Minute)
	_, _ = s.GetSeries(context.Background(), "AAPL", repository.Interval1h, repository.Range5d)
	_, _ = s.GetSeries(context.Background(), "AAPL", repository.Interval1h, repository.Range5d)
	assert.Equal(t, int32(2), empty.calls.Load())

	failing := &stubSeries{err: errors.New("down")}
	_, err := NewCachedSeriesSource(failing, mc, time.Minute).
		GetSeries(context.Background(), "MSFT", repository.Interval1h, repository.Range5d)
	assert.Error(t, err)

	full := &stubSeries{candles: []models.Candle{{Time: 1, Open: decimal.NewFromInt(1), High: decimal.NewFromInt(1), Low: decimal.NewFromInt(1), Close: decimal.NewFromInt(1)}}}
	fs := NewCachedSeriesSource(full, mc, time.Minute)
	for i := 0; i < 2; i++ {
		got, err := fs.GetSeries(context.Background(), "TSLA", repository.Interval1h, repository.Range5d)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	assert.Equal(t, int32(1), full.calls.Load())
}
