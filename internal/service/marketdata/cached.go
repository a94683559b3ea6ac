package marketdata

import (
	"context"
	"time"

	"TradeSense/internal/domain/models"
	"TradeSense/internal/domain/repository"
	"TradeSense/pkg/cache"
	"TradeSense/pkg/util"
)

// CachedQuoteSource serves quotes from cache for ttl. A zero ttl passes straight through.
type CachedQuoteSource struct {
	next  repository.QuoteSource
	cache cache.Service
	ttl   time.Duration
}

func NewCachedQuoteSource(next repository.QuoteSource, c cache.Service, ttl time.Duration) *CachedQuoteSource {
	return &CachedQuoteSource{next: next, cache: c, ttl: ttl}
}

func (s *CachedQuoteSource) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if s.ttl <= 0 || s.cache == nil {
		return s.next.GetQuote(ctx, symbol)
	}
	key := cache.GenerateKeyWithParams("quote", util.NormalizeSymbol(symbol))
	return cache.GetOrLoad(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*models.Quote, error) {
		return s.next.GetQuote(ctx, symbol)
	})
}

// CachedSeriesSource caches non-empty series for ttl. Empty results are not cached.
type CachedSeriesSource struct {
	next  repository.SeriesSource
	cache cache.Service
	ttl   time.Duration
}

func NewCachedSeriesSource(next repository.SeriesSource, c cache.Service, ttl time.Duration) *CachedSeriesSource {
	return &CachedSeriesSource{next: next, cache: c, ttl: ttl}
}

func (s *CachedSeriesSource) GetSeries(ctx context.Context, symbol string, interval repository.SeriesInterval, rng repository.SeriesRange) ([]models.Candle, error) {
	if s.ttl <= 0 || s.cache == nil {
		return s.next.GetSeries(ctx, symbol, interval, rng)
	}

	key := cache.GenerateKeyWithParams("series", util.NormalizeSymbol(symbol), interval, rng)
	var cached []models.Candle
	if err := s.cache.Get(ctx, key, &cached); err == nil && len(cached) > 0 {
		return cached, nil
	}

	candles, err := s.next.GetSeries(ctx, symbol, interval, rng)
	if err != nil {
		return nil, err
	}
	if len(candles) > 0 {
		_ = s.cache.Set(ctx, key, candles, s.ttl)
	}
	return candles, nil
}
