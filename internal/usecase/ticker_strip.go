package usecase

import (
	"context"
	"sync"
	"time"

	"TradeSense/internal/domain/models"
	drepo "TradeSense/internal/domain/repository"
	applogger "TradeSense/pkg/logger"
	"TradeSense/pkg/poller"
	"TradeSense/pkg/util"
)

// DefaultTickerSymbols is the strip shown when none are configured.
var DefaultTickerSymbols = []string{"BTC-USD", "ETH-USD", "AAPL", "TSLA", "GOOGL", "MSFT", "AMZN"}

// TickerEntry holds either a quote or the error that replaced it.
type TickerEntry struct {
	Symbol string        `json:"symbol"`
	Quote  *models.Quote `json:"quote,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// TickerSnapshot is the whole strip as of UpdatedAt.
type TickerSnapshot struct {
	Entries   []TickerEntry `json:"entries"`
	UpdatedAt *time.Time    `json:"updated_at"`
}

// TickerStrip polls a fixed symbol list and replaces the aggregate on every tick.
type TickerStrip struct {
	quotes   drepo.QuoteSource
	symbols  []string
	interval time.Duration
	metrics  drepo.Metrics
	log      *applogger.Logger
	now      func() time.Time

	mu     sync.RWMutex
	snap   TickerSnapshot
	handle *poller.Handle
}

func NewTickerStrip(quotes drepo.QuoteSource, symbols []string, interval time.Duration, metrics drepo.Metrics, log *applogger.Logger) *TickerStrip {
	if len(symbols) == 0 {
		symbols = DefaultTickerSymbols
	}
	norm := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = util.NormalizeSymbol(s); s != "" {
			norm = append(norm, s)
		}
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &TickerStrip{
		quotes:   quotes,
		symbols:  norm,
		interval: interval,
		metrics:  metrics,
		log:      log.Component("ticker_strip"),
		now:      time.Now,
	}
}

// Start begins polling. Calling Start twice replaces the previous task.
func (t *TickerStrip) Start(ctx context.Context) {
	h := poller.Start(ctx, t.interval, func(ctx context.Context) {
		t.refresh(ctx, ctx)
	}, poller.WithName("ticker_strip"), poller.WithLogger(t.log))

	t.mu.Lock()
	prev := t.handle
	t.handle = h
	t.mu.Unlock()
	prev.Stop()
}

func (t *TickerStrip) Stop() {
	t.mu.Lock()
	h := t.handle
	t.handle = nil
	if h != nil {
		h.Stop()
	}
	t.mu.Unlock()
}

// Refresh polls all symbols now and returns the new strip.
func (t *TickerStrip) Refresh(ctx context.Context) TickerSnapshot {
	t.refresh(ctx, nil)
	return t.Snapshot()
}

// Snapshot returns a copy of the current strip.
func (t *TickerStrip) Snapshot() TickerSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := TickerSnapshot{Entries: make([]TickerEntry, len(t.snap.Entries))}
	copy(out.Entries, t.snap.Entries)
	if t.snap.UpdatedAt != nil {
		at := *t.snap.UpdatedAt
		out.UpdatedAt = &at
	}
	return out
}

func (t *TickerStrip) refresh(ctx, guard context.Context) {
	entries := make([]TickerEntry, len(t.symbols))

	var wg sync.WaitGroup
	for i, sym := range t.symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			entries[i] = TickerEntry{Symbol: sym}
			q, err := t.quotes.GetQuote(ctx, sym)
			if err == nil && (q == nil || !q.Price.IsPositive()) {
				err = models.ErrPriceUnavailable
			}
			if err != nil {
				entries[i].Error = err.Error()
				t.metrics.RecordRefresh("ticker", "error")
				t.log.Warn("ticker quote failed", applogger.String("symbol", sym), applogger.Error(err))
				return
			}
			entries[i].Quote = q
			t.metrics.RecordRefresh("ticker", "ok")
		}(i, sym)
	}
	wg.Wait()

	at := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if guard != nil && guard.Err() != nil {
		return
	}
	t.snap = TickerSnapshot{Entries: entries, UpdatedAt: &at}
}
