package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradeSense/internal/domain/models"
	drepo "TradeSense/internal/domain/repository"
	"TradeSense/internal/services/synthetic"
	applogger "TradeSense/pkg/logger"
	"TradeSense/pkg/poller"
	"TradeSense/pkg/util"
)

// DefaultLiveWindow is how long a successful quote keeps a symbol live.
const DefaultLiveWindow = 60 * time.Second

// Snapshot is the synchronizer's view of one symbol. IsLive is computed at read time.
type Snapshot struct {
	Symbol      string        `json:"symbol"`
	Quote       *models.Quote `json:"quote"`
	Series      models.Series `json:"series"`
	Synthetic   bool          `json:"synthetic"`
	LastUpdate  *time.Time    `json:"last_update"`
	IsLive      bool          `json:"is_live"`
	Error       string        `json:"error,omitempty"`
	SeriesError string        `json:"series_error,omitempty"`
}

type symbolState struct {
	quote      *models.Quote
	series     models.Series
	lastUpdate *time.Time
	err        string
	seriesErr  string
}

// MarketSyncOption configures MarketSync.
type MarketSyncOption func(*MarketSync)

// WithSyncClock overrides time.Now for liveness and timestamps.
func WithSyncClock(now func() time.Time) MarketSyncOption {
	return func(m *MarketSync) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLiveWindow sets the liveness window.
func WithLiveWindow(d time.Duration) MarketSyncOption {
	return func(m *MarketSync) {
		if d > 0 {
			m.liveWindow = d
		}
	}
}

// WithSeriesWindow sets the series interval and range requested on every cycle.
func WithSeriesWindow(iv drepo.SeriesInterval, rng drepo.SeriesRange) MarketSyncOption {
	return func(m *MarketSync) {
		m.interval = drepo.NormalizeInterval(string(iv))
		m.rng = drepo.NormalizeRange(string(rng))
	}
}

// WithRegionSymbols sets the region venue set. Region symbols have no series upstream.
func WithRegionSymbols(symbols []string) MarketSyncOption {
	return func(m *MarketSync) {
		m.regions = models.NewRegionSet(symbols)
	}
}

// WithDefaultInterval sets the refresh cadence used when Track gets no interval.
func WithDefaultInterval(d time.Duration) MarketSyncOption {
	return func(m *MarketSync) {
		if d > 0 {
			m.defaultInterval = d
		}
	}
}

// MarketSync keeps quote and series state per symbol fresh by polling.
// At most one symbol is tracked at a time; switching stops the old task before
// starting the new one, and writes from a stopped task are dropped.
type MarketSync struct {
	quotes  drepo.QuoteSource
	series  drepo.SeriesSource
	synth   *synthetic.Generator
	metrics drepo.Metrics
	log     *applogger.Logger

	now             func() time.Time
	liveWindow      time.Duration
	defaultInterval time.Duration
	interval        drepo.SeriesInterval
	rng             drepo.SeriesRange
	regions         models.RegionSet

	mu      sync.Mutex
	states  map[string]*symbolState
	tracked string
	handle  *poller.Handle
	subs    []func(Snapshot)
}

func NewMarketSync(quotes drepo.QuoteSource, series drepo.SeriesSource, synth *synthetic.Generator, metrics drepo.Metrics, log *applogger.Logger, opts ...MarketSyncOption) *MarketSync {
	if log == nil {
		log = applogger.Nop()
	}
	m := &MarketSync{
		quotes:          quotes,
		series:          series,
		synth:           synth,
		metrics:         metrics,
		log:             log.Component("market_sync"),
		now:             time.Now,
		liveWindow:      DefaultLiveWindow,
		defaultInterval: 15 * time.Second,
		interval:        drepo.Interval1h,
		rng:             drepo.Range5d,
		regions:         models.NewRegionSet(nil),
		states:          make(map[string]*symbolState),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches a polling task for symbol without touching the tracked symbol.
// The task stays alive until Stop is called on its handle or parent ends.
func (m *MarketSync) Start(parent context.Context, symbol string, interval time.Duration) *poller.Handle {
	symbol = util.NormalizeSymbol(symbol)
	return poller.Start(parent, interval, func(ctx context.Context) {
		m.cycle(ctx, ctx, symbol)
	}, poller.WithName("sync:"+symbol), poller.WithLogger(m.log))
}

// Stop cancels h. Any fetch still in flight for h completes but its result is discarded.
func (m *MarketSync) Stop(h *poller.Handle) {
	if h == nil {
		return
	}
	m.mu.Lock()
	h.Stop()
	if m.handle == h {
		m.handle = nil
		m.tracked = ""
	}
	m.mu.Unlock()
}

// Track switches the tracked symbol. A nil interval uses the default cadence;
// a non-positive one fetches once.
func (m *MarketSync) Track(parent context.Context, symbol string, interval *time.Duration) (*poller.Handle, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("track: empty symbol")
	}
	every := m.defaultInterval
	if interval != nil {
		every = *interval
	}

	m.mu.Lock()
	prev := m.handle
	if prev != nil {
		prev.Stop()
	}
	if _, ok := m.states[symbol]; !ok {
		m.states[symbol] = &symbolState{}
	}
	h := m.Start(parent, symbol, every)
	m.handle = h
	m.tracked = symbol
	m.mu.Unlock()

	m.log.Info("tracking symbol",
		applogger.String("symbol", symbol),
		applogger.Duration("interval_ms", every),
	)
	return h, nil
}

// StopAll stops the tracked task.
func (m *MarketSync) StopAll() {
	m.mu.Lock()
	h := m.handle
	m.mu.Unlock()
	m.Stop(h)
}

// Tracked returns the tracked symbol, or "" when nothing is tracked.
func (m *MarketSync) Tracked() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracked
}

// Refresh fetches quote and series for symbol now and waits for both.
// Its writes land whether or not symbol is tracked.
func (m *MarketSync) Refresh(ctx context.Context, symbol string) (Snapshot, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return Snapshot{}, fmt.Errorf("refresh: empty symbol")
	}
	m.cycle(ctx, nil, symbol)
	return m.Snapshot(symbol), nil
}

// Subscribe registers fn to receive the snapshot after every write.
// fn runs on the writer's goroutine and must not block.
func (m *MarketSync) Subscribe(fn func(Snapshot)) {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
}

// Snapshot returns the current state of symbol.
func (m *MarketSync) Snapshot(symbol string) Snapshot {
	symbol = util.NormalizeSymbol(symbol)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(symbol)
}

// Quote returns the last good quote for symbol, if any.
func (m *MarketSync) Quote(symbol string) (*models.Quote, bool) {
	s := m.Snapshot(symbol)
	return s.Quote, s.Quote != nil
}

func (m *MarketSync) snapshotLocked(symbol string) Snapshot {
	snap := Snapshot{Symbol: symbol}
	st, ok := m.states[symbol]
	if !ok {
		return snap
	}
	if st.quote != nil {
		q := *st.quote
		snap.Quote = &q
	}
	snap.Series = st.series
	snap.Synthetic = st.series.Synthetic
	snap.Error = st.err
	snap.SeriesError = st.seriesErr
	if st.lastUpdate != nil {
		t := *st.lastUpdate
		snap.LastUpdate = &t
		snap.IsLive = m.now().Sub(t) < m.liveWindow
	}
	return snap
}

// cycle runs both fetches concurrently. guard is the owning task's context; a nil guard
// means the writes are unconditional.
func (m *MarketSync) cycle(ctx, guard context.Context, symbol string) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.syncQuote(ctx, guard, symbol)
	}()
	go func() {
		defer wg.Done()
		m.syncSeries(ctx, guard, symbol)
	}()
	wg.Wait()
}

func (m *MarketSync) syncQuote(ctx, guard context.Context, symbol string) {
	start := time.Now()
	q, err := m.quotes.GetQuote(ctx, symbol)
	m.metrics.RecordLatency("quote_fetch", time.Since(start).Seconds())
	if err == nil && (q == nil || !q.Price.IsPositive()) {
		err = models.ErrPriceUnavailable
	}

	snap, ok := m.write(guard, symbol, func(st *symbolState) {
		if err != nil {
			st.err = err.Error()
			return
		}
		at := m.now()
		st.quote = q
		st.lastUpdate = &at
		st.err = ""
	})
	if !ok {
		return
	}

	if err != nil {
		m.metrics.RecordRefresh("quote", "error")
		m.log.Warn("quote refresh failed", applogger.String("symbol", symbol), applogger.Error(err))
	} else {
		m.metrics.RecordRefresh("quote", "ok")
		m.metrics.RecordLastPrice(symbol, q.Price.InexactFloat64())
	}
	m.publish(snap)
}

func (m *MarketSync) syncSeries(ctx, guard context.Context, symbol string) {
	if m.regions.Venue(symbol) == models.VenueRegion {
		m.clearSeries(guard, symbol)
		return
	}

	start := time.Now()
	candles, err := m.series.GetSeries(ctx, symbol, m.interval, m.rng)
	m.metrics.RecordLatency("series_fetch", time.Since(start).Seconds())

	series := models.Series{Candles: candles}
	fallback := err != nil || len(candles) == 0
	if fallback {
		series = m.synth.Generate(symbol)
	}

	snap, ok := m.write(guard, symbol, func(st *symbolState) {
		st.series = series
		st.seriesErr = ""
		if err != nil {
			st.seriesErr = err.Error()
		}
	})
	if !ok {
		return
	}

	switch {
	case err != nil:
		m.metrics.RecordRefresh("series", "error")
		m.log.Warn("series refresh failed, using synthetic data", applogger.String("symbol", symbol), applogger.Error(err))
	case fallback:
		m.metrics.RecordRefresh("series", "empty")
	default:
		m.metrics.RecordRefresh("series", "ok")
	}
	if fallback {
		m.metrics.RecordSyntheticFallback(symbol)
	}
	m.publish(snap)
}

// clearSeries stores an empty real series for a region symbol without asking upstream.
func (m *MarketSync) clearSeries(guard context.Context, symbol string) {
	snap, ok := m.write(guard, symbol, func(st *symbolState) {
		st.series = models.Series{}
		st.seriesErr = ""
	})
	if !ok {
		return
	}
	m.metrics.RecordRefresh("series", "skipped")
	m.publish(snap)
}

// write applies fn to symbol's state unless guard is done. The check happens under the
// same lock Stop takes, so nothing lands after Stop returns.
func (m *MarketSync) write(guard context.Context, symbol string, fn func(*symbolState)) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if guard != nil && guard.Err() != nil {
		return Snapshot{}, false
	}
	st, ok := m.states[symbol]
	if !ok {
		st = &symbolState{}
		m.states[symbol] = st
	}
	fn(st)
	return m.snapshotLocked(symbol), true
}

func (m *MarketSync) publish(snap Snapshot) {
	m.mu.Lock()
	subs := make([]func(Snapshot), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
