package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"TradeSense/internal/domain/models"
	drepo "TradeSense/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errUpstream = errors.New("upstream down")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeQuotes struct {
	mu     sync.Mutex
	quotes map[string]*models.Quote
	errs   map[string]error
	gates  map[string]chan struct{}
	calls  map[string]int
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{
		quotes: map[string]*models.Quote{},
		errs:   map[string]error{},
		gates:  map[string]chan struct{}{},
		calls:  map[string]int{},
	}
}

func (f *fakeQuotes) set(symbol string, price, change float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := &models.Quote{Symbol: symbol, Price: decimal.NewFromFloat(price)}
	q.ChangePct = decimal.NewNullDecimal(decimal.NewFromFloat(change))
	f.quotes[symbol] = q
	delete(f.errs, symbol)
}

func (f *fakeQuotes) fail(symbol string, err error) {
	f.mu.Lock()
	f.errs[symbol] = err
	f.mu.Unlock()
}

// gate makes GetQuote for symbol block until the returned channel is closed.
func (f *fakeQuotes) gate(symbol string) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[symbol] = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeQuotes) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func (f *fakeQuotes) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	f.mu.Lock()
	f.calls[symbol]++
	gate := f.gates[symbol]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, models.ErrPriceUnavailable
	}
	cp := *q
	return &cp, nil
}

type fakeSeries struct {
	mu      sync.Mutex
	candles map[string][]models.Candle
	err     error
	calls   int
}

func (f *fakeSeries) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSeries) GetSeries(_ context.Context, symbol string, _ drepo.SeriesInterval, _ drepo.SeriesRange) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candles[symbol], nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evs ...*models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type memJournal struct {
	mu     sync.Mutex
	events []*models.Event
	err    error
}

func (j *memJournal) Init(context.Context) error { return nil }

func (j *memJournal) Append(_ context.Context, evs ...*models.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.events = append(j.events, evs...)
	return nil
}

func (j *memJournal) Query(_ context.Context, id uuid.UUID, _, _ time.Time, _ int) ([]*models.Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*models.Event
	for _, ev := range j.events {
		if ev.ChallengeID == id {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (j *memJournal) Health(context.Context) error { return nil }
func (j *memJournal) Close() error                 { return nil }

func candle(ts int64, o, h, l, c float64) models.Candle {
	return models.Candle{
		Time:  ts,
		Open:  decimal.NewFromFloat(o),
		High:  decimal.NewFromFloat(h),
		Low:   decimal.NewFromFloat(l),
		Close: decimal.NewFromFloat(c),
	}
}
