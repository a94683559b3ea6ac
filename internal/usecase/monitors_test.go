package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"TradeSense/internal/domain/models"
	"TradeSense/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	mu        sync.Mutex
	ticket    *models.BotTicket
	status    *models.BotStatus
	ticketErr error
	statusErr error
	gate      chan struct{}
	calls     int
}

func (f *fakeBot) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeBot) LatestTicket(context.Context) (*models.BotTicket, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ticketErr != nil {
		return nil, f.ticketErr
	}
	return f.ticket, nil
}

func (f *fakeBot) Status(context.Context) (*models.BotStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func TestBotMonitorFreshness(t *testing.T) {
	clock := newFakeClock()
	bot := &fakeBot{
		ticket: &models.BotTicket{
			Symbol:     "EURUSD",
			SignalType: models.BotSignalLong,
			EntryPrice: decimal.RequireFromString("1.0850"),
			Timestamp:  clock.Now().Add(-4 * time.Minute),
		},
		status: &models.BotStatus{IsRunning: true, Connected: true},
	}
	m := NewBotMonitor(bot, time.Second, 5*time.Minute, metrics.Nop{}, nil)
	m.now = clock.Now

	m.Poll(context.Background())

	st := m.State(clock.Now())
	require.NotNil(t, st.Ticket)
	assert.Equal(t, "EURUSD", st.Ticket.Symbol)
	assert.True(t, st.Fresh)
	require.NotNil(t, st.Status)
	assert.True(t, st.Status.Connected)
	require.NotNil(t, st.LastUpdate)
	assert.Empty(t, st.Error)

	assert.False(t, m.State(clock.Now().Add(time.Minute)).Fresh, "five minutes old is stale")
}

func TestBotMonitorKeepsLastValueOnFailure(t *testing.T) {
	clock := newFakeClock()
	bot := &fakeBot{
		ticket: &models.BotTicket{Symbol: "XAUUSD", Timestamp: clock.Now()},
		status: &models.BotStatus{IsRunning: true},
	}
	m := NewBotMonitor(bot, time.Second, 0, metrics.Nop{}, nil)
	m.now = clock.Now
	m.Poll(context.Background())

	bot.mu.Lock()
	bot.ticketErr = errors.New("bot offline")
	bot.status = &models.BotStatus{IsRunning: false}
	bot.mu.Unlock()
	m.Poll(context.Background())

	st := m.State(clock.Now())
	require.NotNil(t, st.Ticket)
	assert.Equal(t, "XAUUSD", st.Ticket.Symbol)
	assert.False(t, st.Status.IsRunning)
	assert.Contains(t, st.Error, "bot offline")
}

func TestBotMonitorNoTicketYet(t *testing.T) {
	m := NewBotMonitor(&fakeBot{ticketErr: errUpstream, statusErr: errUpstream}, 0, 0, metrics.Nop{}, nil)
	m.Poll(context.Background())

	st := m.State(time.Now())
	assert.Nil(t, st.Ticket)
	assert.Nil(t, st.Status)
	assert.Nil(t, st.LastUpdate)
	assert.False(t, st.Fresh)
	assert.NotEmpty(t, st.Error)
}

func TestBotMonitorStopDropsInFlightPoll(t *testing.T) {
	release := make(chan struct{})
	bot := &fakeBot{
		ticket: &models.BotTicket{Symbol: "EURUSD", Timestamp: time.Now()},
		status: &models.BotStatus{IsRunning: true},
		gate:   release,
	}
	m := NewBotMonitor(bot, time.Hour, 0, metrics.Nop{}, nil)

	m.Start(context.Background())
	require.Eventually(t, func() bool { return bot.callCount() == 1 }, time.Second, time.Millisecond)
	h := m.handle
	m.Stop()
	close(release)
	<-h.Done()

	st := m.State(time.Now())
	assert.Nil(t, st.Ticket)
	assert.Nil(t, st.Status)
	assert.Nil(t, st.LastUpdate)
}

func TestTickerStripRefresh(t *testing.T) {
	clock := newFakeClock()
	q := newFakeQuotes()
	q.set("AAPL", 180, 1)
	q.fail("TSLA", errUpstream)
	strip := NewTickerStrip(q, []string{"aapl", " tsla ", ""}, 0, metrics.Nop{}, nil)
	strip.now = clock.Now

	assert.Empty(t, strip.Snapshot().Entries)
	assert.Nil(t, strip.Snapshot().UpdatedAt)

	snap := strip.Refresh(context.Background())
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, "AAPL", snap.Entries[0].Symbol)
	require.NotNil(t, snap.Entries[0].Quote)
	assert.Empty(t, snap.Entries[0].Error)
	assert.Equal(t, "TSLA", snap.Entries[1].Symbol)
	assert.Nil(t, snap.Entries[1].Quote)
	assert.Contains(t, snap.Entries[1].Error, "upstream down")
	require.NotNil(t, snap.UpdatedAt)
	assert.Equal(t, clock.Now(), *snap.UpdatedAt)
}

func TestTickerStripDefaults(t *testing.T) {
	strip := NewTickerStrip(newFakeQuotes(), nil, 0, metrics.Nop{}, nil)
	assert.Equal(t, DefaultTickerSymbols, strip.symbols)
	assert.Equal(t, 30*time.Second, strip.interval)
}

func TestTickerStripStopDropsInFlightTick(t *testing.T) {
	q := newFakeQuotes()
	q.set("AAPL", 180, 1)
	release := q.gate("AAPL")
	strip := NewTickerStrip(q, []string{"AAPL"}, time.Hour, metrics.Nop{}, nil)

	strip.Start(context.Background())
	require.Eventually(t, func() bool { return q.callCount("AAPL") == 1 }, time.Second, time.Millisecond)
	h := strip.handle
	strip.Stop()
	close(release)
	<-h.Done()

	assert.Nil(t, strip.Snapshot().UpdatedAt)
}

type stubReader struct {
	quotes  map[string]*models.Quote
	tracked string
}

func (s stubReader) Quote(symbol string) (*models.Quote, bool) {
	q, ok := s.quotes[symbol]
	return q, ok
}

func (s stubReader) Tracked() string { return s.tracked }

func TestSignalMonitorEvaluate(t *testing.T) {
	q := &models.Quote{Symbol: "IAM", Price: decimal.NewFromInt(120)}
	mon := NewSignalMonitor(stubReader{quotes: map[string]*models.Quote{"IAM": q}}, 0, nil)

	sig, err := mon.Evaluate("iam")
	require.NoError(t, err)
	assert.Equal(t, models.ActionNeutral, sig.Action, "missing change is treated as flat")
	assert.Equal(t, 50, sig.Confidence)

	latest, ok := mon.Latest("IAM")
	require.True(t, ok)
	assert.Same(t, sig, latest)

	_, err = mon.Evaluate("ATW")
	assert.ErrorIs(t, err, models.ErrPriceUnavailable)
	_, ok = mon.Latest("ATW")
	assert.False(t, ok)
}

func TestSignalMonitorTicksTrackedSymbol(t *testing.T) {
	q := &models.Quote{Symbol: "AAPL", Price: decimal.NewFromInt(180), ChangePct: decimal.NewNullDecimal(decimal.NewFromInt(-3))}
	mon := NewSignalMonitor(stubReader{quotes: map[string]*models.Quote{"AAPL": q}, tracked: "AAPL"}, time.Hour, nil)

	mon.Start(context.Background())
	defer mon.Stop()

	require.Eventually(t, func() bool {
		_, ok := mon.Latest("AAPL")
		return ok
	}, time.Second, time.Millisecond)
	sig, _ := mon.Latest("AAPL")
	assert.Equal(t, models.ActionSell, sig.Action)
	assert.Equal(t, 70, sig.Confidence)
}

type fakeCalendar struct {
	events []models.CalendarEvent
	err    error
}

func (f fakeCalendar) Events(context.Context) ([]models.CalendarEvent, error) {
	return f.events, f.err
}

func TestCalendarFilters(t *testing.T) {
	src := fakeCalendar{events: []models.CalendarEvent{
		{ID: "1", Impact: "High", Event: "CPI"},
		{ID: "2", Impact: "low", Event: "PMI"},
		{ID: "3", Impact: "HIGH", Event: "NFP"},
		{ID: "4", Impact: "Medium", Event: "GDP"},
	}}
	cal := NewCalendar(src)
	ctx := context.Background()

	all, err := cal.Events(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	high, _ := cal.Events(ctx, "high", 0)
	require.Len(t, high, 2)
	assert.Equal(t, "CPI", high[0].Event)
	assert.Equal(t, "NFP", high[1].Event)

	one, _ := cal.Events(ctx, "HIGH", 1)
	require.Len(t, one, 1)
	assert.Equal(t, "1", one[0].ID)

	limited, _ := cal.Events(ctx, "", 3)
	assert.Len(t, limited, 3)

	_, err = NewCalendar(fakeCalendar{err: errUpstream}).Events(ctx, "", 0)
	assert.ErrorIs(t, err, errUpstream)
}

func TestTradeEventsHandlerAppendsToJournal(t *testing.T) {
	j := &memJournal{}
	h := NewTradeEventsHandler("trade-events", j, metrics.Nop{})
	assert.Equal(t, "trade-events", h.Topic())

	ev, err := models.NewEvent(models.EventTradeExecuted, uuid.New(), time.Now(), map[string]string{"symbol": "AAPL"})
	require.NoError(t, err)
	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), raw))
	got, _ := j.Query(context.Background(), ev.ChallengeID, time.Time{}, time.Time{}, 0)
	require.Len(t, got, 1)
	assert.Equal(t, ev.ID, got[0].ID)
	assert.JSONEq(t, `{"symbol":"AAPL"}`, string(got[0].Payload))
}

func TestTradeEventsHandlerRejectsBadPayloads(t *testing.T) {
	j := &memJournal{}
	h := NewTradeEventsHandler("trade-events", j, metrics.Nop{})

	assert.Error(t, h.Handle(context.Background(), []byte("not json")))
	assert.Error(t, h.Handle(context.Background(), []byte(`{"type":"trade.executed"}`)))
	assert.Empty(t, j.events)

	j.err = errUpstream
	ev, _ := models.NewEvent(models.EventTradeExecuted, uuid.New(), time.Now(), nil)
	raw, _ := json.Marshal(ev)
	assert.ErrorIs(t, h.Handle(context.Background(), raw), errUpstream)
}
