package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"TradeSense/internal/domain/models"
	drepo "TradeSense/internal/domain/repository"
	"TradeSense/internal/repository"
	"TradeSense/internal/service/ratelimit"
	"TradeSense/internal/services/rules"
	"TradeSense/internal/services/synthetic"
	"TradeSense/internal/usecase"
	xhttp "TradeSense/pkg/http"
	applogger "TradeSense/pkg/logger"
	"TradeSense/pkg/metrics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuotes struct {
	mu     sync.Mutex
	quotes map[string]*models.Quote
}

func (s *stubQuotes) set(symbol, price, change string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[symbol] = &models.Quote{
		Symbol:    symbol,
		Price:     decimal.RequireFromString(price),
		ChangePct: decimal.NewNullDecimal(decimal.RequireFromString(change)),
	}
}

func (s *stubQuotes) GetQuote(_ context.Context, symbol string) (*models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[symbol]
	if !ok {
		return nil, models.ErrPriceUnavailable
	}
	cp := *q
	return &cp, nil
}

type emptySeries struct{}

func (emptySeries) GetSeries(context.Context, string, drepo.SeriesInterval, drepo.SeriesRange) ([]models.Candle, error) {
	return nil, nil
}

type stubCalendar []models.CalendarEvent

func (s stubCalendar) Events(context.Context) ([]models.CalendarEvent, error) { return s, nil }

type testAPI struct {
	e      *echo.Echo
	quotes *stubQuotes
	store  *repository.MemoryChallengeStore
	sync   *usecase.MarketSync
}

func newTestAPI(t *testing.T, limiter *ratelimit.Limiter) *testAPI {
	t.Helper()
	log := applogger.Nop()
	quotes := &stubQuotes{quotes: map[string]*models.Quote{}}
	store := repository.NewMemoryChallengeStore()
	evaluator := rules.NewEvaluator(models.DefaultRuleLimits())

	ms := usecase.NewMarketSync(quotes, emptySeries{}, synthetic.New(synthetic.WithSeed(1)), metrics.Nop{}, log)
	t.Cleanup(ms.StopAll)
	ticker := usecase.NewTickerStrip(quotes, []string{"AAPL"}, 0, metrics.Nop{}, log)
	cal := usecase.NewCalendar(stubCalendar{
		{ID: "1", Impact: "High", Event: "CPI"},
		{ID: "2", Impact: "Low", Event: "PMI"},
	})
	monitor := usecase.NewSignalMonitor(ms, 0, log)
	challenges := usecase.NewChallengeService(store, evaluator, decimal.NewFromInt(10000), log)
	executor := usecase.NewTradeExecutor(store, quotes, evaluator, nil, metrics.Nop{}, log)

	e := echo.New()
	xhttp.Handlers{
		NewMarketHandler(log, ms, ticker, cal),
		NewSignalsHandler(log, ms, monitor, nil),
		NewChallengesHandler(log, challenges),
		NewTradesHandler(log, executor, limiter),
	}.RegisterRoutes(e)

	return &testAPI{e: e, quotes: quotes, store: store, sync: ms}
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (a *testAPI) do(t *testing.T, method, target, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (a *testAPI) openChallenge(t *testing.T) uuid.UUID {
	t.Helper()
	code, env := a.do(t, http.MethodPost, "/api/challenges", `{"start_balance": 10000}`)
	require.Equal(t, http.StatusCreated, code)
	var ch models.Challenge
	require.NoError(t, json.Unmarshal(env.Data, &ch))
	return ch.ID
}

func TestRefreshSnapshotAndSignal(t *testing.T) {
	a := newTestAPI(t, nil)
	a.quotes.set("BTC-USD", "45000", "2.5")

	code, env := a.do(t, http.MethodPost, "/api/market/refresh", `{"symbol":"btc-usd"}`)
	require.Equal(t, http.StatusOK, code)
	var snap usecase.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, "BTC-USD", snap.Symbol)
	assert.True(t, snap.IsLive)
	assert.True(t, snap.Synthetic)

	code, env = a.do(t, http.MethodGet, "/api/market/snapshot?symbol=BTC-USD", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	require.NotNil(t, snap.Quote)
	assert.Equal(t, "45000", snap.Quote.Price.String())

	code, env = a.do(t, http.MethodGet, "/api/signals?symbol=BTC-USD", "")
	require.Equal(t, http.StatusOK, code)
	var sig models.Signal
	require.NoError(t, json.Unmarshal(env.Data, &sig))
	assert.Equal(t, models.ActionBuy, sig.Action)
	assert.Equal(t, 75, sig.Confidence)
}

func TestSnapshotWithoutSymbolOrTracking(t *testing.T) {
	a := newTestAPI(t, nil)

	code, _ := a.do(t, http.MethodGet, "/api/market/snapshot", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(t, http.MethodGet, "/api/signals", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(t, http.MethodGet, "/api/signals?symbol=NOPE", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTrackSwitchesSymbol(t *testing.T) {
	a := newTestAPI(t, nil)
	a.quotes.set("IAM", "120", "0")

	code, env := a.do(t, http.MethodPost, "/api/market/track", `{"symbol":"iam","interval_ms":0}`)
	require.Equal(t, http.StatusAccepted, code)
	assert.Contains(t, string(env.Data), `"symbol":"IAM"`)
	assert.Equal(t, "IAM", a.sync.Tracked())

	code, _ = a.do(t, http.MethodPost, "/api/market/track", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTickerAndCalendar(t *testing.T) {
	a := newTestAPI(t, nil)
	a.quotes.set("AAPL", "180", "1")

	code, env := a.do(t, http.MethodGet, "/api/market/ticker", "")
	require.Equal(t, http.StatusOK, code)
	var strip usecase.TickerSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &strip))
	require.Len(t, strip.Entries, 1)
	assert.NotNil(t, strip.Entries[0].Quote)
	assert.NotNil(t, strip.UpdatedAt)

	code, env = a.do(t, http.MethodGet, "/api/market/calendar?impact=high", "")
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Rows  []models.CalendarEvent `json:"rows"`
		Total int64                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 1, list.Total)
	assert.Equal(t, "CPI", list.Rows[0].Event)

	code, _ = a.do(t, http.MethodGet, "/api/market/calendar?impact=extreme", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestChallengeLifecycle(t *testing.T) {
	a := newTestAPI(t, nil)

	code, _ := a.do(t, http.MethodGet, "/api/challenges/active", "")
	assert.Equal(t, http.StatusNotFound, code)

	id := a.openChallenge(t)

	code, env := a.do(t, http.MethodGet, "/api/challenges/active", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), id.String())

	code, _ = a.do(t, http.MethodGet, "/api/challenges/"+id.String(), "")
	assert.Equal(t, http.StatusOK, code)

	code, env = a.do(t, http.MethodGet, "/api/challenges/"+id.String()+"/metrics", "")
	require.Equal(t, http.StatusOK, code)
	var m models.ChallengeMetrics
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.True(t, m.CurrentEquity.Equal(decimal.NewFromInt(10000)))

	code, _ = a.do(t, http.MethodGet, "/api/challenges/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(t, http.MethodGet, "/api/challenges/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, code)

	code, env = a.do(t, http.MethodGet, "/api/leaderboard", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total":1`)

	code, _ = a.do(t, http.MethodGet, "/api/leaderboard?month=2024-13", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreateTradeAndHistory(t *testing.T) {
	a := newTestAPI(t, nil)
	a.quotes.set("BTC-USD", "45000", "2.5")
	id := a.openChallenge(t)

	body := `{"challenge_id":"` + id.String() + `","symbol":"BTC-USD","side":"buy","qty":"0.01"}`
	code, env := a.do(t, http.MethodPost, "/api/trades", body)
	require.Equal(t, http.StatusCreated, code, string(env.Data))
	var res models.TradeResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Trade.PnL.IsZero())
	assert.True(t, res.Challenge.Equity.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, models.StatusActive, res.RuleResult.Status)

	code, env = a.do(t, http.MethodGet, "/api/trades?challenge_id="+id.String(), "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total":1`)
}

func TestCreateTradeErrors(t *testing.T) {
	a := newTestAPI(t, nil)
	a.quotes.set("AAPL", "100", "0")
	id := a.openChallenge(t)
	trade := func(challenge, symbol, side, qty string) int {
		code, _ := a.do(t, http.MethodPost, "/api/trades",
			`{"challenge_id":"`+challenge+`","symbol":"`+symbol+`","side":"`+side+`","qty":"`+qty+`"}`)
		return code
	}

	assert.Equal(t, http.StatusBadRequest, trade(id.String(), "AAPL", "hold", "1"))
	assert.Equal(t, http.StatusBadRequest, trade(id.String(), "AAPL", "buy", "0"))
	assert.Equal(t, http.StatusBadRequest, trade("nope", "AAPL", "buy", "1"))
	assert.Equal(t, http.StatusNotFound, trade(uuid.NewString(), "AAPL", "buy", "1"))
	assert.Equal(t, http.StatusBadGateway, trade(id.String(), "MSFT", "buy", "1"))

	_, _, err := a.store.ApplyTrade(context.Background(), id, func(acct *models.Account) (*models.Trade, error) {
		acct.Challenge.Status = models.StatusFailed
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, trade(id.String(), "AAPL", "buy", "1"))
}

func TestTradeSubmissionIsRateLimited(t *testing.T) {
	a := newTestAPI(t, ratelimit.New(1, 1))
	a.quotes.set("AAPL", "100", "0")
	id := a.openChallenge(t)
	body := `{"challenge_id":"` + id.String() + `","symbol":"AAPL","side":"buy","qty":"1"}`

	code, _ := a.do(t, http.MethodPost, "/api/trades", body)
	assert.Equal(t, http.StatusCreated, code)
	code, _ = a.do(t, http.MethodPost, "/api/trades", body)
	assert.Equal(t, http.StatusTooManyRequests, code)

	code, _ = a.do(t, http.MethodGet, "/api/trades?challenge_id="+id.String(), "")
	assert.Equal(t, http.StatusOK, code, "history is not throttled")
}

func TestBotDisabled(t *testing.T) {
	a := newTestAPI(t, nil)
	code, _ := a.do(t, http.MethodGet, "/api/bot", "")
	assert.Equal(t, http.StatusNotFound, code)
}
