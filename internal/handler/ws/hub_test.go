package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"TradeSense/internal/domain/models"
	"TradeSense/internal/usecase"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil)
	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/market"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func snapshot(symbol, price string) usecase.Snapshot {
	return usecase.Snapshot{
		Symbol: symbol,
		Quote:  &models.Quote{Symbol: symbol, Price: decimal.RequireFromString(price)},
		IsLive: true,
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(snapshot("BTC-USD", "45000"))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "snapshot", msg.Type)
	assert.Equal(t, "BTC-USD", msg.Data.Symbol)
	require.NotNil(t, msg.Data.Quote)
	assert.Equal(t, "45000", msg.Data.Quote.Price.String())
	assert.True(t, msg.Data.IsLive)
}

func TestSymbolFilter(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url+"?symbol=aapl")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(snapshot("BTC-USD", "45000"))
	hub.Broadcast(snapshot("AAPL", "180"))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "AAPL", msg.Data.Symbol)
}

func TestClientDisconnectIsRemoved(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(snapshot("AAPL", "180"))
}

func TestCloseRefusesNewClients(t *testing.T) {
	hub, url := startHub(t)
	hub.Close()

	conn := dial(t, url)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Count())
}
