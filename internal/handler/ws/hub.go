// Package ws pushes synchronizer snapshots to browser clients over WebSocket.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"TradeSense/internal/usecase"
	applogger "TradeSense/pkg/logger"
	"TradeSense/pkg/util"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultSendBuffer   = 64
	writeWait           = 10 * time.Second
)

// Message is the frame written to clients.
type Message struct {
	Type string           `json:"type"`
	Data usecase.Snapshot `json:"data"`
}

type client struct {
	conn   *websocket.Conn
	symbol string
	send   chan []byte
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

type Option func(*Hub)

// WithPingInterval sets how often idle connections are pinged.
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithSendBuffer sets the per-client queue; a full queue drops frames.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithCheckOrigin replaces the default same-origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = fn
	}
}

// Hub fans snapshots out to connected clients.
type Hub struct {
	log          *applogger.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	sendBuffer   int

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

func NewHub(log *applogger.Logger, opts ...Option) *Hub {
	if log == nil {
		log = applogger.Nop()
	}
	h := &Hub{
		log:          log.Component("ws_hub"),
		upgrader:     websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096},
		pingInterval: defaultPingInterval,
		sendBuffer:   defaultSendBuffer,
		clients:      make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/market", h.Handle)
}

// Handle upgrades the request. ?symbol= limits the stream to one symbol.
func (h *Hub) Handle(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}

	cl := &client{
		conn:   conn,
		symbol: util.NormalizeSymbol(c.QueryParam("symbol")),
		send:   make(chan []byte, h.sendBuffer),
	}
	if !h.add(cl) {
		_ = conn.Close()
		return nil
	}
	h.log.Debug("websocket client connected", applogger.String("symbol", cl.symbol), applogger.Int("clients", h.Count()))

	go h.writeLoop(cl)
	h.readLoop(cl)
	return nil
}

// Broadcast queues snap for every interested client. It never blocks.
func (h *Hub) Broadcast(snap usecase.Snapshot) {
	b, err := json.Marshal(Message{Type: "snapshot", Data: snap})
	if err != nil {
		h.log.Error("marshal snapshot", applogger.String("symbol", snap.Symbol), applogger.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients {
		if cl.symbol != "" && cl.symbol != snap.Symbol {
			continue
		}
		select {
		case cl.send <- b:
		default:
			// slow client, drop the frame
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for cl := range clients {
		cl.close()
	}
}

func (h *Hub) add(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	return true
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	delete(h.clients, cl)
	h.mu.Unlock()
	cl.close()
}

// readLoop only watches for the peer going away; inbound frames are ignored.
func (h *Hub) readLoop(cl *client) {
	defer h.remove(cl)

	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read", applogger.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writeLoop(cl *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case b, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
