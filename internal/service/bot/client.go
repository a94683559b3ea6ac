// Package bot reads the external signal bot's HTTP API.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TradeSense/internal/domain/models"
	xhttp "TradeSense/pkg/http"
	"TradeSense/pkg/util"

	"github.com/shopspring/decimal"
)

type ticketPayload struct {
	Timestamp  *string                `json:"timestamp"`
	Symbol     string                 `json:"symbol"`
	SignalType string                 `json:"signal_type"`
	EntryPrice decimal.Decimal        `json:"entry_price"`
	SL         decimal.Decimal        `json:"sl"`
	TP         decimal.Decimal        `json:"tp"`
	Confidence decimal.Decimal        `json:"confidence"`
	Indicators map[string]interface{} `json:"indicators"`
	Status     string                 `json:"status"`
}

type statusPayload struct {
	IsRunning    bool  `json:"is_running"`
	MT5Connected *bool `json:"mt5_connected"`
	Connected    *bool `json:"connected"`
}

// Client implements repository.BotSource.
type Client struct {
	baseURL string
	http    *xhttp.Client
	loc     *time.Location
}

// NewClient builds a bot client. Zone-less ticket timestamps are read in loc (nil means time.Local).
func NewClient(baseURL string, timeout time.Duration, loc *time.Location) *Client {
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		loc:     loc,
	}
}

// LatestTicket fetches GET /api/latest-ticket.
func (c *Client) LatestTicket(ctx context.Context) (*models.BotTicket, error) {
	var p ticketPayload
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/api/latest-ticket",
	}, &p)
	if err != nil {
		return nil, fmt.Errorf("bot ticket: %w", err)
	}

	t := &models.BotTicket{
		Symbol:     p.Symbol,
		SignalType: models.ParseBotSignalType(p.SignalType),
		EntryPrice: p.EntryPrice,
		StopLoss:   p.SL,
		TakeProfit: p.TP,
		Confidence: p.Confidence,
		Indicators: p.Indicators,
		Status:     p.Status,
	}
	if p.Timestamp != nil {
		if ts, ok := util.ParseTimeIn(*p.Timestamp, c.loc); ok {
			t.Timestamp = ts
		}
	}
	return t, nil
}

// Status fetches GET /api/status. Either mt5_connected or connected carries the link flag.
func (c *Client) Status(ctx context.Context) (*models.BotStatus, error) {
	var p statusPayload
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/api/status",
	}, &p)
	if err != nil {
		return nil, fmt.Errorf("bot status: %w", err)
	}

	s := &models.BotStatus{IsRunning: p.IsRunning}
	switch {
	case p.MT5Connected != nil:
		s.Connected = *p.MT5Connected
	case p.Connected != nil:
		s.Connected = *p.Connected
	}
	return s, nil
}
