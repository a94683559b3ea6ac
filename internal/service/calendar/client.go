// Package calendar fetches the economic calendar from the market API.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TradeSense/internal/domain/models"
	"TradeSense/internal/service/marketdata"
	xhttp "TradeSense/pkg/http"
)

// Client implements repository.CalendarSource.
type Client struct {
	url  string
	http *xhttp.Client
}

func NewClient(creds marketdata.Credentials, timeout time.Duration) *Client {
	opts := []xhttp.ClientOption{xhttp.WithTimeout(timeout)}
	if creds.Token != "" {
		opts = append(opts, xhttp.WithHeader("Authorization", "Bearer "+creds.Token))
	}
	return &Client{
		url:  strings.TrimRight(creds.BaseURL, "/") + "/market/calendar",
		http: xhttp.NewClient(opts...),
	}
}

// Events returns the unfiltered list in upstream order.
func (c *Client) Events(ctx context.Context) ([]models.CalendarEvent, error) {
	var events []models.CalendarEvent
	if err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{Method: xhttp.MethodGet, URL: c.url}, &events); err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	if events == nil {
		events = []models.CalendarEvent{}
	}
	return events, nil
}
