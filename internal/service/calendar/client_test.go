package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TradeSense/internal/service/marketdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/market/calendar", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id":"1","time":"08:30","currency":"USD","impact":"High","event":"Core CPI m/m","actual":"0.3%","forecast":"0.3%","previous":"0.2%"},
			{"id":"4","time":"02:00","currency":"GBP","impact":"Medium","event":"GDP m/m","actual":"0.1%","forecast":"0.0%","previous":"-0.3%"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(marketdata.Credentials{BaseURL: srv.URL + "/api/"}, time.Second)
	events, err := c.Events(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Core CPI m/m", events[0].Event)
	assert.Equal(t, "Medium", events[1].Impact)
}

func TestEventsNullBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}))
	defer srv.Close()

	events, err := NewClient(marketdata.Credentials{BaseURL: srv.URL}, time.Second).Events(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestEventsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(marketdata.Credentials{BaseURL: srv.URL}, time.Second).Events(context.Background())
	assert.Error(t, err)
}
