package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Venue selects which upstream quote source serves a symbol.
type Venue int

const (
	VenueGeneric Venue = iota
	VenueRegion
)

func (v Venue) String() string {
	switch v {
	case VenueRegion:
		return "region"
	default:
		return "generic"
	}
}

// DefaultRegionSymbols is the local-market set served by the region source.
var DefaultRegionSymbols = []string{"IAM", "ATW", "BCP", "LHM", "CIH"}

// RegionSet classifies symbols by venue, case-insensitively.
type RegionSet map[string]struct{}

// NewRegionSet builds a set from symbols. An empty list uses DefaultRegionSymbols.
func NewRegionSet(symbols []string) RegionSet {
	if len(symbols) == 0 {
		symbols = DefaultRegionSymbols
	}
	rs := make(RegionSet, len(symbols))
	for _, s := range symbols {
		rs[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}
	return rs
}

// Venue reports VenueRegion for members of the set.
func (rs RegionSet) Venue(symbol string) Venue {
	if _, ok := rs[strings.ToUpper(strings.TrimSpace(symbol))]; ok {
		return VenueRegion
	}
	return VenueGeneric
}

// Quote is a point-in-time price snapshot. ChangePct may be absent.
type Quote struct {
	Symbol    string              `json:"symbol"`
	Price     decimal.Decimal     `json:"price"`
	ChangePct decimal.NullDecimal `json:"change_pct"`
	Name      string              `json:"name,omitempty"`
	Currency  string              `json:"currency,omitempty"`
	Source    string              `json:"source,omitempty"`
	FetchedAt time.Time           `json:"timestamp"`
}

// ChangePctOrZero treats a missing change as flat.
func (q *Quote) ChangePctOrZero() decimal.Decimal {
	if q == nil || !q.ChangePct.Valid {
		return decimal.Zero
	}
	return q.ChangePct.Decimal
}

// Candle is one OHLC bar; Time is unix seconds.
type Candle struct {
	Time  int64           `json:"time"`
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
}

// Consistent reports low <= {open, close} <= high.
func (c Candle) Consistent() bool {
	return c.Low.LessThanOrEqual(decimal.Min(c.Open, c.Close)) &&
		c.High.GreaterThanOrEqual(decimal.Max(c.Open, c.Close))
}

// Series is an ascending candle sequence. Synthetic marks a generated fallback;
// a series is either wholly real or wholly synthetic.
type Series struct {
	Candles   []Candle
	Synthetic bool
}

// Len returns the number of candles.
func (s Series) Len() int { return len(s.Candles) }

// MarshalJSON exposes only the candles so synthetic and real series share one shape.
func (s Series) MarshalJSON() ([]byte, error) {
	if s.Candles == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Candles)
}

// UnmarshalJSON reads the candle array written by MarshalJSON. Synthetic is not carried.
func (s *Series) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &s.Candles)
}

// CalendarEvent is one economic calendar entry.
type CalendarEvent struct {
	ID       string `json:"id"`
	Time     string `json:"time"`
	Currency string `json:"currency"`
	Impact   string `json:"impact"`
	Event    string `json:"event"`
	Actual   string `json:"actual"`
	Forecast string `json:"forecast"`
	Previous string `json:"previous"`
}
