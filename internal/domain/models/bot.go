package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BotSignalType is LONG, SHORT or empty when the bot is waiting.
type BotSignalType string

const (
	BotSignalLong  BotSignalType = "LONG"
	BotSignalShort BotSignalType = "SHORT"
	BotSignalNone  BotSignalType = ""
)

// ParseBotSignalType maps anything other than LONG or SHORT to none.
func ParseBotSignalType(s string) BotSignalType {
	switch BotSignalType(strings.ToUpper(strings.TrimSpace(s))) {
	case BotSignalLong:
		return BotSignalLong
	case BotSignalShort:
		return BotSignalShort
	}
	return BotSignalNone
}

// BotTicket is replaced wholesale on each poll.
type BotTicket struct {
	Symbol     string                 `json:"symbol"`
	SignalType BotSignalType          `json:"signal_type"`
	EntryPrice decimal.Decimal        `json:"entry_price"`
	StopLoss   decimal.Decimal        `json:"stop_loss"`
	TakeProfit decimal.Decimal        `json:"take_profit"`
	Confidence decimal.Decimal        `json:"confidence"`
	Indicators map[string]interface{} `json:"indicators,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Status     string                 `json:"status"`
}

// Fresh reports now - timestamp < window. A ticket without a timestamp is never fresh.
func (t *BotTicket) Fresh(now time.Time, window time.Duration) bool {
	if t == nil || t.Timestamp.IsZero() {
		return false
	}
	return now.Sub(t.Timestamp) < window
}

type BotStatus struct {
	IsRunning bool `json:"is_running"`
	Connected bool `json:"connected"`
}

// BotState is what the UI reads about the bot.
type BotState struct {
	Ticket     *BotTicket `json:"ticket"`
	Status     *BotStatus `json:"status"`
	Fresh      bool       `json:"fresh"`
	LastUpdate *time.Time `json:"last_update"`
	Error      string     `json:"error,omitempty"`
}
