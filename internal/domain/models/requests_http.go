package models

import "github.com/shopspring/decimal"

// Requests for the HTTP API. Bound and validated in the handlers.

type SymbolQuery struct {
	Symbol string `query:"symbol" json:"symbol"`
}

// TrackRequest switches the tracked symbol. A nil interval uses the configured refresh interval;
// zero or negative disables polling after the first refresh.
type TrackRequest struct {
	Symbol     string `json:"symbol" validate:"required,max=32"`
	IntervalMS *int64 `json:"interval_ms"`
}

type RefreshRequest struct {
	Symbol string `json:"symbol" validate:"omitempty,max=32"`
}

type CalendarRequest struct {
	Impact string `query:"impact" json:"impact" validate:"omitempty,oneof=high medium low High Medium Low HIGH MEDIUM LOW"`
	Limit  int    `query:"limit" json:"limit" validate:"gte=0,lte=500"`
}

type OpenChallengeRequest struct {
	StartBalance decimal.Decimal `json:"start_balance" validate:"gte=0"`
}

type CreateTradeRequest struct {
	ChallengeID string          `json:"challenge_id" validate:"required,uuid"`
	Symbol      string          `json:"symbol" validate:"required,max=32"`
	Side        string          `json:"side" validate:"required,oneof=buy sell BUY SELL"`
	Qty         decimal.Decimal `json:"qty" validate:"gt=0"`
}

type TradesQuery struct {
	ChallengeID string `query:"challenge_id" validate:"required,uuid"`
}

// LeaderboardQuery selects a calendar month as YYYY-MM; empty means the current month.
type LeaderboardQuery struct {
	Month string `query:"month" validate:"omitempty,datetime=2006-01"`
	Limit int    `query:"limit" default:"10" validate:"gte=1,lte=100"`
}
