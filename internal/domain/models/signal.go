package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionBuy     Action = "BUY"
	ActionSell    Action = "SELL"
	ActionNeutral Action = "NEUTRAL"
)

// Signal is a momentum decision. It is rebuilt from scratch on each evaluation.
type Signal struct {
	Symbol      string          `json:"symbol"`
	Action      Action          `json:"signal"`
	Confidence  int             `json:"confidence"`
	Reasons     []string        `json:"reasons"`
	Price       decimal.Decimal `json:"price"`
	EvaluatedAt time.Time       `json:"evaluated_at"`
}
