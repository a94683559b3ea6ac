package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide accepts buy or sell in any case.
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, true
	case SideSell:
		return SideSell, true
	}
	return "", false
}

// Sign is +1 for buy and -1 for sell.
func (s Side) Sign() decimal.Decimal {
	if s == SideSell {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// Trade is immutable once created.
type Trade struct {
	ID          uuid.UUID       `json:"id"`
	ChallengeID uuid.UUID       `json:"challenge_id"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Qty         decimal.Decimal `json:"qty"`
	Price       decimal.Decimal `json:"price"`
	PnL         decimal.Decimal `json:"pnl"`
	ExecutedAt  time.Time       `json:"executed_at"`
}

// TradeResult is what a trade submission returns: the trade and the challenge state it produced.
type TradeResult struct {
	Trade      *Trade      `json:"trade"`
	Challenge  *Challenge  `json:"challenge"`
	RuleResult *RuleResult `json:"rule_result"`
}
