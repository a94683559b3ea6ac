// Package signals classifies price momentum into BUY, SELL or NEUTRAL.
package signals

import (
	"fmt"
	"time"

	"TradeSense/internal/domain/models"

	"github.com/shopspring/decimal"
)

var (
	strongUp   = decimal.NewFromInt(2)
	mildUp     = decimal.NewFromFloat(0.5)
	strongDown = decimal.NewFromInt(-2)
	mildDown   = decimal.NewFromFloat(-0.5)
)

// Classify maps a daily percentage change to a signal. It keeps no state:
//
//	x > 2          BUY  75
//	0.5 < x <= 2   BUY  60
//	x < -2         SELL 70
//	-2 <= x < -0.5 SELL 55
//	otherwise      NEUTRAL 50
func Classify(changePct decimal.Decimal) (models.Action, int, []string) {
	switch {
	case changePct.GreaterThan(strongUp):
		return models.ActionBuy, 75, []string{
			"strong upward momentum",
			fmt.Sprintf("price up %s%% today", changePct.StringFixed(2)),
		}
	case changePct.GreaterThan(mildUp):
		return models.ActionBuy, 60, []string{"positive price movement"}
	case changePct.LessThan(strongDown):
		return models.ActionSell, 70, []string{
			"strong downward momentum",
			fmt.Sprintf("price down %s%% today", changePct.Abs().StringFixed(2)),
		}
	case changePct.LessThan(mildDown):
		return models.ActionSell, 55, []string{"negative price action"}
	default:
		return models.ActionNeutral, 50, []string{"consolidating", "wait for clearer direction"}
	}
}

// FromQuote classifies q, treating a missing change as zero.
func FromQuote(q *models.Quote, at time.Time) *models.Signal {
	action, confidence, reasons := Classify(q.ChangePctOrZero())
	return &models.Signal{
		Symbol:      q.Symbol,
		Action:      action,
		Confidence:  confidence,
		Reasons:     reasons,
		Price:       q.Price,
		EvaluatedAt: at,
	}
}
