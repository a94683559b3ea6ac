package signals

import (
	"testing"
	"time"

	"TradeSense/internal/domain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClassifyThresholds(t *testing.T) {
	cases := []struct {
		in         string
		action     models.Action
		confidence int
	}{
		{"3.0", models.ActionBuy, 75},
		{"2.01", models.ActionBuy, 75},
		{"2", models.ActionBuy, 60},
		{"0.51", models.ActionBuy, 60},
		{"0.5", models.ActionNeutral, 50},
		{"0", models.ActionNeutral, 50},
		{"-0.5", models.ActionNeutral, 50},
		{"-0.51", models.ActionSell, 55},
		{"-2", models.ActionSell, 55},
		{"-2.01", models.ActionSell, 70},
		{"-3.0", models.ActionSell, 70},
	}
	for _, tc := range cases {
		action, confidence, reasons := Classify(decimal.RequireFromString(tc.in))
		assert.Equalf(t, tc.action, action, "change %s", tc.in)
		assert.Equalf(t, tc.confidence, confidence, "change %s", tc.in)
		assert.NotEmptyf(t, reasons, "change %s", tc.in)
	}
}

func TestClassifyReasons(t *testing.T) {
	_, _, reasons := Classify(decimal.RequireFromString("3"))
	assert.Equal(t, []string{"strong upward momentum", "price up 3.00% today"}, reasons)

	_, _, reasons = Classify(decimal.RequireFromString("-3.456"))
	assert.Equal(t, []string{"strong downward momentum", "price down 3.46% today"}, reasons)

	_, _, reasons = Classify(decimal.RequireFromString("1"))
	assert.Equal(t, []string{"positive price movement"}, reasons)

	_, _, reasons = Classify(decimal.RequireFromString("-1"))
	assert.Equal(t, []string{"negative price action"}, reasons)

	_, _, reasons = Classify(decimal.Zero)
	assert.Equal(t, []string{"consolidating", "wait for clearer direction"}, reasons)
}

func TestFromQuoteTreatsMissingChangeAsZero(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	q := &models.Quote{Symbol: "AAPL", Price: decimal.NewFromInt(180)}

	sig := FromQuote(q, at)

	assert.Equal(t, models.ActionNeutral, sig.Action)
	assert.Equal(t, 50, sig.Confidence)
	assert.True(t, sig.Price.Equal(decimal.NewFromInt(180)))
	assert.Equal(t, at, sig.EvaluatedAt)
}

func TestFromQuoteStrongMove(t *testing.T) {
	q := &models.Quote{
		Symbol:    "BTC-USD",
		Price:     decimal.NewFromInt(45000),
		ChangePct: decimal.NewNullDecimal(decimal.RequireFromString("2.5")),
	}

	sig := FromQuote(q, time.Now())

	assert.Equal(t, models.ActionBuy, sig.Action)
	assert.Equal(t, 75, sig.Confidence)
	assert.Equal(t, "price up 2.50% today", sig.Reasons[1])
}
