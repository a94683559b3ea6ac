package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ChallengeStatus string

const (
	StatusActive ChallengeStatus = "active"
	StatusPassed ChallengeStatus = "passed"
	StatusFailed ChallengeStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s ChallengeStatus) Terminal() bool {
	return s == StatusPassed || s == StatusFailed
}

type RuleName string

const (
	RuleMaxDailyLoss RuleName = "MAX_DAILY_LOSS"
	RuleMaxDrawdown  RuleName = "MAX_DRAWDOWN"
	RuleProfitTarget RuleName = "PROFIT_TARGET_REACHED"
)

var hundred = decimal.NewFromInt(100)

// Challenge is a funded-evaluation account.
type Challenge struct {
	ID           uuid.UUID       `json:"id"`
	StartBalance decimal.Decimal `json:"start_balance"`
	Equity       decimal.Decimal `json:"equity"`
	PeakEquity   decimal.Decimal `json:"peak_equity"`
	PnL          decimal.Decimal `json:"pnl"`
	PnLPct       decimal.Decimal `json:"pnl_pct"`
	Status       ChallengeStatus `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	PassedAt     *time.Time      `json:"passed_at,omitempty"`
	FailedAt     *time.Time      `json:"failed_at,omitempty"`
}

// NewChallenge opens an active challenge funded with startBalance.
func NewChallenge(startBalance decimal.Decimal, now time.Time) *Challenge {
	c := &Challenge{
		ID:           uuid.New(),
		StartBalance: startBalance,
		Equity:       startBalance,
		PeakEquity:   startBalance,
		Status:       StatusActive,
		CreatedAt:    now,
	}
	c.Revalue()
	return c
}

// Revalue recomputes pnl and pnl_pct from equity and tracks the equity peak.
func (c *Challenge) Revalue() {
	c.PnL = c.Equity.Sub(c.StartBalance)
	c.PnLPct = PercentChange(c.StartBalance, c.Equity)
	if c.Equity.GreaterThan(c.PeakEquity) {
		c.PeakEquity = c.Equity
	}
}

// PercentChange returns (to-from)/from*100, or zero when from is not positive.
func PercentChange(from, to decimal.Decimal) decimal.Decimal {
	if !from.IsPositive() {
		return decimal.Zero
	}
	return to.Sub(from).Div(from).Mul(hundred)
}

// DailyMetrics tracks equity within one UTC day.
type DailyMetrics struct {
	Date                   time.Time       `json:"date"`
	DayStartEquity         decimal.Decimal `json:"day_start_equity"`
	DayEndEquity           decimal.Decimal `json:"day_end_equity"`
	DayPnL                 decimal.Decimal `json:"day_pnl"`
	MaxIntradayDrawdownPct decimal.Decimal `json:"max_intraday_drawdown_pct"`
}

// DayPnLPct returns the day's change in percent.
func (d DailyMetrics) DayPnLPct() decimal.Decimal {
	return PercentChange(d.DayStartEquity, d.DayEndEquity)
}

// RuleResult reports the outcome of one rule evaluation.
type RuleResult struct {
	Triggered    *RuleName       `json:"triggered"`
	Status       ChallengeStatus `json:"status"`
	RulesChecked []string        `json:"rules_checked"`
}

// RuleLimits are percentages; loss limits are negative.
type RuleLimits struct {
	DailyLossLimit decimal.Decimal `json:"daily_loss_limit"`
	DrawdownLimit  decimal.Decimal `json:"total_loss_limit"`
	ProfitTarget   decimal.Decimal `json:"profit_target"`
}

// DefaultRuleLimits is -5% daily, -10% drawdown, +10% target.
func DefaultRuleLimits() RuleLimits {
	return RuleLimits{
		DailyLossLimit: decimal.NewFromInt(-5),
		DrawdownLimit:  decimal.NewFromInt(-10),
		ProfitTarget:   decimal.NewFromInt(10),
	}
}

type RuleProgress struct {
	DailyLossUsed  decimal.Decimal `json:"daily_loss_used"`
	TotalLossUsed  decimal.Decimal `json:"total_loss_used"`
	DrawdownUsed   decimal.Decimal `json:"drawdown_used"`
	ProfitProgress decimal.Decimal `json:"profit_progress"`
}

// ChallengeMetrics feeds the rule-progress display.
type ChallengeMetrics struct {
	ChallengeID   uuid.UUID       `json:"challenge_id"`
	Status        ChallengeStatus `json:"status"`
	StartBalance  decimal.Decimal `json:"start_balance"`
	CurrentEquity decimal.Decimal `json:"current_equity"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`
	TotalPnLPct   decimal.Decimal `json:"total_pnl_pct"`
	DailyPnLPct   decimal.Decimal `json:"daily_pnl_pct"`
	DrawdownPct   decimal.Decimal `json:"drawdown_pct"`
	Rules         RuleLimits      `json:"rules"`
	Progress      RuleProgress    `json:"progress"`
}

// Position is a net holding; Qty is negative when short.
type Position struct {
	Symbol   string          `json:"symbol"`
	Qty      decimal.Decimal `json:"qty"`
	AvgPrice decimal.Decimal `json:"avg_price"`
}

// Account is everything a trade mutates, committed as one unit.
type Account struct {
	Challenge Challenge
	Positions map[string]Position
	Daily     DailyMetrics
}

// Clone deep-copies the mutable parts.
func (a *Account) Clone() *Account {
	out := &Account{
		Challenge: a.Challenge,
		Daily:     a.Daily,
		Positions: make(map[string]Position, len(a.Positions)),
	}
	for k, v := range a.Positions {
		out.Positions[k] = v
	}
	return out
}

type LeaderboardEntry struct {
	Rank         int             `json:"rank"`
	ChallengeID  uuid.UUID       `json:"challenge_id"`
	StartBalance decimal.Decimal `json:"start_balance"`
	Equity       decimal.Decimal `json:"equity"`
	ProfitPct    decimal.Decimal `json:"profit_pct"`
	Status       ChallengeStatus `json:"status"`
}
