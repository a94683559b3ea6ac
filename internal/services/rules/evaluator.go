// Package rules evaluates challenge accounts against the daily loss, drawdown and profit target limits.
package rules

import (
	"fmt"
	"time"

	"TradeSense/internal/domain/models"
	"TradeSense/pkg/util"

	"github.com/shopspring/decimal"
)

// Measures are the percentages the rules compare against their limits.
type Measures struct {
	TotalPnLPct decimal.Decimal
	DailyPnLPct decimal.Decimal
	DrawdownPct decimal.Decimal
}

// Measure derives the rule inputs from an account.
// Drawdown is measured from the peak equity, daily P&L from the day's opening equity.
func Measure(acct *models.Account) Measures {
	c := acct.Challenge
	return Measures{
		TotalPnLPct: models.PercentChange(c.StartBalance, c.Equity),
		DailyPnLPct: models.PercentChange(acct.Daily.DayStartEquity, c.Equity),
		DrawdownPct: models.PercentChange(c.PeakEquity, c.Equity),
	}
}

type Evaluator struct {
	limits models.RuleLimits
}

func NewEvaluator(limits models.RuleLimits) *Evaluator {
	return &Evaluator{limits: limits}
}

// Limits returns the configured thresholds.
func (e *Evaluator) Limits() models.RuleLimits { return e.limits }

// Evaluate checks the rules in fixed priority order (daily loss, drawdown, profit target)
// and reports the first one that fires. Terminal statuses never change.
func (e *Evaluator) Evaluate(status models.ChallengeStatus, m Measures) models.RuleResult {
	res := models.RuleResult{Status: status, RulesChecked: []string{}}

	if status.Terminal() {
		res.RulesChecked = append(res.RulesChecked, fmt.Sprintf("challenge is %s, rules skipped", status))
		return res
	}

	if m.DailyPnLPct.LessThanOrEqual(e.limits.DailyLossLimit) {
		return fire(res, models.RuleMaxDailyLoss, models.StatusFailed,
			fmt.Sprintf("daily loss %s%% breaches %s%% limit", pct(m.DailyPnLPct), pct(e.limits.DailyLossLimit)))
	}
	res.RulesChecked = append(res.RulesChecked,
		fmt.Sprintf("daily loss check: %s%% (limit %s%%)", pct(m.DailyPnLPct), pct(e.limits.DailyLossLimit)))

	if m.DrawdownPct.LessThanOrEqual(e.limits.DrawdownLimit) {
		return fire(res, models.RuleMaxDrawdown, models.StatusFailed,
			fmt.Sprintf("drawdown %s%% breaches %s%% limit", pct(m.DrawdownPct), pct(e.limits.DrawdownLimit)))
	}
	res.RulesChecked = append(res.RulesChecked,
		fmt.Sprintf("drawdown check: %s%% (limit %s%%)", pct(m.DrawdownPct), pct(e.limits.DrawdownLimit)))

	if m.TotalPnLPct.GreaterThanOrEqual(e.limits.ProfitTarget) {
		return fire(res, models.RuleProfitTarget, models.StatusPassed,
			fmt.Sprintf("profit target reached: %s%% (target +%s%%)", pct(m.TotalPnLPct), pct(e.limits.ProfitTarget)))
	}
	res.RulesChecked = append(res.RulesChecked,
		fmt.Sprintf("profit target check: %s%% (target +%s%%)", pct(m.TotalPnLPct), pct(e.limits.ProfitTarget)))

	return res
}

func fire(res models.RuleResult, rule models.RuleName, status models.ChallengeStatus, line string) models.RuleResult {
	res.Triggered = &rule
	res.Status = status
	res.RulesChecked = append(res.RulesChecked, line)
	return res
}

func pct(d decimal.Decimal) string { return d.StringFixed(2) }

// Apply moves the challenge to res.Status, stamping the pass or fail time.
// It returns false when nothing changed.
func Apply(c *models.Challenge, res models.RuleResult, now time.Time) bool {
	if c.Status.Terminal() || res.Status == c.Status {
		return false
	}
	c.Status = res.Status
	switch res.Status {
	case models.StatusPassed:
		c.PassedAt = &now
	case models.StatusFailed:
		c.FailedAt = &now
	}
	return true
}

// OpenDay returns the daily record for now's UTC day, starting a new one at equity when the day rolled.
func OpenDay(d models.DailyMetrics, equity decimal.Decimal, now time.Time) models.DailyMetrics {
	day := util.StartOfDayUTC(now)
	if d.Date.Equal(day) {
		return d
	}
	return models.DailyMetrics{
		Date:                   day,
		DayStartEquity:         equity,
		DayEndEquity:           equity,
		DayPnL:                 decimal.Zero,
		MaxIntradayDrawdownPct: decimal.Zero,
	}
}

// CloseOn records equity as the latest value of the day.
func CloseOn(d *models.DailyMetrics, equity decimal.Decimal) {
	d.DayEndEquity = equity
	d.DayPnL = equity.Sub(d.DayStartEquity)
	if p := d.DayPnLPct(); p.LessThan(d.MaxIntradayDrawdownPct) {
		d.MaxIntradayDrawdownPct = p
	}
}

// Metrics builds the rule-progress view for an account as of now.
func (e *Evaluator) Metrics(acct *models.Account, now time.Time) models.ChallengeMetrics {
	daily := OpenDay(acct.Daily, acct.Challenge.Equity, now)
	view := &models.Account{Challenge: acct.Challenge, Daily: daily}
	m := Measure(view)
	c := acct.Challenge

	return models.ChallengeMetrics{
		ChallengeID:   c.ID,
		Status:        c.Status,
		StartBalance:  c.StartBalance,
		CurrentEquity: c.Equity,
		TotalPnL:      c.Equity.Sub(c.StartBalance).Round(2),
		TotalPnLPct:   m.TotalPnLPct.Round(2),
		DailyPnLPct:   m.DailyPnLPct.Round(2),
		DrawdownPct:   m.DrawdownPct.Round(2),
		Rules:         e.limits,
		Progress: models.RuleProgress{
			DailyLossUsed:  decimal.Min(m.DailyPnLPct, decimal.Zero).Abs().Round(2),
			TotalLossUsed:  decimal.Min(m.TotalPnLPct, decimal.Zero).Abs().Round(2),
			DrawdownUsed:   m.DrawdownPct.Abs().Round(2),
			ProfitProgress: decimal.Max(m.TotalPnLPct, decimal.Zero).Round(2),
		},
	}
}
