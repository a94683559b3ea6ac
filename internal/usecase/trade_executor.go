package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TradeSense/internal/domain/models"
	drepo "TradeSense/internal/domain/repository"
	"TradeSense/internal/services/rules"
	applogger "TradeSense/pkg/logger"
	"TradeSense/pkg/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeExecutor prices, books and risk-checks trades against a challenge.
type TradeExecutor struct {
	store     drepo.ChallengeStore
	prices    drepo.QuoteSource
	evaluator *rules.Evaluator
	events    drepo.EventPublisher
	metrics   drepo.Metrics
	log       *applogger.Logger
	now       func() time.Time
}

// NewTradeExecutor wires the executor. events may be nil.
func NewTradeExecutor(store drepo.ChallengeStore, prices drepo.QuoteSource, evaluator *rules.Evaluator, events drepo.EventPublisher, metrics drepo.Metrics, log *applogger.Logger) *TradeExecutor {
	if log == nil {
		log = applogger.Nop()
	}
	return &TradeExecutor{
		store:     store,
		prices:    prices,
		evaluator: evaluator,
		events:    events,
		metrics:   metrics,
		log:       log.Component("trade_executor"),
		now:       time.Now,
	}
}

// CreateTrade executes a market order at the current quote.
func (e *TradeExecutor) CreateTrade(ctx context.Context, challengeID uuid.UUID, symbol, side string, qty decimal.Decimal) (*models.TradeResult, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", models.ErrInvalidTrade)
	}
	sd, ok := models.ParseSide(side)
	if !ok {
		return nil, fmt.Errorf("%w: side must be buy or sell", models.ErrInvalidTrade)
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: qty must be positive", models.ErrInvalidTrade)
	}

	c, err := e.store.Get(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if c.Status.Terminal() {
		return nil, fmt.Errorf("%w: status is %s", models.ErrChallengeClosed, c.Status)
	}

	q, err := e.prices.GetQuote(ctx, symbol)
	if err != nil {
		e.metrics.RecordError("trade_price")
		return nil, fmt.Errorf("%w: %s: %v", models.ErrPriceUnavailable, symbol, err)
	}
	if q == nil || !q.Price.IsPositive() {
		return nil, fmt.Errorf("%w: %s", models.ErrPriceUnavailable, symbol)
	}
	price := q.Price

	var (
		res     models.RuleResult
		changed bool
		from    models.ChallengeStatus
	)
	acct, trade, err := e.store.ApplyTrade(ctx, challengeID, func(a *models.Account) (*models.Trade, error) {
		if a.Challenge.Status.Terminal() {
			return nil, fmt.Errorf("%w: status is %s", models.ErrChallengeClosed, a.Challenge.Status)
		}
		now := e.now()
		from = a.Challenge.Status

		a.Daily = rules.OpenDay(a.Daily, a.Challenge.Equity, now)

		pos, pnl := Fill(a.Positions[symbol], symbol, sd, qty, price)
		if pos.Qty.IsZero() {
			delete(a.Positions, symbol)
		} else {
			a.Positions[symbol] = pos
		}

		a.Challenge.Equity = a.Challenge.Equity.Add(pnl)
		a.Challenge.Revalue()
		rules.CloseOn(&a.Daily, a.Challenge.Equity)

		res = e.evaluator.Evaluate(a.Challenge.Status, rules.Measure(a))
		changed = rules.Apply(&a.Challenge, res, now)

		return &models.Trade{
			ID:          uuid.New(),
			ChallengeID: a.Challenge.ID,
			Symbol:      symbol,
			Side:        sd,
			Qty:         qty,
			Price:       price,
			PnL:         pnl,
			ExecutedAt:  now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	e.metrics.RecordTrade(string(sd))
	if changed {
		if res.Triggered != nil {
			e.metrics.RecordRuleTriggered(string(*res.Triggered))
		}
		e.log.Info("challenge status changed",
			applogger.Stringer("challenge_id", acct.Challenge.ID),
			applogger.String("from", string(from)),
			applogger.String("to", string(acct.Challenge.Status)),
			applogger.String("rule", triggeredName(res)),
		)
	}
	e.publish(ctx, trade, acct, res, from, changed)

	ch := acct.Challenge
	return &models.TradeResult{Trade: trade, Challenge: &ch, RuleResult: &res}, nil
}

// History returns the challenge's trades, newest first.
func (e *TradeExecutor) History(ctx context.Context, challengeID uuid.UUID) ([]*models.Trade, error) {
	trades, err := e.store.Trades(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Trade, len(trades))
	for i, t := range trades {
		out[len(trades)-1-i] = t
	}
	return out, nil
}

func (e *TradeExecutor) publish(ctx context.Context, trade *models.Trade, acct *models.Account, res models.RuleResult, from models.ChallengeStatus, changed bool) {
	if e.events == nil {
		return
	}
	evs := make([]*models.Event, 0, 2)
	ev, err := models.NewEvent(models.EventTradeExecuted, trade.ChallengeID, trade.ExecutedAt, trade)
	if err == nil {
		evs = append(evs, ev)
	}
	if changed {
		sc := models.StatusChange{From: from, To: acct.Challenge.Status}
		if res.Triggered != nil {
			sc.Triggered = *res.Triggered
		}
		if ev, err2 := models.NewEvent(models.EventChallengeStatusChanged, trade.ChallengeID, trade.ExecutedAt, sc); err2 == nil {
			evs = append(evs, ev)
		} else {
			err = errors.Join(err, err2)
		}
	}
	if err == nil {
		err = e.events.Publish(ctx, evs...)
	}
	if err != nil {
		e.metrics.RecordError("event_publish")
		e.log.Warn("event publish failed",
			applogger.Stringer("trade_id", trade.ID),
			applogger.Error(err),
		)
	}
}

func triggeredName(res models.RuleResult) string {
	if res.Triggered == nil {
		return ""
	}
	return string(*res.Triggered)
}

// Fill applies a trade to a net position using average cost and returns the new position
// and the realized P&L rounded to 2 decimals. Trades with the position (or from flat)
// realize nothing; trades against it realize on the closed quantity and flip any excess
// at price.
func Fill(pos models.Position, symbol string, side models.Side, qty, price decimal.Decimal) (models.Position, decimal.Decimal) {
	signed := qty.Mul(side.Sign())
	held := pos.Qty

	if held.IsZero() || held.Sign() == signed.Sign() {
		total := held.Abs().Add(qty)
		avg := held.Abs().Mul(pos.AvgPrice).Add(qty.Mul(price)).DivRound(total, 8)
		return models.Position{Symbol: symbol, Qty: held.Add(signed), AvgPrice: avg}, decimal.Zero
	}

	closed := decimal.Min(qty, held.Abs())
	var pnl decimal.Decimal
	if held.IsPositive() {
		pnl = price.Sub(pos.AvgPrice).Mul(closed)
	} else {
		pnl = pos.AvgPrice.Sub(price).Mul(closed)
	}
	pnl = pnl.Round(2)

	next := held.Add(signed)
	switch {
	case next.IsZero():
		return models.Position{Symbol: symbol}, pnl
	case next.Sign() == held.Sign():
		return models.Position{Symbol: symbol, Qty: next, AvgPrice: pos.AvgPrice}, pnl
	default:
		return models.Position{Symbol: symbol, Qty: next, AvgPrice: price}, pnl
	}
}
