package repository

import (
	"context"
	"time"

	"TradeSense/internal/domain/models"

	"github.com/google/uuid"
)

// QuoteSource returns a point-in-time quote or fails.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// SeriesSource returns ascending candles. An empty slice is a valid answer.
type SeriesSource interface {
	GetSeries(ctx context.Context, symbol string, interval SeriesInterval, rng SeriesRange) ([]models.Candle, error)
}

// BotSource reads the external signal bot.
type BotSource interface {
	LatestTicket(ctx context.Context) (*models.BotTicket, error)
	Status(ctx context.Context) (*models.BotStatus, error)
}

// CalendarSource returns the unfiltered economic calendar.
type CalendarSource interface {
	Events(ctx context.Context) ([]models.CalendarEvent, error)
}

// TradeFunc computes the next account state and the trade that produced it.
// Returning an error aborts the commit.
type TradeFunc func(acct *models.Account) (*models.Trade, error)

// ChallengeStore owns challenges and their trade history.
type ChallengeStore interface {
	Create(ctx context.Context, c *models.Challenge) error
	Get(ctx context.Context, id uuid.UUID) (*models.Challenge, error)
	List(ctx context.Context) ([]*models.Challenge, error)
	Account(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// ApplyTrade runs fn on a copy of the account and commits the copy together with the
	// returned trade, or nothing at all.
	ApplyTrade(ctx context.Context, id uuid.UUID, fn TradeFunc) (*models.Account, *models.Trade, error)
	Trades(ctx context.Context, id uuid.UUID) ([]*models.Trade, error)
}

// EventPublisher ships domain events to a downstream sink.
type EventPublisher interface {
	Publish(ctx context.Context, events ...*models.Event) error
	Close() error
}

// EventJournal is an append-only event store.
type EventJournal interface {
	Init(ctx context.Context) error
	Append(ctx context.Context, events ...*models.Event) error
	Query(ctx context.Context, challengeID uuid.UUID, from, to time.Time, limit int) ([]*models.Event, error)
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordRefresh(kind, result string)
	RecordSyntheticFallback(symbol string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordError(kind string)
	RecordTrade(side string)
	RecordRuleTriggered(rule string)
	RecordEventsPublished(backend string, n int)
}
