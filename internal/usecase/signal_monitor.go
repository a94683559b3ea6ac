package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradeSense/internal/domain/models"
	"TradeSense/internal/services/signals"
	applogger "TradeSense/pkg/logger"
	"TradeSense/pkg/poller"
	"TradeSense/pkg/util"
)

// QuoteReader exposes the last synchronized quote for a symbol.
type QuoteReader interface {
	Quote(symbol string) (*models.Quote, bool)
	Tracked() string
}

// SignalMonitor classifies the synchronized quote of the tracked symbol on a cadence.
type SignalMonitor struct {
	quotes   QuoteReader
	interval time.Duration
	log      *applogger.Logger
	now      func() time.Time

	mu     sync.RWMutex
	latest map[string]*models.Signal
	handle *poller.Handle
}

func NewSignalMonitor(quotes QuoteReader, interval time.Duration, log *applogger.Logger) *SignalMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &SignalMonitor{
		quotes:   quotes,
		interval: interval,
		log:      log.Component("signal_monitor"),
		now:      time.Now,
		latest:   make(map[string]*models.Signal),
	}
}

func (s *SignalMonitor) Start(ctx context.Context) {
	h := poller.Start(ctx, s.interval, func(context.Context) {
		sym := s.quotes.Tracked()
		if sym == "" {
			return
		}
		if _, err := s.Evaluate(sym); err != nil {
			s.log.Debug("signal skipped", applogger.String("symbol", sym), applogger.Error(err))
		}
	}, poller.WithName("signal_monitor"), poller.WithLogger(s.log))

	s.mu.Lock()
	prev := s.handle
	s.handle = h
	s.mu.Unlock()
	prev.Stop()
}

func (s *SignalMonitor) Stop() {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()
	h.Stop()
}

// Evaluate classifies symbol's current quote and stores the result.
func (s *SignalMonitor) Evaluate(symbol string) (*models.Signal, error) {
	symbol = util.NormalizeSymbol(symbol)
	q, ok := s.quotes.Quote(symbol)
	if !ok || q == nil {
		return nil, fmt.Errorf("signal %s: %w", symbol, models.ErrPriceUnavailable)
	}

	sig := signals.FromQuote(q, s.now())
	s.mu.Lock()
	s.latest[symbol] = sig
	s.mu.Unlock()
	return sig, nil
}

// Latest returns the last stored signal for symbol.
func (s *SignalMonitor) Latest(symbol string) (*models.Signal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.latest[util.NormalizeSymbol(symbol)]
	return sig, ok
}
