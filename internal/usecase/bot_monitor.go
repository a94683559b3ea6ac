package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"TradeSense/internal/domain/models"
	drepo "TradeSense/internal/domain/repository"
	applogger "TradeSense/pkg/logger"
	"TradeSense/pkg/poller"
)

// BotMonitor polls the signal bot and keeps its last known ticket and status.
type BotMonitor struct {
	source    drepo.BotSource
	interval  time.Duration
	freshness time.Duration
	metrics   drepo.Metrics
	log       *applogger.Logger
	now       func() time.Time

	mu         sync.RWMutex
	ticket     *models.BotTicket
	status     *models.BotStatus
	lastUpdate *time.Time
	lastErr    string
	handle     *poller.Handle
}

func NewBotMonitor(source drepo.BotSource, interval, freshness time.Duration, metrics drepo.Metrics, log *applogger.Logger) *BotMonitor {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if freshness <= 0 {
		freshness = 5 * time.Minute
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &BotMonitor{
		source:    source,
		interval:  interval,
		freshness: freshness,
		metrics:   metrics,
		log:       log.Component("bot_monitor"),
		now:       time.Now,
	}
}

// Start begins polling. Calling Start twice replaces the previous task.
func (b *BotMonitor) Start(ctx context.Context) {
	h := poller.Start(ctx, b.interval, func(ctx context.Context) {
		b.poll(ctx, ctx)
	}, poller.WithName("bot_monitor"), poller.WithLogger(b.log))

	b.mu.Lock()
	prev := b.handle
	b.handle = h
	prev.Stop()
	b.mu.Unlock()
}

// Stop ends polling. A tick still in flight is discarded.
func (b *BotMonitor) Stop() {
	b.mu.Lock()
	h := b.handle
	b.handle = nil
	h.Stop()
	b.mu.Unlock()
}

// Poll fetches ticket and status concurrently. Each one that fails keeps its last value.
func (b *BotMonitor) Poll(ctx context.Context) {
	b.poll(ctx, nil)
}

// poll drops its results when guard is done by the time it takes the lock.
func (b *BotMonitor) poll(ctx, guard context.Context) {
	var (
		wg         sync.WaitGroup
		ticket     *models.BotTicket
		status     *models.BotStatus
		tErr, sErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		ticket, tErr = b.source.LatestTicket(ctx)
	}()
	go func() {
		defer wg.Done()
		status, sErr = b.source.Status(ctx)
	}()
	wg.Wait()

	if tErr != nil {
		b.metrics.RecordRefresh("bot_ticket", "error")
		b.log.Warn("bot ticket poll failed", applogger.Error(tErr))
	}
	if sErr != nil {
		b.metrics.RecordRefresh("bot_status", "error")
		b.log.Warn("bot status poll failed", applogger.Error(sErr))
	}

	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	if guard != nil && guard.Err() != nil {
		return
	}
	if ticket != nil {
		b.ticket = ticket
		b.metrics.RecordRefresh("bot_ticket", "ok")
	}
	if status != nil {
		b.status = status
		b.metrics.RecordRefresh("bot_status", "ok")
	}
	if ticket != nil || status != nil {
		b.lastUpdate = &now
	}
	b.lastErr = ""
	if err := errors.Join(tErr, sErr); err != nil {
		b.lastErr = err.Error()
	}
}

// State returns what is known about the bot as of now.
func (b *BotMonitor) State(now time.Time) models.BotState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := models.BotState{Error: b.lastErr}
	if b.ticket != nil {
		t := *b.ticket
		st.Ticket = &t
		st.Fresh = t.Fresh(now, b.freshness)
	}
	if b.status != nil {
		s := *b.status
		st.Status = &s
	}
	if b.lastUpdate != nil {
		at := *b.lastUpdate
		st.LastUpdate = &at
	}
	return st
}
