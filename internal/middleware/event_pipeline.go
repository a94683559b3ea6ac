package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradeSense/internal/domain/models"
	domrepo "TradeSense/internal/domain/repository"
	applogger "TradeSense/pkg/logger"

	"github.com/google/uuid"
)

// EventPipeline sits between the trade executor and the event sink. Publish only buffers;
// a background loop flushes batches and retries failed flushes with exponential backoff.
// The buffer is bounded and drops the oldest events when full.
type EventPipeline struct {
	sink       domrepo.EventPublisher
	backend    string
	metrics    domrepo.Metrics
	log        *applogger.Logger
	batchSize  int
	limit      int
	interval   time.Duration
	backoffMin time.Duration
	backoffMax time.Duration

	mu      sync.Mutex
	buf     []*models.Event
	started bool
	closed  bool
	kick    chan struct{}
	stopCh  chan struct{}
	done    chan struct{}
}

type PipelineOption func(*EventPipeline)

// WithBatchSize flushes as soon as n events are buffered.
func WithBatchSize(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithBufferLimit bounds the buffer.
func WithBufferLimit(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.limit = n
		}
	}
}

// WithFlushInterval flushes whatever is buffered every d.
func WithFlushInterval(d time.Duration) PipelineOption {
	return func(p *EventPipeline) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithBackoff sets the retry delay range for failed flushes.
func WithBackoff(min, max time.Duration) PipelineOption {
	return func(p *EventPipeline) {
		if min > 0 && max >= min {
			p.backoffMin, p.backoffMax = min, max
		}
	}
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *EventPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewEventPipeline creates a pipeline in front of sink. backend labels metrics.
func NewEventPipeline(sink domrepo.EventPublisher, backend string, metrics domrepo.Metrics, opts ...PipelineOption) *EventPipeline {
	p := &EventPipeline{
		sink:       sink,
		backend:    backend,
		metrics:    metrics,
		log:        applogger.Nop(),
		batchSize:  50,
		limit:      10000,
		interval:   time.Second,
		backoffMin: 50 * time.Millisecond,
		backoffMax: 5 * time.Second,
		kick:       make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Component("event_pipeline")
	return p
}

var _ domrepo.EventPublisher = (*EventPipeline)(nil)

// Start launches the background flusher. Calling it again, or after Close, is a no-op.
func (p *EventPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.closed {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.loop(ctx)
}

func (p *EventPipeline) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	backoff := p.backoffMin
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.kick:
		}

		if err := p.Flush(ctx); err != nil {
			p.log.Warn("event flush failed",
				applogger.String("backend", p.backend),
				applogger.Duration("retry_in_ms", backoff),
				applogger.Error(err),
			)
			select {
			case <-time.After(backoff):
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
			if backoff *= 2; backoff > p.backoffMax {
				backoff = p.backoffMax
			}
			p.signal()
			continue
		}
		backoff = p.backoffMin
	}
}

// Publish validates and buffers events. It never blocks on the sink.
func (p *EventPipeline) Publish(_ context.Context, events ...*models.Event) error {
	accepted := make([]*models.Event, 0, len(events))
	for _, ev := range events {
		if err := validateEvent(ev); err != nil {
			p.metrics.RecordError("pipeline_validate")
			return err
		}
		accepted = append(accepted, ev)
	}

	p.mu.Lock()
	p.buf = append(p.buf, accepted...)
	dropped := p.trimLocked()
	full := len(p.buf) >= p.batchSize
	p.mu.Unlock()

	if dropped > 0 {
		p.metrics.RecordError("pipeline_buffer_drop")
		p.log.Warn("event buffer full, dropped oldest", applogger.Int("dropped", dropped))
	}
	if full {
		p.signal()
	}
	return nil
}

// Flush sends buffered events batch by batch until the buffer is empty or the sink fails.
// A failed batch goes back to the head of the buffer.
func (p *EventPipeline) Flush(ctx context.Context) error {
	for {
		p.mu.Lock()
		n := len(p.buf)
		if n == 0 {
			p.mu.Unlock()
			return nil
		}
		if n > p.batchSize {
			n = p.batchSize
		}
		batch := make([]*models.Event, n)
		copy(batch, p.buf[:n])
		p.buf = p.buf[n:]
		p.mu.Unlock()

		start := time.Now()
		if err := p.sink.Publish(ctx, batch...); err != nil {
			p.mu.Lock()
			p.buf = append(batch, p.buf...)
			dropped := p.trimLocked()
			p.mu.Unlock()
			if dropped > 0 {
				p.metrics.RecordError("pipeline_buffer_drop")
			}
			p.metrics.RecordError("pipeline_flush")
			return fmt.Errorf("flush %d events to %s: %w", n, p.backend, err)
		}
		p.metrics.RecordLatency("pipeline_flush", time.Since(start).Seconds())
		p.metrics.RecordEventsPublished(p.backend, n)
	}
}

// Len returns the number of buffered events.
func (p *EventPipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

// Close stops the flusher, makes one last flush attempt and closes the sink.
// Only the first call does anything.
func (p *EventPipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	started := p.started
	p.mu.Unlock()

	if started {
		close(p.stopCh)
		<-p.done
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Flush(ctx); err != nil {
		p.log.Error("final event flush failed", applogger.Int("pending", p.Len()), applogger.Error(err))
	}
	return p.sink.Close()
}

func (p *EventPipeline) signal() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *EventPipeline) trimLocked() int {
	over := len(p.buf) - p.limit
	if over <= 0 {
		return 0
	}
	p.buf = append([]*models.Event(nil), p.buf[over:]...)
	return over
}

func validateEvent(ev *models.Event) error {
	if ev == nil {
		return fmt.Errorf("event nil")
	}
	if ev.ID == uuid.Nil {
		return fmt.Errorf("event id empty")
	}
	if ev.Type == "" {
		return fmt.Errorf("event type empty")
	}
	if ev.OccurredAt.IsZero() {
		return fmt.Errorf("event time empty")
	}
	return nil
}
