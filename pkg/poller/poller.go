// Package poller runs a function on a fixed interval as an explicitly cancellable task.
package poller

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	applogger "TradeSense/pkg/logger"

	"github.com/google/uuid"
)

// Func is one tick of work. ctx is cancelled when the task is stopped.
type Func func(ctx context.Context)

// Handle identifies a running task. Stop is the only way to end it.
type Handle struct {
	id     uuid.UUID
	name   string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// ID returns the task identifier.
func (h *Handle) ID() uuid.UUID { return h.id }

// Name returns the label given at start.
func (h *Handle) Name() string { return h.name }

// Context is cancelled once Stop is called.
func (h *Handle) Context() context.Context { return h.ctx }

// Stop cancels the task. It does not wait for an in-flight tick; use Done for that.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.once.Do(h.cancel)
}

// Stopped reports whether Stop has been called (or the parent context ended).
func (h *Handle) Stopped() bool {
	return h == nil || h.ctx.Err() != nil
}

// Done is closed when the loop goroutine has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

type options struct {
	name   string
	logger *applogger.Logger
}

// Option configures Start.
type Option func(*options)

// WithName labels the task in logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger used for recovered panics.
func WithLogger(l *applogger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Start runs fn once immediately and then every interval until the handle is stopped.
// An interval <= 0 runs fn exactly once.
func Start(parent context.Context, interval time.Duration, fn Func, opts ...Option) *Handle {
	o := &options{name: "poller", logger: applogger.Nop()}
	for _, opt := range opts {
		opt(o)
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Handle{
		id:     uuid.New(),
		name:   o.name,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)

		runTick(ctx, fn, o)
		if interval <= 0 {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				runTick(ctx, fn, o)
			}
		}
	}()

	return h
}

func runTick(ctx context.Context, fn Func, o *options) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("poller tick panicked",
				applogger.String("task", o.name),
				applogger.Error(fmt.Errorf("%v", r)),
				applogger.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn(ctx)
}
