package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TradeSense/internal/domain/models"
	"TradeSense/internal/handler/ws"
	"TradeSense/internal/middleware"
	"TradeSense/internal/usecase"
	"TradeSense/pkg/config"
	xhttp "TradeSense/pkg/http"
	pkgkafka "TradeSense/pkg/kafka"
	applogger "TradeSense/pkg/logger"
	"TradeSense/pkg/util"

	"github.com/shopspring/decimal"
)

// Components are the long-running parts the app starts and stops.
// Bot, Consumer and JournalHandler are nil when disabled.
type Components struct {
	Sync           *usecase.MarketSync
	Ticker         *usecase.TickerStrip
	Signals        *usecase.SignalMonitor
	Bot            *usecase.BotMonitor
	Challenges     *usecase.ChallengeService
	Pipeline       *middleware.EventPipeline
	Consumer       *pkgkafka.Consumer
	JournalHandler pkgkafka.MessageHandler
	Hub            *ws.Hub
	HTTP           *xhttp.Server
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	log *applogger.Logger
	c   Components
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, log *applogger.Logger, c Components) *App {
	return &App{cfg: cfg, log: log.Component("app"), c: c}
}

// Run starts every component and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	a.log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout+5*time.Second)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start launches the pollers, the event pipeline, the consumer and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	a.c.Pipeline.Start(ctx)

	if a.c.Consumer != nil && a.c.JournalHandler != nil {
		a.c.Consumer.RegisterHandler(a.c.JournalHandler)
		if err := a.c.Consumer.Start(); err != nil {
			return err
		}
		a.log.Info("journal consumer started", applogger.String("topic", a.c.JournalHandler.Topic()))
	}

	if a.c.Hub != nil {
		a.c.Sync.Subscribe(a.c.Hub.Broadcast)
	}
	if _, err := a.c.Sync.Track(ctx, a.cfg.Market.DefaultSymbol, nil); err != nil {
		return err
	}
	a.c.Ticker.Start(ctx)
	a.c.Signals.Start(ctx)
	if a.c.Bot != nil {
		a.c.Bot.Start(ctx)
	}

	if a.cfg.Challenge.OpenOnStart {
		if err := a.ensureChallenge(ctx); err != nil {
			return err
		}
	}

	if err := a.c.HTTP.Start(); err != nil {
		return err
	}
	a.log.Info("app started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("symbol", util.NormalizeSymbol(a.cfg.Market.DefaultSymbol)),
		applogger.String("events_backend", a.cfg.Events.Backend),
	)
	return nil
}

func (a *App) ensureChallenge(ctx context.Context) error {
	_, err := a.c.Challenges.Active(ctx)
	if !errors.Is(err, models.ErrNoActiveChallenge) {
		return err
	}
	_, err = a.c.Challenges.Open(ctx, decimal.NewFromFloat(a.cfg.Challenge.StartBalance))
	return err
}

// Shutdown stops intake first, then drains the event pipeline and the consumer.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down")
	var errs []error

	if err := a.c.HTTP.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.c.Hub != nil {
		a.c.Hub.Close()
	}

	a.c.Sync.StopAll()
	a.c.Ticker.Stop()
	a.c.Signals.Stop()
	if a.c.Bot != nil {
		a.c.Bot.Stop()
	}

	if err := a.c.Pipeline.Close(); err != nil {
		a.log.Warn("event pipeline close", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
