package di

import (
	"context"
	"fmt"
	"time"

	"TradeSense/internal/domain/models"
	"TradeSense/internal/domain/repository"
	"TradeSense/internal/handler/api"
	"TradeSense/internal/handler/ws"
	mid "TradeSense/internal/middleware"
	internalrepo "TradeSense/internal/repository"
	"TradeSense/internal/service/bot"
	"TradeSense/internal/service/calendar"
	"TradeSense/internal/service/marketdata"
	"TradeSense/internal/service/ratelimit"
	"TradeSense/internal/services/rules"
	"TradeSense/internal/services/synthetic"
	"TradeSense/internal/usecase"
	"TradeSense/pkg/cache"
	pkgch "TradeSense/pkg/clickhouse"
	"TradeSense/pkg/config"
	xhttp "TradeSense/pkg/http"
	pkgkafka "TradeSense/pkg/kafka"
	applogger "TradeSense/pkg/logger"
	"TradeSense/pkg/metrics"
	"TradeSense/pkg/server"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// ProvideLogger builds the root logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry returns the registry every collector registers on and /metrics serves.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.NewWithRegistry(reg)
}

// ProvideCache builds the response cache for the configured backend.
func ProvideCache(cfg *config.Config, log *applogger.Logger) (cache.Service, func(), error) {
	var (
		svc cache.Service
		err error
	)
	switch cfg.Cache.Backend {
	case "redis", "layered":
		var rc *cache.RedisCache
		rc, err = cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Cache.Redis.Addr),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = rc
		if cfg.Cache.Backend == "layered" {
			svc = cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(cfg.Cache.MaxSize))
		}
	default:
		svc = cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxSize))
	}

	log.Info("cache ready", applogger.String("backend", cfg.Cache.Backend))
	cleanup := func() {
		if err := svc.Close(); err != nil {
			log.Warn("cache close", applogger.Error(err))
		}
	}
	return svc, cleanup, nil
}

// ProvideMarketClient creates the upstream market API client.
func ProvideMarketClient(cfg *config.Config) *marketdata.Client {
	return marketdata.NewClient(
		marketdata.Credentials{BaseURL: cfg.Market.APIURL, Token: cfg.Market.APIToken},
		marketdata.WithTimeout(cfg.Market.Timeout),
	)
}

// ProvideQuoteSource routes quotes by venue behind the quote cache.
func ProvideQuoteSource(cfg *config.Config, client *marketdata.Client, c cache.Service) repository.QuoteSource {
	router := marketdata.NewRouter(cfg.Market.RegionSymbols, client.Generic(), client.Region())
	return marketdata.NewCachedQuoteSource(router, c, cfg.Cache.QuoteTTL)
}

// ProvideSeriesSource serves series behind the series cache.
func ProvideSeriesSource(cfg *config.Config, client *marketdata.Client, c cache.Service) repository.SeriesSource {
	return marketdata.NewCachedSeriesSource(client, c, cfg.Cache.SeriesTTL)
}

func ProvideMarketSync(cfg *config.Config, quotes repository.QuoteSource, series repository.SeriesSource, m repository.Metrics, log *applogger.Logger) *usecase.MarketSync {
	return usecase.NewMarketSync(quotes, series, synthetic.New(), m, log,
		usecase.WithLiveWindow(cfg.Market.LiveWindow),
		usecase.WithDefaultInterval(cfg.Market.RefreshInterval),
		usecase.WithRegionSymbols(cfg.Market.RegionSymbols),
		usecase.WithSeriesWindow(repository.NormalizeInterval(cfg.Market.SeriesInterval), repository.NormalizeRange(cfg.Market.SeriesRange)),
	)
}

func ProvideTickerStrip(cfg *config.Config, quotes repository.QuoteSource, m repository.Metrics, log *applogger.Logger) *usecase.TickerStrip {
	return usecase.NewTickerStrip(quotes, cfg.Market.TickerSymbols, cfg.Market.TickerInterval, m, log)
}

func ProvideSignalMonitor(cfg *config.Config, sync *usecase.MarketSync, log *applogger.Logger) *usecase.SignalMonitor {
	return usecase.NewSignalMonitor(sync, cfg.Signal.Interval, log)
}

// ProvideBotMonitor returns nil when the bot integration is disabled.
func ProvideBotMonitor(cfg *config.Config, m repository.Metrics, log *applogger.Logger) *usecase.BotMonitor {
	if !cfg.Bot.Enabled {
		return nil
	}
	client := bot.NewClient(cfg.Bot.URL, cfg.Bot.Timeout, time.Local)
	return usecase.NewBotMonitor(client, cfg.Bot.Interval, cfg.Bot.Freshness, m, log)
}

func ProvideCalendar(cfg *config.Config) *usecase.Calendar {
	client := calendar.NewClient(marketdata.Credentials{BaseURL: cfg.Market.APIURL, Token: cfg.Market.APIToken}, cfg.Market.Timeout)
	return usecase.NewCalendar(client)
}

// ProvideEvaluator builds the rule evaluator from the configured limits.
func ProvideEvaluator(cfg *config.Config) *rules.Evaluator {
	return rules.NewEvaluator(models.RuleLimits{
		DailyLossLimit: decimal.NewFromFloat(cfg.Rules.DailyLossLimit),
		DrawdownLimit:  decimal.NewFromFloat(cfg.Rules.DrawdownLimit),
		ProfitTarget:   decimal.NewFromFloat(cfg.Rules.ProfitTarget),
	})
}

func ProvideChallengeStore() repository.ChallengeStore {
	return internalrepo.NewMemoryChallengeStore()
}

func ProvideChallengeService(cfg *config.Config, store repository.ChallengeStore, evaluator *rules.Evaluator, log *applogger.Logger) *usecase.ChallengeService {
	return usecase.NewChallengeService(store, evaluator, decimal.NewFromFloat(cfg.Challenge.StartBalance), log)
}

// ProvideJournal opens the ClickHouse journal when events are stored there directly or
// consumed into it from Kafka. It returns nil otherwise.
func ProvideJournal(cfg *config.Config, log *applogger.Logger) (repository.EventJournal, func(), error) {
	if cfg.Events.Backend != "clickhouse" && !cfg.Kafka.Consumer.Enabled {
		return nil, func() {}, nil
	}

	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		pkgch.WithAsyncInsert(ch.AsyncInsert, true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse: %w", err)
	}

	journal := internalrepo.NewClickHouseJournal(client.DB(), "")
	ctx, cancel := context.WithTimeout(context.Background(), ch.WriteTimeout)
	defer cancel()
	if err := journal.Init(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	log.Info("clickhouse journal ready", applogger.String("database", ch.Database))

	cleanup := func() {
		if err := journal.Close(); err != nil {
			log.Warn("clickhouse close", applogger.Error(err))
		}
	}
	return journal, cleanup, nil
}

// ProvideEventPipeline puts the bounded pipeline in front of the configured sink.
func ProvideEventPipeline(cfg *config.Config, journal repository.EventJournal, reg *prometheus.Registry, m repository.Metrics, log *applogger.Logger) (*mid.EventPipeline, error) {
	var sink repository.EventPublisher
	switch cfg.Events.Backend {
	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithTopic(cfg.Kafka.Topic),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
			pkgkafka.WithBatch(cfg.Events.BatchSize, cfg.Events.FlushInterval),
			pkgkafka.WithHashByKey(true),
			pkgkafka.WithProducerRegisterer(reg),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		sink = internalrepo.NewKafkaEventPublisher(producer)
	case "clickhouse":
		sink = internalrepo.NewJournalPublisher(journal)
	default:
		sink = internalrepo.NopPublisher{}
	}

	return mid.NewEventPipeline(sink, cfg.Events.Backend, m,
		mid.WithBatchSize(cfg.Events.BatchSize),
		mid.WithBufferLimit(cfg.Events.BufferLimit),
		mid.WithFlushInterval(cfg.Events.FlushInterval),
		mid.WithPipelineLogger(log),
	), nil
}

func ProvideTradeExecutor(store repository.ChallengeStore, quotes repository.QuoteSource, evaluator *rules.Evaluator, pipeline *mid.EventPipeline, m repository.Metrics, log *applogger.Logger) *usecase.TradeExecutor {
	return usecase.NewTradeExecutor(store, quotes, evaluator, pipeline, m, log)
}

// ProvideKafkaConsumer returns nil unless the journal consumer is enabled.
func ProvideKafkaConsumer(cfg *config.Config, reg *prometheus.Registry, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	cc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cc.GroupID),
		pkgkafka.WithConsumerWorkers(cc.Workers),
		pkgkafka.WithConsumerRetry(cc.RetryMax, cc.BackoffMin, cc.BackoffMax),
		pkgkafka.WithConsumerDLQ(cc.DLQTopic),
		pkgkafka.WithConsumerRegisterer(reg),
		pkgkafka.WithConsumerLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideJournalHandler consumes the event topic into the journal; nil without a journal.
func ProvideJournalHandler(cfg *config.Config, journal repository.EventJournal, m repository.Metrics) pkgkafka.MessageHandler {
	if journal == nil {
		return nil
	}
	return usecase.NewTradeEventsHandler(cfg.Kafka.Topic, journal, m)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if cfg.RateLimit.TradesPerSecond <= 0 {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.TradesPerSecond, cfg.RateLimit.Burst)
}

func ProvideHub(log *applogger.Logger) *ws.Hub {
	return ws.NewHub(log)
}

// ProvideHTTPHandlers collects every route group.
func ProvideHTTPHandlers(
	log *applogger.Logger,
	sync *usecase.MarketSync,
	ticker *usecase.TickerStrip,
	cal *usecase.Calendar,
	signals *usecase.SignalMonitor,
	botMonitor *usecase.BotMonitor,
	challenges *usecase.ChallengeService,
	executor *usecase.TradeExecutor,
	limiter *ratelimit.Limiter,
	hub *ws.Hub,
) xhttp.Handlers {
	return xhttp.Handlers{
		api.NewMarketHandler(log, sync, ticker, cal),
		api.NewSignalsHandler(log, sync, signals, botMonitor),
		api.NewChallengesHandler(log, challenges),
		api.NewTradesHandler(log, executor, limiter),
		hub,
	}
}

func ProvideHTTPServer(cfg *config.Config, handlers xhttp.Handlers, reg *prometheus.Registry, log *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(handlers, log,
		xhttp.WithPort(cfg.HTTP.Port),
		xhttp.WithTimeouts(cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout, cfg.HTTP.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.HTTP.CORSOrigins),
		xhttp.WithMetrics(metricsPath, reg, reg),
	)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, log *applogger.Logger, c server.Components) *server.App {
	return server.New(cfg, log, c)
}

// ProviderSet is everything InitializeApp needs.
var ProviderSet = wire.NewSet(
	// Observability
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,
	wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),

	// Market data
	ProvideCache,
	ProvideMarketClient,
	ProvideQuoteSource,
	ProvideSeriesSource,
	ProvideMarketSync,
	ProvideTickerStrip,
	ProvideSignalMonitor,
	ProvideBotMonitor,
	ProvideCalendar,

	// Challenges and trading
	ProvideEvaluator,
	ProvideChallengeStore,
	ProvideChallengeService,
	ProvideJournal,
	ProvideEventPipeline,
	ProvideTradeExecutor,
	ProvideKafkaConsumer,
	ProvideJournalHandler,

	// Transport
	ProvideRateLimiter,
	ProvideHub,
	ProvideHTTPHandlers,
	ProvideHTTPServer,

	// Application server
	wire.Struct(new(server.Components), "*"),
	ProvideApp,
)
