package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development"`
	Log         LogConfig        `yaml:"log"`
	HTTP        HTTPConfig       `yaml:"http"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Market      MarketConfig     `yaml:"market"`
	Signal      SignalConfig     `yaml:"signal"`
	Bot         BotConfig        `yaml:"bot"`
	Rules       RulesConfig      `yaml:"rules"`
	Challenge   ChallengeConfig  `yaml:"challenge"`
	Cache       CacheConfig      `yaml:"cache"`
	Events      EventsConfig     `yaml:"events"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	RateLimit   RateLimitConfig  `yaml:"ratelimit"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"console"`
	Output string `yaml:"output" default:"stdout"`
}

type HTTPConfig struct {
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type MarketConfig struct {
	APIURL          string        `yaml:"api_url" default:"http://localhost:5000/api"`
	APIToken        string        `yaml:"api_token"`
	Timeout         time.Duration `yaml:"timeout" default:"10s"`
	RegionSymbols   []string      `yaml:"region_symbols" default:"[\"IAM\",\"ATW\",\"BCP\",\"LHM\",\"CIH\"]"`
	DefaultSymbol   string        `yaml:"default_symbol" default:"BTC-USD"`
	RefreshInterval time.Duration `yaml:"refresh_interval" default:"15s"`
	LiveWindow      time.Duration `yaml:"live_window" default:"60s"`
	SeriesInterval  string        `yaml:"series_interval" default:"1h"`
	SeriesRange     string        `yaml:"series_range" default:"5d"`
	TickerSymbols   []string      `yaml:"ticker_symbols" default:"[\"BTC-USD\",\"ETH-USD\",\"AAPL\",\"TSLA\",\"GOOGL\",\"MSFT\",\"AMZN\"]"`
	TickerInterval  time.Duration `yaml:"ticker_interval" default:"30s"`
}

type SignalConfig struct {
	Interval time.Duration `yaml:"interval" default:"60s"`
}

type BotConfig struct {
	Enabled   bool          `yaml:"enabled" default:"true"`
	URL       string        `yaml:"url" default:"http://localhost:8000"`
	Timeout   time.Duration `yaml:"timeout" default:"5s"`
	Interval  time.Duration `yaml:"interval" default:"3s"`
	Freshness time.Duration `yaml:"freshness" default:"5m"`
}

// RulesConfig holds the challenge limits in percent.
type RulesConfig struct {
	DailyLossLimit float64 `yaml:"daily_loss_limit" default:"-5"`
	DrawdownLimit  float64 `yaml:"drawdown_limit" default:"-10"`
	ProfitTarget   float64 `yaml:"profit_target" default:"10"`
}

type ChallengeConfig struct {
	StartBalance float64 `yaml:"start_balance" default:"10000"`
	OpenOnStart  bool    `yaml:"open_on_start" default:"true"`
}

type CacheConfig struct {
	Backend   string        `yaml:"backend" default:"memory"` // memory, redis, layered
	QuoteTTL  time.Duration `yaml:"quote_ttl" default:"0s"`
	SeriesTTL time.Duration `yaml:"series_ttl" default:"60s"`
	MaxSize   int           `yaml:"max_size" default:"1000"`
	Redis     RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"tradesense"`
}

type EventsConfig struct {
	Backend       string        `yaml:"backend" default:"none"` // none, kafka, clickhouse
	BatchSize     int           `yaml:"batch_size" default:"50"`
	FlushInterval time.Duration `yaml:"flush_interval" default:"1s"`
	BufferLimit   int           `yaml:"buffer_limit" default:"10000"`
}

type KafkaConfig struct {
	Brokers      []string       `yaml:"brokers" default:"[\"localhost:9092\"]"`
	Topic        string         `yaml:"topic" default:"tradesense.events"`
	RequiredAcks int            `yaml:"required_acks" default:"1"`
	Compression  string         `yaml:"compression" default:"snappy"`
	WriteTimeout time.Duration  `yaml:"write_timeout" default:"10s"`
	Consumer     ConsumerConfig `yaml:"consumer"`
}

type ConsumerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	GroupID    string        `yaml:"group_id" default:"tradesense-journal"`
	Workers    int           `yaml:"workers" default:"4"`
	RetryMax   int           `yaml:"retry_max" default:"3"`
	BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
	BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
	DLQTopic   string        `yaml:"dlq_topic" default:"tradesense.events.dlq"`
}

type ClickHouseConfig struct {
	Host         string        `yaml:"host" default:"localhost"`
	Port         int           `yaml:"port" default:"9000"`
	Database     string        `yaml:"database" default:"tradesense"`
	User         string        `yaml:"user" default:"default"`
	Password     string        `yaml:"password"`
	AsyncInsert  bool          `yaml:"async_insert"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
}

type RateLimitConfig struct {
	TradesPerSecond float64 `yaml:"trades_per_second" default:"5"`
	Burst           int     `yaml:"burst" default:"10"`
}

// Default returns a config with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes raw YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from TRADESENSE_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("TRADESENSE_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("TRADESENSE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("TRADESENSE_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HTTP.Port = port
		}
	}
	if v := getenv("TRADESENSE_MARKET_API_URL"); v != "" {
		c.Market.APIURL = v
	}
	if v := getenv("TRADESENSE_MARKET_API_TOKEN"); v != "" {
		c.Market.APIToken = v
	}
	if v := getenv("TRADESENSE_TICKER_SYMBOLS"); v != "" {
		c.Market.TickerSymbols = splitList(v)
	}
	if v := getenv("TRADESENSE_BOT_URL"); v != "" {
		c.Bot.URL = v
	}
	if v := getenv("TRADESENSE_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := getenv("TRADESENSE_REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := getenv("TRADESENSE_EVENTS_BACKEND"); v != "" {
		c.Events.Backend = v
	}
	if v := getenv("TRADESENSE_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("TRADESENSE_KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("TRADESENSE_CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Market.APIURL == "" {
		return fmt.Errorf("market.api_url is required")
	}
	if c.Market.DefaultSymbol == "" {
		return fmt.Errorf("market.default_symbol is required")
	}
	if c.Market.LiveWindow <= 0 {
		return fmt.Errorf("market.live_window must be positive")
	}
	if c.Rules.DailyLossLimit >= 0 || c.Rules.DrawdownLimit >= 0 {
		return fmt.Errorf("rules: loss limits must be negative percentages")
	}
	if c.Rules.ProfitTarget <= 0 {
		return fmt.Errorf("rules.profit_target must be positive")
	}
	if c.Challenge.StartBalance <= 0 {
		return fmt.Errorf("challenge.start_balance must be positive")
	}
	switch c.Cache.Backend {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Backend)
	}
	switch c.Events.Backend {
	case "none", "kafka", "clickhouse":
	default:
		return fmt.Errorf("events.backend must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Events.Backend)
	}
	if c.Events.Backend == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when events.backend is kafka")
	}
	if c.Bot.Enabled && c.Bot.URL == "" {
		return fmt.Errorf("bot.url is required when bot is enabled")
	}
	return nil
}
