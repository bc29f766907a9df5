package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"sentifi/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// SourcesConfig covers the text feed adapters.
type SourcesConfig struct {
	Reddit RedditConfig `mapstructure:"reddit"`
	News   NewsConfig   `mapstructure:"news"`
}

// RedditConfig parameterises the Reddit adapter.
type RedditConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	BaseURL        string            `mapstructure:"base_url"`
	UserAgent      string            `mapstructure:"user_agent"`
	Limit          int               `mapstructure:"limit"`
	RequestTimeout time.Duration     `mapstructure:"request_timeout"`
	Subreddits     map[string]string `mapstructure:"subreddits"`
	MaxAge         time.Duration     `mapstructure:"max_age"`
	QueryMaxAge    time.Duration     `mapstructure:"query_max_age"`
}

// NewsConfig parameterises the news RSS adapter.
type NewsConfig struct {
	Enabled        bool                `mapstructure:"enabled"`
	Feeds          []NewsFeedConfig    `mapstructure:"feeds"`
	Keywords       map[string][]string `mapstructure:"keywords"`
	Limit          int                 `mapstructure:"limit"`
	RequestTimeout time.Duration       `mapstructure:"request_timeout"`
	UserAgent      string              `mapstructure:"user_agent"`
	MaxAge         time.Duration       `mapstructure:"max_age"`
}

// NewsFeedConfig names one RSS feed.
type NewsFeedConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// ClassifierConfig selects and tunes the classification capability.
type ClassifierConfig struct {
	Mode           string        `mapstructure:"mode"`
	Endpoint       string        `mapstructure:"endpoint"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Workers        int           `mapstructure:"workers"`
}

// PipelineConfig tunes orchestration.
type PipelineConfig struct {
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	DefaultSymbol string        `mapstructure:"default_symbol"`
}

// OracleConfig covers the on-chain oracle contract.
type OracleConfig struct {
	RPCURL            string        `mapstructure:"rpc_url"`
	ContractAddress   string        `mapstructure:"contract_address"`
	PrivateKey        string        `mapstructure:"private_key"`
	GasPriceFloorGwei int64         `mapstructure:"gas_price_floor_gwei"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ConfirmTimeout    time.Duration `mapstructure:"confirm_timeout"`
	ExplorerBaseURL   string        `mapstructure:"explorer_base_url"`
}

// GasPriceFloorWei converts the configured floor to wei.
func (o OracleConfig) GasPriceFloorWei() *big.Int {
	gwei := big.NewInt(o.GasPriceFloorGwei)
	return gwei.Mul(gwei, big.NewInt(1_000_000_000))
}

// DatabaseConfig encapsulates the optional Postgres mirror.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AlertingConfig defines notification thresholds and routing.
type AlertingConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	Threshold float64        `mapstructure:"threshold"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// SchedulerConfig governs the watch-mode cadence.
type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	AlignToStart bool          `mapstructure:"align_to_start"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
	Symbols      []string      `mapstructure:"symbols"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SENTIFI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "sentifi")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("sources.reddit.enabled", true)
	v.SetDefault("sources.reddit.base_url", "https://www.reddit.com")
	v.SetDefault("sources.reddit.user_agent", "sentifi/1.0")
	v.SetDefault("sources.reddit.limit", 8)
	v.SetDefault("sources.reddit.request_timeout", "8s")
	v.SetDefault("sources.reddit.max_age", "168h")
	v.SetDefault("sources.reddit.query_max_age", "720h")
	v.SetDefault("sources.reddit.subreddits", map[string]string{
		"MONAD": "monad",
		"BTC":   "Bitcoin",
		"ETH":   "ethereum",
	})

	v.SetDefault("sources.news.enabled", true)
	v.SetDefault("sources.news.limit", 10)
	v.SetDefault("sources.news.request_timeout", "8s")
	v.SetDefault("sources.news.user_agent", "sentifi/1.0")
	v.SetDefault("sources.news.max_age", "168h")
	v.SetDefault("sources.news.feeds", []map[string]string{
		{"name": "CoinDesk", "url": "https://www.coindesk.com/arc/outboundfeeds/rss/"},
		{"name": "Decrypt", "url": "https://decrypt.co/feed"},
		{"name": "CoinGape", "url": "https://coingape.com/feed/"},
	})
	v.SetDefault("sources.news.keywords", map[string][]string{
		"MONAD": {"monad"},
		"BTC":   {"bitcoin", "btc"},
		"ETH":   {"ethereum", "eth", "vitalik"},
	})

	v.SetDefault("classifier.mode", "lexicon")
	v.SetDefault("classifier.request_timeout", "10s")
	v.SetDefault("classifier.workers", 4)

	v.SetDefault("pipeline.fetch_timeout", "15s")
	v.SetDefault("pipeline.default_symbol", "BTC")

	v.SetDefault("oracle.rpc_url", "https://testnet-rpc.monad.xyz")
	v.SetDefault("oracle.gas_price_floor_gwei", int64(100))
	v.SetDefault("oracle.request_timeout", "10s")
	v.SetDefault("oracle.confirm_timeout", "2m")
	v.SetDefault("oracle.explorer_base_url", "https://testnet.monadexplorer.com")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.threshold", 0.5)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("scheduler.interval", "15m")
	v.SetDefault("scheduler.align_to_start", true)
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.symbols", []string{"BTC"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if !c.Sources.Reddit.Enabled && !c.Sources.News.Enabled {
		return fmt.Errorf("at least one source adapter must be enabled")
	}
	if c.Classifier.Mode != "lexicon" && c.Classifier.Mode != "http" {
		return fmt.Errorf("classifier.mode must be lexicon or http, got %q", c.Classifier.Mode)
	}
	if c.Classifier.Mode == "http" && c.Classifier.Endpoint == "" {
		return fmt.Errorf("classifier.endpoint is required for http mode")
	}
	if c.Classifier.Workers <= 0 {
		return fmt.Errorf("classifier.workers must be greater than zero")
	}
	if c.Oracle.GasPriceFloorGwei <= 0 {
		return fmt.Errorf("oracle.gas_price_floor_gwei must be greater than zero")
	}
	if c.Pipeline.FetchTimeout <= 0 {
		return fmt.Errorf("pipeline.fetch_timeout must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Alerting.Threshold < 0 || c.Alerting.Threshold > 1 {
		return fmt.Errorf("alerting.threshold must be within [0, 1]")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}
