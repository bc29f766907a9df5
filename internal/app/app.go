package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sentifi/internal/alerting"
	"sentifi/internal/classify"
	"sentifi/internal/config"
	"sentifi/internal/feeds"
	"sentifi/internal/oracle"
	"sentifi/internal/pipeline"
	"sentifi/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newSources() []feeds.Source {
	var sources []feeds.Source

	if a.Config.Sources.Reddit.Enabled {
		cfg := a.Config.Sources.Reddit
		sources = append(sources, feeds.NewReddit(feeds.RedditOptions{
			BaseURL:     cfg.BaseURL,
			UserAgent:   cfg.UserAgent,
			Limit:       cfg.Limit,
			Timeout:     cfg.RequestTimeout,
			Subreddits:  cfg.Subreddits,
			MaxAge:      cfg.MaxAge,
			QueryMaxAge: cfg.QueryMaxAge,
		}, a.Logger))
	}

	if a.Config.Sources.News.Enabled {
		cfg := a.Config.Sources.News
		endpoints := make([]feeds.FeedEndpoint, 0, len(cfg.Feeds))
		for _, feed := range cfg.Feeds {
			endpoints = append(endpoints, feeds.FeedEndpoint{Name: feed.Name, URL: feed.URL})
		}
		sources = append(sources, feeds.NewNews(feeds.NewsOptions{
			Feeds:     endpoints,
			Keywords:  cfg.Keywords,
			Limit:     cfg.Limit,
			Timeout:   cfg.RequestTimeout,
			UserAgent: cfg.UserAgent,
			MaxAge:    cfg.MaxAge,
		}, a.Logger))
	}

	return sources
}

func (a *App) newClassifier() (classify.Classifier, error) {
	switch a.Config.Classifier.Mode {
	case "lexicon":
		return classify.NewLexicon(), nil
	case "http":
		return classify.NewHTTP(classify.HTTPOptions{
			Endpoint: a.Config.Classifier.Endpoint,
			Timeout:  a.Config.Classifier.RequestTimeout,
		}, a.Logger), nil
	default:
		return nil, fmt.Errorf("unknown classifier mode %q", a.Config.Classifier.Mode)
	}
}

func (a *App) newOracle() *oracle.Client {
	cfg := a.Config.Oracle
	return oracle.NewClient(oracle.Options{
		RPCURL:          cfg.RPCURL,
		ContractAddress: cfg.ContractAddress,
		PrivateKey:      cfg.PrivateKey,
		GasPriceFloor:   cfg.GasPriceFloorWei(),
		RequestTimeout:  cfg.RequestTimeout,
		ConfirmTimeout:  cfg.ConfirmTimeout,
		ExplorerBaseURL: cfg.ExplorerBaseURL,
	}, a.Logger)
}

func (a *App) newPipeline(publisher pipeline.Publisher) (*pipeline.Pipeline, error) {
	classifier, err := a.newClassifier()
	if err != nil {
		return nil, err
	}

	return pipeline.New(a.newSources(), classifier, publisher, pipeline.Options{
		FetchTimeout: a.Config.Pipeline.FetchTimeout,
		Workers:      a.Config.Classifier.Workers,
	}, a.Logger), nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) resolveSymbol(symbol string) string {
	if symbol != "" {
		return symbol
	}
	return a.Config.Pipeline.DefaultSymbol
}

// RunOptions configure a single publication cycle.
type RunOptions struct {
	Symbol string
	Query  string
	DryRun bool
}

// ReadOptions configure the read command.
type ReadOptions struct {
	Symbol string
}

// ExportOptions configure export of a dry-run breakdown.
type ExportOptions struct {
	Symbol  string
	Query   string
	PNGPath string
	CSVPath string
}
