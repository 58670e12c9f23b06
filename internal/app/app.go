package app

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fraud-monitor/internal/alerting"
	"fraud-monitor/internal/config"
	"fraud-monitor/internal/source"
	"fraud-monitor/internal/storage"
	"fraud-monitor/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle writing command output to stdout.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) sourceOptions() source.Options {
	cfg := a.Config.Source
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	return source.Options{
		BaseURL:          cfg.BaseURL,
		RecordsPath:      cfg.RecordsPath,
		StreamPath:       cfg.StreamPath,
		CheckPath:        cfg.CheckPath,
		StatsPath:        cfg.StatsPath,
		Timeout:          cfg.RequestTimeout,
		HandshakeTimeout: cfg.HandshakeTimeout,
		UserAgent:        userAgent,
	}
}

// snapshotLoader picks the configured snapshot source. A nil loader means the
// session starts empty and goes straight to the live stream.
func (a *App) snapshotLoader(ctx context.Context) (source.SnapshotLoader, func(), error) {
	switch a.Config.Monitor.SnapshotSource {
	case config.SnapshotSourceNone:
		return nil, func() {}, nil
	case config.SnapshotSourcePostgres:
		store, closer, err := a.openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		return store, closer, nil
	default:
		return source.NewSnapshotLoader(a.sourceOptions(), a.Logger), func() {}, nil
	}
}

func (a *App) statsFetcher(ctx context.Context) (source.StatsFetcher, func(), error) {
	if a.Config.Monitor.SnapshotSource == config.SnapshotSourcePostgres {
		store, closer, err := a.openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		return store, closer, nil
	}
	return source.NewStatsFetcher(a.sourceOptions(), a.Logger), func() {}, nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	pool, err := storage.NewPool(ctx, a.Config.Database, a.Config.App.Name)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool, a.Config.Database.SnapshotLimit)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newNotifier returns the configured alert channels, or nil when none is usable.
func (a *App) newNotifier() alerting.Notifier {
	var notifiers alerting.Notifiers
	for _, channel := range a.Config.Alerting.Channels {
		switch channel {
		case "telegram":
			cfg := a.Config.Alerting.Telegram
			if !cfg.Enabled {
				a.Logger.Warn().Msg("telegram channel listed but alerting.telegram.enabled is false")
				continue
			}
			notifiers = append(notifiers, alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger))
		case "log":
			notifiers = append(notifiers, alerting.NewLogNotifier(a.Logger))
		default:
			a.Logger.Warn().Str("channel", channel).Msg("unknown alert channel ignored")
		}
	}
	if len(notifiers) == 0 {
		return nil
	}
	return notifiers
}

// RunOptions tune the live session command.
type RunOptions struct {
	Capacity int
	Quiet    bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	Search string
}

// ExportOptions hold parameters for exporting the snapshot view.
type ExportOptions struct {
	CSVPath string
	PNGPath string
	Search  string
}

// CheckOptions describe one evaluation request. Nil balances take the dashboard defaults.
type CheckOptions struct {
	Amount           decimal.Decimal
	Type             int
	OldBalanceOrigin *decimal.Decimal
	NewBalanceOrigin *decimal.Decimal
	OldBalanceDest   *decimal.Decimal
	NewBalanceDest   *decimal.Decimal
	IP               string
	Email            string
}
