package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"fraud-monitor/internal/logging"
)

// Snapshot sources accepted by monitor.snapshot_source.
const (
	SnapshotSourceHTTP     = "http"
	SnapshotSourcePostgres = "postgres"
	SnapshotSourceNone     = "none"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Source    SourceConfig    `mapstructure:"source"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// SourceConfig points at the record source HTTP API.
type SourceConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	RecordsPath      string        `mapstructure:"records_path"`
	StreamPath       string        `mapstructure:"stream_path"`
	CheckPath        string        `mapstructure:"check_path"`
	StatsPath        string        `mapstructure:"stats_path"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	UserAgent        string        `mapstructure:"user_agent"`
}

// MonitorConfig shapes the live session.
type MonitorConfig struct {
	Capacity       int    `mapstructure:"capacity"`
	SnapshotSource string `mapstructure:"snapshot_source"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SnapshotLimit   int           `mapstructure:"snapshot_limit"`
}

// AlertingConfig defines high-risk alert filtering and routing.
type AlertingConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	MinScore  float64        `mapstructure:"min_score"`
	Cooldown  time.Duration  `mapstructure:"cooldown"`
	QueueSize int            `mapstructure:"queue_size"`
	Channels  []string       `mapstructure:"channels"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram bot delivery.
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DashboardConfig controls the browser dashboard server.
type DashboardConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	WSPath  string `mapstructure:"ws_path"`
}

// ExportConfig sets CSV/PNG export behaviour.
type ExportConfig struct {
	CSVPath         string        `mapstructure:"csv_path"`
	PNGPath         string        `mapstructure:"png_path"`
	Interval        time.Duration `mapstructure:"interval"`
	AlignToInterval bool          `mapstructure:"align_to_interval"`
	ChartWidth      int           `mapstructure:"chart_width"`
	ChartHeight     int           `mapstructure:"chart_height"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FRAUDWATCH")
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
	v.SetDefault("app.name", "fraudwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("source.base_url", "http://localhost:8088/api/v1")
	v.SetDefault("source.records_path", "/records")
	v.SetDefault("source.stream_path", "/records/stream")
	v.SetDefault("source.check_path", "/fraud/check")
	v.SetDefault("source.stats_path", "/records/stats")
	v.SetDefault("source.request_timeout", "10s")
	v.SetDefault("source.handshake_timeout", "10s")

	v.SetDefault("monitor.capacity", 50)
	v.SetDefault("monitor.snapshot_source", SnapshotSourceHTTP)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.snapshot_limit", 50)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.min_score", 0.0)
	v.SetDefault("alerting.cooldown", "1m")
	v.SetDefault("alerting.queue_size", 32)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.listen", "127.0.0.1:8090")
	v.SetDefault("dashboard.ws_path", "/ws")

	v.SetDefault("export.csv_path", "exports/fraud-records.csv")
	v.SetDefault("export.png_path", "exports/fraud-risk.png")
	v.SetDefault("export.interval", "0s")
	v.SetDefault("export.align_to_interval", true)
	v.SetDefault("export.chart_width", 800)
	v.SetDefault("export.chart_height", 480)
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
	if strings.TrimSpace(c.Source.BaseURL) == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if c.Source.RequestTimeout <= 0 {
		return fmt.Errorf("source.request_timeout must be greater than zero")
	}
	if c.Monitor.Capacity <= 0 {
		return fmt.Errorf("monitor.capacity must be greater than zero")
	}
	switch c.Monitor.SnapshotSource {
	case SnapshotSourceHTTP, SnapshotSourceNone:
	case SnapshotSourcePostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required when monitor.snapshot_source is postgres")
		}
	default:
		return fmt.Errorf("monitor.snapshot_source must be one of http, postgres, none (got %q)", c.Monitor.SnapshotSource)
	}
	if c.Database.SnapshotLimit <= 0 {
		return fmt.Errorf("database.snapshot_limit must be greater than zero")
	}
	if c.Alerting.MinScore < 0 {
		return fmt.Errorf("alerting.min_score cannot be negative")
	}
	if c.Alerting.Cooldown < 0 {
		return fmt.Errorf("alerting.cooldown cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	if c.Dashboard.Enabled && strings.TrimSpace(c.Dashboard.Listen) == "" {
		return fmt.Errorf("dashboard.listen is required when the dashboard is enabled")
	}
	if c.Export.Interval < 0 {
		return fmt.Errorf("export.interval cannot be negative")
	}
	if c.Export.ChartWidth <= 0 || c.Export.ChartHeight <= 0 {
		return fmt.Errorf("export.chart_width and export.chart_height must be greater than zero")
	}
	return nil
}

// ResolveCapacity returns either the CLI override or the configured capacity.
func (c *Config) ResolveCapacity(override int) int {
	if override > 0 {
		return override
	}
	return c.Monitor.Capacity
}
