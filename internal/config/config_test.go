package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: fraudwatch\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Monitor.Capacity != 50 {
		t.Fatalf("capacity = %d, want 50", cfg.Monitor.Capacity)
	}
	if cfg.Monitor.SnapshotSource != SnapshotSourceHTTP {
		t.Fatalf("snapshot source = %q", cfg.Monitor.SnapshotSource)
	}
	if cfg.Source.BaseURL != "http://localhost:8088/api/v1" {
		t.Fatalf("base url = %q", cfg.Source.BaseURL)
	}
	if cfg.Source.RequestTimeout != 10*time.Second {
		t.Fatalf("request timeout = %s", cfg.Source.RequestTimeout)
	}
	if cfg.Logging.Output != "stderr" {
		t.Fatalf("logging output = %q, want stderr", cfg.Logging.Output)
	}
	if len(cfg.Alerting.Channels) != 1 || cfg.Alerting.Channels[0] != "telegram" {
		t.Fatalf("channels = %v", cfg.Alerting.Channels)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"source:",
		"  base_url: http://fraud.internal/api/v1",
		"  handshake_timeout: 3s",
		"monitor:",
		"  capacity: 20",
		"alerting:",
		"  enabled: true",
		"  min_score: 0.75",
		"  cooldown: 30s",
		"  channels: telegram,log",
		"",
	}, "\n"))
	t.Setenv("FRAUDWATCH_MONITOR_CAPACITY", "25")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.BaseURL != "http://fraud.internal/api/v1" {
		t.Fatalf("base url = %q", cfg.Source.BaseURL)
	}
	if cfg.Source.HandshakeTimeout != 3*time.Second {
		t.Fatalf("handshake timeout = %s", cfg.Source.HandshakeTimeout)
	}
	if cfg.Monitor.Capacity != 25 {
		t.Fatalf("env should override capacity, got %d", cfg.Monitor.Capacity)
	}
	if cfg.Alerting.MinScore != 0.75 || cfg.Alerting.Cooldown != 30*time.Second {
		t.Fatalf("unexpected alerting %+v", cfg.Alerting)
	}
	if len(cfg.Alerting.Channels) != 2 || cfg.Alerting.Channels[1] != "log" {
		t.Fatalf("channels = %v", cfg.Alerting.Channels)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"capacity":        "monitor:\n  capacity: 0\n",
		"snapshot source": "monitor:\n  snapshot_source: kafka\n",
		"postgres dsn":    "monitor:\n  snapshot_source: postgres\n",
		"min score":       "alerting:\n  min_score: -1\n",
		"telegram token":  "alerting:\n  telegram:\n    enabled: true\n    chat_id: \"1\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestResolveCapacity(t *testing.T) {
	cfg := &Config{Monitor: MonitorConfig{Capacity: 50}}
	if got := cfg.ResolveCapacity(0); got != 50 {
		t.Fatalf("resolve without override = %d", got)
	}
	if got := cfg.ResolveCapacity(10); got != 10 {
		t.Fatalf("resolve with override = %d", got)
	}
}
