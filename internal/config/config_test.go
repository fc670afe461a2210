package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const minimalYAML = `
logging:
  level: info
  console: true
storage:
  path: ./medremind.db
`

func TestLoadMinimalConfig(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, minimalYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Path != "./medremind.db" {
		t.Fatalf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "info" || !cfg.Logging.Console {
		t.Fatalf("Logging = %+v", cfg.Logging)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get must return the committed config")
	}
	if cfg.TelegramEnabled() {
		t.Fatal("telegram must be off when the section is absent")
	}
	if cfg.SweepInterval() != 10*time.Minute {
		t.Fatalf("SweepInterval = %v, want the 10m default", cfg.SweepInterval())
	}
}

func TestParseFullConfig(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, `
timezone: Asia/Jakarta
logging:
  level: debug
  console: false
  file:
    enabled: true
    path: /var/log/medremind.log
storage:
  path: /var/lib/medremind.db
  busy_timeout: 5s
reminders:
  sweep_every: 5m
telegram:
  enabled: true
  token: "123:abc"
  chat_id: 42
  rate_per_sec: 2
  poll_timeout: 15s
`))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Asia/Jakarta" {
		t.Fatalf("Location = %v, %v", loc, err)
	}
	if cfg.SweepInterval() != 5*time.Minute {
		t.Fatalf("SweepInterval = %v", cfg.SweepInterval())
	}
	if !cfg.TelegramEnabled() || cfg.Telegram.ChatID != 42 {
		t.Fatalf("Telegram = %+v", cfg.Telegram)
	}
}

func TestParseRejectsBadConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    minimalYAML + "speedtest: true\n",
			wantErr: "unknown field",
		},
		{
			name:    "missing storage path",
			yaml:    "logging:\n  level: info\n",
			wantErr: "storage.path is required",
		},
		{
			name:    "bad timezone",
			yaml:    minimalYAML + "timezone: Mars/Olympus\n",
			wantErr: "timezone",
		},
		{
			name:    "bad sweep duration",
			yaml:    minimalYAML + "reminders:\n  sweep_every: sometimes\n",
			wantErr: "reminders.sweep_every",
		},
		{
			name:    "telegram enabled without token",
			yaml:    minimalYAML + "telegram:\n  enabled: true\n  chat_id: 42\n",
			wantErr: "telegram.token",
		},
		{
			name:    "telegram enabled without chat",
			yaml:    minimalYAML + "telegram:\n  enabled: true\n  token: \"123:abc\"\n",
			wantErr: "telegram.chat_id",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewManager(writeConfig(t, tt.yaml))
			if _, err := m.Parse(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Parse error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestPublishReachesSubscribers(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, minimalYAML))
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	cfg := &Config{Timezone: "UTC", Storage: StorageConfig{Path: "./a.db"}}
	m.publish(cfg)

	select {
	case got := <-ch:
		if got.Timezone != "UTC" {
			t.Fatalf("Timezone = %q, want UTC", got.Timezone)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never received the published config")
	}
}

func TestPublishKeepsNewestOnSlowReader(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, minimalYAML))
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	m.publish(&Config{Timezone: "UTC"})
	m.publish(&Config{Timezone: "Asia/Jakarta"}) // stale revision displaced

	cfg := <-ch
	if cfg.Timezone != "Asia/Jakarta" {
		t.Fatalf("Timezone = %q, want the newest revision", cfg.Timezone)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, minimalYAML))
	ch := m.Subscribe(1)
	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("unsubscribed channel must be closed")
	}
	m.publish(&Config{}) // must not panic on the removed subscriber
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{
		Storage: StorageConfig{Path: "./a.db"},
		Logging: LoggingConfig{Level: "info"},
	}
	newCfg := &Config{
		Timezone: "UTC",
		Storage:  StorageConfig{Path: "./b.db"},
		Logging:  LoggingConfig{Level: "debug"},
		Telegram: &TelegramConfig{Enabled: true, Token: "secret-token", ChatID: 42},
	}

	changed, attrs := SummarizeChange(oldCfg, newCfg)
	want := map[string]bool{"timezone": true, "logging": true, "storage": true, "telegram": true}
	if len(changed) != len(want) {
		t.Fatalf("changed = %v", changed)
	}
	for _, section := range changed {
		if !want[section] {
			t.Fatalf("unexpected section %q in %v", section, changed)
		}
	}
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	ev := zl.Info()
	for _, f := range attrs {
		f(ev)
	}
	ev.Send()
	if strings.Contains(buf.String(), "secret-token") {
		t.Fatalf("change summary must never carry the telegram token: %s", buf.String())
	}
}

func TestSummarizeChangeNoChanges(t *testing.T) {
	t.Parallel()
	cfg := &Config{Storage: StorageConfig{Path: "./a.db"}}
	changed, _ := SummarizeChange(cfg, cfg)
	if len(changed) != 0 {
		t.Fatalf("changed = %v, want none", changed)
	}
}
