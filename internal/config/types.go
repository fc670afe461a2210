package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	// Timezone is an IANA zone name (e.g. "Asia/Jakarta"). Empty means local time.
	Timezone string `json:"timezone,omitempty"`

	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Reminders RemindersConfig `json:"reminders,omitempty"`

	// Telegram is the optional delivery channel for reminder messages.
	// If the whole section is omitted, reminders are logged only.
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the sqlite persistence layer.
//
// Example:
//
//	"storage": { "path": "./medremind.db" }
type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// RemindersConfig controls the background jobs around reminder delivery.
//
// All durations are Go duration strings (e.g. "30s", "10m").
type RemindersConfig struct {
	// SweepEvery is how often pending past-due intakes are re-checked and,
	// past the grace window, marked missed. Defaults to 10m.
	SweepEvery string `json:"sweep_every,omitempty"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chat_id"`
	// RatePerSec caps outgoing messages. 0 means the default (1/sec).
	RatePerSec int `json:"rate_per_sec,omitempty"`
	// PollTimeout is a Go duration string for long polling. Defaults to 10s.
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// Validate checks cross-field constraints that the strict decoder cannot.
// It does not mutate the config; defaults are resolved by the accessors below.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage.path is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("reminders.sweep_every", c.Reminders.SweepEvery); err != nil {
		return err
	}
	if c.Telegram != nil && c.Telegram.Enabled {
		if strings.TrimSpace(c.Telegram.Token) == "" {
			return fmt.Errorf("telegram.token is required when telegram.enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram.enabled")
		}
		if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
			return err
		}
	}
	return nil
}

// Location resolves the configured timezone, falling back to the host zone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

func (c *Config) SweepInterval() time.Duration {
	d, err := ParseDurationOrDefault("reminders.sweep_every", c.Reminders.SweepEvery, 10*time.Minute)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

func (c *Config) TelegramEnabled() bool {
	return c.Telegram != nil && c.Telegram.Enabled && strings.TrimSpace(c.Telegram.Token) != ""
}
