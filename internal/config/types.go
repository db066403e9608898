package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`

	// Scheduler controls the shared cron trigger/worker service.
	Scheduler SchedulerConfig `json:"scheduler"`

	// Notifier controls the async delivery pipeline.
	// If omitted, the notifier defaults to enabled with conservative settings.
	Notifier *NotifierConfig `json:"notifier,omitempty"`

	Catalog   CatalogConfig  `json:"catalog"`
	Announce  AnnounceConfig `json:"announce"`
	Reminders ReminderConfig `json:"reminders"`
	Speech    SpeechConfig   `json:"speech"`
	Chat      ChatConfig     `json:"chat,omitempty"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids,omitempty"`
	GroupLog     string  `json:"group_log,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the sqlite persistence layer.
type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// SchedulerConfig controls the cron trigger/worker service.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type SchedulerConfig struct {
	Workers   int `json:"workers,omitempty"`
	QueueSize int `json:"queue_size,omitempty"`

	// DefaultTimeout bounds a single job run. "0s" disables the bound.
	DefaultTimeout string `json:"default_timeout,omitempty"`

	HistorySize int `json:"history_size,omitempty"`

	// Timezone for cron triggers. Empty means the host local zone.
	Timezone string `json:"timezone,omitempty"`
}

// NotifierConfig controls the async delivery pipeline.
//
// All durations are Go duration strings.
type NotifierConfig struct {
	Enabled         bool   `json:"enabled"`
	Workers         int    `json:"workers,omitempty"`
	QueueSize       int    `json:"queue_size,omitempty"`
	RatePerSec      int    `json:"rate_per_sec,omitempty"`
	RetryMax        int    `json:"retry_max,omitempty"`
	RetryBase       string `json:"retry_base,omitempty"`
	RetryMaxDelay   string `json:"retry_max_delay,omitempty"`
	DedupWindow     string `json:"dedup_window,omitempty"`
	DedupMaxEntries int    `json:"dedup_max_entries,omitempty"`
}

// CatalogConfig controls the recipe catalog HTTP client.
type CatalogConfig struct {
	BaseURL string `json:"base_url,omitempty"` // default: TheMealDB v1 API
	Timeout string `json:"timeout,omitempty"`  // Go duration string
}

// AnnounceConfig controls the daily recipe announcement job.
type AnnounceConfig struct {
	Enabled bool `json:"enabled"`

	// Schedule is a standard 5-field cron expression, e.g. "30 11 * * *".
	Schedule string `json:"schedule"`

	ChatID   int64 `json:"chat_id"`
	ThreadID int   `json:"thread_id,omitempty"`

	// MaxAttempts bounds how many random draws are made looking for an
	// unseen recipe before repeating one. Default 5.
	MaxAttempts int `json:"max_attempts,omitempty"`
}

// ReminderConfig controls the per-minute reminder sweep.
type ReminderConfig struct {
	Enabled bool `json:"enabled"`
}

// SpeechConfig controls voice synthesis for opted-in users.
type SpeechConfig struct {
	Enabled bool `json:"enabled"`

	// Timeout bounds a single synthesis run. Go duration string, default "10s".
	Timeout string `json:"timeout,omitempty"`

	// MaxChars truncates spoken text. Default 240.
	MaxChars int `json:"max_chars,omitempty"`

	// WorkDir holds temporary wav files. Empty means os.TempDir().
	WorkDir string `json:"work_dir,omitempty"`
}

// ChatConfig controls the casual mention responder.
type ChatConfig struct {
	// SpecialUsers maps a Telegram username (without @) to a custom greeting.
	SpecialUsers map[string]string `json:"special_users,omitempty"`
}

// Validate checks cross-field constraints that the strict decoder cannot.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("scheduler.default_timeout", c.Scheduler.DefaultTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("catalog.timeout", c.Catalog.Timeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("speech.timeout", c.Speech.Timeout); err != nil {
		return err
	}
	if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: %w", err)
		}
	}
	if c.Announce.Enabled {
		if strings.TrimSpace(c.Announce.Schedule) == "" {
			return fmt.Errorf("announce.schedule is required when announce is enabled")
		}
		if c.Announce.ChatID == 0 {
			return fmt.Errorf("announce.chat_id is required when announce is enabled")
		}
	}
	if c.Announce.MaxAttempts < 0 {
		return fmt.Errorf("announce.max_attempts must be >= 0")
	}
	if c.Speech.MaxChars < 0 {
		return fmt.Errorf("speech.max_chars must be >= 0")
	}
	if n := c.Notifier; n != nil {
		for _, f := range []struct{ path, raw string }{
			{"notifier.retry_base", n.RetryBase},
			{"notifier.retry_max_delay", n.RetryMaxDelay},
			{"notifier.dedup_window", n.DedupWindow},
		} {
			if _, err := ParseDurationField(f.path, f.raw); err != nil {
				return err
			}
		}
	}
	return nil
}
