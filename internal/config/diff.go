package config

import (
	"reflect"
	"sort"
	"strings"

	"mealbot/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections plus safe
// structured attrs for logging. Secrets (the bot token) are never included.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 16)

	if strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) ||
		!reflect.DeepEqual(oldCfg.Telegram.OwnerUserIDs, newCfg.Telegram.OwnerUserIDs) ||
		strings.TrimSpace(oldCfg.Telegram.GroupLog) != strings.TrimSpace(newCfg.Telegram.GroupLog) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.poll_timeout", strings.TrimSpace(newCfg.Telegram.PollTimeout)),
			logx.Int("telegram.owner_count", len(newCfg.Telegram.OwnerUserIDs)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.Bool("storage.path_set", strings.TrimSpace(newCfg.Storage.Path) != ""),
			logx.String("storage.busy_timeout", strings.TrimSpace(newCfg.Storage.BusyTimeout)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Scheduler, newCfg.Scheduler) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Int("scheduler.workers", newCfg.Scheduler.Workers),
			logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)),
		)
	}

	if !reflect.DeepEqual(derefNotifier(oldCfg.Notifier), derefNotifier(newCfg.Notifier)) {
		changed = append(changed, "notifier")
		n := derefNotifier(newCfg.Notifier)
		attrs = append(attrs,
			logx.Bool("notifier.enabled", n.Enabled),
			logx.Int("notifier.workers", n.Workers),
			logx.Int("notifier.rate_per_sec", n.RatePerSec),
		)
	}

	if !reflect.DeepEqual(oldCfg.Catalog, newCfg.Catalog) {
		changed = append(changed, "catalog")
		attrs = append(attrs,
			logx.Bool("catalog.base_url_set", strings.TrimSpace(newCfg.Catalog.BaseURL) != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Announce, newCfg.Announce) {
		changed = append(changed, "announce")
		attrs = append(attrs,
			logx.Bool("announce.enabled", newCfg.Announce.Enabled),
			logx.String("announce.schedule", strings.TrimSpace(newCfg.Announce.Schedule)),
			logx.Int("announce.max_attempts", newCfg.Announce.MaxAttempts),
		)
	}

	if oldCfg.Reminders != newCfg.Reminders {
		changed = append(changed, "reminders")
		attrs = append(attrs, logx.Bool("reminders.enabled", newCfg.Reminders.Enabled))
	}

	if !reflect.DeepEqual(oldCfg.Speech, newCfg.Speech) {
		changed = append(changed, "speech")
		attrs = append(attrs,
			logx.Bool("speech.enabled", newCfg.Speech.Enabled),
			logx.Int("speech.max_chars", newCfg.Speech.MaxChars),
		)
	}

	if !reflect.DeepEqual(oldCfg.Chat, newCfg.Chat) {
		changed = append(changed, "chat")
		attrs = append(attrs, logx.Int("chat.special_users", len(newCfg.Chat.SpecialUsers)))
	}

	sort.Strings(changed)
	return changed, attrs
}

// derefNotifier normalizes a notifier section to the runtime defaults the
// notifier itself applies, so omitting the section, and spelling the defaults
// out, compare equal. The default values must stay in sync with the notifier's
// own fallbacks.
func derefNotifier(n *NotifierConfig) NotifierConfig {
	out := NotifierConfig{Enabled: true}
	if n != nil {
		out = *n
	}
	if out.Workers <= 0 {
		out.Workers = 2
	}
	if out.QueueSize <= 0 {
		out.QueueSize = 512
	}
	if out.RatePerSec <= 0 {
		out.RatePerSec = 3
	}
	if out.RetryMax <= 0 {
		out.RetryMax = 3
	}
	if strings.TrimSpace(out.RetryBase) == "" {
		out.RetryBase = "500ms"
	}
	if strings.TrimSpace(out.RetryMaxDelay) == "" {
		out.RetryMaxDelay = "10s"
	}
	if strings.TrimSpace(out.DedupWindow) == "" {
		out.DedupWindow = "1m"
	}
	if out.DedupMaxEntries <= 0 {
		out.DedupMaxEntries = 2000
	}
	return out
}
