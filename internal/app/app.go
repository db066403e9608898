// Package app wires configuration, storage, transport and the background
// jobs into one lifecycle: New builds everything, Start launches it under a
// supervisor, Stop unwinds it in dependency order.
package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mealbot/internal/announce"
	"mealbot/internal/catalog"
	"mealbot/internal/chat"
	"mealbot/internal/commands"
	"mealbot/internal/config"
	"mealbot/internal/notifier"
	rtsup "mealbot/internal/runtime/supervisor"
	"mealbot/internal/scheduler"
	"mealbot/internal/speech"
	"mealbot/internal/storage"
	"mealbot/internal/sweep"
	kit "mealbot/internal/transport"
	telegram "mealbot/internal/transport/telegram/adapter"
	"mealbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service

	store   storage.Store
	adapter *telegram.Adapter
	meals   *catalog.Client

	sched     *scheduler.Service
	notif     *notifier.Service
	responder *chat.Responder
	router    *commands.Router

	updates chan kit.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))
	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	// Bootstrap with Telegram logging disabled, set the target, then apply the
	// final config, so the sink never warns about a missing target.
	logSvc, log := logx.New(logCfgFrom(cfg, false), ad)
	log = log.With(logx.String("comp", "app"))
	applyLogTarget(logSvc, cfg)
	logSvc.Apply(logCfgFrom(cfg, cfg.Logging.Telegram.Enabled))

	// Parse everything fallible before opening the store, so no error path
	// below leaves an opened database behind.
	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	schedTimeout, err := config.ParseDurationField("scheduler.default_timeout", cfg.Scheduler.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	catTimeout, err := config.ParseDurationField("catalog.timeout", cfg.Catalog.Timeout)
	if err != nil {
		return nil, err
	}
	speechTimeout, err := config.ParseDurationField("speech.timeout", cfg.Speech.Timeout)
	if err != nil {
		return nil, err
	}
	ncfg, err := mapNotifierConfig(cfg.Notifier)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	schedSvc := scheduler.New(scheduler.Config{
		Workers:        cfg.Scheduler.Workers,
		QueueSize:      cfg.Scheduler.QueueSize,
		DefaultTimeout: schedTimeout,
		HistorySize:    cfg.Scheduler.HistorySize,
		Timezone:       cfg.Scheduler.Timezone,
	}, log.With(logx.String("comp", "scheduler")))

	notifSvc := notifier.New(ncfg, ad, log.With(logx.String("comp", "notifier")))

	meals := catalog.New(cfg.Catalog.BaseURL, catTimeout)

	responder := chat.New(cfg.Chat.SpecialUsers)

	var gate commands.SpeechGate
	if cfg.Speech.Enabled {
		synth := speech.NewSynthesizer(speech.DefaultEngines(), cfg.Speech.WorkDir,
			speechTimeout, log.With(logx.String("comp", "speech")))
		gate = &speech.Gate{
			Store:    store,
			Presence: ad.Presence(),
			Player:   ad,
			Synth:    synth,
			MaxChars: cfg.Speech.MaxChars,
			Log:      log.With(logx.String("comp", "speech")),
		}
	}

	router := commands.New(log.With(logx.String("comp", "commands")),
		ad, store, meals, responder, gate)

	return &App{
		cfgm:      cfgm,
		log:       log,
		logs:      logSvc,
		store:     store,
		adapter:   ad,
		meals:     meals,
		sched:     schedSvc,
		notif:     notifSvc,
		responder: responder,
		router:    router,
		updates:   make(chan kit.Update, 256),
	}, nil
}

// Done is closed when the app supervisor context is cancelled.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err reports the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, a.log)
	cfg := a.cfgm.Get()

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	if a.notif.Enabled() {
		a.notif.Start(a.sup.Context())
	}

	if err := a.registerJobs(cfg); err != nil {
		return err
	}
	if err := a.sched.Start(a.sup.Context()); err != nil {
		return err
	}

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.router.DispatchLoop(c, a.updates)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// registerJobs adds the cron-driven jobs. A malformed schedule aborts startup.
func (a *App) registerJobs(cfg *config.Config) error {
	if cfg.Announce.Enabled {
		job := &announce.Job{
			Source:      a.meals,
			History:     a.store,
			Dispatcher:  a.notif,
			Chat:        kit.ChatTarget{ChatID: cfg.Announce.ChatID, ThreadID: cfg.Announce.ThreadID},
			MaxAttempts: cfg.Announce.MaxAttempts,
			Log:         a.log.With(logx.String("comp", "announce")),
		}
		if err := a.sched.Add("announce.daily", cfg.Announce.Schedule, 0, job.Run); err != nil {
			return fmt.Errorf("announce schedule: %w", err)
		}
	}

	if cfg.Reminders.Enabled {
		job := &sweep.Job{
			Store:      a.store,
			Dispatcher: a.notif,
			Log:        a.log.With(logx.String("comp", "sweep")),
		}
		// Every minute; reminders match on wall-clock HH:MM per timezone.
		if err := a.sched.Add("reminders.sweep", "* * * * *", 0, job.Run); err != nil {
			return fmt.Errorf("reminder sweep schedule: %w", err)
		}
	}
	return nil
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			sections, attrs := config.SummarizeChange(lastApplied, newCfg)
			lastApplied = newCfg
			if len(sections) == 0 {
				a.log.Debug("config reload received, but no effective changes detected")
				continue
			}

			for _, s := range sections {
				switch s {
				case "storage", "scheduler", "announce", "reminders", "speech", "catalog", "telegram":
					a.log.Warn("config section needs a restart to take effect", logx.String("section", s))
				}
			}

			applyLogTarget(a.logs, newCfg)
			a.logs.Apply(logCfgFrom(newCfg, newCfg.Logging.Telegram.Enabled))

			a.responder.Apply(newCfg.Chat.SpecialUsers)

			prevEnabled := a.notif.Enabled()
			ncfg, err := mapNotifierConfig(newCfg.Notifier)
			if err != nil {
				a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
			} else {
				a.notif.Apply(ncfg)
				if prevEnabled && !ncfg.Enabled {
					a.log.Info("notifier disabled via config")
					stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
					a.notif.Stop(stopCtx)
					cancel()
				} else if !prevEnabled && ncfg.Enabled {
					a.log.Info("notifier enabled via config")
					a.notif.Start(ctx)
				}
			}

			fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
			a.log.Info("config reloaded", fields...)
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")
	a.sup.Cancel()

	// Bound each shutdown step so one component cannot stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		if dl, ok := ctx.Deadline(); ok {
			if rem := time.Until(dl); rem > 0 && rem < max {
				max = rem
			}
		}
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- fn(stepCtx) }()
		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name))
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("notifier", 2*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("storage", time.Second, func(c context.Context) error { return a.store.Close() })
	step("supervisor", 2*time.Second, func(c context.Context) error {
		done := make(chan struct{})
		go func() { a.sup.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-c.Done():
			return c.Err()
		}
	})

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}

func logCfgFrom(cfg *config.Config, telegramEnabled bool) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    telegramEnabled,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func applyLogTarget(svc *logx.Service, cfg *config.Config) {
	if raw := strings.TrimSpace(cfg.Telegram.GroupLog); raw != "" {
		if chatID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			svc.SetTelegramTarget(chatID, cfg.Logging.Telegram.ThreadID)
			return
		}
	}
	svc.SetTelegramTarget(0, 0)
}

func mapNotifierConfig(n *config.NotifierConfig) (notifier.Config, error) {
	if n == nil {
		return notifier.Config{Enabled: true}, nil
	}
	retryBase, err := config.ParseDurationField("notifier.retry_base", n.RetryBase)
	if err != nil {
		return notifier.Config{}, err
	}
	retryMaxDelay, err := config.ParseDurationField("notifier.retry_max_delay", n.RetryMaxDelay)
	if err != nil {
		return notifier.Config{}, err
	}
	dedupWindow, err := config.ParseDurationField("notifier.dedup_window", n.DedupWindow)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		Enabled:         n.Enabled,
		Workers:         n.Workers,
		QueueSize:       n.QueueSize,
		RatePerSec:      n.RatePerSec,
		RetryMax:        n.RetryMax,
		RetryBase:       retryBase,
		RetryMaxDelay:   retryMaxDelay,
		DedupWindow:     dedupWindow,
		DedupMaxEntries: n.DedupMaxEntries,
	}, nil
}
