// Package app wires the daemon together: config, logging, storage, the
// delivery pipeline, and the reminder engine.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"medremind/internal/config"
	"medremind/internal/daycycle"
	"medremind/internal/eventbus"
	"medremind/internal/notify"
	"medremind/internal/reminder"
	"medremind/internal/store"
	"medremind/internal/waketimer"
	logx "medremind/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store store.Store
	wake  *waketimer.Service
	notif *notify.Service
	rem   *reminder.Service

	watchCancel context.CancelFunc
	watchDone   chan struct{}

	eventsUnsub func()
	eventsDone  chan struct{}
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(store.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	bus := eventbus.New()

	sink, err := buildSink(cfg, log)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	ratePerSec := 1
	if cfg.Telegram != nil && cfg.Telegram.RatePerSec > 0 {
		ratePerSec = cfg.Telegram.RatePerSec
	}
	notif := notify.NewService(notify.Config{
		RatePerSec: ratePerSec,
		RetryMax:   2,
	}, sink, log.With(logx.String("comp", "notify")))

	cycle := daycycle.New(st, bus, log.With(logx.String("comp", "daycycle")))

	a := &App{
		cfgm:  cfgm,
		log:   log,
		logs:  logSvc,
		bus:   bus,
		store: st,
		notif: notif,
	}

	a.wake = waketimer.New(func(ctx context.Context, key string, p waketimer.Payload) {
		a.rem.HandleFire(ctx, key, p)
	}, log.With(logx.String("comp", "waketimer")))

	a.rem = reminder.New(reminder.Config{
		SweepEvery: cfg.SweepInterval(),
		Location:   loc,
	}, st, cycle, a.wake, notif, bus, log.With(logx.String("comp", "reminder")))

	return a, nil
}

func buildSink(cfg *config.Config, log logx.Logger) (notify.Sink, error) {
	if !cfg.TelegramEnabled() {
		return notify.LogSink{Log: log.With(logx.String("comp", "notify"))}, nil
	}
	sink, err := notify.NewTelegramSink(*cfg.Telegram)
	if err != nil {
		return nil, fmt.Errorf("telegram sink: %w", err)
	}
	return sink, nil
}

// Reminders exposes the engine for callers driving explicit actions.
func (a *App) Reminders() *reminder.Service { return a.rem }

// Store exposes the persistence layer.
func (a *App) Store() store.Store { return a.store }

// Start brings up the pipeline, the reminder engine, and the config watch,
// then signals readiness to systemd.
func (a *App) Start(ctx context.Context) error {
	evCh, unsub := a.bus.Subscribe(16)
	a.eventsUnsub = unsub
	a.eventsDone = make(chan struct{})
	go func() {
		defer close(a.eventsDone)
		logEvents(evCh, a.log.With(logx.String("comp", "events")))
	}()

	a.notif.Start(ctx)

	if err := a.rem.Start(ctx); err != nil {
		return fmt.Errorf("start reminder engine: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	a.watchDone = make(chan struct{})
	go func() {
		defer close(a.watchDone)
		_ = a.cfgm.Watch(watchCtx)
	}()
	go a.reloadLoop(watchCtx)

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify: ready")
	}

	a.log.Info("started")
	return nil
}

// reloadLoop applies hot-reloadable config sections. Storage and timezone
// changes need a restart; they are logged and skipped.
func (a *App) reloadLoop(ctx context.Context) {
	sub := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(sub)
	prev := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			changed, attrs := config.SummarizeChange(prev, cfg)
			prev = cfg
			if len(changed) == 0 {
				continue
			}
			a.log.Info("config changed",
				append(attrs, logx.String("sections", strings.Join(changed, ",")))...)

			a.logs.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			for _, section := range changed {
				switch section {
				case "storage", "timezone", "telegram", "reminders":
					a.log.Warn("config change needs restart", logx.String("section", section))
				}
			}

			go func() {
				if err := a.rem.Refresh(ctx); err != nil {
					a.log.Warn("refresh after config change failed", logx.Err(err))
				}
			}()
		}
	}
}

// Stop tears everything down in dependency order.
func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.watchCancel != nil {
		a.watchCancel()
		select {
		case <-a.watchDone:
		case <-time.After(2 * time.Second):
		}
	}

	a.rem.Stop()
	a.wake.Close()
	a.notif.Stop(ctx)

	if a.eventsUnsub != nil {
		a.eventsUnsub()
		select {
		case <-a.eventsDone:
		case <-time.After(2 * time.Second):
		}
	}

	err := a.store.Close()
	a.log.Info("stopped")
	_ = a.logs.Close()
	return err
}
