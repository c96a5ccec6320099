package app

import (
	"context"
	"time"

	"prensabot/internal/config"
	"prensabot/internal/eventbus"
	"prensabot/internal/runtime/supervisor"
	"prensabot/pkg/logx"
	"prensabot/pkg/sdnotify"
)

// stopTimeout bounds shutdown: a scan in flight gets this long to persist
// state before the process gives up on it.
const stopTimeout = 15 * time.Second

// RunDaemon scans on the configured schedule until ctx is canceled and
// returns the process exit code.
func (a *App) RunDaemon(ctx context.Context) int {
	if err := a.Start(ctx); err != nil {
		a.log.Error("daemon start failed", logx.Err(err))
		a.stop()
		return 1
	}
	<-ctx.Done()
	a.stop()
	return 0
}

func (a *App) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	a.Stop(ctx)
}

// Start brings up the daemon: profiler, event mirror, watchdog pings, config
// watch, and the schedule runner. The first scan fires right away (after the
// configured jitter); later ones follow the schedule.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(false),
	)
	sctx := a.sup.Context()

	a.profiler.Start(sctx)
	a.sup.Go0("eventbus.mirror", func(ctx context.Context) {
		eventbus.Mirror(ctx, a.bus, a.log)
	})
	a.sup.Go0("watchdog", sdnotify.Loop)

	if a.cfgm != nil {
		if err := a.cfgm.Watch(sctx); err != nil {
			return err
		}
		sub := a.cfgm.Subscribe(4)
		a.sup.Go0("config.reload", func(ctx context.Context) {
			a.reloadLoop(ctx, sub)
		})
	}

	if err := a.runner.Start(sctx); err != nil {
		return err
	}

	sdnotify.Ready()
	a.log.Info("daemon started",
		logx.String("schedule", a.config().Daemon.Schedule),
		logx.Bool("config_watch", a.cfgm != nil),
		logx.Time("next_run", a.runner.Next()))
	return nil
}

// Stop shuts down under the ctx deadline. Canceling the supervisor context
// first interrupts a scan in flight; the engine still saves state on the way
// out, and the runner waits for that before reporting stopped.
func (a *App) Stop(ctx context.Context) {
	if a.sup == nil {
		return
	}
	sdnotify.Stopping()
	a.log.Info("daemon stopping")

	a.sup.Cancel()
	a.runner.Stop(ctx)
	if a.cfgm != nil {
		a.cfgm.StopWatch()
	}
	a.profiler.Stop(ctx)
	_ = a.sup.Wait(ctx)
	a.log.Info("daemon stopped")
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	defer a.cfgm.Unsubscribe(sub)

	last := a.config()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			a.applyConfig(ctx, last, cfg)
			last = cfg
		}
	}
}

// applyConfig pushes an accepted config into the running services. Sections
// that cannot change live are called out as needing a restart.
func (a *App) applyConfig(ctx context.Context, old, cfg *config.Config) {
	// Logging first so everything after reports through the new sinks.
	a.logs.Apply(mapLoggingConfig(cfg))

	a.fetcher.Apply(mapFetchConfig(cfg))
	a.notif.Apply(mapNotifyConfig(cfg))
	a.engine.Apply(mapWatchConfig(cfg))
	if err := a.runner.Apply(mapScheduleConfig(cfg)); err != nil {
		a.log.Warn("schedule change rejected", logx.Err(err))
	}
	a.profiler.Reconfigure(ctx, mapPprofConfig(cfg))

	if old != nil {
		if old.State != cfg.State {
			a.log.Warn("state settings changed, restart to apply")
		}
		if old.Telegram.Token != cfg.Telegram.Token {
			a.log.Warn("telegram token changed, restart to apply")
		}
		if old.Daemon.Enabled != cfg.Daemon.Enabled {
			a.log.Warn("daemon.enabled changed, restart to apply")
		}
	}

	sections, _ := config.SummarizeConfigChange(old, cfg)
	a.bus.Publish(eventbus.Event{Type: eventbus.TypeConfigReloaded, Data: eventbus.ConfigReloadedData{
		Sections: sections,
	}})
	a.log.Info("config applied", logx.Int("sections", len(sections)))
}
