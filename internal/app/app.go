// Package app assembles the news watcher: configuration, logging, the
// Telegram transport, state persistence, the scan engine, and the daemon
// schedule. cmd/prensabot owns flags and signals; everything behind them
// lives here.
package app

import (
	"context"
	"fmt"
	"strings"

	"prensabot/internal/config"
	"prensabot/internal/eventbus"
	"prensabot/internal/extract"
	"prensabot/internal/fetch"
	"prensabot/internal/notify"
	"prensabot/internal/observability/pprof"
	"prensabot/internal/runtime/supervisor"
	"prensabot/internal/schedule"
	"prensabot/internal/state"
	"prensabot/internal/transport"
	"prensabot/internal/transport/telegram"
	"prensabot/internal/watch"
	"prensabot/pkg/logx"
	"prensabot/pkg/sdnotify"
)

// Options carry the command-line switches into construction.
type Options struct {
	// ConfigPath is optional; without it the config is defaults plus the
	// environment overlay.
	ConfigPath string
	// Daemon keeps the process alive and scans on a schedule.
	Daemon bool
	// DryRun logs deliveries instead of sending them; no token needed.
	DryRun bool
}

// App owns every long-lived component. Construct with New, run with RunOnce
// or RunDaemon, release with Close.
type App struct {
	opts   Options
	cfgm   *config.Manager // nil when running without a config file
	static *config.Config

	logs *logx.Service
	log  logx.Logger
	bus  eventbus.Bus

	adapter    *telegram.Adapter // nil in dry-run mode
	notif      *notify.Service
	fetcher    *fetch.Client
	extractors *extract.Registry
	store      state.Store
	engine     *watch.Engine

	runner   *schedule.Runner
	profiler *pprof.Service

	sup *supervisor.Supervisor
}

func New(opts Options) (*App, error) {
	bootLog := logx.NewConsole("info")

	var (
		cfgm *config.Manager
		cfg  *config.Config
	)
	if path := strings.TrimSpace(opts.ConfigPath); path != "" {
		cfgm = config.NewManager(path, bootLog)
		cfgm.SetValidator(makeValidator(opts, bootLog))
		loaded, err := cfgm.Load(context.Background())
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
		if err := makeValidator(opts, bootLog)(context.Background(), cfg); err != nil {
			return nil, err
		}
	}

	// Dry runs never talk to the Bot API, so the token may stay unset there.
	var adapter *telegram.Adapter
	if !cfg.Watch.DryRun {
		var err error
		adapter, err = telegram.New(mapTelegramConfig(cfg), bootLog)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
	}

	// The adapter doubles as the warn/error mirror sink for logging.
	var mirror logx.Sender
	if adapter != nil {
		mirror = logSender{adapter: adapter}
	}
	logs, log := logx.New(mapLoggingConfig(cfg), mirror)
	if cfgm != nil {
		cfgm.SetLogger(logs.Logger())
		cfgm.SetValidator(makeValidator(opts, logs.Logger()))
	}

	store, err := state.Open(mapStateConfig(cfg), logs.Logger())
	if err != nil {
		_ = logs.Close()
		return nil, err
	}

	fetcher := fetch.New(mapFetchConfig(cfg), logs.Logger())
	extractors := extract.NewRegistry()
	var sender transport.Sender
	if adapter != nil {
		sender = adapter
	}
	notif := notify.New(mapNotifyConfig(cfg), sender, logs.Logger())
	engine := watch.New(mapWatchConfig(cfg), fetcher, extractors, notif, store, logs.Logger())

	a := &App{
		opts:       opts,
		cfgm:       cfgm,
		static:     cfg,
		logs:       logs,
		log:        log.With(logx.String("comp", "app")),
		bus:        eventbus.New(),
		adapter:    adapter,
		notif:      notif,
		fetcher:    fetcher,
		extractors: extractors,
		store:      store,
		engine:     engine,
	}
	a.runner = schedule.New(mapScheduleConfig(cfg), a.scanJob, logs.Logger())
	a.profiler = pprof.New(mapPprofConfig(cfg), logs.Logger())
	return a, nil
}

// config returns the live snapshot: the manager's current config when a file
// is watched, otherwise the one built at startup.
func (a *App) config() *config.Config {
	if a.cfgm != nil {
		if cfg := a.cfgm.Get(); cfg != nil {
			return cfg
		}
	}
	return a.static
}

// DaemonEnabled reports whether the config asks for daemon mode on its own,
// without the -daemon flag.
func (a *App) DaemonEnabled() bool { return a.config().Daemon.Enabled }

// RunOnce performs a single scan and returns the process exit code: 0 only
// when every fetch, every delivery, and the state save succeeded.
func (a *App) RunOnce(ctx context.Context) int {
	report := a.runScan(ctx, "once")
	if report == nil || !report.OK() {
		return 1
	}
	return 0
}

// scanJob is the schedule trigger target; overlap is already prevented by
// the runner.
func (a *App) scanJob(ctx context.Context, trigger string) {
	a.runScan(ctx, trigger)
}

func (a *App) runScan(ctx context.Context, trigger string) *watch.Report {
	cfg := a.config()
	sources, err := selectSources(cfg)
	if err != nil {
		a.log.Error("source selection failed", logx.Err(err))
		return nil
	}

	a.bus.Publish(eventbus.Event{Type: eventbus.TypeRunStarted, Data: eventbus.RunStartedData{
		Trigger: trigger,
		Sources: len(sources),
	}})

	report := a.engine.Run(ctx, sources)

	var found, sent int
	for _, sr := range report.Sources {
		found += sr.Found
		sent += sr.Sent
	}
	a.bus.Publish(eventbus.Event{Type: eventbus.TypeRunFinished, Data: eventbus.RunFinishedData{
		Trigger:    trigger,
		OK:         report.OK(),
		Sources:    len(report.Sources),
		Found:      found,
		Sent:       sent,
		Failures:   len(report.Failures),
		StateSaved: report.StateSaved,
		ElapsedSec: report.Elapsed.Seconds(),
	}})
	a.log.Info("scan finished",
		logx.String("trigger", trigger),
		logx.Int("sources", len(report.Sources)),
		logx.Int("found", found),
		logx.Int("sent", sent),
		logx.Int("failures", len(report.Failures)),
		logx.Duration("elapsed", report.Elapsed))
	if !report.OK() {
		a.log.Error("failures:\n" + report.FailureSummary())
	}
	sdnotify.Ping()
	return report
}

// Close releases the state store and flushes log sinks. Call after RunOnce
// or RunDaemon returns.
func (a *App) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}
