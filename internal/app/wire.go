package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"prensabot/internal/config"
	"prensabot/internal/fetch"
	"prensabot/internal/notify"
	"prensabot/internal/observability/pprof"
	"prensabot/internal/schedule"
	"prensabot/internal/source"
	"prensabot/internal/state"
	"prensabot/internal/transport"
	"prensabot/internal/transport/telegram"
	"prensabot/internal/watch"
	"prensabot/pkg/logx"
)

// makeValidator builds the hook the config manager runs on every load and
// reload: environment overlay, option overrides, defaults, then structural
// checks. The hook mutates the config, so reloads get the same overlay as
// startup.
func makeValidator(opts Options, log logx.Logger) func(context.Context, *config.Config) error {
	return func(_ context.Context, cfg *config.Config) error {
		config.ApplyEnv(cfg, log)
		if opts.DryRun {
			cfg.Watch.DryRun = true
		}
		cfg.Normalize()
		return validateConfig(cfg)
	}
}

// validateConfig rejects configs the downstream services could not start
// with. Everything here is structural; whether URLs and chats are reachable
// is decided by running.
func validateConfig(cfg *config.Config) error {
	if !cfg.Watch.DryRun {
		if strings.TrimSpace(cfg.Telegram.Token) == "" {
			return fmt.Errorf("telegram.token is required (set %s or use dry run)", config.EnvBotToken)
		}
		if strings.TrimSpace(cfg.Telegram.ChatID) == "" {
			return fmt.Errorf("telegram.chat_id is required (set %s or use dry run)", config.EnvChatID)
		}
	}
	if chat := strings.TrimSpace(cfg.Telegram.ChatID); chat != "" {
		if _, err := transport.ParseChatTarget(chat); err != nil {
			return fmt.Errorf("telegram.chat_id: %w", err)
		}
	}
	for _, f := range []struct{ value, name string }{
		{cfg.Telegram.RetryBase, "telegram.retry_base"},
		{cfg.Watch.RequestTimeout, "watch.request_timeout"},
		{cfg.State.BusyTimeout, "state.busy_timeout"},
		{cfg.Daemon.Jitter, "daemon.jitter"},
		{cfg.Pprof.ReadTimeout, "pprof.read_timeout"},
		{cfg.Pprof.WriteTimeout, "pprof.write_timeout"},
		{cfg.Pprof.IdleTimeout, "pprof.idle_timeout"},
	} {
		if _, _, err := config.ParseDurationField(f.value, f.name); err != nil {
			return err
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.State.Driver)) {
	case "", "file", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("state.driver: unknown driver %q", cfg.State.Driver)
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	if _, err := reg.Select(cfg.Watch.EnabledSources); err != nil {
		return err
	}

	if _, err := schedule.ParseSchedule(cfg.Daemon.Schedule); err != nil {
		return fmt.Errorf("daemon.schedule: %w", err)
	}
	if tz := strings.TrimSpace(cfg.Daemon.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("daemon.timezone: %w", err)
		}
	}

	if cfg.Logging.Telegram.Enabled && strings.TrimSpace(cfg.Logging.Telegram.ChatID) == "" {
		return fmt.Errorf("logging.telegram.chat_id is required when logging.telegram.enabled")
	}
	return nil
}

// buildRegistry merges configured sources over the built-in catalog.
func buildRegistry(cfg *config.Config) (*source.Registry, error) {
	reg := source.NewRegistry()
	for i, sc := range cfg.Sources {
		fam, err := source.ParseFamily(sc.Family)
		if err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if err := reg.Add(source.Source{Key: sc.Key, Name: sc.Name, URL: sc.URL, Family: fam}); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
	}
	return reg, nil
}

// selectSources resolves the enabled source keys against the registry.
func selectSources(cfg *config.Config) ([]source.Source, error) {
	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	return reg.Select(cfg.Watch.EnabledSources)
}

// The map helpers below assume cfg passed validateConfig; unparseable
// durations and chat ids were rejected there.

func duration(value, field string, def time.Duration) time.Duration {
	d, err := config.ParseDurationOrDefault(value, field, def)
	if err != nil {
		return def
	}
	return d
}

func requestTimeout(cfg *config.Config) time.Duration {
	return duration(cfg.Watch.RequestTimeout, "watch.request_timeout", 30*time.Second)
}

func mapTelegramConfig(cfg *config.Config) telegram.Config {
	return telegram.Config{Token: cfg.Telegram.Token, APITimeout: requestTimeout(cfg)}
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ChatID:     cfg.Logging.Telegram.ChatID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapStateConfig(cfg *config.Config) state.Config {
	return state.Config{
		Driver:      cfg.State.Driver,
		Path:        cfg.State.Path,
		BusyTimeout: duration(cfg.State.BusyTimeout, "state.busy_timeout", 0),
	}
}

func mapFetchConfig(cfg *config.Config) fetch.Config {
	return fetch.Config{Timeout: requestTimeout(cfg)}
}

func mapNotifyConfig(cfg *config.Config) notify.Config {
	return notify.Config{
		RatePerSec: cfg.Telegram.RatePerSec,
		RateBurst:  cfg.Telegram.RateBurst,
		RetryMax:   cfg.Telegram.RetryMax,
		RetryBase:  duration(cfg.Telegram.RetryBase, "telegram.retry_base", time.Second),
		Timeout:    requestTimeout(cfg),
		DryRun:     cfg.Watch.DryRun,
	}
}

func mapWatchConfig(cfg *config.Config) watch.Config {
	var dest transport.ChatTarget
	if chat := strings.TrimSpace(cfg.Telegram.ChatID); chat != "" {
		if t, err := transport.ParseChatTarget(chat); err == nil {
			dest = t
		}
	}
	return watch.Config{
		InitialSendCount: cfg.Watch.InitialSendCount,
		MaxSeenURLs:      cfg.Watch.MaxSeenURLs,
		Concurrency:      cfg.Watch.Concurrency,
		Destination:      dest,
	}
}

func mapScheduleConfig(cfg *config.Config) schedule.Config {
	return schedule.Config{
		Schedule: cfg.Daemon.Schedule,
		Timezone: cfg.Daemon.Timezone,
		Jitter:   duration(cfg.Daemon.Jitter, "daemon.jitter", 0),
	}
}

func mapPprofConfig(cfg *config.Config) pprof.Config {
	return pprof.Config{
		Enabled:       cfg.Pprof.Enabled,
		Addr:          cfg.Pprof.Addr,
		Token:         cfg.Pprof.Token,
		AllowInsecure: cfg.Pprof.AllowInsecure,
		ReadTimeout:   duration(cfg.Pprof.ReadTimeout, "pprof.read_timeout", 5*time.Second),
		WriteTimeout:  duration(cfg.Pprof.WriteTimeout, "pprof.write_timeout", 0),
		IdleTimeout:   duration(cfg.Pprof.IdleTimeout, "pprof.idle_timeout", time.Minute),
	}
}

// logSender feeds mirrored log lines through the Telegram adapter as plain
// text; log lines carry arbitrary error strings, so no HTML parse mode.
type logSender struct {
	adapter *telegram.Adapter
}

func (s logSender) SendLog(ctx context.Context, chat string, text string) error {
	to, err := transport.ParseChatTarget(chat)
	if err != nil {
		return err
	}
	_, err = s.adapter.SendText(ctx, to, text, nil)
	return err
}
