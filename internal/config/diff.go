package config

import (
	"sort"
	"strings"

	"prensabot/pkg/logx"
)

// SummarizeConfigChange reports which sections differ between two accepted
// snapshots, plus log attributes that are safe to emit. Secrets never appear
// in the attributes, only whether they are set.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 7)
	attrs := make([]logx.Field, 0, 12)

	if canonicalHashJSON(oldCfg.Telegram) != canonicalHashJSON(newCfg.Telegram) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram_token_set", strings.TrimSpace(newCfg.Telegram.Token) != ""),
			logx.String("telegram_chat", newCfg.Telegram.ChatID),
		)
	}
	if canonicalHashJSON(oldCfg.State) != canonicalHashJSON(newCfg.State) {
		changed = append(changed, "state")
		attrs = append(attrs,
			logx.String("state_driver", newCfg.State.Driver),
			logx.String("state_path", newCfg.State.Path),
		)
	}
	if canonicalHashJSON(oldCfg.Watch) != canonicalHashJSON(newCfg.Watch) {
		changed = append(changed, "watch")
		attrs = append(attrs,
			logx.Int("initial_send_count", newCfg.Watch.InitialSendCount),
			logx.Int("max_seen_urls", newCfg.Watch.MaxSeenURLs),
			logx.Bool("dry_run", newCfg.Watch.DryRun),
		)
	}
	if canonicalHashJSON(oldCfg.Sources) != canonicalHashJSON(newCfg.Sources) {
		changed = append(changed, "sources")
		attrs = append(attrs, logx.Int("sources_declared", len(newCfg.Sources)))
	}
	if canonicalHashJSON(oldCfg.Daemon) != canonicalHashJSON(newCfg.Daemon) {
		changed = append(changed, "daemon")
		attrs = append(attrs,
			logx.Bool("daemon_enabled", newCfg.Daemon.Enabled),
			logx.String("schedule", newCfg.Daemon.Schedule),
		)
	}
	if canonicalHashJSON(oldCfg.Logging) != canonicalHashJSON(newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs, logx.String("log_level", newCfg.Logging.Level))
	}
	if canonicalHashJSON(oldCfg.Pprof) != canonicalHashJSON(newCfg.Pprof) {
		changed = append(changed, "pprof")
		attrs = append(attrs,
			logx.Bool("pprof_enabled", newCfg.Pprof.Enabled),
			logx.String("pprof_addr", newCfg.Pprof.Addr),
		)
	}

	sort.Strings(changed)
	if len(changed) > 0 {
		attrs = append(attrs, logx.String("sections", strings.Join(changed, ",")))
	}
	return changed, attrs
}
