package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"prensabot/pkg/logx"
)

// Environment variables recognized by ApplyEnv. Names match the original
// deployment of this watcher, so existing systemd units and cron entries
// keep working without a config file.
const (
	EnvBotToken         = "TELEGRAM_BOT_TOKEN"
	EnvChatID           = "TELEGRAM_CHAT_ID"
	EnvStateFile        = "STATE_FILE"
	EnvInitialSendCount = "INITIAL_SEND_COUNT"
	EnvMaxSeenURLs      = "MAX_SEEN_URLS"
	EnvRequestTimeout   = "REQUEST_TIMEOUT"
	EnvDryRun           = "DRY_RUN"
	EnvEnabledSources   = "ENABLED_SOURCES"
)

// ApplyEnv overlays process environment variables onto cfg; the environment
// wins over file values. Numeric variables that do not parse, or parse below
// 1, log a warning and leave the existing value in place.
func ApplyEnv(cfg *Config, log logx.Logger) {
	if v, ok := lookupEnv(EnvBotToken); ok {
		cfg.Telegram.Token = v
	}
	if v, ok := lookupEnv(EnvChatID); ok {
		cfg.Telegram.ChatID = v
	}
	if v, ok := lookupEnv(EnvStateFile); ok {
		cfg.State.Path = v
	}
	if n, ok := lookupEnvInt(EnvInitialSendCount, log); ok {
		cfg.Watch.InitialSendCount = n
	}
	if n, ok := lookupEnvInt(EnvMaxSeenURLs, log); ok {
		cfg.Watch.MaxSeenURLs = n
	}
	if n, ok := lookupEnvInt(EnvRequestTimeout, log); ok {
		// REQUEST_TIMEOUT is whole seconds in the original deployment.
		cfg.Watch.RequestTimeout = (time.Duration(n) * time.Second).String()
	}
	if v, ok := lookupEnv(EnvDryRun); ok {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			cfg.Watch.DryRun = true
		default:
			cfg.Watch.DryRun = false
		}
	}
	if v, ok := lookupEnv(EnvEnabledSources); ok {
		cfg.Watch.EnabledSources = SplitSourceList(v)
	}
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func lookupEnvInt(name string, log logx.Logger) (int, bool) {
	v, ok := lookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		log.Warn("invalid environment value, keeping previous",
			logx.String("var", name),
			logx.String("value", v))
		return 0, false
	}
	return n, true
}

// SplitSourceList parses a comma separated source key list: entries are
// trimmed, lowercased, and deduplicated preserving first occurrence.
// A nil result means "all sources".
func SplitSourceList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		key := strings.ToLower(strings.TrimSpace(p))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
