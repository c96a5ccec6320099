package config

import "strings"

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	State    StateConfig    `json:"state"`
	Watch    WatchConfig    `json:"watch"`
	Sources  []SourceConfig `json:"sources,omitempty"`
	Daemon   DaemonConfig   `json:"daemon"`
	Logging  LoggingConfig  `json:"logging"`
	Pprof    PprofConfig    `json:"pprof,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// ChatID is the notification destination: a numeric chat id or "@channelusername".
	ChatID string `json:"chat_id"`
	// RatePerSec paces outgoing messages (Telegram flood control).
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
	RateBurst  int     `json:"rate_burst,omitempty"`
	// RetryMax retries a failed delivery before it counts as failed (0 = no retry,
	// matching the original deployment).
	RetryMax int `json:"retry_max,omitempty"`
	// RetryBase is a Go duration string; first retry delay (default "1s").
	RetryBase string `json:"retry_base,omitempty"`
}

// StateConfig controls where the per-source seen-URL lists persist.
//
// Example:
//
//	"state": { "driver": "file", "path": "state/seen_news.json" }
type StateConfig struct {
	Driver string `json:"driver,omitempty"` // "file" (default) or "sqlite" (build tag)
	Path   string `json:"path,omitempty"`
	// BusyTimeout is a Go duration string (sqlite driver only).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type WatchConfig struct {
	// InitialSendCount caps deliveries on a source's first scan.
	InitialSendCount int `json:"initial_send_count,omitempty"`
	MaxSeenURLs      int `json:"max_seen_urls,omitempty"`
	// RequestTimeout is a Go duration string bounding each page fetch and
	// each Bot API call.
	RequestTimeout string `json:"request_timeout,omitempty"`
	// Concurrency bounds how many sources are processed at once (1 = sequential).
	Concurrency    int      `json:"concurrency,omitempty"`
	EnabledSources []string `json:"enabled_sources,omitempty"`
	DryRun         bool     `json:"dry_run,omitempty"`
}

// SourceConfig declares an extra watched source joining the built-in catalog.
// An entry with a built-in key overrides that built-in.
type SourceConfig struct {
	Key    string `json:"key"`
	Name   string `json:"name,omitempty"`
	URL    string `json:"url"`
	Family string `json:"family"`
}

type DaemonConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule accepts a cron expression ("*/30 * * * *", "@hourly"),
	// a Go duration ("30m"), or HH:MM ("02:30" = every 2h30m).
	Schedule string `json:"schedule,omitempty"`
	Timezone string `json:"timezone,omitempty"` // IANA TZ for cron schedules
	// Jitter delays the first scheduled run by a random amount up to this
	// duration (startup spread across deployments).
	Jitter string `json:"jitter,omitempty"`
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

// LoggingTelegram mirrors warn/error log lines into an ops chat,
// separate from the notification destination.
type LoggingTelegram struct {
	Enabled    bool    `json:"enabled"`
	ChatID     string  `json:"chat_id"`
	MinLevel   string  `json:"min_level"`
	RatePerSec float64 `json:"rate_per_sec"`
}

// PprofConfig controls the optional pprof HTTP server (daemon mode only).
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:6060").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type PprofConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default: "127.0.0.1:6060"
	Token         string `json:"token,omitempty"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	// Server timeouts (Go duration strings). WriteTimeout defaults to 0
	// (disabled) so /profile, which can take 30s+, works reliably.
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

const (
	DefaultStatePath        = "state/seen_news.json"
	DefaultInitialSendCount = 5
	DefaultMaxSeenURLs      = 1000
	DefaultRequestTimeout   = "30s"
	DefaultSchedule         = "30m"
)

// Default returns a config with every field at its documented default.
// Running with no config file starts from this plus the environment overlay.
func Default() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills zero fields with defaults. Safe to call repeatedly.
func (c *Config) Normalize() {
	if c.State.Driver == "" {
		c.State.Driver = "file"
	}
	if strings.TrimSpace(c.State.Path) == "" {
		c.State.Path = DefaultStatePath
	}
	if c.Watch.InitialSendCount <= 0 {
		c.Watch.InitialSendCount = DefaultInitialSendCount
	}
	if c.Watch.MaxSeenURLs <= 0 {
		c.Watch.MaxSeenURLs = DefaultMaxSeenURLs
	}
	if strings.TrimSpace(c.Watch.RequestTimeout) == "" {
		c.Watch.RequestTimeout = DefaultRequestTimeout
	}
	if c.Watch.Concurrency <= 0 {
		c.Watch.Concurrency = 1
	}
	if c.Telegram.RatePerSec <= 0 {
		c.Telegram.RatePerSec = 0.4
	}
	if c.Telegram.RateBurst <= 0 {
		c.Telegram.RateBurst = 1
	}
	if strings.TrimSpace(c.Telegram.RetryBase) == "" {
		c.Telegram.RetryBase = "1s"
	}
	if strings.TrimSpace(c.Daemon.Schedule) == "" {
		c.Daemon.Schedule = DefaultSchedule
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
		c.Logging.Console = true
	}
	if strings.TrimSpace(c.Logging.Telegram.MinLevel) == "" {
		c.Logging.Telegram.MinLevel = "error"
	}
	if strings.TrimSpace(c.Pprof.Addr) == "" {
		c.Pprof.Addr = "127.0.0.1:6060"
	}
}
