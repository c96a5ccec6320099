package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"prensabot/internal/config"
	"prensabot/internal/source"
	"prensabot/pkg/logx"
)

func validTestConfig() *config.Config {
	cfg := config.Default()
	cfg.Telegram.Token = "123456:test-token"
	cfg.Telegram.ChatID = "-100200300"
	return cfg
}

// clearWatcherEnv pins every recognized variable to unset so tests do not
// inherit credentials from the host environment.
func clearWatcherEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		config.EnvBotToken, config.EnvChatID, config.EnvStateFile,
		config.EnvInitialSendCount, config.EnvMaxSeenURLs,
		config.EnvRequestTimeout, config.EnvDryRun, config.EnvEnabledSources,
	} {
		t.Setenv(name, "")
	}
}

func TestValidateConfigAcceptsCredentialedDefaults(t *testing.T) {
	t.Parallel()

	if err := validateConfig(validTestConfig()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateConfigDryRunNeedsNoCredentials(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Watch.DryRun = true
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("dry run must not require credentials: %v", err)
	}
}

func TestValidateConfigRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr string
	}{
		{
			name:    "missing token",
			mutate:  func(cfg *config.Config) { cfg.Telegram.Token = "" },
			wantErr: "telegram.token",
		},
		{
			name:    "missing chat id",
			mutate:  func(cfg *config.Config) { cfg.Telegram.ChatID = "" },
			wantErr: "telegram.chat_id",
		},
		{
			name:    "malformed chat id",
			mutate:  func(cfg *config.Config) { cfg.Telegram.ChatID = "canal sin arroba" },
			wantErr: "invalid chat id",
		},
		{
			name:    "bad retry base",
			mutate:  func(cfg *config.Config) { cfg.Telegram.RetryBase = "pronto" },
			wantErr: "telegram.retry_base",
		},
		{
			name:    "bad request timeout",
			mutate:  func(cfg *config.Config) { cfg.Watch.RequestTimeout = "30x" },
			wantErr: "watch.request_timeout",
		},
		{
			name:    "unknown state driver",
			mutate:  func(cfg *config.Config) { cfg.State.Driver = "redis" },
			wantErr: "state.driver",
		},
		{
			name: "unknown source family",
			mutate: func(cfg *config.Config) {
				cfg.Sources = []config.SourceConfig{{Key: "tv", URL: "https://example.com/tv", Family: "video"}}
			},
			wantErr: "sources[0]",
		},
		{
			name:    "unknown enabled source",
			mutate:  func(cfg *config.Config) { cfg.Watch.EnabledSources = []string{"bogota"} },
			wantErr: "unknown sources: bogota",
		},
		{
			name:    "bad schedule",
			mutate:  func(cfg *config.Config) { cfg.Daemon.Schedule = "whenever" },
			wantErr: "daemon.schedule",
		},
		{
			name:    "bad timezone",
			mutate:  func(cfg *config.Config) { cfg.Daemon.Timezone = "Marte/Olimpo" },
			wantErr: "daemon.timezone",
		},
		{
			name:    "negative jitter",
			mutate:  func(cfg *config.Config) { cfg.Daemon.Jitter = "-3m" },
			wantErr: "daemon.jitter",
		},
		{
			name:    "ops mirror without chat",
			mutate:  func(cfg *config.Config) { cfg.Logging.Telegram.Enabled = true },
			wantErr: "logging.telegram.chat_id",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validTestConfig()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMakeValidatorDryRunFlagWins(t *testing.T) {
	clearWatcherEnv(t)

	cfg := config.Default()
	fn := makeValidator(Options{DryRun: true}, logx.Nop())
	if err := fn(context.Background(), cfg); err != nil {
		t.Fatalf("dry run validation failed: %v", err)
	}
	if !cfg.Watch.DryRun {
		t.Fatal("expected the dry-run flag to force watch.dry_run")
	}
}

func TestMakeValidatorAppliesEnvOverlay(t *testing.T) {
	clearWatcherEnv(t)
	t.Setenv(config.EnvBotToken, "999:env-token")
	t.Setenv(config.EnvChatID, "@canalnoticias")
	t.Setenv(config.EnvEnabledSources, "cucuta")

	cfg := config.Default()
	fn := makeValidator(Options{}, logx.Nop())
	if err := fn(context.Background(), cfg); err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if cfg.Telegram.Token != "999:env-token" {
		t.Fatalf("token not overlaid: %q", cfg.Telegram.Token)
	}
	if len(cfg.Watch.EnabledSources) != 1 || cfg.Watch.EnabledSources[0] != "cucuta" {
		t.Fatalf("enabled sources not overlaid: %v", cfg.Watch.EnabledSources)
	}
}

func TestBuildRegistryOverridesBuiltin(t *testing.T) {
	t.Parallel()

	cfg := validTestConfig()
	cfg.Sources = []config.SourceConfig{
		{Key: "CUCUTA", Name: "Cucuta espejo", URL: "https://mirror.example.com/noticias/", Family: "listing"},
		{Key: "boletin", Name: "Boletin oficial", URL: "https://example.com/boletin.xml", Family: "feed"},
	}

	cfg.Watch.EnabledSources = []string{"cucuta"}
	selected, err := selectSources(cfg)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if len(selected) != 1 || selected[0].URL != "https://mirror.example.com/noticias/" {
		t.Fatalf("override not applied: %+v", selected)
	}

	cfg.Watch.EnabledSources = nil
	all, err := selectSources(cfg)
	if err != nil {
		t.Fatalf("select all failed: %v", err)
	}
	if want := len(source.Catalog()) + 1; len(all) != want {
		t.Fatalf("expected %d sources, got %d", want, len(all))
	}
	if last := all[len(all)-1]; last.Key != "boletin" || last.Family != source.FamilyFeed {
		t.Fatalf("declared source not appended: %+v", last)
	}
}

func TestMapNotifyConfigValues(t *testing.T) {
	t.Parallel()

	cfg := validTestConfig()
	cfg.Telegram.RatePerSec = 2.5
	cfg.Telegram.RetryMax = 3
	cfg.Telegram.RetryBase = "2s"
	cfg.Watch.RequestTimeout = "45s"
	cfg.Watch.DryRun = true

	got := mapNotifyConfig(cfg)
	if got.RatePerSec != 2.5 || got.RetryMax != 3 {
		t.Fatalf("rate settings not carried: %+v", got)
	}
	if got.RetryBase != 2*time.Second {
		t.Fatalf("expected retry base 2s, got %v", got.RetryBase)
	}
	if got.Timeout != 45*time.Second {
		t.Fatalf("expected timeout 45s, got %v", got.Timeout)
	}
	if !got.DryRun {
		t.Fatal("dry run not carried")
	}
}

func TestMapWatchConfigDestination(t *testing.T) {
	t.Parallel()

	cfg := validTestConfig()
	cfg.Telegram.ChatID = "@canalnoticias"
	if got := mapWatchConfig(cfg); got.Destination.Username != "canalnoticias" {
		t.Fatalf("expected username destination, got %+v", got.Destination)
	}

	cfg.Telegram.ChatID = "-100200300"
	if got := mapWatchConfig(cfg); got.Destination.ID != -100200300 {
		t.Fatalf("expected numeric destination, got %+v", got.Destination)
	}

	cfg.Telegram.ChatID = ""
	if got := mapWatchConfig(cfg); !got.Destination.IsZero() {
		t.Fatalf("expected zero destination, got %+v", got.Destination)
	}
}

func TestMapDurationsUseDefaults(t *testing.T) {
	t.Parallel()

	cfg := validTestConfig()
	cfg.Daemon.Jitter = "90s"
	cfg.Pprof.IdleTimeout = "2m"

	if got := mapScheduleConfig(cfg); got.Jitter != 90*time.Second {
		t.Fatalf("expected jitter 90s, got %v", got.Jitter)
	}
	p := mapPprofConfig(cfg)
	if p.ReadTimeout != 5*time.Second {
		t.Fatalf("expected default read timeout, got %v", p.ReadTimeout)
	}
	if p.WriteTimeout != 0 {
		t.Fatalf("expected write timeout disabled, got %v", p.WriteTimeout)
	}
	if p.IdleTimeout != 2*time.Minute {
		t.Fatalf("expected idle timeout 2m, got %v", p.IdleTimeout)
	}
}
