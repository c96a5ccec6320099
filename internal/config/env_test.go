package config

import (
	"reflect"
	"testing"

	"prensabot/pkg/logx"
)

func TestApplyEnvOverridesFileValues(t *testing.T) {
	t.Setenv(EnvBotToken, "abc:def")
	t.Setenv(EnvChatID, "-100123")
	t.Setenv(EnvStateFile, "/var/lib/prensabot/seen.json")
	t.Setenv(EnvInitialSendCount, "9")
	t.Setenv(EnvMaxSeenURLs, "50")
	t.Setenv(EnvRequestTimeout, "45")
	t.Setenv(EnvDryRun, "yes")
	t.Setenv(EnvEnabledSources, " Cucuta , mintic_noticias ,cucuta,")

	cfg := Default()
	cfg.Telegram.Token = "from-file"
	ApplyEnv(cfg, logx.Nop())

	if cfg.Telegram.Token != "abc:def" {
		t.Fatalf("token not overridden: %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.ChatID != "-100123" {
		t.Fatalf("chat not overridden: %q", cfg.Telegram.ChatID)
	}
	if cfg.State.Path != "/var/lib/prensabot/seen.json" {
		t.Fatalf("state path not overridden: %q", cfg.State.Path)
	}
	if cfg.Watch.InitialSendCount != 9 || cfg.Watch.MaxSeenURLs != 50 {
		t.Fatalf("counters not overridden: %d %d", cfg.Watch.InitialSendCount, cfg.Watch.MaxSeenURLs)
	}
	if cfg.Watch.RequestTimeout != "45s" {
		t.Fatalf("expected request timeout 45s, got %q", cfg.Watch.RequestTimeout)
	}
	if !cfg.Watch.DryRun {
		t.Fatal("dry run not enabled")
	}
	want := []string{"cucuta", "mintic_noticias"}
	if !reflect.DeepEqual(cfg.Watch.EnabledSources, want) {
		t.Fatalf("expected sources %v, got %v", want, cfg.Watch.EnabledSources)
	}
}

func TestApplyEnvInvalidIntKeepsPrevious(t *testing.T) {
	t.Setenv(EnvInitialSendCount, "many")
	t.Setenv(EnvMaxSeenURLs, "0")
	t.Setenv(EnvRequestTimeout, "-5")

	cfg := Default()
	ApplyEnv(cfg, logx.Nop())

	if cfg.Watch.InitialSendCount != DefaultInitialSendCount {
		t.Fatalf("initial_send_count changed on invalid input: %d", cfg.Watch.InitialSendCount)
	}
	if cfg.Watch.MaxSeenURLs != DefaultMaxSeenURLs {
		t.Fatalf("max_seen_urls changed on invalid input: %d", cfg.Watch.MaxSeenURLs)
	}
	if cfg.Watch.RequestTimeout != DefaultRequestTimeout {
		t.Fatalf("request_timeout changed on invalid input: %q", cfg.Watch.RequestTimeout)
	}
}

func TestApplyEnvDryRunFalseValues(t *testing.T) {
	t.Setenv(EnvDryRun, "0")

	cfg := Default()
	cfg.Watch.DryRun = true
	ApplyEnv(cfg, logx.Nop())

	if cfg.Watch.DryRun {
		t.Fatal("DRY_RUN=0 should disable dry run")
	}
}

func TestSplitSourceList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "plain", raw: "cucuta,mintic_noticias", want: []string{"cucuta", "mintic_noticias"}},
		{name: "spaces and case", raw: " CUCUTA , Mintic_Convocatorias ", want: []string{"cucuta", "mintic_convocatorias"}},
		{name: "dedup keeps first", raw: "a,b,a,c,b", want: []string{"a", "b", "c"}},
		{name: "only separators", raw: " , ,", want: nil},
		{name: "empty", raw: "", want: nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SplitSourceList(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.Normalize()

	if cfg.State.Driver != "file" || cfg.State.Path != DefaultStatePath {
		t.Fatalf("unexpected state defaults: %+v", cfg.State)
	}
	if cfg.Watch.InitialSendCount != DefaultInitialSendCount {
		t.Fatalf("expected initial_send_count %d, got %d", DefaultInitialSendCount, cfg.Watch.InitialSendCount)
	}
	if cfg.Watch.MaxSeenURLs != DefaultMaxSeenURLs {
		t.Fatalf("expected max_seen_urls %d, got %d", DefaultMaxSeenURLs, cfg.Watch.MaxSeenURLs)
	}
	if cfg.Watch.RequestTimeout != DefaultRequestTimeout || cfg.Watch.Concurrency != 1 {
		t.Fatalf("unexpected watch defaults: %+v", cfg.Watch)
	}
	if cfg.Daemon.Schedule != DefaultSchedule {
		t.Fatalf("expected schedule %q, got %q", DefaultSchedule, cfg.Daemon.Schedule)
	}
	if cfg.Logging.Level != "info" || !cfg.Logging.Console {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.Watch.InitialSendCount = 2
	cfg.Watch.RequestTimeout = "10s"
	cfg.Logging.Level = "debug"
	cfg.Normalize()

	if cfg.Watch.InitialSendCount != 2 || cfg.Watch.RequestTimeout != "10s" {
		t.Fatalf("explicit values clobbered: %+v", cfg.Watch)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("explicit level clobbered: %q", cfg.Logging.Level)
	}
	if cfg.Logging.Console {
		t.Fatal("console should stay false when the logging section is explicit")
	}
}
