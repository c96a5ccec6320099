package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	logx "prensabot/pkg/logx"
)

func TestRunnerStartupRunFires(t *testing.T) {
	t.Parallel()

	ran := make(chan string, 1)
	r := New(Config{Schedule: "1h"}, func(_ context.Context, trigger string) {
		select {
		case ran <- trigger:
		default:
		}
	}, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer r.Stop(context.Background())

	select {
	case trigger := <-ran:
		if trigger != "startup" {
			t.Fatalf("expected startup trigger, got %q", trigger)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("startup run never fired")
	}
}

func TestRunnerSkipsOverlappingTrigger(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	r := New(Config{Schedule: "1h"}, func(context.Context, string) {
		calls.Add(1)
		close(started)
		<-release
	}, logx.Nop())
	r.ctx = context.Background()

	go r.trigger("first")
	<-started
	r.trigger("second")
	close(release)

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 run, got %d", got)
	}
}

func TestRunnerTriggerBeforeStartIsNoop(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	r := New(Config{Schedule: "1h"}, func(context.Context, string) { calls.Add(1) }, logx.Nop())
	r.trigger("early")

	if calls.Load() != 0 {
		t.Fatal("job must not run before Start")
	}
}

func TestRunnerStartRejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	r := New(Config{Schedule: "garbage"}, func(context.Context, string) {}, logx.Nop())
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if !r.Next().IsZero() {
		t.Fatal("a failed start must not leave a schedule behind")
	}
}

func TestRunnerApplyInvalidScheduleKeepsRunning(t *testing.T) {
	t.Parallel()

	r := New(Config{Schedule: "1h"}, func(context.Context, string) {}, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer r.Stop(context.Background())

	if err := r.Apply(Config{Schedule: "definitely not a schedule"}); err == nil {
		t.Fatal("expected error from invalid schedule")
	}
	if r.Next().IsZero() {
		t.Fatal("old schedule must survive a rejected Apply")
	}
}

func TestRunnerNextWithinInterval(t *testing.T) {
	t.Parallel()

	r := New(Config{Schedule: "1h"}, func(context.Context, string) {}, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer r.Stop(context.Background())

	next := r.Next()
	if next.IsZero() {
		t.Fatal("expected a scheduled next run")
	}
	if until := time.Until(next); until <= 0 || until > time.Hour+time.Minute {
		t.Fatalf("next run out of range: %v", until)
	}
}
