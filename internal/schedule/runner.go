package schedule

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "prensabot/pkg/logx"
)

// Config controls the daemon trigger loop.
type Config struct {
	Schedule string
	Timezone string // IANA TZ, e.g. "America/Bogota"; empty = local
	Jitter   time.Duration
}

// Runner fires one job on a schedule. Overlapping triggers are skipped, so a
// slow scan can never pile up behind itself. The job runs under the context
// passed to Start and receives the trigger reason ("startup" or "schedule").
type Runner struct {
	mu  sync.Mutex
	cfg Config
	job func(ctx context.Context, trigger string)
	log logx.Logger

	ctx context.Context
	c   *cron.Cron

	startupWG sync.WaitGroup
	running   atomic.Bool
}

func New(cfg Config, job func(ctx context.Context, trigger string), log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{cfg: cfg, job: job, log: log.With(logx.String("comp", "schedule"))}
}

// Apply updates the config. A schedule or timezone change while running
// rebuilds the cron instance; an invalid new schedule keeps both the old
// schedule and the old config.
func (r *Runner) Apply(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := strings.TrimSpace(r.cfg.Schedule) != strings.TrimSpace(cfg.Schedule) ||
		strings.TrimSpace(r.cfg.Timezone) != strings.TrimSpace(cfg.Timezone)
	if r.c == nil || !changed {
		r.cfg = cfg
		return nil
	}

	prev := r.cfg
	r.cfg = cfg
	if err := r.rebuildLocked(); err != nil {
		r.cfg = prev
		return err
	}
	return nil
}

// Start begins triggering. The first run fires right away (after the
// configured jitter) so a freshly started daemon catches up immediately;
// subsequent runs follow the schedule.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.c != nil {
		return nil
	}
	r.ctx = ctx

	if err := r.rebuildLocked(); err != nil {
		return err
	}

	jitter := r.cfg.Jitter
	r.startupWG.Add(1)
	go func() {
		defer r.startupWG.Done()
		r.startupRun(ctx, jitter)
	}()

	r.log.Info("scheduler started",
		logx.String("schedule", strings.TrimSpace(r.cfg.Schedule)),
		logx.String("tz", r.locationLocked().String()),
		logx.Duration("jitter", jitter))
	return nil
}

// Stop halts triggering and waits, bounded by ctx, for any run in flight.
// Runs execute under the Start context; cancel that first to interrupt a
// long one instead of sitting out its full duration here.
func (r *Runner) Stop(ctx context.Context) {
	r.mu.Lock()
	c := r.c
	r.c = nil
	r.mu.Unlock()

	if c == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		<-c.Stop().Done()
		r.startupWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		r.log.Warn("run still in flight at stop deadline")
	}
	r.log.Info("scheduler stopped")
}

// Next reports when the next scheduled trigger fires. Zero when stopped.
func (r *Runner) Next() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.c == nil {
		return time.Time{}
	}
	entries := r.c.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (r *Runner) rebuildLocked() error {
	spec, err := ParseSchedule(r.cfg.Schedule)
	if err != nil {
		return err
	}

	var sched cron.Schedule
	switch spec.Kind {
	case SpecCron:
		sched, err = specParser.Parse(spec.Cron)
		if err != nil {
			return err
		}
	default:
		sched = cron.Every(spec.Every)
	}

	if r.c != nil {
		// Old entries must not fire again; a run in flight finishes on its own.
		r.c.Stop()
	}
	c := cron.New(cron.WithLocation(r.locationLocked()))
	c.Schedule(sched, cron.FuncJob(func() { r.trigger("schedule") }))
	c.Start()
	r.c = c
	return nil
}

func (r *Runner) locationLocked() *time.Location {
	tz := strings.TrimSpace(r.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		r.log.Warn("invalid timezone, falling back to local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

func (r *Runner) startupRun(ctx context.Context, jitter time.Duration) {
	if jitter > 0 {
		wait := time.Duration(rand.Int63n(int64(jitter)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
	r.trigger("startup")
}

func (r *Runner) trigger(reason string) {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	if !r.running.CompareAndSwap(false, true) {
		r.log.Warn("previous run still in progress, skipping", logx.String("trigger", reason))
		return
	}
	defer r.running.Store(false)

	r.log.Debug("run triggered", logx.String("trigger", reason))
	r.job(ctx, reason)
}
