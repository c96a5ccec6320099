// Package watch runs the scan pipeline: fetch each enabled source, extract
// its items, deliver the ones not seen before, and persist the updated state.
package watch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"prensabot/internal/extract"
	"prensabot/internal/notify"
	"prensabot/internal/source"
	"prensabot/internal/state"
	"prensabot/internal/transport"
	"prensabot/pkg/logx"
)

type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Extractors interface {
	ForFamily(f source.Family) (extract.Extractor, error)
}

type Notifier interface {
	Send(ctx context.Context, to transport.ChatTarget, ev notify.Event) error
}

type Config struct {
	// InitialSendCount caps deliveries the first time a source is scanned;
	// the rest of that page is marked seen without notifying.
	InitialSendCount int
	// MaxSeenURLs caps each source's persisted list, newest first.
	MaxSeenURLs int
	// Concurrency bounds parallel source scans. 1 keeps strict source order.
	Concurrency int
	// Destination receives the notifications.
	Destination transport.ChatTarget
}

// Failure is one recorded error; String renders the "scope -> cause" form
// used in run summaries.
type Failure struct {
	Scope string // source key, item URL, or "state"
	Err   error
}

func (f Failure) String() string { return f.Scope + " -> " + f.Err.Error() }

type SourceResult struct {
	Key       string
	Bootstrap bool
	Found     int // items extracted from the page
	New       int // items selected for delivery
	Sent      int
	Failed    int
}

// Report summarizes one run. OK decides the process exit status: any
// delivery, fetch, or persist failure makes the run unsuccessful even though
// every stage was attempted.
type Report struct {
	Started    time.Time
	Elapsed    time.Duration
	Sources    []SourceResult
	Failures   []Failure
	StateSaved bool
}

func (r *Report) OK() bool { return len(r.Failures) == 0 }

// FailureSummary renders one line per failure for logs and run summaries.
func (r *Report) FailureSummary() string {
	if len(r.Failures) == 0 {
		return ""
	}
	lines := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		lines = append(lines, " - "+f.String())
	}
	return strings.Join(lines, "\n")
}

type Engine struct {
	mu         sync.Mutex
	cfg        Config
	fetcher    Fetcher
	extractors Extractors
	notifier   Notifier
	store      state.Store
	log        logx.Logger
}

func New(cfg Config, fetcher Fetcher, extractors Extractors, notifier Notifier, store state.Store, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	e := &Engine{
		fetcher:    fetcher,
		extractors: extractors,
		notifier:   notifier,
		store:      store,
		log:        log.With(logx.String("comp", "watch")),
	}
	e.Apply(cfg)
	return e
}

// Apply updates the engine configuration; the next Run picks it up.
func (e *Engine) Apply(cfg Config) {
	if cfg.InitialSendCount <= 0 {
		cfg.InitialSendCount = 5
	}
	if cfg.MaxSeenURLs <= 0 {
		cfg.MaxSeenURLs = 1000
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

type sourceOutcome struct {
	result   SourceResult
	failures []Failure
	seen     []string
}

// Run scans the given sources and always attempts to persist state before
// returning, also after fetch or delivery failures.
func (e *Engine) Run(ctx context.Context, sources []source.Source) *Report {
	e.mu.Lock()
	cfg := e.cfg
	e.mu.Unlock()

	report := &Report{Started: time.Now()}

	previous, err := e.store.Load(ctx)
	if err != nil {
		// Treated like a missing state: every source bootstraps again.
		e.log.Warn("state load failed, starting fresh", logx.Err(err))
		previous = map[string][]string{}
	}

	updated := make(map[string][]string, len(previous)+len(sources))
	for key, urls := range previous {
		updated[key] = urls
	}

	outcomes := make([]sourceOutcome, len(sources))
	if cfg.Concurrency <= 1 {
		for i, src := range sources {
			outcomes[i] = e.scanSource(ctx, cfg, src, previous[src.Key])
		}
	} else {
		sem := make(chan struct{}, cfg.Concurrency)
		var wg sync.WaitGroup
		for i, src := range sources {
			i, src := i, src
			wg.Add(1)
			go func() {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				outcomes[i] = e.scanSource(ctx, cfg, src, previous[src.Key])
			}()
		}
		wg.Wait()
	}

	for i, out := range outcomes {
		updated[sources[i].Key] = out.seen
		report.Sources = append(report.Sources, out.result)
		report.Failures = append(report.Failures, out.failures...)
	}

	// The save must happen even when the run context was canceled midway,
	// otherwise delivered URLs would notify again next run.
	saveCtx := context.WithoutCancel(ctx)
	if err := e.store.Save(saveCtx, updated); err != nil {
		e.log.Error("state persist failed", logx.Err(err))
		report.Failures = append(report.Failures, Failure{Scope: "state", Err: fmt.Errorf("persist error: %w", err)})
	} else {
		report.StateSaved = true
		e.log.Info("state saved", logx.Int("sources", len(updated)))
	}

	report.Elapsed = time.Since(report.Started)
	if report.OK() {
		e.log.Info("run finished",
			logx.Int("sources", len(sources)),
			logx.Duration("elapsed", report.Elapsed))
	} else {
		e.log.Error("run finished with errors",
			logx.Int("failures", len(report.Failures)),
			logx.Duration("elapsed", report.Elapsed))
	}
	return report
}

func (e *Engine) scanSource(ctx context.Context, cfg Config, src source.Source, previouslySeen []string) sourceOutcome {
	log := e.log.With(logx.String("source", src.Key))
	out := sourceOutcome{
		result: SourceResult{Key: src.Key},
		seen:   previouslySeen,
	}

	fail := func(err error) sourceOutcome {
		out.failures = append(out.failures, Failure{Scope: src.Key, Err: err})
		return out
	}

	body, err := e.fetcher.Get(ctx, src.URL)
	if err != nil {
		log.Error("source fetch failed", logx.Err(err))
		return fail(fmt.Errorf("fetch error: %w", err))
	}

	ex, err := e.extractors.ForFamily(src.Family)
	if err != nil {
		log.Error("no extractor for source", logx.Err(err))
		return fail(fmt.Errorf("extract error: %w", err))
	}
	items, err := ex.Extract(src.URL, body)
	if err != nil {
		log.Error("source extract failed", logx.Err(err))
		return fail(fmt.Errorf("extract error: %w", err))
	}
	out.result.Found = len(items)

	// An empty page usually means a markup change; the state is carried
	// untouched so nothing re-notifies once extraction works again.
	if len(items) == 0 {
		log.Warn("no items found on page")
		return out
	}

	seenSet := make(map[string]struct{}, len(previouslySeen))
	for _, url := range previouslySeen {
		seenSet[url] = struct{}{}
	}

	bootstrap := len(previouslySeen) == 0
	out.result.Bootstrap = bootstrap

	var toNotify []extract.Item
	var skipAsSeen []string
	if bootstrap {
		limit := min(cfg.InitialSendCount, len(items))
		toNotify = items[:limit]
		for _, item := range items[limit:] {
			skipAsSeen = append(skipAsSeen, item.URL)
		}
		log.Info("first scan, limiting deliveries",
			logx.Int("found", len(items)),
			logx.Int("to_send", limit))
	} else {
		for _, item := range items {
			if _, ok := seenSet[item.URL]; !ok {
				toNotify = append(toNotify, item)
			}
		}
		log.Info("new items detected", logx.Int("count", len(toNotify)))
	}
	out.result.New = len(toNotify)

	var sentURLs []string
	for _, item := range toNotify {
		ev := notify.Event{
			SourceKey:  src.Key,
			SourceName: src.Name,
			Item:       item,
			Bootstrap:  bootstrap,
		}
		if err := e.notifier.Send(ctx, cfg.Destination, ev); err != nil {
			log.Error("delivery failed", logx.String("url", item.URL), logx.Err(err))
			out.failures = append(out.failures, Failure{Scope: item.URL, Err: err})
			out.result.Failed++
			continue
		}
		log.Info("delivered", logx.String("url", item.URL))
		sentURLs = append(sentURLs, item.URL)
		out.result.Sent++
	}
	if len(toNotify) == 0 {
		log.Info("nothing new to deliver")
	}

	// Failed deliveries stay out of the merge so they notify again next
	// run; bootstrap skips are marked seen no matter what.
	out.seen = state.Merge(previouslySeen, append(sentURLs, skipAsSeen...), cfg.MaxSeenURLs)
	return out
}
