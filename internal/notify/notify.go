// Package notify formats and delivers article notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"prensabot/internal/extract"
	"prensabot/internal/transport"
	"prensabot/pkg/logx"
	"prensabot/pkg/tgui"
)

// Message headers, kept in the language subscribers expect.
const (
	headerSteady    = "Nueva noticia detectada"
	headerBootstrap = "Noticia reciente detectada (escaneo inicial)"
)

// Event is one article to announce.
type Event struct {
	SourceKey  string
	SourceName string
	Item       extract.Item
	// Bootstrap marks deliveries from a source's first scan.
	Bootstrap bool
}

type Config struct {
	// RatePerSec paces deliveries; Telegram throttles bots that burst.
	RatePerSec float64
	RateBurst  int
	// RetryMax is the number of extra attempts after a failed delivery.
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	// Timeout bounds a single delivery attempt.
	Timeout time.Duration
	DryRun  bool
}

// Service delivers one event at a time; the rate limiter carries over
// between calls so bursts across sources stay paced.
type Service struct {
	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
	sender  transport.Sender
	log     logx.Logger
}

func New(cfg Config, sender transport.Sender, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		sender: sender,
		log:    log.With(logx.String("comp", "notify")),
	}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 0.4
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst)
}

// Format renders the notification as Telegram HTML. The link stays in plain
// text so the chat shows a page preview.
func Format(ev Event) string {
	header := headerSteady
	if ev.Bootstrap {
		header = headerBootstrap
	}
	parts := []tgui.H{
		tgui.B(header),
		tgui.Esc("Fuente: " + ev.SourceName),
		tgui.Esc(ev.Item.Title),
	}
	if ev.Item.Published != "" {
		parts = append(parts, tgui.Esc("Fecha: "+ev.Item.Published))
	}
	parts = append(parts, tgui.Esc(ev.Item.URL))
	return string(tgui.Lines(parts...))
}

// Send delivers one event. In dry run the rendered message is logged and the
// delivery reports success, so the URL still counts as handled.
func (s *Service) Send(ctx context.Context, to transport.ChatTarget, ev Event) error {
	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	s.mu.Unlock()

	text := Format(ev)
	if cfg.DryRun {
		s.log.Info("dry run, delivery skipped",
			logx.String("source", ev.SourceKey),
			logx.String("url", ev.Item.URL),
			logx.String("text", text))
		return nil
	}
	if s.sender == nil {
		return errors.New("notify: no sender configured")
	}

	maxAttempts := 1 + cfg.RetryMax
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		_, err := s.sender.SendText(callCtx, to, text, &transport.SendOptions{ParseMode: "HTML"})
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		s.log.Debug("delivery attempt failed",
			logx.String("url", ev.Item.URL),
			logx.Int("attempt", attempt),
			logx.Int("max", maxAttempts),
			logx.Err(err))
		if attempt >= maxAttempts {
			break
		}

		timer := time.NewTimer(retryDelay(cfg, attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return ctx.Err()
		}
	}

	if cfg.RetryMax > 0 {
		return fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
	}
	return lastErr
}

// retryDelay grows exponentially from RetryBase with 0.7..1.3 jitter,
// capped at RetryMaxDelay.
func retryDelay(cfg Config, attempt int) time.Duration {
	d := cfg.RetryBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cfg.RetryMaxDelay {
			d = cfg.RetryMaxDelay
			break
		}
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	d = time.Duration(float64(d) * (0.7 + rng.Float64()*0.6))
	if d > cfg.RetryMaxDelay {
		d = cfg.RetryMaxDelay
	}
	if d < 0 {
		return 0
	}
	return d
}
