package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"prensabot/pkg/logx"
)

// Manager loads the config file, revalidates it on change, and republishes
// accepted snapshots to subscribers. Published *Config values are shared and
// must be treated as read-only.
type Manager struct {
	mu          sync.RWMutex
	path        string
	current     *Config
	currentHash string
	subscribers []chan *Config
	validator   func(context.Context, *Config) error
	watchCancel context.CancelFunc
	watchDone   chan struct{}
	log         logx.Logger
}

func NewManager(path string, log logx.Logger) *Manager {
	return &Manager{
		path: path,
		log:  log.With(logx.String("comp", "config")),
	}
}

// SetValidator installs the hook run against every parsed config before it is
// committed. The hook may mutate the config (defaults, environment overlay).
func (m *Manager) SetValidator(fn func(context.Context, *Config) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validator = fn
}

// SetLogger swaps the manager's logger, typically once the logging service is
// wired up and reload messages should reach the real sinks.
func (m *Manager) SetLogger(log logx.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = log.With(logx.String("comp", "config"))
}

func (m *Manager) logger() logx.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.log
}

// Parse reads and strictly decodes the config file without committing it.
// Unknown fields and trailing data are errors; YAML input is accepted.
func (m *Manager) Parse(ctx context.Context) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", m.path, err)
	}
	jsonBytes, err := coerceToJSONBytes(m.path, raw)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", m.path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonBytes))
	dec.DisallowUnknownFields()
	cfg := &Config{}
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", m.path, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("parse config %s: trailing data after document", m.path)
	}
	return cfg, nil
}

// Load parses, validates, and commits the file; used at startup where a bad
// config is fatal.
func (m *Manager) Load(ctx context.Context) (*Config, error) {
	cfg, err := m.Parse(ctx)
	if err != nil {
		return nil, err
	}
	hash := canonicalHashJSON(cfg)
	if v := m.getValidator(); v != nil {
		if err := v(ctx, cfg); err != nil {
			return nil, fmt.Errorf("validate config %s: %w", m.path, err)
		}
	}
	m.commit(cfg, hash)
	return cfg, nil
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Manager) Path() string { return m.path }

func (m *Manager) getValidator() func(context.Context, *Config) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.validator
}

func (m *Manager) commit(cfg *Config, hash string) {
	m.mu.Lock()
	m.current = cfg
	m.currentHash = hash
	m.mu.Unlock()
}

// Subscribe returns a channel receiving each accepted config snapshot.
// Slow subscribers lose the oldest pending snapshot, never the newest.
func (m *Manager) Subscribe(buffer int) chan *Config {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan *Config, buffer)
	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()
	return ch
}

func (m *Manager) Unsubscribe(ch chan *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

func (m *Manager) publish(cfg *Config) {
	m.mu.RLock()
	subs := make([]chan *Config, len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- cfg:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- cfg:
			default:
			}
		}
	}
}

// Watch starts watching the config file for changes until ctx is done or
// StopWatch is called. Rejected or unchanged files never replace the current
// snapshot.
func (m *Manager) Watch(ctx context.Context) error {
	m.mu.Lock()
	if m.watchCancel != nil {
		m.mu.Unlock()
		return fmt.Errorf("config watch already running")
	}
	wctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.watchCancel = cancel
	m.watchDone = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		m.runWatch(wctx)
	}()
	return nil
}

func (m *Manager) StopWatch() {
	m.mu.Lock()
	cancel := m.watchCancel
	done := m.watchDone
	m.watchCancel = nil
	m.watchDone = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// runWatch owns the fsnotify watcher. It recreates the watcher with backoff
// if it dies, so a transient inotify failure does not end config reloads.
func (m *Manager) runWatch(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		err := m.watchOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			m.logger().Error("config watcher stopped, restarting", logx.Err(err), logx.Duration("backoff", backoff))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
		}
	}
}

func (m *Manager) watchOnce(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors and configuration
	// management replace the file by rename, which drops file-level watches.
	dir := filepath.Dir(m.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	m.logger().Debug("config watch started", logx.String("path", m.path))

	const debounce = 250 * time.Millisecond
	var timer *time.Timer
	var timerC <-chan time.Time

	target := filepath.Clean(m.path)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("event channel closed")
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("error channel closed")
			}
			m.logger().Warn("config watch error", logx.Err(err))
		case <-timerC:
			timer = nil
			timerC = nil
			m.reload(ctx)
		}
	}
}

func (m *Manager) reload(ctx context.Context) {
	cfg, err := m.Parse(ctx)
	if err != nil {
		m.logger().Warn("config reload failed, keeping previous", logx.Err(err))
		return
	}
	hash := canonicalHashJSON(cfg)
	m.mu.RLock()
	unchanged := hash != "" && hash == m.currentHash
	old := m.current
	m.mu.RUnlock()
	if unchanged {
		m.logger().Debug("config unchanged, reload skipped")
		return
	}
	if v := m.getValidator(); v != nil {
		if err := v(ctx, cfg); err != nil {
			m.logger().Warn("config rejected, keeping previous", logx.Err(err))
			return
		}
	}
	m.commit(cfg, hash)
	changed, attrs := SummarizeConfigChange(old, cfg)
	attrs = append(attrs, logx.Int("sections_changed", len(changed)))
	m.logger().Info("config reloaded", attrs...)
	m.publish(cfg)
}
