package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"prensabot/pkg/logx"
)

// legacyCucutaKey receives top-level seen_urls lists written before the
// state grew per-source sections.
const legacyCucutaKey = "cucuta"

type sourceState struct {
	SeenURLs  []string `json:"seen_urls"`
	UpdatedAt string   `json:"updated_at_utc"`
}

type document struct {
	Sources   map[string]sourceState `json:"sources"`
	UpdatedAt string                 `json:"updated_at_utc"`
}

type fileStore struct {
	path string
	log  logx.Logger
	mu   sync.Mutex
	now  func() time.Time
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("state.path is required for file driver")
	}
	return &fileStore{
		path: path,
		log:  log.With(logx.String("comp", "state")),
		now:  time.Now,
	}, nil
}

func (s *fileStore) Close() error { return nil }

// Load reads the state document. A missing file is a normal first run; an
// unreadable or malformed file resets the state, which the caller sees as
// every source bootstrapping again.
func (s *fileStore) Load(ctx context.Context) (map[string][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string][]string{}, nil
	}
	if err != nil {
		s.log.Warn("state unreadable, starting fresh", logx.String("path", s.path), logx.Err(err))
		return map[string][]string{}, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		s.log.Warn("state corrupt, starting fresh", logx.String("path", s.path), logx.Err(err))
		return map[string][]string{}, nil
	}

	out := map[string][]string{}
	if rawSources, ok := top["sources"]; ok {
		var sources map[string]json.RawMessage
		if err := json.Unmarshal(rawSources, &sources); err == nil {
			for key, rawEntry := range sources {
				var entry struct {
					SeenURLs []any `json:"seen_urls"`
				}
				if err := json.Unmarshal(rawEntry, &entry); err != nil {
					continue
				}
				out[key] = cleanURLList(entry.SeenURLs)
			}
		}
	}

	if rawLegacy, ok := top["seen_urls"]; ok {
		if _, has := out[legacyCucutaKey]; !has {
			var legacy []any
			if err := json.Unmarshal(rawLegacy, &legacy); err == nil {
				out[legacyCucutaKey] = cleanURLList(legacy)
			}
		}
	}
	return out, nil
}

// cleanURLList keeps trimmed string entries, silently dropping everything
// else a hand-edited state file may contain.
func cleanURLList(values []any) []string {
	urls := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		urls = append(urls, s)
	}
	return urls
}

// Save replaces the whole document. The write goes through a temp file and
// rename, so readers never observe a partial state.
func (s *fileStore) Save(ctx context.Context, seenBySource map[string][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC().Format(timeLayout)
	doc := document{
		Sources:   make(map[string]sourceState, len(seenBySource)),
		UpdatedAt: now,
	}
	for key, urls := range seenBySource {
		if urls == nil {
			urls = []string{}
		}
		doc.Sources[key] = sourceState{SeenURLs: urls, UpdatedAt: now}
	}

	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir %s: %w", dir, err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write state %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace state %s: %w", s.path, err)
	}
	return nil
}
