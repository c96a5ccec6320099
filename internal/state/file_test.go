package state

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"prensabot/pkg/logx"
)

func newTestFileStore(t *testing.T) (*fileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "seen_news.json")
	st, err := openFile(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	fs := st.(*fileStore)
	fs.now = func() time.Time {
		return time.Date(2025, 8, 25, 10, 0, 0, 0, time.UTC)
	}
	return fs, path
}

func TestFileSaveThenLoad(t *testing.T) {
	t.Parallel()

	fs, _ := newTestFileStore(t)
	ctx := context.Background()

	in := map[string][]string{
		"mintic_noticias": {"https://example.com/n/2", "https://example.com/n/1"},
		"cucuta":          {"https://cucuta.gov.co/a/"},
	}
	if err := fs.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("round trip mismatch:\n in: %v\nout: %v", in, out)
	}
}

func TestFileDocumentFormat(t *testing.T) {
	t.Parallel()

	fs, path := newTestFileStore(t)
	err := fs.Save(context.Background(), map[string][]string{
		"mintic_noticias": {"https://example.com/n/1"},
		"cucuta":          {"https://cucuta.gov.co/a/"},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file must not survive a completed save")
	}
	text := string(raw)

	if !strings.HasSuffix(text, "}\n") {
		t.Fatalf("document must end with a newline, got %q", text[len(text)-4:])
	}
	if !strings.Contains(text, "\n  \"sources\"") {
		t.Fatal("document must be indented with two spaces")
	}
	if !strings.Contains(text, `"updated_at_utc": "2025-08-25T10:00:00Z"`) {
		t.Fatalf("timestamp missing or misformatted:\n%s", text)
	}
	if strings.Index(text, `"cucuta"`) > strings.Index(text, `"mintic_noticias"`) {
		t.Fatal("source keys must serialize sorted")
	}
	if strings.Count(text, `"updated_at_utc"`) != 3 {
		t.Fatalf("expected a top-level and two per-source timestamps:\n%s", text)
	}
}

func TestFileLoadMissingFile(t *testing.T) {
	t.Parallel()

	fs, _ := newTestFileStore(t)
	out, err := fs.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty state, got %v", out)
	}
}

func TestFileLoadCorruptResets(t *testing.T) {
	t.Parallel()

	fs, path := newTestFileStore(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{ not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := fs.Load(context.Background())
	if err != nil {
		t.Fatalf("corrupt state must not fail the load: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected reset state, got %v", out)
	}
}

func TestFileLoadLegacyFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    map[string][]string
	}{
		{
			name:    "legacy list becomes cucuta",
			content: `{"seen_urls": ["https://a/", " https://b/ ", ""]}`,
			want:    map[string][]string{"cucuta": {"https://a/", "https://b/"}},
		},
		{
			name: "sources section wins over legacy",
			content: `{
  "seen_urls": ["https://legacy/"],
  "sources": {"cucuta": {"seen_urls": ["https://nuevo/"], "updated_at_utc": "2025-01-01T00:00:00Z"}}
}`,
			want: map[string][]string{"cucuta": {"https://nuevo/"}},
		},
		{
			name: "legacy fills only a missing cucuta",
			content: `{
  "seen_urls": ["https://legacy/"],
  "sources": {"mintic_noticias": {"seen_urls": ["https://m/"]}}
}`,
			want: map[string][]string{
				"cucuta":          {"https://legacy/"},
				"mintic_noticias": {"https://m/"},
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs, path := newTestFileStore(t)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}

			out, err := fs.Load(context.Background())
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !reflect.DeepEqual(out, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, out)
			}
		})
	}
}

func TestFileLoadSkipsMalformedEntries(t *testing.T) {
	t.Parallel()

	fs, path := newTestFileStore(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := `{
  "sources": {
    "cucuta": {"seen_urls": ["https://ok/", 42, null, "  "]},
    "roto": "no es un objeto",
    "sin_lista": {"seen_urls": "tampoco"}
  }
}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := fs.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := map[string][]string{"cucuta": {"https://ok/"}}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("expected %v, got %v", want, out)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := Open(Config{Driver: "redis", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenDefaultsToFileDriver(t *testing.T) {
	t.Parallel()

	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "s.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*fileStore); !ok {
		t.Fatalf("expected file driver, got %T", st)
	}
}
