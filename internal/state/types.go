package state

import (
	"context"
	"time"
)

// timeLayout renders UTC timestamps in the state document. Kept at second
// precision so documents from older deployments compare cleanly.
const timeLayout = "2006-01-02T15:04:05Z"

// Config configures state persistence.
//
// Driver values:
//   - "file": single JSON document (default when empty)
//   - "sqlite": SQLite database file (requires the sqlite build tag)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store reads and replaces the seen-URL lists.
//
// Load returns the lists newest-first per source. A state that never existed
// loads as an empty map; a corrupt state is reported by the driver and also
// loads as empty, which restarts every source from its first scan.
type Store interface {
	Load(ctx context.Context) (map[string][]string, error)
	Save(ctx context.Context, seenBySource map[string][]string) error
	Close() error
}
