//go:build sqlite
// +build sqlite

package state

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"prensabot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
	now func() time.Time
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("state.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{
		db:  db,
		log: log.With(logx.String("comp", "state")),
		now: time.Now,
	}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_key, url FROM seen_urls ORDER BY source_key, position`)
	if err != nil {
		s.log.Warn("state unreadable, starting fresh", logx.Err(err))
		return map[string][]string{}, nil
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var key, url string
		if err := rows.Scan(&key, &url); err != nil {
			s.log.Warn("state row unreadable, starting fresh", logx.Err(err))
			return map[string][]string{}, nil
		}
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		out[key] = append(out[key], url)
	}
	if err := rows.Err(); err != nil {
		s.log.Warn("state scan failed, starting fresh", logx.Err(err))
		return map[string][]string{}, nil
	}
	return out, nil
}

// Save replaces the whole table in one transaction; position preserves the
// newest-first order of each list.
func (s *sqliteStore) Save(ctx context.Context, seenBySource map[string][]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_urls`); err != nil {
		return err
	}
	now := s.now().UTC().Format(timeLayout)
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO seen_urls (source_key, position, url, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for key, urls := range seenBySource {
		for i, url := range urls {
			if _, err := stmt.ExecContext(ctx, key, i, url, now); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}
