// Package state persists which article URLs have already been handled,
// per source, between runs.
//
// Drivers:
//   - "file": single JSON document, written atomically (default)
//   - "sqlite": SQLite database file (optional build tag)
package state
