// Package storage persists run audit records.
//
// One record per dispatch run: identifiers, timing and counts. Message
// bodies and recipient lists are never stored.
//
// Drivers:
//   - "file":   append-only JSON Lines next to the configured path
//   - "sqlite": SQLite database file (modernc.org/sqlite, pure Go)
package storage
