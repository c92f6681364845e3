// Package storage persists client state between runs. It exposes named
// slots holding JSON values, backed by a single-table SQLite database in the
// user data directory. A malformed stored value reads as absent so consumers
// fall back to their defaults instead of failing.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // sqlite driver (pure Go)
)

// Slot names. The guest cart ledger is deliberately not here: it lives in
// the cart cookie so the server's guest checkout can read it.
const (
	SlotCartData     = "cartData"
	SlotProductsData = "productsData"
	SlotAccess       = "access"
	SlotRefresh      = "refresh"
)

// Store is the slot-backed persistence adapter.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the slot database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open slot db: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping slot db: %w", err)
	}
	s := NewStore(db)
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing database handle. Callers other than Open are
// expected to manage the schema themselves (tests use this with a mock).
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS slots (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`)
	if err != nil {
		return fmt.Errorf("apply slot schema: %w", err)
	}
	return nil
}

// Get unmarshals the named slot into dest. The second return is false when
// the slot is absent or its contents cannot be decoded.
func (s *Store) Get(ctx context.Context, slot string, dest any) (bool, error) {
	var raw string
	row := s.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE name = ?`, slot)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("read slot %s: %w", slot, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// Corrupt value: treat as absent.
		return false, nil
	}
	return true, nil
}

// Set stores value in the named slot, replacing any previous contents.
func (s *Store) Set(ctx context.Context, slot string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode slot %s: %w", slot, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO slots(name, value, updated_at) VALUES(?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		slot, string(raw))
	if err != nil {
		return fmt.Errorf("write slot %s: %w", slot, err)
	}
	return nil
}

// Delete removes the named slot. Deleting an absent slot is not an error.
func (s *Store) Delete(ctx context.Context, slot string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE name = ?`, slot); err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
