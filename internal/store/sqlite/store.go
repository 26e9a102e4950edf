// Package sqlite provides the durable offline store backed by a local SQLite
// file, the desktop analog of the browser object store the agent replaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/store"
)

const schema = `CREATE TABLE IF NOT EXISTS offline_entities (
    collection  TEXT NOT NULL,
    entity_key  TEXT NOT NULL,
    value       BLOB NOT NULL,
    updated_at  TEXT NOT NULL,
    PRIMARY KEY (collection, entity_key)
)`

// Store is a SQLite-backed implementation of store.Store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the offline store at path. Any failure to
// open, reach, or prepare the database is reported as ErrStorageUnavailable so
// callers can fall back to remote-only operation up front instead of hitting
// storage errors mid-flight.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStorageUnavailable, err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent callers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", store.ErrStorageUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", store.ErrStorageUnavailable, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM offline_entities WHERE collection = ? AND entity_key = ?`,
		collection, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// GetAll implements store.Store. Entities come back in insertion order.
func (s *Store) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM offline_entities WHERE collection = ? ORDER BY rowid`,
		collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

// Add implements store.Store.
func (s *Store) Add(ctx context.Context, collection, key string, value json.RawMessage) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO offline_entities (collection, entity_key, value, updated_at)
         VALUES (?, ?, ?, ?) ON CONFLICT (collection, entity_key) DO NOTHING`,
		collection, key, []byte(value), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrDuplicateKey
	}
	return nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, collection, key string, value json.RawMessage) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE offline_entities SET value = ?, updated_at = ? WHERE collection = ? AND entity_key = ?`,
		[]byte(value), time.Now().UTC().Format(time.RFC3339Nano), collection, key,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM offline_entities WHERE collection = ? AND entity_key = ?`,
		collection, key,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ClearAll implements store.Store.
func (s *Store) ClearAll(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM offline_entities WHERE collection = ?`, collection,
	)
	return err
}
