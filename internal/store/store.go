// Package store defines the offline persistence capability used to serve
// entities while the plan server is unreachable. Implementations hold opaque
// JSON values keyed by collection and entity key, with no business logic:
// callers canonicalize before writing, and reads return stored bytes verbatim.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrStorageUnavailable indicates the durable storage capability is absent.
	// Every adapter call short-circuits with this error rather than failing
	// deep inside a platform call, so callers can degrade to remote-only mode.
	ErrStorageUnavailable = errors.New("offline storage unavailable")
	// ErrNotFound is returned when no entity exists under the requested key.
	ErrNotFound = errors.New("entity not found")
	// ErrDuplicateKey is returned by Add when the key is already occupied.
	ErrDuplicateKey = errors.New("entity already exists")
)

// Store is the offline store capability.
type Store interface {
	Get(ctx context.Context, collection, key string) (json.RawMessage, error)
	GetAll(ctx context.Context, collection string) ([]json.RawMessage, error)
	Add(ctx context.Context, collection, key string, value json.RawMessage) error
	Update(ctx context.Context, collection, key string, value json.RawMessage) error
	Delete(ctx context.Context, collection, key string) error
	ClearAll(ctx context.Context, collection string) error
}
