// Package kv is the durable key-value store behind the client's profile cache.
// Two backends exist: SQLite (the default) and Badger.
package kv

import (
	"context"
	"fmt"

	"github.com/resdex/resdex/internal/logging"
)

// Store is a durable byte store. Get returns (nil, nil) for an absent key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Open opens the store selected by backend at path.
func Open(ctx context.Context, backend, path string, logger logging.Logger) (Store, error) {
	switch backend {
	case BackendSQLite:
		return OpenSQLite(ctx, path)
	case BackendBadger:
		return OpenBadger(path, logger)
	default:
		return nil, fmt.Errorf("unknown kv backend %q", backend)
	}
}
