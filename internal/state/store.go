// Package state holds the small persisted surface of the engine: nonces,
// the client order id cache and the last cycle record.
package state

import (
	"context"
	"time"
)

// Store is a string key/value table. Missing keys return ok == false.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Pruner drops entries under a key prefix last written before cutoff.
type Pruner interface {
	Prune(ctx context.Context, prefix string, cutoff time.Time) (int64, error)
}

// PrunableStore is what the application opens at startup.
type PrunableStore interface {
	Store
	Pruner
}
