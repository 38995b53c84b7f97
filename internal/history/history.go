// Package history provides key-scoped blob storage for persisted chat
// history. The conversation store owns the serialization format; these
// stores only move opaque bytes.
package history

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no blob exists under the given key.
var ErrNotFound = errors.New("history: not found")

// DefaultTTL bounds how long persisted history stays loadable. The
// conversation store also enforces this at decode time; redis enforces
// it natively at the storage layer.
const DefaultTTL = 24 * time.Hour

type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}
