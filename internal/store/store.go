package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no value for the given owner.
var ErrNotFound = errors.New("key not found")

// KV is one named persistence capability. The ledger and payment flow are
// handed two of these: a durable scope keyed by user id that survives
// sessions, and a session scope keyed by session id that expires. Both are
// swappable for the in-memory implementation in tests.
type KV interface {
	Get(ctx context.Context, owner, key string) (string, error)
	Set(ctx context.Context, owner, key, value string) error
	Delete(ctx context.Context, owner, key string) error
}

// Scope names for the postgres-backed store.
const (
	ScopeDurable = "durable"
	ScopeSession = "session"
)

// DefaultSessionTTL bounds how long session-scoped entries live.
const DefaultSessionTTL = 24 * time.Hour
