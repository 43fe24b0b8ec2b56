package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// PGStore is a postgres-backed KV for one scope. Durable entries never
// expire; session entries carry a TTL and read as missing once past it.
type PGStore struct {
	db    DB
	scope string
	ttl   time.Duration
}

// NewDurable creates the durable (user-keyed) store.
func NewDurable(pool *pgxpool.Pool) *PGStore {
	return &PGStore{db: pool, scope: ScopeDurable}
}

// NewSession creates the session-scoped store with the default TTL.
func NewSession(pool *pgxpool.Pool) *PGStore {
	return &PGStore{db: pool, scope: ScopeSession, ttl: DefaultSessionTTL}
}

// NewPGStoreWithDB creates a store over a custom DB interface (tests).
func NewPGStoreWithDB(db DB, scope string, ttl time.Duration) *PGStore {
	return &PGStore{db: db, scope: scope, ttl: ttl}
}

func (s *PGStore) Get(ctx context.Context, owner, key string) (string, error) {
	query := `
		SELECT value, expires_at
		FROM session_state
		WHERE scope = $1 AND owner_id = $2 AND key = $3
	`

	var value string
	var expiresAt *time.Time

	err := s.db.QueryRow(ctx, query, s.scope, owner, key).Scan(&value, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}

	if expiresAt != nil && time.Now().After(*expiresAt) {
		_ = s.Delete(ctx, owner, key)
		return "", ErrNotFound
	}

	return value, nil
}

func (s *PGStore) Set(ctx context.Context, owner, key, value string) error {
	query := `
		INSERT INTO session_state (scope, owner_id, key, value, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (scope, owner_id, key) DO UPDATE
		SET value = EXCLUDED.value,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = NOW()
	`

	var expiresAt *time.Time
	if s.ttl > 0 {
		t := time.Now().Add(s.ttl)
		expiresAt = &t
	}

	_, err := s.db.Exec(ctx, query, s.scope, owner, key, value, expiresAt)
	return err
}

func (s *PGStore) Delete(ctx context.Context, owner, key string) error {
	query := `DELETE FROM session_state WHERE scope = $1 AND owner_id = $2 AND key = $3`
	_, err := s.db.Exec(ctx, query, s.scope, owner, key)
	return err
}

// CleanupExpired removes all expired session-scoped entries.
func (s *PGStore) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM session_state WHERE expires_at IS NOT NULL AND expires_at < NOW()`
	result, err := s.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
