// Package postgres provides a session store backed by PostgreSQL via
// pgx/v5. The whole history is stored as a JSONB document per session
// and replaced atomically on Save.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lowkeylab/agentloop/store"
	"github.com/lowkeylab/agentloop/types"
)

// Schema is the DDL for the sessions table. Run it once at deploy time
// or call EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS agentloop_sessions (
    key        TEXT PRIMARY KEY,
    history    JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store implements store.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a store around an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the sessions table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// GetOrCreate implements store.Store.
func (s *Store) GetOrCreate(ctx context.Context, key string) (*store.Session, error) {
	if key == "" {
		return nil, fmt.Errorf("session key cannot be empty")
	}

	query := `
		SELECT key, history, created_at, updated_at
		FROM agentloop_sessions
		WHERE key = $1
	`

	var (
		sess        store.Session
		historyJSON []byte
	)
	err := s.pool.QueryRow(ctx, query, key).Scan(
		&sess.Key,
		&historyJSON,
		&sess.Created,
		&sess.Updated,
	)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return s.create(ctx, key)
	case err != nil:
		return nil, fmt.Errorf("load session %q: %w", key, err)
	}

	if err := json.Unmarshal(historyJSON, &sess.History); err != nil {
		return nil, fmt.Errorf("decode history for session %q: %w", key, err)
	}
	if sess.History == nil {
		sess.History = []types.Message{}
	}
	return &sess, nil
}

func (s *Store) create(ctx context.Context, key string) (*store.Session, error) {
	query := `
		INSERT INTO agentloop_sessions (key, history, created_at, updated_at)
		VALUES ($1, '[]'::jsonb, now(), now())
		ON CONFLICT (key) DO NOTHING
		RETURNING created_at, updated_at
	`

	sess := store.NewSession(key)
	err := s.pool.QueryRow(ctx, query, key).Scan(&sess.Created, &sess.Updated)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost a race with a concurrent create; load the winner.
		return s.GetOrCreate(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("create session %q: %w", key, err)
	}
	return sess, nil
}

// Save implements store.Store. The history column is replaced in a
// single statement, so readers see either the old or the new history,
// never a mix.
func (s *Store) Save(ctx context.Context, session *store.Session) error {
	if session == nil || session.Key == "" {
		return fmt.Errorf("session key cannot be empty")
	}

	historyJSON, err := json.Marshal(session.History)
	if err != nil {
		return fmt.Errorf("encode history for session %q: %w", session.Key, err)
	}

	query := `
		INSERT INTO agentloop_sessions (key, history, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			history    = EXCLUDED.history,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	created := session.Created
	if created.IsZero() {
		created = now
	}
	if _, err := s.pool.Exec(ctx, query, session.Key, historyJSON, created, now); err != nil {
		return fmt.Errorf("save session %q: %w", session.Key, err)
	}
	session.Updated = now
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM agentloop_sessions WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete session %q: %w", key, err)
	}
	return nil
}
