// Package sqlstore provides a session store on database/sql for
// applications that already manage a *sql.DB. Works with any
// PostgreSQL driver, e.g. lib/pq:
//
//	db, _ := sql.Open("postgres", databaseURL)
//	sessions := sqlstore.New(db)
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lowkeylab/agentloop/store"
	"github.com/lowkeylab/agentloop/types"
)

// Schema is the DDL for the sessions table.
const Schema = `
CREATE TABLE IF NOT EXISTS agentloop_sessions (
    key        TEXT PRIMARY KEY,
    history    JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store implements store.Store on a *sql.DB.
type Store struct {
	db *sql.DB
}

// New creates a store around an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the sessions table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
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
	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&sess.Key,
		&historyJSON,
		&sess.Created,
		&sess.Updated,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
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
	err := s.db.QueryRowContext(ctx, query, key).Scan(&sess.Created, &sess.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost a race with a concurrent create; load the winner.
		return s.GetOrCreate(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("create session %q: %w", key, err)
	}
	return sess, nil
}

// Save implements store.Store.
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
	if _, err := s.db.ExecContext(ctx, query, session.Key, historyJSON, created, now); err != nil {
		return fmt.Errorf("save session %q: %w", session.Key, err)
	}
	session.Updated = now
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM agentloop_sessions WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete session %q: %w", key, err)
	}
	return nil
}
