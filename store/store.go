// Package store defines session persistence. A Session owns one
// conversation history scoped to a session key; implementations must
// be safe for concurrent use across sessions.
package store

import (
	"context"
	"time"

	"github.com/lowkeylab/agentloop/types"
)

// Session is one conversation scoped to a session key (channel plus
// chat id, or any stable identifier).
type Session struct {
	Key     string          `json:"key"`
	History []types.Message `json:"history"`
	Created time.Time       `json:"created"`
	Updated time.Time       `json:"updated"`
}

// NewSession creates an empty session for a key.
func NewSession(key string) *Session {
	now := time.Now()
	return &Session{
		Key:     key,
		History: []types.Message{},
		Created: now,
		Updated: now,
	}
}

// Clone returns a deep-enough copy: the history slice is copied so the
// caller can mutate it without affecting the original.
func (s *Session) Clone() *Session {
	out := *s
	out.History = make([]types.Message, len(s.History))
	copy(out.History, s.History)
	return &out
}

// Store persists sessions.
type Store interface {
	// GetOrCreate loads the session for key, creating an empty one if
	// none exists. The returned session is the caller's to mutate;
	// changes are not visible to other callers until Save.
	GetOrCreate(ctx context.Context, key string) (*Session, error)

	// Save persists the session. The entire history is written
	// atomically; a crash mid-save must never leave a partial history
	// visible to a later load.
	Save(ctx context.Context, session *Session) error

	// Delete removes a session. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
