// Package memory provides an in-memory session store with optional
// JSON file persistence. Suited to single-process deployments and
// tests; use the postgres or sqlstore packages for anything shared.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lowkeylab/agentloop/store"
)

// Store keeps sessions in a map guarded by a mutex. When created with
// a directory, every Save also writes the session to disk and sessions
// are reloaded on startup.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*store.Session
	dir      string
}

// New creates an in-memory store with no persistence.
func New() *Store {
	return &Store{sessions: make(map[string]*store.Session)}
}

// NewWithDir creates a store that mirrors sessions to JSON files under
// dir, loading any existing ones.
func NewWithDir(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	s := &Store{
		sessions: make(map[string]*store.Session),
		dir:      dir,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// GetOrCreate implements store.Store. The returned session is a copy;
// mutations are private to the caller until Save.
func (s *Store) GetOrCreate(ctx context.Context, key string) (*store.Session, error) {
	if key == "" {
		return nil, fmt.Errorf("session key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[key]; ok {
		return sess.Clone(), nil
	}

	sess := store.NewSession(key)
	s.sessions[key] = sess
	return sess.Clone(), nil
}

// Save implements store.Store.
func (s *Store) Save(ctx context.Context, session *store.Session) error {
	if session == nil || session.Key == "" {
		return fmt.Errorf("session key cannot be empty")
	}

	snapshot := session.Clone()
	snapshot.Updated = time.Now()

	s.mu.Lock()
	s.sessions[snapshot.Key] = snapshot
	s.mu.Unlock()

	if s.dir == "" {
		return nil
	}
	return s.writeFile(snapshot)
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()

	if s.dir == "" {
		return nil
	}
	path, err := s.sessionPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Keys returns all session keys, unordered.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.sessions))
	for key := range s.sessions {
		keys = append(keys, key)
	}
	return keys
}

// sanitizeFilename converts a session key into a cross-platform safe
// filename. Keys use "channel:chatID" but ':' is the volume separator
// on Windows, so it is replaced with '_'. The original key is preserved
// inside the JSON file.
func sanitizeFilename(key string) string {
	return strings.ReplaceAll(key, ":", "_")
}

func (s *Store) sessionPath(key string) (string, error) {
	filename := sanitizeFilename(key)
	// filepath.IsLocal rejects empty names, "..", absolute paths, and
	// OS-reserved device names. The extra checks reject "." and
	// directory separators so the file always lands inside s.dir.
	if filename == "." || !filepath.IsLocal(filename) || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("session key %q is not a valid filename: %w", key, os.ErrInvalid)
	}
	return filepath.Join(s.dir, filename+".json"), nil
}

// writeFile persists a session snapshot with a temp-file write and
// rename, so a crash mid-write never leaves a torn file.
func (s *Store) writeFile(snapshot *store.Session) error {
	path, err := s.sessionPath(snapshot.Key)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.dir, "session-*.tmp")
	if err != nil {
		return err
	}

	tmpPath := tmpFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	cleanup = false
	return nil
}

func (s *Store) load() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}

		var sess store.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		if sess.Key == "" {
			continue
		}
		s.sessions[sess.Key] = &sess
	}
	return nil
}
