// Package draft persists an in-progress assessment session between runs.
//
// A FileStore keeps the session as indented JSON in a single file. Writes go
// through a temp file and rename while holding an advisory flock on a sibling
// ".lock" file, so a reader in another process never sees a partial draft.
package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/harrison/bshape/internal/models"
)

// ErrNoDraft is returned by Load when no draft has been saved.
var ErrNoDraft = errors.New("no saved draft")

// FileStore saves one session draft at a fixed path.
type FileStore struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// NewFileStore creates a store for the draft file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the draft file location.
func (fs *FileStore) Path() string {
	return fs.path
}

// Save writes the session, replacing any earlier draft.
func (fs *FileStore) Save(s *models.Session) error {
	if s == nil {
		return fmt.Errorf("cannot save nil session")
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	return fs.withLock(func() error {
		return atomicWrite(fs.path, data)
	})
}

// Load reads the saved session, or returns ErrNoDraft.
func (fs *FileStore) Load() (*models.Session, error) {
	var data []byte
	err := fs.withLock(func() error {
		var readErr error
		data, readErr = os.ReadFile(fs.path)
		return readErr
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoDraft
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read draft %s: %w", fs.path, err)
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse draft %s: %w", fs.path, err)
	}
	return &s, nil
}

// Clear removes the draft. Clearing when no draft exists is not an error.
func (fs *FileStore) Clear() error {
	return fs.withLock(func() error {
		if err := os.Remove(fs.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove draft %s: %w", fs.path, err)
		}
		return nil
	})
}

// withLock runs fn holding both the in-process mutex and the file lock.
func (fs *FileStore) withLock(fn func() error) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(fs.path), 0700); err != nil {
		return fmt.Errorf("failed to create draft directory: %w", err)
	}
	if err := fs.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", fs.lock.Path(), err)
	}
	defer fs.lock.Unlock()

	return fn()
}

// atomicWrite replaces path with data via a temp file in the same directory.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".draft-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	// Drafts hold sensitive answers; keep them private to the user.
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	return nil
}

// MemoryStore keeps the draft in memory; used when no draft path is configured.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save stores a JSON copy of the session.
func (ms *MemoryStore) Save(s *models.Session) error {
	if s == nil {
		return fmt.Errorf("cannot save nil session")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	ms.mu.Lock()
	ms.data = data
	ms.mu.Unlock()
	return nil
}

// Load returns a copy of the stored session, or ErrNoDraft.
func (ms *MemoryStore) Load() (*models.Session, error) {
	ms.mu.Lock()
	data := ms.data
	ms.mu.Unlock()
	if data == nil {
		return nil, ErrNoDraft
	}
	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse draft: %w", err)
	}
	return &s, nil
}

// Clear discards the stored session.
func (ms *MemoryStore) Clear() error {
	ms.mu.Lock()
	ms.data = nil
	ms.mu.Unlock()
	return nil
}
