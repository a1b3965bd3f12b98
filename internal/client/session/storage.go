// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the session pair across process restarts.
//
// Load returns a zero Pair (not an error) when no session has ever been
// saved; corruption is also treated as absence so a damaged file never
// wedges the client.
type Store interface {
	Load() (Pair, error)
	Save(pair Pair) error
	Clear() error
}

// # File-Backed Store

// FileStore keeps the pair as a JSON file with owner-only permissions.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore constructs a store writing to path. Parent directories are
// created on the first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted pair, returning a zero Pair when absent or
// unreadable as a session.
func (store *FileStore) Load() (Pair, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	raw, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Pair{}, nil
		}
		return Pair{}, fmt.Errorf("reading session file: %w", err)
	}

	var pair Pair
	if err := json.Unmarshal(raw, &pair); err != nil {
		// A corrupt file is indistinguishable from no session.
		return Pair{}, nil
	}
	return pair, nil
}

// Save writes the pair atomically: a temp file in the same directory is
// renamed over the target so a crash never leaves a half-written session.
func (store *FileStore) Save(pair Pair) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(store.path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	raw, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	temp, err := os.CreateTemp(filepath.Dir(store.path), ".session-*")
	if err != nil {
		return fmt.Errorf("creating temp session file: %w", err)
	}
	tempName := temp.Name()

	if _, err := temp.Write(raw); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempName)
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := temp.Chmod(0o600); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempName)
		return fmt.Errorf("restricting session file permissions: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempName)
		return fmt.Errorf("closing session file: %w", err)
	}

	if err := os.Rename(tempName, store.path); err != nil {
		_ = os.Remove(tempName)
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}

// Clear removes the persisted session. Clearing an absent session is not
// an error.
func (store *FileStore) Clear() error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := os.Remove(store.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

// # In-Memory Store

// MemoryStore holds the pair in process memory. Useful for tests and for
// callers that never want tokens on disk.
type MemoryStore struct {
	mu   sync.Mutex
	pair Pair
	set  bool
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (store *MemoryStore) Load() (Pair, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if !store.set {
		return Pair{}, nil
	}
	return store.pair, nil
}

func (store *MemoryStore) Save(pair Pair) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.pair = pair
	store.set = true
	return nil
}

func (store *MemoryStore) Clear() error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.pair = Pair{}
	store.set = false
	return nil
}
