// Package prefs stores per-user preferences. The only one today is the push
// notification toggle, consulted by the reminder sender.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Store reads and writes user preferences. Missing users default to
// notifications enabled.
type Store interface {
	NotificationsEnabled(userID string) bool
	SetNotificationsEnabled(userID string, enabled bool) error
}

// MemoryStore keeps preferences in memory; used in tests and by the API
// server when no prefs file is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	disabled map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{disabled: make(map[string]bool)}
}

func (s *MemoryStore) NotificationsEnabled(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.disabled[userID]
}

func (s *MemoryStore) SetNotificationsEnabled(userID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		delete(s.disabled, userID)
	} else {
		s.disabled[userID] = true
	}
	return nil
}

// FileStore persists the toggle map as a JSON file, rewritten on every
// change.
type FileStore struct {
	mu       sync.Mutex
	path     string
	disabled map[string]bool
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, disabled: make(map[string]bool)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prefs file %q: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.disabled); err != nil {
		return nil, fmt.Errorf("failed to parse prefs file %q: %w", path, err)
	}
	return s, nil
}

func (s *FileStore) NotificationsEnabled(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.disabled[userID]
}

func (s *FileStore) SetNotificationsEnabled(userID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		delete(s.disabled, userID)
	} else {
		s.disabled[userID] = true
	}

	data, err := json.MarshalIndent(s.disabled, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode prefs: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write prefs file %q: %w", s.path, err)
	}
	return nil
}
