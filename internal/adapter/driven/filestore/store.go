// Package filestore implements the SlotStore port as a JSON document on disk.
// It suits single-user CLI installs where running SQLite is unnecessary.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ericfisherdev/authsession/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SlotStore = (*Store)(nil)

// StoreError records a failed file operation on the slot document.
type StoreError struct {
	Op   string // e.g. "read", "decode", "rename"
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store keeps every slot in one JSON object written with 0600 permissions.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a Store at path, creating the parent directory (0700) if needed.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, &StoreError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}
	return &Store{path: path}, nil
}

// DefaultPath returns ~/.authsession/session.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".authsession", "session.json"), nil
}

// Get returns the value stored under key, or ("", nil) if absent.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.load()
	if err != nil {
		return "", err
	}
	return slots[key], nil
}

// Set stores value under key.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.load()
	if err != nil {
		// A corrupt document is replaced rather than blocking new sessions.
		var storeErr *StoreError
		if !errors.As(err, &storeErr) || storeErr.Op != "decode" {
			return err
		}
		slots = map[string]string{}
	}
	slots[key] = value
	return s.save(slots)
}

// Delete removes key. The file itself is removed once no slots remain.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.load()
	if err != nil {
		var storeErr *StoreError
		if errors.As(err, &storeErr) && storeErr.Op == "decode" {
			return s.remove()
		}
		return err
	}
	if _, ok := slots[key]; !ok {
		return nil
	}
	delete(slots, key)
	if len(slots) == 0 {
		return s.remove()
	}
	return s.save(slots)
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, &StoreError{Op: "read", Path: s.path, Err: err}
	}

	slots := map[string]string{}
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, &StoreError{Op: "decode", Path: s.path, Err: err}
	}
	return slots, nil
}

// save writes the document atomically via temp file + rename.
func (s *Store) save(slots map[string]string) error {
	data, err := json.MarshalIndent(slots, "", "  ")
	if err != nil {
		return &StoreError{Op: "encode", Path: s.path, Err: err}
	}
	data = append(data, '\n')

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return &StoreError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return &StoreError{Op: "rename", Path: s.path, Err: err}
	}
	return nil
}

func (s *Store) remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return &StoreError{Op: "remove", Path: s.path, Err: err}
	}
	return nil
}
