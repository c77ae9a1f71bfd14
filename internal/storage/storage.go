// Package storage persists uploaded file bytes. Metadata lives in the
// database; a Store only maps opaque keys to content.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store reads and writes file content by key.
type Store interface {
	Save(key string, r io.Reader) error
	Open(key string) (io.ReadCloser, error)
	Delete(key string) error
}

// NewKey returns a fresh opaque storage key, sharded by its first byte to
// keep directories small.
func NewKey() string {
	id := uuid.New().String()
	return filepath.Join(id[:2], id)
}

// LocalStore keeps content on the local filesystem under a base directory.
type LocalStore struct {
	base string
}

// NewLocalStore creates the base directory if needed.
func NewLocalStore(base string) (*LocalStore, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{base: base}, nil
}

// Save writes the content under the key, creating the shard directory.
func (s *LocalStore) Save(key string, r io.Reader) error {
	path := filepath.Join(s.base, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create shard dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Open returns a reader for the stored content.
func (s *LocalStore) Open(key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.base, key))
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// Delete removes the stored content. Missing content is not an error.
func (s *LocalStore) Delete(key string) error {
	err := os.Remove(filepath.Join(s.base, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}
