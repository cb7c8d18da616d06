package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

//go:generate go tool mockgen -destination=mock_store.go -package=settings . Store

// Store is the storage region holding the encoded record.
type Store interface {
	// Load returns the stored image, or ErrNotFound if nothing was saved.
	Load() ([]byte, error)
	// Save replaces the stored image. It must not leave a partial image
	// behind on failure.
	Save(p []byte) error
}

// FileStore keeps the record in a single file, replaced atomically through
// a temporary file and rename.
type FileStore struct {
	Path string
}

func (s FileStore) Load() ([]byte, error) {
	p, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s FileStore) Save(p []byte) error {
	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(p); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// MemStore keeps the record in memory.
type MemStore struct {
	mu   sync.Mutex
	data []byte
}

func (s *MemStore) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

func (s *MemStore) Save(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), p...)
	return nil
}
