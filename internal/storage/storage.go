package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Adapter persists a single serialized document under one fixed key,
// mirroring the browser's localStorage entry the dashboard originally used.
type Adapter interface {
	// Load returns the stored document. ok is false when nothing has been
	// stored yet (first run); that is not an error.
	Load() (data []byte, ok bool, err error)
	Save(data []byte) error
}

// FileAdapter stores the document as a single JSON file on disk.
type FileAdapter struct {
	path string
}

func NewFileAdapter(path string) *FileAdapter {
	return &FileAdapter{path: path}
}

func (f *FileAdapter) Load() ([]byte, bool, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: read %s: %w", f.path, err)
	}
	return data, true, nil
}

func (f *FileAdapter) Save(data []byte) error {
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("storage: mkdir %s: %w", dir, err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("storage: rename %s: %w", tmp, err)
	}
	return nil
}

// MemAdapter keeps the document in memory. Used by tests and ephemeral runs.
type MemAdapter struct {
	mu   sync.Mutex
	data []byte
	set  bool

	// FailSaves makes Save return an error, for exercising the store's
	// best-effort persistence path.
	FailSaves bool
}

func NewMemAdapter() *MemAdapter { return &MemAdapter{} }

func (m *MemAdapter) Load() ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, false, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, true, nil
}

func (m *MemAdapter) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves {
		return errors.New("storage: save disabled")
	}
	m.data = make([]byte, len(data))
	copy(m.data, data)
	m.set = true
	return nil
}
