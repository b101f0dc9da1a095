package camera

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

// ErrMalformedRegistry is returned by Load when the registry file exists but
// cannot be decoded. Startup must not continue on a guessed state.
var ErrMalformedRegistry = errors.New("malformed camera registry")

// Store is the persistence abstraction for the camera registry. Save always
// receives the complete registry; there is no partial update.
type Store interface {
	Load() (Registry, error)
	Save(reg Registry) error
}

// FileStore keeps the registry as a single JSON document.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore for the document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the registry document.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements Store.Load. A missing document is an empty registry.
func (s *FileStore) Load() (Registry, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Registry{Data: []Camera{}}, nil
	}
	if err != nil {
		return Registry{}, fmt.Errorf("read camera registry: %w", err)
	}

	var reg Registry
	if err := json.Unmarshal(b, &reg); err != nil {
		return Registry{}, fmt.Errorf("%w: %s: %v", ErrMalformedRegistry, s.path, err)
	}
	if reg.Data == nil {
		reg.Data = []Camera{}
	}
	return reg, nil
}

// Save implements Store.Save. The document is written to a temporary file,
// synced and renamed over the old one, so readers only ever see a complete
// snapshot.
func (s *FileStore) Save(reg Registry) error {
	if reg.Data == nil {
		reg.Data = []Camera{}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}

	b, err := json.MarshalIndent(reg, "", "    ")
	if err != nil {
		return fmt.Errorf("encode camera registry: %w", err)
	}

	pending, err := renameio.NewPendingFile(s.path)
	if err != nil {
		return fmt.Errorf("create pending registry file: %w", err)
	}
	// Cleanup is a no-op once the file has been committed.
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write camera registry: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace camera registry: %w", err)
	}
	return nil
}

// InMemoryStore is a Store that keeps the last saved snapshot in memory.
type InMemoryStore struct {
	mu    sync.Mutex
	reg   Registry
	saves int
	err   error
}

// NewInMemoryStore returns a store holding reg (which may be empty).
func NewInMemoryStore(cams ...Camera) *InMemoryStore {
	return &InMemoryStore{reg: Registry{Data: append([]Camera{}, cams...)}}
}

// Load implements Store.Load.
func (s *InMemoryStore) Load() (Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Clone(), nil
}

// Save implements Store.Save.
func (s *InMemoryStore) Save(reg Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.reg = reg.Clone()
	s.saves++
	return nil
}

// Saves reports how many snapshots were written.
func (s *InMemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// FailSaves makes every following Save return err; nil restores saving.
func (s *InMemoryStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
