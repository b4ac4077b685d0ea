package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pizzeria-system/internal/domain"
)

// File keeps one JSON file per document key under a data directory. Writes go
// through a temp file and rename so a crash never leaves a torn document.
type File struct {
	dir string
	mu  sync.Mutex
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) string {
	// keys are internal constants but sanitize anyway
	key = strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return filepath.Join(f.dir, key+".json")
}

func (f *File) Get(_ context.Context, key string, into any) error {
	raw, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: read %s: %v", domain.ErrPersistence, key, err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrPersistence, key, err)
	}
	return nil
}

func (f *File) Put(_ context.Context, key string, doc any) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrPersistence, key, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrPersistence, key, err)
	}
	if err := os.Rename(tmp, f.path(key)); err != nil {
		return fmt.Errorf("%w: rename %s: %v", domain.ErrPersistence, key, err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: delete %s: %v", domain.ErrPersistence, key, err)
	}
	return nil
}
