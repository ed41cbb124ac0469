package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// File keeps every item in a single YAML document on disk. Each write
// replaces the file atomically.
type File struct {
	mu    sync.Mutex
	path  string
	items map[string]string
}

// NewFile opens the document at path, creating its directory if needed.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	f := &File{path: path, items: make(map[string]string)}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}
	if err := yaml.Unmarshal(data, &f.items); err != nil {
		return nil, fmt.Errorf("failed to parse storage file %s: %w", path, err)
	}
	if f.items == nil {
		f.items = make(map[string]string)
	}
	return f, nil
}

func (f *File) GetItem(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.items[key]
	return v, ok, nil
}

func (f *File) SetItem(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, existed := f.items[key]
	f.items[key] = value
	if err := f.flush(); err != nil {
		if existed {
			f.items[key] = prev
		} else {
			delete(f.items, key)
		}
		return err
	}
	return nil
}

func (f *File) flush() error {
	data, err := yaml.Marshal(f.items)
	if err != nil {
		return fmt.Errorf("failed to encode storage: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".local_storage-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}

func (f *File) Close() error { return nil }
