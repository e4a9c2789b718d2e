package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"storefront/internal/logging"

	"gopkg.in/yaml.v3"
)

// FileStore keeps the slot in a small YAML document, one key per line.
// Other keys in the document are preserved.
type FileStore struct {
	mu   sync.Mutex
	path string
	key  string
}

// NewFileStore returns a FileStore at path. The file is created on first Save.
func NewFileStore(path, key string) *FileStore {
	return &FileStore{path: path, key: key}
}

func (f *FileStore) read() (map[string]string, error) {
	doc := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", f.path, err)
	}
	if doc == nil {
		doc = make(map[string]string)
	}
	return doc, nil
}

// write replaces the file atomically so watchers never observe a partial document.
func (f *FileStore) write(doc map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal slot: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		logging.StoreDebug("Failed to chmod %s: %v", tmp.Name(), err)
	}
	return os.Rename(tmp.Name(), f.path)
}

// Load returns the stored token or "".
func (f *FileStore) Load(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read()
	if err != nil {
		return "", err
	}
	return doc[f.key], nil
}

// Save writes the token.
func (f *FileStore) Save(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read()
	if err != nil {
		return err
	}
	doc[f.key] = token
	if err := f.write(doc); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to save %s to %s: %v", f.key, f.path, err)
		return err
	}
	logging.StoreDebug("Saved %s to %s", f.key, f.path)
	return nil
}

// Delete removes the key, leaving other keys untouched.
func (f *FileStore) Delete(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := doc[f.key]; !ok {
		return nil
	}
	delete(doc, f.key)
	return f.write(doc)
}

// Path returns the backing file.
func (f *FileStore) Path() string { return f.path }

// Close is a no-op.
func (f *FileStore) Close() error { return nil }
