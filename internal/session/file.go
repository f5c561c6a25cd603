// ABOUTME: JSON-file session store kept in the XDG config directory
// ABOUTME: Every write rewrites session.json with owner-only permissions

package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileName is the session file inside the config directory.
const FileName = "session.json"

// FileStore persists the session as a single JSON object. The mutex only
// guards this process; two processes writing at once race, last write wins.
type FileStore struct {
	configDir string
	mu        sync.Mutex
}

func NewFileStore(configDir string) *FileStore {
	return &FileStore{configDir: configDir}
}

func (fs *FileStore) path() string {
	return filepath.Join(fs.configDir, FileName)
}

// load reads the file. A missing or corrupt file is an empty session.
func (fs *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(fs.path())
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		// Invalid JSON, start fresh
		return map[string]string{}, nil
	}
	return values, nil
}

func (fs *FileStore) save(values map[string]string) error {
	if err := os.MkdirAll(fs.configDir, 0700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	tmp := fs.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return os.Rename(tmp, fs.path())
}

func (fs *FileStore) Get(key string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	values, err := fs.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	values, err := fs.load()
	if err != nil {
		return err
	}
	values[key] = value
	return fs.save(values)
}

func (fs *FileStore) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	values, err := fs.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return fs.save(values)
}

func (fs *FileStore) Keys() ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	values, err := fs.load()
	if err != nil {
		return nil, err
	}
	return sortedKeys(values), nil
}

func (fs *FileStore) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	err := os.Remove(fs.path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

func (fs *FileStore) Close() error { return nil }
