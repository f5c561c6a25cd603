// ABOUTME: Key-value store abstraction behind the persisted session
// ABOUTME: Open picks the file or SQLite backend from configuration

package session

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/collabfs/collabfs-cli/internal/config"
)

// Store is a flat string key-value store. Missing keys read as "".
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Keys() ([]string, error)
	Clear() error
	Close() error
}

// Open returns the store selected by cfg.SessionBackend, rooted in cfg.ConfigDir.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.SessionBackend {
	case config.BackendSQLite:
		return OpenSQLite(filepath.Join(cfg.ConfigDir, "session.db"))
	case config.BackendFile, "":
		return NewFileStore(cfg.ConfigDir), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

// MemoryStore keeps everything in a map. Used by tests and as a scratch store.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedKeys(m.data), nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func sortedKeys(data map[string]string) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
