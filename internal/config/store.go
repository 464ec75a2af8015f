package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// File store constants
const (
	ConfigDirName   = ".vod-downloader"
	ConfigFileName  = "config.toml"
	configFilePerms = 0600
	configDirPerms  = 0755
)

// FileStore is a Preferences implementation persisted as a flat TOML table.
// An empty path keeps values in memory only.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	values map[string]any
}

// DefaultConfigPath returns ~/.vod-downloader/config.toml
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ConfigDirName, ConfigFileName), nil
}

// NewMemoryStore returns a store that is never written to disk
func NewMemoryStore() *FileStore {
	return &FileStore{values: make(map[string]any)}
}

// LoadFileStore reads path if it exists; a missing file yields an empty store
func LoadFileStore(path string) (*FileStore, error) {
	store := &FileStore{path: path, values: make(map[string]any)}
	if _, err := toml.DecodeFile(path, &store.values); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store, nil
		}
		return nil, fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return store, nil
}

// Path returns the backing file path
func (f *FileStore) Path() string {
	return f.path
}

// Save writes the store atomically. It is a no-op for memory stores.
func (f *FileStore) Save() error {
	if f.path == "" {
		return nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(f.path), configDirPerms); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ConfigFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(f.values); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := tmp.Chmod(configFilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FileStore) String(key string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, _ := f.values[key].(string)
	return v
}

func (f *FileStore) SetString(key string, value string) {
	f.set(key, value)
}

// Int returns 0 for missing or non-integer values
func (f *FileStore) Int(key string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	switch v := f.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func (f *FileStore) SetInt(key string, value int) {
	f.set(key, int64(value))
}

func (f *FileStore) BoolWithFallback(key string, fallback bool) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if v, ok := f.values[key].(bool); ok {
		return v
	}
	return fallback
}

func (f *FileStore) SetBool(key string, value bool) {
	f.set(key, value)
}

func (f *FileStore) set(key string, value any) {
	f.mu.Lock()
	f.values[key] = value
	f.mu.Unlock()
}
