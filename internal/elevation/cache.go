package elevation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CacheFileName is the fixed name of the persisted lookup response.
const CacheFileName = "elevation_data.json"

// FileCache persists the last successful lookup response body verbatim.
//
// The cache is keyed by nothing but its file name: whatever was stored last is
// returned for every later request, whatever box or resolution it asks for.
type FileCache struct {
	path string
}

// NewFileCache creates a cache stored as CacheFileName inside dir.
func NewFileCache(dir string) *FileCache {
	return &FileCache{path: filepath.Join(dir, CacheFileName)}
}

// Path returns the cache file location.
func (c *FileCache) Path() string {
	return c.path
}

// Load returns the cached body. ok is false when nothing is cached.
func (c *FileCache) Load() (data []byte, ok bool, err error) {
	data, err = os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading %s: %v", ErrCacheIO, c.path, err)
	}
	return data, true, nil
}

// Store overwrites the cache with data, creating the directory if needed.
func (c *FileCache) Store(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrCacheIO, filepath.Dir(c.path), err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrCacheIO, c.path, err)
	}
	return nil
}

// Clear removes the cache file. A missing file is not an error.
func (c *FileCache) Clear() error {
	err := os.Remove(c.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: removing %s: %v", ErrCacheIO, c.path, err)
	}
	return nil
}
