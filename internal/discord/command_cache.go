package discord

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const cacheFile = "global.json"

// HashCache remembers the hashes of the last uploaded slash commands.
type HashCache struct {
	path string
}

// NewHashCache stores hashes under dir. An empty dir disables caching and
// returns nil; a nil cache is always stale.
func NewHashCache(dir string) *HashCache {
	if dir == "" {
		return nil
	}
	return &HashCache{path: filepath.Join(dir, cacheFile)}
}

// Load returns the cached hashes. A missing file is an empty cache.
func (c *HashCache) Load() (map[string]string, error) {
	out := make(map[string]string)
	if c == nil {
		return out, nil
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read command cache: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode command cache %s: %w", c.path, err)
	}
	return out, nil
}

func (c *HashCache) Save(hashes map[string]string) error {
	if c == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create command cache dir: %w", err)
	}
	data, err := json.MarshalIndent(hashes, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write command cache: %w", err)
	}
	return nil
}

// Clear removes the cache so the next sync uploads unconditionally.
func (c *HashCache) Clear() error {
	if c == nil {
		return nil
	}
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove command cache: %w", err)
	}
	return nil
}
