package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/envimetry/pipeline/internal/telemetry"
)

// FileCache stores one JSON file per key under a directory.
type FileCache struct {
	dir    string
	clock  telemetry.Clock
	logger *zap.Logger
}

// NewFileCache creates the directory if needed.
func NewFileCache(dir string, clock telemetry.Clock, logger *zap.Logger) (*FileCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	return &FileCache{dir: dir, clock: clock, logger: logger}, nil
}

// Get returns the payload for key if an entry exists and is younger than
// ttl. Corrupt entries are treated as misses and removed.
func (c *FileCache) Get(key string, ttl time.Duration) ([]byte, bool) {
	path := c.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("dropping corrupt cache entry", zap.String("key", key), zap.Error(err))
		_ = os.Remove(path)
		return nil, false
	}
	if !e.fresh(c.clock.Now(), ttl) {
		return nil, false
	}
	return e.Payload, true
}

// Put writes the payload for key, stamping the current time.
func (c *FileCache) Put(key string, payload []byte) error {
	e := entry{CachedAt: c.clock.Now(), Payload: payload}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		return fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	return nil
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}
