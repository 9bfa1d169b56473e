package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when CachePayload format changes
const cacheSchemaVersion uint16 = 1

const cacheFile = "catalog.mp"

// CachePayload is the on-disk form of a fetched catalog.
type CachePayload struct {
	Schema    uint16
	Source    string
	FetchedAt time.Time
	Entries   []SyntaxEntry
}

// Cache keeps the last fetched catalog on disk so completions are available
// when the catalog service cannot be reached. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// DefaultCacheDir is $XDG_CACHE_HOME/<app>, or ~/.cache/<app>.
func DefaultCacheDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// OpenCache creates dir if needed and returns a cache stored in it.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) path() string { return filepath.Join(c.dir, cacheFile) }

// Put writes the catalog atomically.
func (c *Cache) Put(source string, entries []SyntaxEntry) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name()) //nolint:errcheck // gone after a successful rename

	payload := &CachePayload{
		Schema:    cacheSchemaVersion,
		Source:    source,
		FetchedAt: time.Now().UTC(),
		Entries:   entries,
	}
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		return fmt.Errorf("encoding catalog cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), c.path())
}

// Get reads the cached catalog. A missing file or an older schema reports
// false without error.
func (c *Cache) Get() (*CachePayload, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload CachePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("decoding catalog cache: %w", err)
	}
	if payload.Schema != cacheSchemaVersion {
		return nil, false, nil
	}
	return &payload, true, nil
}
