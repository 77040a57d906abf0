// Package tokencache persists bearer tokens on disk so repeated invocations
// against the same instance reuse a token until it expires.
package tokencache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Dir returns the directory holding cached tokens.
// SUGAR_PACK_CACHE_DIR overrides the default ~/.cache/sugar-pack.
func Dir() string {
	if d := os.Getenv("SUGAR_PACK_CACHE_DIR"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "sugar-pack")
}

// Cache is a file-backed token store. Each key maps to one JSON file.
type Cache struct {
	dir string
	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, used by tests to move past expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New returns a cache rooted at dir. An empty dir means Dir().
func New(dir string, opts ...Option) *Cache {
	if dir == "" {
		dir = Dir()
	}
	c := &Cache{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the token stored under key when it is present and not expired.
// Unreadable, corrupt or stale entries are reported as absent.
func (c *Cache) Get(key string) (string, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return "", false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", false
	}
	if entry.Key != key || !entry.Valid(c.now()) {
		return "", false
	}
	return entry.Token, true
}

// Put stores token under key, expiring ttl from now. Any prior entry is replaced.
func (c *Cache) Put(key, token string, ttl time.Duration) error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("create token cache dir: %w", err)
	}

	unlock, err := lockFile(c.path(key) + ".lock")
	if err != nil {
		return err
	}
	defer unlock()

	data, err := json.Marshal(Entry{
		Version:   CacheVersion,
		Key:       key,
		Token:     token,
		ExpiresAt: c.now().Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("encode token entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".token-*")
	if err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write token cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write token cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write token cache: %w", err)
	}
	return nil
}

// Delete drops the entry for key. A missing entry is not an error.
func (c *Cache) Delete(key string) error {
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete cached token: %w", err)
	}
	return nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, fileName(key))
}

// fileName maps a cache key such as "sugarcrm_token:crm.example.com" to a
// safe file name.
func fileName(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String() + ".json"
}
