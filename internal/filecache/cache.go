// Package filecache stores JSON blobs on local disk, one file per key, and
// treats entries older than a caller-supplied TTL as misses.
package filecache

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dealer-workers/internal/common/errors"
	"dealer-workers/internal/common/logger"
	"dealer-workers/internal/common/metrics"
)

const fileExt = ".json"

// Status tags the outcome of a lookup.
type Status int

const (
	StatusMiss Status = iota
	StatusHit
	StatusCorrupt
)

func (s Status) String() string {
	switch s {
	case StatusHit:
		return "hit"
	case StatusCorrupt:
		return "corrupt"
	default:
		return "miss"
	}
}

// Entry is the on-disk record.
type Entry struct {
	Key         string          `json:"key"`
	LastUpdated time.Time       `json:"lastUpdated"`
	Data        json.RawMessage `json:"data"`
}

// Result is returned by Get. Data and LastUpdated are set only on a hit.
type Result struct {
	Status      Status
	Data        json.RawMessage
	LastUpdated time.Time
}

// Hit reports whether the lookup produced usable data.
func (r Result) Hit() bool { return r.Status == StatusHit }

// Cache is safe for concurrent use within a process. Writers to the same key
// race; the last rename wins.
type Cache struct {
	dir    string
	logger logger.Logger
	now    func() time.Time
}

func New(dir string, log logger.Logger) *Cache {
	return &Cache{
		dir:    dir,
		logger: log.WithFields(map[string]interface{}{"component": "filecache"}),
		now:    time.Now,
	}
}

// Dir returns the backing directory.
func (c *Cache) Dir() string { return c.dir }

// path maps a key to its file. PathEscape keeps distinct keys on distinct files.
func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, url.PathEscape(key)+fileExt)
}

// Get reads key and applies ttl. It never fails: missing, stale and unreadable
// entries are reported through Result.Status.
func (c *Cache) Get(key string, ttl time.Duration) Result {
	res := c.get(key, ttl)
	metrics.CacheLookupsTotal.WithLabelValues(res.Status.String()).Inc()
	return res
}

func (c *Cache) get(key string, ttl time.Duration) Result {
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
			return Result{Status: StatusCorrupt}
		}
		return Result{Status: StatusMiss}
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.LastUpdated.IsZero() || len(entry.Data) == 0 {
		c.logger.Warn("cache entry corrupt", map[string]interface{}{
			"key": key,
		})
		return Result{Status: StatusCorrupt}
	}

	if c.now().Sub(entry.LastUpdated) > ttl {
		return Result{Status: StatusMiss}
	}

	return Result{
		Status:      StatusHit,
		Data:        entry.Data,
		LastUpdated: entry.LastUpdated,
	}
}

// GetInto decodes a hit into dst. It returns false on a miss, a corrupt entry or
// data that does not decode into dst.
func (c *Cache) GetInto(key string, ttl time.Duration, dst interface{}) bool {
	res := c.Get(key, ttl)
	if !res.Hit() {
		return false
	}
	if err := json.Unmarshal(res.Data, dst); err != nil {
		c.logger.Warn("cache entry does not match target type", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}
	return true
}

// Set stores value under key, stamped with the current time. Failures are
// logged and dropped.
func (c *Cache) Set(key string, value interface{}) {
	if err := c.write(key, value); err != nil {
		c.logger.Error("cache write failed", map[string]interface{}{
			"key":   key,
			"error": errors.NewCacheIOFailedError(key, err).Details,
		})
	}
}

func (c *Cache) write(key string, value interface{}) error {
	data, ok := value.(json.RawMessage)
	if !ok {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode value: %w", err)
		}
		data = encoded
	}

	raw, err := json.Marshal(Entry{
		Key:         key,
		LastUpdated: c.now().UTC(),
		Data:        data,
	})
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, c.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Clear removes the given keys, or every entry when called without keys.
// It returns the number of entries removed.
func (c *Cache) Clear(keys ...string) int {
	var paths []string
	if len(keys) == 0 {
		matches, err := filepath.Glob(filepath.Join(c.dir, "*"+fileExt))
		if err != nil {
			c.logger.Error("cache clear failed", map[string]interface{}{"error": err.Error()})
			return 0
		}
		paths = matches
	} else {
		for _, k := range keys {
			paths = append(paths, c.path(k))
		}
	}

	removed := 0
	for _, p := range paths {
		if strings.HasPrefix(filepath.Base(p), ".tmp-") {
			continue
		}
		err := os.Remove(p)
		switch {
		case err == nil:
			removed++
		case os.IsNotExist(err):
		default:
			c.logger.Warn("cache entry remove failed", map[string]interface{}{
				"path":  p,
				"error": err.Error(),
			})
		}
	}

	c.logger.Info("cache cleared", map[string]interface{}{
		"requested": len(keys),
		"removed":   removed,
	})
	return removed
}
