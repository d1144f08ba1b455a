package schema

import (
	"log/slog"
	"sync"
	"time"

	"tagforge/internal/logging"
)

// Cache serves schema snapshots with TTL-based refresh from the backing file.
//
// Reads never block on a reload: callers always get the current snapshot,
// and at most one caller performs the swap when the TTL expires. A failed
// reload keeps the previous snapshot and is retried after another TTL.
type Cache struct {
	path   string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	snapshot *Schema
	loadedAt time.Time

	reloadMu sync.Mutex
}

// NewCache loads the schema file and returns a cache over it. The initial
// load failing is fatal; later refresh failures only log.
func NewCache(path string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	snapshot, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	c := &Cache{
		path:     path,
		ttl:      ttl,
		logger:   logging.WithComponent(logger, "schema"),
		now:      time.Now,
		snapshot: snapshot,
	}
	c.loadedAt = c.now()
	return c, nil
}

// Current returns the active schema snapshot, refreshing it first when the
// TTL has expired.
func (c *Cache) Current() *Schema {
	c.mu.RLock()
	snapshot := c.snapshot
	stale := c.now().Sub(c.loadedAt) >= c.ttl
	c.mu.RUnlock()

	if !stale {
		return snapshot
	}

	// Only one caller reloads; everyone else keeps the old snapshot.
	if !c.reloadMu.TryLock() {
		return snapshot
	}
	defer c.reloadMu.Unlock()

	c.mu.RLock()
	snapshot = c.snapshot
	stale = c.now().Sub(c.loadedAt) >= c.ttl
	c.mu.RUnlock()
	if !stale {
		return snapshot
	}

	fresh, err := LoadFile(c.path)
	if err != nil {
		c.logger.Warn("schema refresh failed, keeping previous snapshot",
			logging.Error(err),
			logging.String(logging.FieldEventType, "schema_refresh_failed"),
			logging.String(logging.FieldErrorHint, "check the schema file for syntax errors"),
		)
		c.mu.Lock()
		c.loadedAt = c.now()
		snapshot = c.snapshot
		c.mu.Unlock()
		return snapshot
	}

	c.mu.Lock()
	c.snapshot = fresh
	c.loadedAt = c.now()
	c.mu.Unlock()
	return fresh
}

// Path returns the backing file location.
func (c *Cache) Path() string {
	return c.path
}
