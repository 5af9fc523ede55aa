// Package cache holds the read-side cache of per-user stats aggregates.
package cache

import (
	"log/slog"
	"unsafe"

	"github.com/coocood/freecache"
	"github.com/goccy/go-json"

	"github.com/ippiapp/ippi-server/internal/domain"
)

// StatsCache caches committed aggregates by user ID.
// Writers must Invalidate after every commit; readers fall back to the store on a miss.
type StatsCache interface {
	Get(userID string) (*domain.UserStats, bool)
	Set(userID string, stats *domain.UserStats)
	Invalidate(userID string)
}

// Freecache is a StatsCache backed by a fixed-size freecache.Cache.
type Freecache struct {
	cache  *freecache.Cache
	ttl    int
	logger *slog.Logger
}

// New returns a freecache-backed cache, or a no-op cache when sizeMB or ttlSeconds is not positive.
func New(sizeMB, ttlSeconds int, logger *slog.Logger) StatsCache {
	if sizeMB <= 0 || ttlSeconds <= 0 {
		logger.Info("stats cache disabled")
		return Noop{}
	}

	logger.Info("stats cache initialized", "size_mb", sizeMB, "ttl_seconds", ttlSeconds)
	return &Freecache{
		cache:  freecache.NewCache(sizeMB * 1024 * 1024),
		ttl:    ttlSeconds,
		logger: logger,
	}
}

// unsafeStringToBytes converts string to []byte without allocation.
// freecache copies keys internally and never writes to them.
func unsafeStringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func (c *Freecache) Get(userID string) (*domain.UserStats, bool) {
	val, err := c.cache.Get(unsafeStringToBytes(userID))
	if err != nil {
		return nil, false
	}

	var stats domain.UserStats
	if err := json.Unmarshal(val, &stats); err != nil {
		c.logger.Warn("dropping undecodable cache entry", "user_id", userID, "error", err)
		c.cache.Del(unsafeStringToBytes(userID))
		return nil, false
	}
	return &stats, true
}

func (c *Freecache) Set(userID string, stats *domain.UserStats) {
	val, err := json.Marshal(stats)
	if err != nil {
		c.logger.Warn("failed to encode stats for cache", "user_id", userID, "error", err)
		return
	}
	if err := c.cache.Set(unsafeStringToBytes(userID), val, c.ttl); err != nil {
		c.logger.Debug("stats cache set rejected", "user_id", userID, "error", err)
	}
}

func (c *Freecache) Invalidate(userID string) {
	c.cache.Del(unsafeStringToBytes(userID))
}

// Noop is the cache used when caching is disabled.
type Noop struct{}

func (Noop) Get(_ string) (*domain.UserStats, bool) { return nil, false }
func (Noop) Set(_ string, _ *domain.UserStats)      {}
func (Noop) Invalidate(_ string)                    {}
