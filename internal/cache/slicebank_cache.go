// Package cache implements the multi-level SliceBank cache: an in-process
// L1 keyed by (session, stem role) backed by an optional Redis L2, so a
// freshly sliced bank survives a process restart without forcing a
// re-slice.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

// Metrics is a point-in-time snapshot of cache performance, reported the
// way the teacher's multi-level cache does (§StatsInterval logging).
type Metrics struct {
	L1Hits    int64
	L2Hits    int64
	Misses    int64
	Writes    int64
	Evictions int64
}

type memEntry struct {
	bank     *entities.SliceBank
	expireAt time.Time
}

// SliceBankCache fronts SliceBankRepository with an L1 sync.Map and an
// optional L2 Redis layer. Both levels are best-effort: a cache miss or
// error here never fails a request, it just falls through to Postgres.
type SliceBankCache struct {
	redis        *redis.Client // nil when L2 is disabled
	mem          sync.Map      // key -> *memEntry
	enableLevel1 bool
	enableLevel2 bool
	ttl          time.Duration
	logger       *zap.Logger

	mu      sync.Mutex
	metrics Metrics
}

// New constructs a SliceBankCache. redisClient may be nil, which forces
// enableLevel2 off regardless of the config value.
func New(redisClient *redis.Client, enableLevel1, enableLevel2 bool, ttl time.Duration, logger *zap.Logger) *SliceBankCache {
	if redisClient == nil {
		enableLevel2 = false
	}
	c := &SliceBankCache{
		redis:        redisClient,
		enableLevel1: enableLevel1,
		enableLevel2: enableLevel2,
		ttl:          ttl,
		logger:       logger,
	}
	go c.cleanExpiredLoop()
	return c
}

func key(sessionID string, role entities.StemRole) string {
	return fmt.Sprintf("slicebank:%s:%s", sessionID, role)
}

// Get looks up a cached SliceBank for (session, role), checking L1 before
// falling through to L2. A successful L2 hit is promoted back into L1.
func (c *SliceBankCache) Get(ctx context.Context, sessionID string, role entities.StemRole) (*entities.SliceBank, bool) {
	k := key(sessionID, role)

	if c.enableLevel1 {
		if v, ok := c.mem.Load(k); ok {
			entry := v.(*memEntry)
			if time.Now().Before(entry.expireAt) {
				c.record(func(m *Metrics) { m.L1Hits++ })
				return entry.bank, true
			}
			c.mem.Delete(k)
		}
	}

	if c.enableLevel2 {
		data, err := c.redis.Get(ctx, k).Bytes()
		if err == nil {
			var bank entities.SliceBank
			if jsonErr := json.Unmarshal(data, &bank); jsonErr == nil {
				c.record(func(m *Metrics) { m.L2Hits++ })
				if c.enableLevel1 {
					c.mem.Store(k, &memEntry{bank: &bank, expireAt: time.Now().Add(c.ttl)})
				}
				return &bank, true
			}
		} else if err != redis.Nil {
			c.logger.Warn("slice bank cache L2 read failed", zap.Error(err), zap.String("key", k))
		}
	}

	c.record(func(m *Metrics) { m.Misses++ })
	return nil, false
}

// Set writes through to every enabled level.
func (c *SliceBankCache) Set(ctx context.Context, sessionID string, role entities.StemRole, bank *entities.SliceBank) {
	k := key(sessionID, role)

	if c.enableLevel1 {
		c.mem.Store(k, &memEntry{bank: bank, expireAt: time.Now().Add(c.ttl)})
	}

	if c.enableLevel2 {
		data, err := json.Marshal(bank)
		if err != nil {
			c.logger.Warn("slice bank cache marshal failed", zap.Error(err), zap.String("key", k))
		} else if err := c.redis.Set(ctx, k, data, c.ttl).Err(); err != nil {
			c.logger.Warn("slice bank cache L2 write failed", zap.Error(err), zap.String("key", k))
		}
	}

	c.record(func(m *Metrics) { m.Writes++ })
}

// Invalidate removes (session, role) from every enabled level, used when a
// session's stems are re-sliced or deleted.
func (c *SliceBankCache) Invalidate(ctx context.Context, sessionID string, role entities.StemRole) {
	k := key(sessionID, role)
	c.mem.Delete(k)
	if c.enableLevel2 {
		if err := c.redis.Del(ctx, k).Err(); err != nil {
			c.logger.Warn("slice bank cache L2 invalidate failed", zap.Error(err), zap.String("key", k))
		}
	}
}

// Metrics returns a copy of the running counters.
func (c *SliceBankCache) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

func (c *SliceBankCache) record(f func(*Metrics)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f(&c.metrics)
}

func (c *SliceBankCache) cleanExpiredLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		c.cleanExpired()
	}
}

func (c *SliceBankCache) cleanExpired() {
	now := time.Now()
	var stale []string
	c.mem.Range(func(k, v interface{}) bool {
		if entry, ok := v.(*memEntry); ok && now.After(entry.expireAt) {
			stale = append(stale, k.(string))
		}
		return true
	})
	for _, k := range stale {
		c.mem.Delete(k)
	}
	if len(stale) > 0 {
		c.record(func(m *Metrics) { m.Evictions += int64(len(stale)) })
	}
}
