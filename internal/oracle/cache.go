package oracle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/robomaint/triage/internal/model"
)

// CacheStats reports cache effectiveness for the stats endpoint.
type CacheStats struct {
	Hits    int     `json:"cache_hits"`
	Misses  int     `json:"cache_misses"`
	HitRate float64 `json:"hit_rate"`
	Size    int     `json:"cache_size"`
}

// responseCache memoizes triage analyses keyed by a fingerprint of record
// identity and content. Bounded: oldest entry is evicted on overflow. A hit
// must be behaviorally indistinguishable from a fresh call; the only
// guarantee is that a response is never served for a different fingerprint.
type responseCache struct {
	mu      sync.Mutex
	max     int
	entries map[string]Analysis
	order   []string
	hits    int
	misses  int
}

func newResponseCache(max int) *responseCache {
	if max <= 0 {
		max = 1000
	}
	return &responseCache{max: max, entries: make(map[string]Analysis)}
}

// fingerprint identifies an analysis request by the fields that shape its
// prompt: source event id, description prefix, severity, error code, joint.
func fingerprint(rec *model.Record) string {
	desc := rec.Description
	if len(desc) > 100 {
		desc = desc[:100]
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s|%s",
		rec.SourceEventID, desc, rec.Severity, rec.ErrorCode, rec.Joint)))
	return hex.EncodeToString(sum[:])
}

func (c *responseCache) get(key string) (Analysis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.entries[key]
	if ok {
		c.hits++
		a.Cached = true
	} else {
		c.misses++
	}
	return a, ok
}

func (c *responseCache) put(key string, a Analysis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		c.entries[key] = a
		return
	}
	if len(c.entries) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = a
	c.order = append(c.order, key)
}

func (c *responseCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total) * 100
	}
	return CacheStats{
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
		Size:    len(c.entries),
	}
}
