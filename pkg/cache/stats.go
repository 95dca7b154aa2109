package cache

import (
	"fmt"
	"sort"
)

// Stats is a point-in-time snapshot of the cache counters
type Stats struct {
	Hits      int64    `json:"hits"`
	Misses    int64    `json:"misses"`
	Sets      int64    `json:"sets"`
	Deletes   int64    `json:"deletes"`
	Evictions int64    `json:"evictions"`
	HitRate   string   `json:"hitRate"`
	MaxSize   int      `json:"maxSize"`
	Size      int      `json:"size"`
	Keys      []string `json:"keys"`
}

// Stats returns the lifetime counters and the current key set
func (c *TTLCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Sets:      c.sets,
		Deletes:   c.deletes,
		Evictions: c.evictions,
		HitRate:   formatHitRate(c.hits, c.misses),
		MaxSize:   c.maxSize,
		Size:      len(c.items),
		Keys:      keys,
	}
}

func formatHitRate(hits, misses int64) string {
	total := hits + misses
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(hits)/float64(total)*100)
}
