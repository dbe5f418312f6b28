package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"sentilyzer/monitoring"
)

// LRU is an in-process, size-bounded cache. It is safe for concurrent use.
type LRU struct {
	entries *lru.Cache[string, Entry]
}

// NewLRU holds at most size entries; size <= 0 means 10000.
func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		size = 10000
	}
	entries, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, err
	}
	return &LRU{entries: entries}, nil
}

func (c *LRU) Get(_ context.Context, key string) (Entry, bool) {
	entry, ok := c.entries.Get(key)
	if ok {
		monitoring.CacheRequestsTotal.WithLabelValues(BackendLRU, "hit").Inc()
	} else {
		monitoring.CacheRequestsTotal.WithLabelValues(BackendLRU, "miss").Inc()
	}
	return entry, ok
}

func (c *LRU) Add(_ context.Context, key string, entry Entry) {
	c.entries.Add(key, entry)
}

// Len is used by tests.
func (c *LRU) Len() int {
	return c.entries.Len()
}

func (c *LRU) Close() {
	c.entries.Purge()
}
