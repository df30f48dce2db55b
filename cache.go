package arbor

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
)

// toolCache holds TTL-bounded results private to one WithCache wrapper.
// Two wrappers around the same underlying tool never share entries.
type toolCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	value   string
	expires time.Time
}

// WithCache returns a tool that serves repeated inputs from a private cache.
// Entries are keyed by the exact input value and expire after ttl. Failures
// are never cached, so transient errors are retried on the next call rather
// than pinned for the TTL window.
func (t *Tool) WithCache(ttl time.Duration) *Tool {
	inner := t.invoke
	name := t.desc.Name
	cache := &toolCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}

	return t.wrap(func(ctx context.Context, input string) Outcome[string] {
		if value, ok := cache.get(input); ok {
			capitan.Emit(ctx, ToolCacheHit, FieldTool.Field(name))
			return Success(value)
		}
		capitan.Emit(ctx, ToolCacheMiss, FieldTool.Field(name))

		out := inner(ctx, input)
		if out.Ok() {
			cache.put(input, out.MustValue())
		}
		return out
	})
}

func (c *toolCache) get(input string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[input]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expires) {
		delete(c.entries, input)
		return "", false
	}
	return entry.value, true
}

func (c *toolCache) put(input, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Drop any expired entries while we hold the lock.
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}

	c.entries[input] = cacheEntry{value: value, expires: now.Add(c.ttl)}
}
