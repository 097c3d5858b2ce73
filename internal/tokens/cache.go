package tokens

import "sync"

// Scope is the set of permissions granted to a token. Keys are scope names,
// stored as a JSONB object in the tokens table.
type Scope map[string]bool

// Entry is the cached record for one API token.
type Entry struct {
	RateLimit int
	Scope     Scope
}

// Cache is the in-memory token store the request path reads from. It starts
// out not ready; Replace installs a fresh snapshot atomically.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCache returns an empty, not-yet-ready cache.
func NewCache() *Cache {
	return &Cache{}
}

// Ready reports whether the cache has been populated at least once.
func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries != nil
}

// Replace swaps the full token snapshot.
func (c *Cache) Replace(m map[string]Entry) {
	entries := make(map[string]Entry, len(m))
	for k, v := range m {
		entries[k] = v
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
}

// Validate reports whether the token is known.
func (c *Cache) Validate(token string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[token]
	return ok
}

// RateLimit returns the per-interval request budget for the token. Unknown
// tokens get 0, which disables the token limiter for them.
func (c *Cache) RateLimit(token string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[token].RateLimit
}

// HasScope reports whether the token carries the named scope.
func (c *Cache) HasScope(token, scope string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[token]
	return ok && e.Scope[scope]
}
