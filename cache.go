package ejs

import "sync"

// Cache memoizes compiled templates by filename for the lifetime of the
// process (or until Reset). It is an explicit service: create one, hand it
// to an Engine, share it between engines if desired. Entries are never
// evicted.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Template
}

// NewCache creates an empty template cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Template)}
}

// Get returns the cached template for a filename.
func (c *Cache) Get(filename string) (*Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.entries[filename]
	return t, ok
}

// Set stores a compiled template. Last write wins.
func (c *Cache) Set(filename string, t *Template) {
	c.mu.Lock()
	c.entries[filename] = t
	c.mu.Unlock()
}

// Reset drops all entries.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]*Template)
	c.mu.Unlock()
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
