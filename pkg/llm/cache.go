package llm

import "sync"

// PromptCache stores built instruction text so repeated steps do not
// rebuild identical prompts. It is constructed once and passed to whoever
// builds prompts; there is no package-level cache.
type PromptCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewPromptCache creates an empty cache.
func NewPromptCache() *PromptCache {
	return &PromptCache{entries: make(map[string]string)}
}

// Get returns the cached text for key, if present.
func (c *PromptCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.entries[key]
	return text, ok
}

// GetOrBuild returns the cached text for key, building and storing it on a
// miss.
func (c *PromptCache) GetOrBuild(key string, build func() string) string {
	if text, ok := c.Get(key); ok {
		return text
	}
	text := build()
	c.mu.Lock()
	c.entries[key] = text
	c.mu.Unlock()
	return text
}
