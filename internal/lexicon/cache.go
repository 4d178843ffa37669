// Package lexicon is the in-memory translation cache consulted before any
// provider call. It layers three tables under one lookup: a read-only static
// dictionary, the custom dictionary loaded at session start, and entries
// learned from providers during the current process.
package lexicon

import (
	"strings"
	"sync"
)

// Sizes reports the number of entries in each table.
type Sizes struct {
	Static  int
	Custom  int
	Learned int
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	static  map[string]string
	custom  map[string]string
	learned map[string]string
}

// New returns a cache seeded with the built-in dictionary and custom.
func New(custom map[string]string) *Cache {
	return NewWithStatic(builtin, custom)
}

// NewWithStatic returns a cache over an explicit static table. Keys of both
// tables are normalized on the way in.
func NewWithStatic(static, custom map[string]string) *Cache {
	return &Cache{
		static:  normalizeKeys(static),
		custom:  normalizeKeys(custom),
		learned: make(map[string]string),
	}
}

func normalizeKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if IsBlank(k) || strings.TrimSpace(v) == "" {
			continue
		}
		out[Normalize(k)] = v
	}
	return out
}

// Lookup returns the known translation of text. Learned entries shadow the
// custom dictionary, which shadows the static one. Blank text never hits.
func (c *Cache) Lookup(text string) (string, bool) {
	if IsBlank(text) {
		return "", false
	}
	key := Normalize(text)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, ok := c.learned[key]; ok {
		return v, true
	}
	if v, ok := c.custom[key]; ok {
		return v, true
	}
	v, ok := c.static[key]
	return v, ok
}

// Record stores a translation learned from a provider. Blank source or
// translation is ignored.
func (c *Cache) Record(text, translation string) {
	if IsBlank(text) || strings.TrimSpace(translation) == "" {
		return
	}
	key := Normalize(text)

	c.mu.Lock()
	c.learned[key] = translation
	c.mu.Unlock()
}

// SetCustom replaces the custom dictionary, typically with a freshly loaded
// document at session start. Learned entries are kept.
func (c *Cache) SetCustom(custom map[string]string) {
	n := normalizeKeys(custom)

	c.mu.Lock()
	c.custom = n
	c.mu.Unlock()
}

// MergeForExport returns custom and learned entries as one table, learned
// winning on conflict. The static dictionary is not included.
func (c *Cache) MergeForExport() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.custom)+len(c.learned))
	for k, v := range c.custom {
		out[k] = v
	}
	for k, v := range c.learned {
		out[k] = v
	}
	return out
}

// Learned returns a copy of the entries recorded since the last ClearLearned.
func (c *Cache) Learned() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.learned))
	for k, v := range c.learned {
		out[k] = v
	}
	return out
}

// ClearLearned drops every learned entry.
func (c *Cache) ClearLearned() {
	c.mu.Lock()
	c.learned = make(map[string]string)
	c.mu.Unlock()
}

func (c *Cache) Sizes() Sizes {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Sizes{Static: len(c.static), Custom: len(c.custom), Learned: len(c.learned)}
}
