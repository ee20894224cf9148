// Package cache keeps parsed documents keyed by URI so unchanged content is
// not parsed and converted twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/conduit-lang/edmxtools/internal/xmlast"
)

// Entry is a cached document together with whatever was derived from it
type Entry struct {
	URI      string
	Hash     string
	Document *xmlast.Document
	// Value holds the converted model, an annotation file or metadata elements
	Value      interface{}
	CachedAt   time.Time
	LastUsedAt time.Time
}

// DocumentCache is a concurrency-safe URI keyed cache
type DocumentCache struct {
	entries map[string]*Entry
	mu      sync.RWMutex
	now     func() time.Time
}

// New creates an empty document cache
func New() *DocumentCache {
	return &DocumentCache{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Hash returns the SHA-256 hex digest of content
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Get retrieves the entry stored for uri
func (c *DocumentCache) Get(uri string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[uri]
	return entry, ok
}

// Lookup returns the entry for uri only when it was built from the same content
func (c *DocumentCache) Lookup(uri, content string) (*Entry, bool) {
	hash := Hash(content)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[uri]
	if !ok || entry.Hash != hash {
		return nil, false
	}
	entry.LastUsedAt = c.now()
	return entry, true
}

// Set stores a document and its derived value for uri, replacing any previous entry
func (c *DocumentCache) Set(uri, content string, doc *xmlast.Document, value interface{}) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry := &Entry{
		URI:        uri,
		Hash:       Hash(content),
		Document:   doc,
		Value:      value,
		CachedAt:   now,
		LastUsedAt: now,
	}
	c.entries[uri] = entry
	return entry
}

// Invalidate removes the entry for uri
func (c *DocumentCache) Invalidate(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, uri)
}

// InvalidateAll clears the entire cache
func (c *DocumentCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
}

// Size returns the number of cached entries
func (c *DocumentCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// URIs returns the cached URIs in no particular order
func (c *DocumentCache) URIs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	uris := make([]string, 0, len(c.entries))
	for uri := range c.entries {
		uris = append(uris, uri)
	}
	return uris
}

// Prune removes entries not used within maxAge and returns how many were removed
func (c *DocumentCache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	pruned := 0
	for uri, entry := range c.entries {
		if now.Sub(entry.LastUsedAt) > maxAge {
			delete(c.entries, uri)
			pruned++
		}
	}
	return pruned
}
