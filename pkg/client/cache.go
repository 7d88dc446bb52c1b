package client

import (
	"strings"
	"sync"
	"time"
)

// MirrorEntry is one locally remembered roast, keyed by the same
// (username, language, model) triple the server uses.
type MirrorEntry struct {
	Username  string
	Language  string
	Model     string
	Result    string
	AvatarURL string
	Timestamp time.Time
}

// MirrorCache is a size-bounded local copy of recent results. Capacity
// eviction drops the oldest entry; freshness mirrors the server's 24h
// window but is checked independently.
type MirrorCache struct {
	mu        sync.Mutex
	entries   []MirrorEntry
	capacity  int
	freshness time.Duration
	now       func() time.Time
}

// NewMirrorCache creates a cache holding at most capacity entries, each
// reusable within the freshness window.
func NewMirrorCache(capacity int, freshness time.Duration) *MirrorCache {
	return &MirrorCache{
		capacity:  capacity,
		freshness: freshness,
		now:       time.Now,
	}
}

// Lookup returns a fresh entry for the triple, or nil.
func (c *MirrorCache) Lookup(username, language, model string) *MirrorEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for i := range c.entries {
		e := &c.entries[i]
		if strings.EqualFold(e.Username, username) &&
			e.Language == language &&
			e.Model == model &&
			now.Sub(e.Timestamp) < c.freshness {
			copied := *e
			return &copied
		}
	}
	return nil
}

// Add records a result, replacing any existing entry for the triple and
// evicting the oldest entries past capacity.
func (c *MirrorCache) Add(entry MirrorEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.entries[:0]
	for _, e := range c.entries {
		if strings.EqualFold(e.Username, entry.Username) &&
			e.Language == entry.Language &&
			e.Model == entry.Model {
			continue
		}
		kept = append(kept, e)
	}
	c.entries = kept

	entry.Timestamp = c.now()
	c.entries = append(c.entries, entry)
	if len(c.entries) > c.capacity {
		c.entries = c.entries[len(c.entries)-c.capacity:]
	}
}

// Len returns the number of cached entries.
func (c *MirrorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
