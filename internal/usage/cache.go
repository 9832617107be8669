// Package usage caches per-account usage and suspension state so callers
// get an instant answer without re-probing the broker.
package usage

import (
	"sync"
	"time"

	"github.com/accshift/accshift/internal/broker"
)

// Snapshot is one account's cached usage and suspension state. A stale
// snapshot is still returned, tagged, so callers can keep showing the last
// known figures instead of flickering to unknown.
type Snapshot struct {
	CurrentUsage     int       `json:"currentUsage"`
	UsageLimit       int       `json:"usageLimit"`
	Percentage       float64   `json:"percentage"`
	Suspended        bool      `json:"suspended"`
	SuspensionReason string    `json:"suspensionReason,omitempty"`
	CapturedAt       time.Time `json:"capturedAt"`
	Stale            bool      `json:"stale"`
}

// Cache is an in-memory usage cache. Reads never block on network I/O.
//
// It enforces the sticky-ban rule: once suspended=true is recorded, no
// unknown or stale read clears it — only a fresh probe that explicitly
// reports the account as not suspended. Callers never re-check this.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Snapshot
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Snapshot)}
}

// Get returns the cached snapshot for name, if any.
func (c *Cache) Get(name string) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.entries[name]
	return snap, ok
}

// Put records the outcome of a probe and clears staleness, honoring the
// sticky-ban rule for probes that could not determine suspension. The
// stored snapshot is returned.
func (c *Cache) Put(name string, res broker.ProbeResult) Snapshot {
	snap := Snapshot{CapturedAt: time.Now()}
	if res.Usage != nil {
		snap.CurrentUsage = res.Usage.CurrentUsage
		snap.UsageLimit = res.Usage.UsageLimit
		if snap.UsageLimit > 0 {
			snap.Percentage = float64(snap.CurrentUsage) / float64(snap.UsageLimit) * 100
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, hadPrev := c.entries[name]

	switch res.Status {
	case broker.Suspended:
		snap.Suspended = true
		snap.SuspensionReason = res.Reason
	case broker.SuspensionCleared:
		// Explicitly not suspended; a recorded ban is cleared.
	case broker.SuspensionUnknown:
		if hadPrev && prev.Suspended {
			snap.Suspended = true
			snap.SuspensionReason = prev.SuspensionReason
		}
	}

	// An unknown probe carries no figures; keep the last known ones.
	if res.Usage == nil && hadPrev {
		snap.CurrentUsage = prev.CurrentUsage
		snap.UsageLimit = prev.UsageLimit
		snap.Percentage = prev.Percentage
	}

	c.entries[name] = snap
	return snap
}

// Seed restores a snapshot from durable state, typically after a restart
// left the cache cold. A live entry is never overwritten.
func (c *Cache) Seed(name string, snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; !ok {
		c.entries[name] = snap
	}
}

// Invalidate tags the snapshot as stale without deleting it.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap, ok := c.entries[name]; ok {
		snap.Stale = true
		c.entries[name] = snap
	}
}

// Drop removes the entry entirely, for deleted accounts.
func (c *Cache) Drop(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}
