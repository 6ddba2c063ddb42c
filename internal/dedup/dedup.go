// Package dedup implements a bounded fingerprint set for suppressing
// duplicate webhook deliveries.
//
// Slack redelivers an event whenever the endpoint is slow to acknowledge,
// so the same event can arrive more than once. The gate remembers the last
// N fingerprints and drops anything it has already seen. Eviction is FIFO:
// once the cap is reached, the oldest fingerprint is forgotten and its
// event would be processed again if redelivered. Best-effort suppression,
// not exactly-once delivery.
//
// Time complexity: O(1) for Seen. Space: O(cap).
package dedup

import "sync"

// DefaultCapacity matches the window the agent historically kept.
const DefaultCapacity = 100

// Gate is a thread-safe bounded membership set keyed by event fingerprint.
type Gate struct {
	mu       sync.Mutex
	capacity int
	ring     []string
	next     int
	index    map[string]struct{}
}

// NewGate creates a gate holding up to capacity fingerprints.
// Panics if capacity < 1.
func NewGate(capacity int) *Gate {
	if capacity < 1 {
		panic("dedup: capacity must be >= 1")
	}
	return &Gate{
		capacity: capacity,
		ring:     make([]string, capacity),
		index:    make(map[string]struct{}, capacity),
	}
}

// Seen reports whether fingerprint was already recorded. On first sight it
// records the fingerprint and returns false, evicting the oldest entry if
// the gate is full.
func (g *Gate) Seen(fingerprint string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.index[fingerprint]; ok {
		return true
	}

	if old := g.ring[g.next]; old != "" {
		delete(g.index, old)
	}
	g.ring[g.next] = fingerprint
	g.next = (g.next + 1) % g.capacity
	g.index[fingerprint] = struct{}{}
	return false
}

// Len returns the number of resident fingerprints.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.index)
}
