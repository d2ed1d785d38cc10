// Package clock implements a Lamport logical clock used to establish
// happens-before relationships between pipeline events recorded on a
// provenance envelope.
package clock

import "sync"

// LamportClock is a monotonic logical counter. It is safe for concurrent
// use by a single run's validators, though the runtime guard serialises
// layer execution and so contention is not expected in practice.
type LamportClock struct {
	mu      sync.Mutex
	counter int64
}

// New returns a clock starting at zero.
func New() *LamportClock {
	return &LamportClock{}
}

// Tick increments the local counter and returns the new value.
func (c *LamportClock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counter++
	return c.counter
}

// Receive merges a remote timestamp using max(local, remote)+1, the
// standard Lamport merge rule, and returns the new local timestamp.
func (c *LamportClock) Receive(remote int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if remote > c.counter {
		c.counter = remote
	}
	c.counter++
	return c.counter
}

// Current returns the counter without advancing it.
func (c *LamportClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counter
}
