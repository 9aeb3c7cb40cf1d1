package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock pins the time used for snapshot names and created_utc stamps.
// Tests that need two distinct snapshots call Advance between archives.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock returns a clock stopped at t.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock at 2024-01-15 10:30:00.123456 UTC.
// The microseconds show up in created_utc but not in the second-resolution
// base filename.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward; a second or more gives the next snapshot
// a new base filename.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator hands out journal record and staging IDs in order:
// id-1, id-2, ...
type StubIDGenerator struct {
	mu   sync.Mutex
	next int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("id-%d", g.next)
}
