package testutil

import (
	"sync"
	"time"
)

// Epoch — начало отсчёта тестового времени.
var Epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Clock — управляемое время, общее для мира и планировщика.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock создаёт Clock, установленный на Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

// Now implements the clock func expected by world and spawn.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to Epoch + sec seconds.
func (c *Clock) Set(sec int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch.Add(time.Duration(sec) * time.Second)
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
