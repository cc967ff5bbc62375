package simnet

import (
	"sync"
	"time"
)

// ManualClock is a clock moved forward by hand, used to expire blockhashes
// without waiting.
type ManualClock struct {
	lock *sync.Mutex
	now  time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{lock: &sync.Mutex{}, now: start}
}

func (c *ManualClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}
