package domain

import (
	"sync"
	"time"
)

const timeLayout = "15:04:05"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FormatTime renders t as a zero-padded HH:MM:SS wall-clock time.
func FormatTime(t time.Time) string {
	return t.Format(timeLayout)
}

// ManualClock only moves when told to. Safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(at time.Time) *ManualClock {
	return &ManualClock{now: at}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
