package services

import "sync"

// Roster serialises the two-write operations on the presence state.
// Join (participant + join notice) and eviction (delete + leave notice) hold the write side;
// listing participants or messages holds the read side, so a reader observes either
// both writes or neither.
type Roster struct {
	mu sync.RWMutex
}

func NewRoster() *Roster {
	return &Roster{}
}

func (r *Roster) Write(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn()
}

func (r *Roster) Read(fn func() error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn()
}
