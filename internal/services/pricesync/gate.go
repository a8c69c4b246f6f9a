package pricesync

import (
	"sync"
	"time"
)

// Gate admits one holder at a time
type Gate struct {
	mu       sync.Mutex
	held     bool
	acquired time.Time
}

// Lease is proof of holding the gate
type Lease struct {
	gate *Gate
	once sync.Once
}

// TryAcquire takes the gate if it is free. It never blocks.
func (g *Gate) TryAcquire() (*Lease, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held {
		return nil, false
	}
	g.held = true
	g.acquired = time.Now()
	return &Lease{gate: g}, true
}

// Busy reports whether the gate is held and since when
func (g *Gate) Busy() (bool, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held, g.acquired
}

// Release frees the gate. Only the first call has an effect.
func (l *Lease) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		l.gate.mu.Lock()
		l.gate.held = false
		l.gate.acquired = time.Time{}
		l.gate.mu.Unlock()
	})
}
