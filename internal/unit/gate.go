package unit

import (
	"context"
	"sync"
)

// Gate is a boolean condition that can be polled or awaited. Any goroutine may
// open or close it at any time.
type Gate struct {
	mu     sync.Mutex
	open   bool
	opened chan struct{}
}

// NewGate creates a gate in the given state.
func NewGate(open bool) *Gate {
	g := &Gate{open: open, opened: make(chan struct{})}
	if open {
		close(g.opened)
	}
	return g
}

// IsOpen reports the current state.
func (g *Gate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// Open opens the gate and releases every waiter.
func (g *Gate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		return
	}
	g.open = true
	close(g.opened)
}

// Close closes the gate. Later waiters block until it opens again.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return
	}
	g.open = false
	g.opened = make(chan struct{})
}

// Set opens or closes the gate.
func (g *Gate) Set(open bool) {
	if open {
		g.Open()
		return
	}
	g.Close()
}

// Wait blocks until the gate is open or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.opened
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Gates are the two conditions that advance a unit between phases.
type Gates struct {
	// AdvanceToStart moves the unit from its init phase to its main phase.
	AdvanceToStart *Gate
	// AdvanceToStop moves the unit from its main phase to stopping.
	AdvanceToStop *Gate
}

// OpenGates returns gates that let a unit run straight through.
func OpenGates() *Gates {
	return &Gates{AdvanceToStart: NewGate(true), AdvanceToStop: NewGate(true)}
}

// ClosedGates returns gates that hold a unit in init until opened.
func ClosedGates() *Gates {
	return &Gates{AdvanceToStart: NewGate(false), AdvanceToStop: NewGate(false)}
}

// Normalize fills missing gates with open ones.
func (g *Gates) Normalize() *Gates {
	if g == nil {
		return OpenGates()
	}
	if g.AdvanceToStart == nil {
		g.AdvanceToStart = NewGate(true)
	}
	if g.AdvanceToStop == nil {
		g.AdvanceToStop = NewGate(true)
	}
	return g
}
