package unit

import (
	"context"
	"sync"
)

// Control carries the start and stop signals into a one-shot unit.
type Control struct {
	startOnce sync.Once
	stopOnce  sync.Once
	started   chan struct{}
	stopping  chan struct{}
}

// NewControl creates a control with neither signal raised.
func NewControl() *Control {
	return &Control{started: make(chan struct{}), stopping: make(chan struct{})}
}

// BeginMain signals the unit to leave its init phase. Repeated calls are no-ops.
func (c *Control) BeginMain() {
	c.startOnce.Do(func() { close(c.started) })
}

// RequestStop asks the unit to finish. It implies BeginMain.
func (c *Control) RequestStop() {
	c.BeginMain()
	c.stopOnce.Do(func() { close(c.stopping) })
}

// Started reports whether BeginMain has been signalled.
func (c *Control) Started() bool {
	select {
	case <-c.started:
		return true
	default:
		return false
	}
}

// StopRequested reports whether RequestStop has been signalled.
func (c *Control) StopRequested() bool {
	select {
	case <-c.stopping:
		return true
	default:
		return false
	}
}

// Stopping is closed once a stop is requested.
func (c *Control) Stopping() <-chan struct{} { return c.stopping }

// AwaitStart blocks until BeginMain or ctx is done.
func (c *Control) AwaitStart(ctx context.Context) error {
	select {
	case <-c.started:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AwaitStop blocks until RequestStop or ctx is done.
func (c *Control) AwaitStop(ctx context.Context) error {
	select {
	case <-c.stopping:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
