// Package feature defines independently registered behaviours that attach to
// an execution unit and receive a hook around each of its phases.
package feature

import (
	"fmt"

	"featurert/internal/marker"
	"featurert/internal/unit"
)

// State is the coarse state of the unit a feature is attached to.
type State int

const (
	StateStopped State = iota
	StateInit
	StateActive
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateActive:
		return "active"
	default:
		return "stopped"
	}
}

// Phase names a unit callback that features hook around.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseInitLoop
	PhaseStart
	PhaseLoop
	PhaseStop
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseInitLoop:
		return "init_loop"
	case PhaseStart:
		return "start"
	case PhaseLoop:
		return "loop"
	case PhaseStop:
		return "stop"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Host is the view of the running unit handed to hooks and dependencies.
type Host interface {
	Name() string
	Kind() unit.Kind
	State() State
}

// Feature receives hooks around each phase of the unit it is active for.
// Implementations must be comparable, normally pointers.
type Feature interface {
	// Dependency decides whether the feature may activate for a unit.
	Dependency() Dependency

	PreInit(h Host)
	PostInit(h Host)
	PreInitLoop(h Host)
	PostInitLoop(h Host)
	PreStart(h Host)
	PostStart(h Host)
	PreLoop(h Host)
	PostLoop(h Host)
	PreStop(h Host)
	// PostStop does not run if the unit failed. See Cleanup.
	PostStop(h Host)
	// Cleanup runs after the unit stops, whether or not it failed.
	Cleanup(h Host)
}

// Base gives no-op hooks and a dependency held in Dep. Embedding it also
// carries the preload marker, so feature types are initialised by discovery.
type Base struct {
	marker.Preload
	Dep Dependency
}

// Dependency returns Dep, or None when unset.
func (b *Base) Dependency() Dependency {
	if b.Dep == nil {
		return None()
	}
	return b.Dep
}

func (b *Base) PreInit(Host)      {}
func (b *Base) PostInit(Host)     {}
func (b *Base) PreInitLoop(Host)  {}
func (b *Base) PostInitLoop(Host) {}
func (b *Base) PreStart(Host)     {}
func (b *Base) PostStart(Host)    {}
func (b *Base) PreLoop(Host)      {}
func (b *Base) PostLoop(Host)     {}
func (b *Base) PreStop(Host)      {}
func (b *Base) PostStop(Host)     {}
func (b *Base) Cleanup(Host)      {}

// Pre runs the hook that precedes phase p.
func Pre(f Feature, p Phase, h Host) {
	switch p {
	case PhaseInit:
		f.PreInit(h)
	case PhaseInitLoop:
		f.PreInitLoop(h)
	case PhaseStart:
		f.PreStart(h)
	case PhaseLoop:
		f.PreLoop(h)
	case PhaseStop:
		f.PreStop(h)
	}
}

// Post runs the hook that follows phase p.
func Post(f Feature, p Phase, h Host) {
	switch p {
	case PhaseInit:
		f.PostInit(h)
	case PhaseInitLoop:
		f.PostInitLoop(h)
	case PhaseStart:
		f.PostStart(h)
	case PhaseLoop:
		f.PostLoop(h)
	case PhaseStop:
		f.PostStop(h)
	}
}

// Name renders a feature for logs.
func Name(f Feature) string {
	if s, ok := f.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", f)
}
