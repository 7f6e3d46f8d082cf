// Package unit defines execution units: the programs features attach to.
//
// A unit is either iterative, driven one callback at a time by the caller, or
// one-shot, owning its own control flow and reacting to start and stop
// signals. Unit is a tagged variant over the two.
package unit

import (
	"context"
	"fmt"
)

// Kind tags a Unit.
type Kind int

const (
	KindUnknown Kind = iota
	KindIterative
	KindOneShot
)

func (k Kind) String() string {
	switch k {
	case KindIterative:
		return "iterative"
	case KindOneShot:
		return "one-shot"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Iterative is a unit driven by its caller through fixed callbacks.
type Iterative interface {
	Init() error
	InitLoop() error
	Start() error
	Loop() error
	Stop() error
}

// OneShot is a unit that runs its own body. Run should wait for the main
// phase with Control.AwaitStart and return once a stop is requested.
type OneShot interface {
	Run(ctx context.Context, control *Control) error
}

// Unit is a named unit of one kind. The zero Unit has KindUnknown.
type Unit struct {
	name      string
	kind      Kind
	iterative Iterative
	oneShot   OneShot
}

// NewIterative wraps an iterative implementation.
func NewIterative(name string, impl Iterative) Unit {
	return Unit{name: name, kind: KindIterative, iterative: impl}
}

// NewOneShot wraps a one-shot implementation.
func NewOneShot(name string, impl OneShot) Unit {
	return Unit{name: name, kind: KindOneShot, oneShot: impl}
}

// Name returns the unit's display name.
func (u Unit) Name() string { return u.name }

// Kind returns the unit's tag.
func (u Unit) Kind() Kind { return u.kind }

// Iterative returns the iterative implementation, if that is the unit's kind.
func (u Unit) Iterative() (Iterative, bool) {
	return u.iterative, u.kind == KindIterative && u.iterative != nil
}

// OneShot returns the one-shot implementation, if that is the unit's kind.
func (u Unit) OneShot() (OneShot, bool) {
	return u.oneShot, u.kind == KindOneShot && u.oneShot != nil
}

// Funcs adapts plain functions to Iterative. Nil callbacks are no-ops.
type Funcs struct {
	OnInit     func() error
	OnInitLoop func() error
	OnStart    func() error
	OnLoop     func() error
	OnStop     func() error
}

func call(fn func() error) error {
	if fn == nil {
		return nil
	}
	return fn()
}

func (f Funcs) Init() error     { return call(f.OnInit) }
func (f Funcs) InitLoop() error { return call(f.OnInitLoop) }
func (f Funcs) Start() error    { return call(f.OnStart) }
func (f Funcs) Loop() error     { return call(f.OnLoop) }
func (f Funcs) Stop() error     { return call(f.OnStop) }

// RunFunc adapts a function to OneShot.
type RunFunc func(ctx context.Context, control *Control) error

// Run calls f.
func (f RunFunc) Run(ctx context.Context, control *Control) error { return f(ctx, control) }
