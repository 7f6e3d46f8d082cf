package feature

import (
	"errors"
	"fmt"
	"strings"

	"featurert/internal/unit"
)

// Dependency decides whether a feature can be activated given the host unit
// and the features already resolved. yielding is true on the final pass of a
// resolution, once no other feature could make progress.
type Dependency interface {
	Resolve(h Host, resolved []Feature, yielding bool) error
}

// DependencyFunc adapts a function to Dependency.
type DependencyFunc func(h Host, resolved []Feature, yielding bool) error

// Resolve calls f.
func (f DependencyFunc) Resolve(h Host, resolved []Feature, yielding bool) error {
	return f(h, resolved, yielding)
}

// ResolutionError collects the reasons a dependency did not resolve.
type ResolutionError struct {
	Messages []string
}

// Unresolved builds a ResolutionError.
func Unresolved(messages ...string) *ResolutionError {
	return &ResolutionError{Messages: messages}
}

func (e *ResolutionError) Error() string {
	return "dependency unresolved: " + strings.Join(e.Messages, "; ")
}

// None always resolves.
func None() Dependency {
	return DependencyFunc(func(Host, []Feature, bool) error { return nil })
}

// Yielding resolves only on the yielding pass, after every other feature that
// can resolve has done so.
func Yielding() Dependency {
	return DependencyFunc(func(_ Host, _ []Feature, yielding bool) error {
		if !yielding {
			return Unresolved("not yet yielding")
		}
		return nil
	})
}

// Single requires f to be resolved.
func Single(f Feature) Dependency {
	return All(f)
}

// All requires every one of fs to be resolved.
func All(fs ...Feature) Dependency {
	return DependencyFunc(func(_ Host, resolved []Feature, _ bool) error {
		var missing []string
		for _, f := range fs {
			if !contains(resolved, f) {
				missing = append(missing, Name(f)+" not attached")
			}
		}
		if len(missing) > 0 {
			return Unresolved(missing...)
		}
		return nil
	})
}

// Any requires at least one of fs to be resolved.
func Any(fs ...Feature) Dependency {
	return DependencyFunc(func(_ Host, resolved []Feature, _ bool) error {
		for _, f := range fs {
			if contains(resolved, f) {
				return nil
			}
		}
		return Unresolved("none of the required features attached")
	})
}

// HostKind requires the host unit to be of the given kind.
func HostKind(kind unit.Kind) Dependency {
	return DependencyFunc(func(h Host, _ []Feature, _ bool) error {
		if h == nil || h.Kind() != kind {
			return Unresolved(fmt.Sprintf("unit is not %s", kind))
		}
		return nil
	})
}

// And requires both dependencies.
func And(l, r Dependency) Dependency {
	return DependencyFunc(func(h Host, resolved []Feature, yielding bool) error {
		return errors.Join(l.Resolve(h, resolved, yielding), r.Resolve(h, resolved, yielding))
	})
}

// Or requires either dependency.
func Or(l, r Dependency) Dependency {
	return DependencyFunc(func(h Host, resolved []Feature, yielding bool) error {
		lerr := l.Resolve(h, resolved, yielding)
		if lerr == nil {
			return nil
		}
		rerr := r.Resolve(h, resolved, yielding)
		if rerr == nil {
			return nil
		}
		return errors.Join(lerr, rerr)
	})
}

// Callbacks decorates a dependency with resolution callbacks.
type Callbacks struct {
	Dependency
	onResolve []func()
	onFail    []func(error)
}

// WithCallbacks wraps d so callbacks can be attached.
func WithCallbacks(d Dependency) *Callbacks {
	return &Callbacks{Dependency: d}
}

// OnResolve adds a callback run when the dependency resolves.
func (c *Callbacks) OnResolve(fn func()) *Callbacks {
	c.onResolve = append(c.onResolve, fn)
	return c
}

// OnFail adds a callback run when resolution gives up on the dependency.
func (c *Callbacks) OnFail(fn func(error)) *Callbacks {
	c.onFail = append(c.onFail, fn)
	return c
}

// Accept runs the OnResolve callbacks.
func (c *Callbacks) Accept() {
	for _, fn := range c.onResolve {
		fn()
	}
}

// Reject runs the OnFail callbacks.
func (c *Callbacks) Reject(err error) {
	for _, fn := range c.onFail {
		fn(err)
	}
}

func contains(fs []Feature, f Feature) bool {
	for _, candidate := range fs {
		if candidate == f {
			return true
		}
	}
	return false
}
