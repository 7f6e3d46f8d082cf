// Package dispatch runs discovered filters over the type universe.
package dispatch

import (
	"sync"

	"featurert/internal/marker"
	"featurert/internal/search"
	"featurert/internal/universe"
)

// Filter is a stateful plugin that inspects types in the universe. A filter is
// created once by discovery and lives for the rest of the process.
type Filter interface {
	// Locker guards Apply. Dispatch never calls Apply without holding it.
	Locker() sync.Locker
	// Matches reports whether the fully qualified type name is of interest.
	Matches(typeName string) bool
	// Init is called exactly once, before the first Matches.
	Init()
	// Apply processes one matching type. Errors are absorbed by dispatch.
	Apply(t universe.Type) error
}

// Base supplies the lock and a prefix-based Matches. Filters embed it and set
// Target in Init. Embedding Base also carries the preload marker, which is
// what lets discovery find the filter.
type Base struct {
	marker.Preload
	mu     sync.Mutex
	Target *search.Search
}

// Locker returns the filter's lock.
func (b *Base) Locker() sync.Locker { return &b.mu }

// Matches consults Target. A filter without a target matches nothing.
func (b *Base) Matches(typeName string) bool {
	if b.Target == nil {
		return false
	}
	return b.Target.Matches(typeName)
}

// Init is a no-op.
func (b *Base) Init() {}

// Finisher is implemented by filters that need a callback once every chain of
// a dispatch has completed.
type Finisher interface {
	Finish()
}
