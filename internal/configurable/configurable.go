// Package configurable applies prioritised configurations to configurable
// targets.
//
// Configurations are collected from the type universe during discovery. For a
// given target, only the configurations of the highest level that applies are
// considered; among those, a configuration prioritised over another replaces
// it, and unrelated peers are both applied in order.
package configurable

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"featurert/internal/marker"
	"featurert/pkg/logging"
)

// Level orders configuration sources. Higher levels shadow lower ones.
type Level int

const (
	LevelRuntime Level = iota
	LevelLibrary
	LevelUser
)

func (l Level) String() string {
	switch l {
	case LevelRuntime:
		return "runtime"
	case LevelLibrary:
		return "library"
	case LevelUser:
		return "user"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ErrCycle is returned when a configuration is transitively prioritised over itself.
var ErrCycle = errors.New("configuration priority cycle")

// Configuration configures targets it applies to.
type Configuration interface {
	Applies(target any) bool
	Configure(target any) error
	// PrioritisedOver lists configurations this one overrides. It must not
	// contain the configuration itself.
	PrioritisedOver() []Configuration
	Level() Level
}

// Configurable is a target that asks to be configured once discovery finishes.
type Configurable interface {
	Configure() error
}

// For builds a Configuration applying to targets of type T.
func For[T any](name string, level Level, configure func(T) error, over ...Configuration) Configuration {
	return &typed[T]{name: name, level: level, configure: configure, over: over}
}

type typed[T any] struct {
	marker.Preload
	name      string
	level     Level
	configure func(T) error
	over      []Configuration
}

func (c *typed[T]) Applies(target any) bool {
	_, ok := target.(T)
	return ok
}

func (c *typed[T]) Configure(target any) error {
	t, ok := target.(T)
	if !ok {
		return fmt.Errorf("configuration %s: unexpected target %T", c.name, target)
	}
	return c.configure(t)
}

func (c *typed[T]) PrioritisedOver() []Configuration { return c.over }
func (c *typed[T]) Level() Level                     { return c.level }
func (c *typed[T]) String() string                   { return c.name }

// Registry holds collected configurations and pending configurable targets.
type Registry struct {
	mu             sync.Mutex
	configurations []Configuration
	configurables  []Configurable
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Add collects a configuration. Cycles are checked when collection finishes.
// Adding the same configuration again is a no-op.
func (r *Registry) Add(c Configuration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.configurations {
		if same(existing, c) {
			return
		}
	}
	r.configurations = append(r.configurations, c)
}

func same(a, b any) bool {
	ta := reflect.TypeOf(a)
	if ta == nil || ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// AddConfigurable collects a target to configure when collection finishes.
func (r *Registry) AddConfigurable(c Configurable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configurables = append(r.configurables, c)
}

// Configurations returns the collected configurations.
func (r *Registry) Configurations() []Configuration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Configuration(nil), r.configurations...)
}

// Finish drops configurations that sit on a priority cycle, then configures
// every collected Configurable and forgets them.
func (r *Registry) Finish() {
	r.mu.Lock()
	kept := r.configurations[:0]
	for _, c := range r.configurations {
		if reaches(c, c, map[Configuration]bool{}) {
			logging.Error("Configurable", ErrCycle, "dropping %s", describe(c))
			continue
		}
		kept = append(kept, c)
	}
	r.configurations = kept
	targets := r.configurables
	r.configurables = nil
	r.mu.Unlock()

	for _, t := range targets {
		if err := t.Configure(); err != nil {
			logging.Error("Configurable", err, "configuring %T", t)
		}
	}
}

// Apply configures target with the winning configurations. Errors from the
// configurations are returned.
func (r *Registry) Apply(target any) error {
	chosen := r.choose(target)
	if chosen == nil {
		return nil
	}
	if err := chosen.Configure(target); err != nil {
		return fmt.Errorf("apply %s to %T: %w", describe(chosen), target, err)
	}
	return nil
}

func (r *Registry) choose(target any) Configuration {
	byLevel := make(map[Level][]Configuration)
	top := Level(-1)
	for _, c := range r.Configurations() {
		if !c.Applies(target) {
			continue
		}
		byLevel[c.Level()] = append(byLevel[c.Level()], c)
		if c.Level() > top {
			top = c.Level()
		}
	}
	candidates := byLevel[top]
	if len(candidates) == 0 {
		return nil
	}

	winner := candidates[0]
	for _, next := range candidates[1:] {
		switch {
		case reaches(winner, next, map[Configuration]bool{}):
		case reaches(next, winner, map[Configuration]bool{}):
			winner = next
		default:
			logging.Warn("Configurable", "competing configurations %s and %s for %T; applying both in that order",
				describe(winner), describe(next), target)
			winner = &combined{first: winner, second: next}
		}
	}
	return winner
}

// reaches reports whether target is prioritised over, directly or
// transitively, by from.
func reaches(from, target Configuration, seen map[Configuration]bool) bool {
	for _, c := range from.PrioritisedOver() {
		if c == target {
			return true
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		if reaches(c, target, seen) {
			return true
		}
	}
	return false
}

type combined struct {
	first, second Configuration
}

func (c *combined) Applies(target any) bool { return c.first.Applies(target) }

func (c *combined) Configure(target any) error {
	return errors.Join(c.first.Configure(target), c.second.Configure(target))
}

func (c *combined) PrioritisedOver() []Configuration {
	return []Configuration{c.first, c.second}
}

func (c *combined) Level() Level { return c.first.Level() }

func (c *combined) String() string {
	return describe(c.first) + "+" + describe(c.second)
}

func describe(c Configuration) string {
	if s, ok := c.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", c)
}
