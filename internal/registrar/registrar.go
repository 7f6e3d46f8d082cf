// Package registrar holds the process-wide feature registry and fans phase
// hooks out to the features active for the current unit.
package registrar

import (
	"errors"
	"fmt"
	"sync"

	"featurert/internal/feature"
	"featurert/internal/wrapper"
	"featurert/pkg/logging"
)

// ErrNoWrapper is returned when activation is attempted with no unit installed.
var ErrNoWrapper = errors.New("no active unit wrapper")

// Pending is a queued registration change.
type Pending struct {
	Feature  feature.Feature
	Register bool
}

// State is the plain bookkeeping a registrar starts from in test mode.
type State struct {
	Registered []feature.Feature
	Queue      []Pending
	Active     []feature.Feature
	Wrapper    *wrapper.Wrapper
	Running    bool
}

// Registrar tracks registered features, activates them for the running unit
// and forwards its phase hooks.
type Registrar struct {
	mu sync.Mutex

	registered []feature.Feature
	queue      []Pending
	active     []feature.Feature
	wrapper    *wrapper.Wrapper
	running    bool

	// logFailures raises dependency resolution failures from debug to error.
	// The harness sets it per unit.
	logFailures bool
}

// New creates an empty registrar.
func New() *Registrar {
	return &Registrar{}
}

// NewTestMode creates a registrar whose bookkeeping starts from s.
func NewTestMode(s State) *Registrar {
	return &Registrar{
		registered: append([]feature.Feature(nil), s.Registered...),
		queue:      append([]Pending(nil), s.Queue...),
		active:     append([]feature.Feature(nil), s.Active...),
		wrapper:    s.Wrapper,
		running:    s.Running,
	}
}

var global = New()

// Global returns the process-wide registrar.
func Global() *Registrar {
	return global
}

// Register adds f to the registered set. While a unit is running, f is also
// queued for activation. Registering twice is a no-op.
func (r *Registrar) Register(f feature.Feature) {
	if f == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if indexOf(r.registered, f) >= 0 {
		return
	}
	r.registered = append(r.registered, f)
	if r.running {
		r.queue = append(r.queue, Pending{Feature: f, Register: true})
	}
}

// Deregister queues f for removal. It takes effect at the next resolution.
func (r *Registrar) Deregister(f feature.Feature) {
	if f == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, Pending{Feature: f, Register: false})
}

// Registered returns a copy of the registered set in registration order.
func (r *Registrar) Registered() []feature.Feature {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]feature.Feature(nil), r.registered...)
}

// Active returns a copy of the active set in activation order.
func (r *Registrar) Active() []feature.Feature {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]feature.Feature(nil), r.active...)
}

// IsActive reports whether f is active for the current unit.
func (r *Registrar) IsActive(f feature.Feature) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return indexOf(r.active, f) >= 0
}

// Running reports whether a unit is installed and running.
func (r *Registrar) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Wrapper returns the installed unit wrapper, if any.
func (r *Registrar) Wrapper() *wrapper.Wrapper {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wrapper
}

// QueueLen returns the number of pending registration changes.
func (r *Registrar) QueueLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Clean drops nil and duplicate entries from the registered set.
func (r *Registrar) Clean() {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.registered[:0]
	for _, f := range r.registered {
		if f == nil || indexOf(kept, f) >= 0 {
			continue
		}
		kept = append(kept, f)
	}
	for i := len(kept); i < len(r.registered); i++ {
		r.registered[i] = nil
	}
	r.registered = kept
}

// ResolveQueue applies pending removals, then activates pending additions
// whose dependencies resolve.
func (r *Registrar) ResolveQueue() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked()
}

func (r *Registrar) resolveLocked() error {
	if len(r.queue) == 0 {
		return nil
	}
	queue := r.queue
	r.queue = nil

	var additions []feature.Feature
	for _, p := range queue {
		if p.Register {
			if p.Feature != nil && indexOf(additions, p.Feature) < 0 {
				additions = append(additions, p.Feature)
			}
			continue
		}
		logging.Debug("Registrar", "deactivating feature %s", feature.Name(p.Feature))
		r.active = remove(r.active, p.Feature)
		r.registered = remove(r.registered, p.Feature)
	}

	// Skip additions already active or deregistered in the same batch.
	toResolve := additions[:0]
	for _, f := range additions {
		if indexOf(r.active, f) >= 0 || indexOf(r.registered, f) < 0 {
			continue
		}
		toResolve = append(toResolve, f)
	}
	if len(toResolve) == 0 {
		return nil
	}
	if r.wrapper == nil {
		return fmt.Errorf("activate %d features: %w", len(toResolve), ErrNoWrapper)
	}

	activated, failures := feature.Resolve(r.wrapper, toResolve, r.active)
	for _, f := range activated {
		logging.Debug("Registrar", "activating feature %s", feature.Name(f))
		r.active = append(r.active, f)
	}
	for f, err := range failures {
		if r.logFailures {
			logging.Error("Registrar", err, "feature %s not activated", feature.Name(f))
		} else {
			logging.Debug("Registrar", "feature %s not activated: %v", feature.Name(f), err)
		}
	}
	return nil
}

// Check reports why any of fs could not be activated for the current unit.
func (r *Registrar) Check(fs ...feature.Feature) error {
	r.mu.Lock()
	w, active := r.wrapper, append([]feature.Feature(nil), r.active...)
	r.mu.Unlock()
	if w == nil {
		return ErrNoWrapper
	}

	_, failures := feature.Resolve(w, fs, active)
	var errs []error
	for _, f := range fs {
		if err, failed := failures[f]; failed {
			errs = append(errs, fmt.Errorf("%s: %w", feature.Name(f), err))
		}
	}
	return errors.Join(errs...)
}

// Before resolves the queue and runs pre hooks in activation order.
func (r *Registrar) Before(w *wrapper.Wrapper, p feature.Phase) {
	for _, f := range r.hookTargets() {
		feature.Pre(f, p, w)
	}
}

// After resolves the queue and runs post hooks in reverse activation order.
func (r *Registrar) After(w *wrapper.Wrapper, p feature.Phase) {
	targets := r.hookTargets()
	for i := len(targets) - 1; i >= 0; i-- {
		feature.Post(targets[i], p, w)
	}
}

// hookTargets resolves pending changes and snapshots the active set, so hooks
// run without the lock and may register or deregister features.
func (r *Registrar) hookTargets() []feature.Feature {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.resolveLocked(); err != nil {
		logging.Warn("Registrar", "resolving registration queue: %v", err)
	}
	return append([]feature.Feature(nil), r.active...)
}

// OnPostStop finishes a unit: pending changes are resolved, the running flag
// is cleared, every active feature is cleaned up in reverse order and the
// active set is emptied. Cleanup panics are returned, not raised.
func (r *Registrar) OnPostStop() error {
	r.mu.Lock()
	resolveErr := r.resolveLocked()
	r.running = false
	w := r.wrapper
	active := r.active
	r.active = nil
	r.mu.Unlock()

	name := "<none>"
	if w != nil {
		name = w.Name()
	}
	logging.Debug("Registrar", "cleaning up %s with %d active features", name, len(active))

	errs := []error{resolveErr}
	for i := len(active) - 1; i >= 0; i-- {
		f := active[i]
		if err := cleanup(f, w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func cleanup(f feature.Feature, w *wrapper.Wrapper) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("cleanup %s: panic: %v", feature.Name(f), rec)
		}
	}()
	var h feature.Host
	if w != nil {
		h = w
	}
	f.Cleanup(h)
	return nil
}

func indexOf(fs []feature.Feature, f feature.Feature) int {
	for i, candidate := range fs {
		if candidate == f {
			return i
		}
	}
	return -1
}

func remove(fs []feature.Feature, f feature.Feature) []feature.Feature {
	if i := indexOf(fs, f); i >= 0 {
		return append(fs[:i:i], fs[i+1:]...)
	}
	return fs
}
