// Package wrapper adapts a unit to the phase hooks of the feature registrar.
//
// A Wrapper is a tagged variant. Iterative wrappers expose the five callbacks
// and fire hooks around each one. One-shot wrappers expose Run together with
// the BeginMain and RequestStop transitions.
package wrapper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"featurert/internal/feature"
	"featurert/internal/unit"
)

// ErrUnknownKind is returned when a unit's kind tag is not recognised.
var ErrUnknownKind = errors.New("unknown unit kind")

// ErrWrongKind is returned when a surface of the other kind is used.
var ErrWrongKind = errors.New("operation not supported by unit kind")

// Notifier receives phase boundaries. The feature registrar implements it.
type Notifier interface {
	Before(w *Wrapper, p feature.Phase)
	After(w *Wrapper, p feature.Phase)
}

// Wrapper is the adapter installed as a registrar's active unit.
type Wrapper struct {
	unit     unit.Unit
	notifier Notifier

	mu    sync.RWMutex
	state feature.State

	iterative unit.Iterative
	oneShot   unit.OneShot
	control   *unit.Control
	entered   chan struct{}
	enterOnce sync.Once
}

// New builds the adapter that matches u's kind.
func New(u unit.Unit, n Notifier) (*Wrapper, error) {
	if n == nil {
		n = nopNotifier{}
	}
	w := &Wrapper{unit: u, notifier: n, state: feature.StateStopped}
	switch u.Kind() {
	case unit.KindIterative:
		impl, ok := u.Iterative()
		if !ok {
			return nil, fmt.Errorf("unit %q: %w: missing iterative implementation", u.Name(), ErrUnknownKind)
		}
		w.iterative = impl
	case unit.KindOneShot:
		impl, ok := u.OneShot()
		if !ok {
			return nil, fmt.Errorf("unit %q: %w: missing one-shot implementation", u.Name(), ErrUnknownKind)
		}
		w.oneShot = impl
		w.control = unit.NewControl()
		w.entered = make(chan struct{})
	default:
		return nil, fmt.Errorf("unit %q: %w: %s", u.Name(), ErrUnknownKind, u.Kind())
	}
	return w, nil
}

// Name returns the unit's name.
func (w *Wrapper) Name() string { return w.unit.Name() }

// Kind returns the variant tag.
func (w *Wrapper) Kind() unit.Kind { return w.unit.Kind() }

// State returns the coarse unit state.
func (w *Wrapper) State() feature.State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Wrapper) setState(s feature.State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = s
}

// Control returns the one-shot control, or nil for iterative units.
func (w *Wrapper) Control() *unit.Control { return w.control }

// Entered is closed once Run has fired the init hooks and entered the body.
// It is nil for iterative units.
func (w *Wrapper) Entered() <-chan struct{} { return w.entered }

func (w *Wrapper) around(p feature.Phase, fn func() error) error {
	w.notifier.Before(w, p)
	if err := fn(); err != nil {
		return fmt.Errorf("%s %s: %w", w.Name(), p, err)
	}
	w.notifier.After(w, p)
	return nil
}

func (w *Wrapper) requireIterative() error {
	if w.iterative == nil {
		return fmt.Errorf("%s: %w", w.Kind(), ErrWrongKind)
	}
	return nil
}

// Init runs the unit's init callback between its hooks.
func (w *Wrapper) Init() error {
	if err := w.requireIterative(); err != nil {
		return err
	}
	w.setState(feature.StateInit)
	return w.around(feature.PhaseInit, w.iterative.Init)
}

// InitLoop runs one init-loop cycle.
func (w *Wrapper) InitLoop() error {
	if err := w.requireIterative(); err != nil {
		return err
	}
	return w.around(feature.PhaseInitLoop, w.iterative.InitLoop)
}

// Start runs the unit's start callback.
func (w *Wrapper) Start() error {
	if err := w.requireIterative(); err != nil {
		return err
	}
	w.setState(feature.StateActive)
	return w.around(feature.PhaseStart, w.iterative.Start)
}

// Loop runs one main-loop cycle.
func (w *Wrapper) Loop() error {
	if err := w.requireIterative(); err != nil {
		return err
	}
	return w.around(feature.PhaseLoop, w.iterative.Loop)
}

// Stop runs the unit's stop callback. The post-stop hooks only run if the
// callback succeeded.
func (w *Wrapper) Stop() error {
	if err := w.requireIterative(); err != nil {
		return err
	}
	err := w.around(feature.PhaseStop, w.iterative.Stop)
	w.setState(feature.StateStopped)
	return err
}

// Run executes a one-shot unit's body on the calling goroutine. The init
// hooks bracket the entry into the body.
func (w *Wrapper) Run(ctx context.Context) error {
	if w.oneShot == nil {
		return fmt.Errorf("%s: %w", w.Kind(), ErrWrongKind)
	}
	w.setState(feature.StateInit)
	w.notifier.Before(w, feature.PhaseInit)
	w.notifier.After(w, feature.PhaseInit)
	w.enterOnce.Do(func() { close(w.entered) })

	err := w.oneShot.Run(ctx, w.control)
	if err != nil {
		w.setState(feature.StateStopped)
		return fmt.Errorf("%s run: %w", w.Name(), err)
	}
	w.notifier.After(w, feature.PhaseStop)
	w.setState(feature.StateStopped)
	return nil
}

// BeginMain moves a one-shot unit into its main phase.
func (w *Wrapper) BeginMain() error {
	if w.control == nil {
		return fmt.Errorf("%s: %w", w.Kind(), ErrWrongKind)
	}
	w.setState(feature.StateActive)
	w.notifier.Before(w, feature.PhaseStart)
	w.control.BeginMain()
	w.notifier.After(w, feature.PhaseStart)
	return nil
}

// RequestStop asks a one-shot unit to finish.
func (w *Wrapper) RequestStop() error {
	if w.control == nil {
		return fmt.Errorf("%s: %w", w.Kind(), ErrWrongKind)
	}
	w.notifier.Before(w, feature.PhaseStop)
	w.control.RequestStop()
	return nil
}

type nopNotifier struct{}

func (nopNotifier) Before(*Wrapper, feature.Phase) {}
func (nopNotifier) After(*Wrapper, feature.Phase)  {}
