package universe

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// Loader materialises entries and runs their static initialisers once.
type Loader struct {
	mu    sync.Mutex
	inits map[string]*initOnce
}

type initOnce struct {
	once sync.Once
	err  error
}

// NewLoader creates a loader with no initialisation history.
func NewLoader() *Loader {
	return &Loader{inits: make(map[string]*initOnce)}
}

var activeLoader = NewLoader()

// ActiveLoader returns the process-wide loader. Static initialisers run through
// it execute at most once per process.
func ActiveLoader() *Loader {
	return activeLoader
}

// Materialize resolves the entry's type without initialising it.
func (l *Loader) Materialize(e Entry) (Type, error) {
	t, err := resolve(e)
	if err != nil {
		return Type{}, err
	}
	return Type{Name: e.Name, Reflect: t, Statics: e.Statics}, nil
}

// Load resolves the entry and runs its static initialiser if it has not run
// yet. A failed initialiser keeps failing on later loads.
func (l *Loader) Load(e Entry) (Type, error) {
	t, err := l.Materialize(e)
	if err != nil {
		return Type{}, err
	}
	if e.Init == nil {
		return t, nil
	}

	l.mu.Lock()
	state, ok := l.inits[e.Name]
	if !ok {
		state = &initOnce{}
		l.inits[e.Name] = state
	}
	l.mu.Unlock()

	state.once.Do(func() {
		state.err = runInit(e)
	})
	if state.err != nil {
		return Type{}, state.err
	}
	return t, nil
}

func resolve(e Entry) (t reflect.Type, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %w: panic: %v", e.Name, ErrUnresolvable, r)
		}
	}()
	t, err = e.Resolve()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", e.Name, ErrUnresolvable, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%s: %w: nil type", e.Name, ErrUnresolvable)
	}
	return t, nil
}

func runInit(e Entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WithMessage(fmt.Errorf("%w: panic: %v", ErrInitFailed, r), e.Name)
		}
	}()
	if err := e.Init(); err != nil {
		return errors.WithMessage(fmt.Errorf("%w: %v", ErrInitFailed, err), e.Name)
	}
	return nil
}
