// Package universe is the explicit type universe that discovery scans.
//
// Go has no loaded-class registry to enumerate at runtime, so packages that
// contribute plugins self-register their types from init(). Discovery then
// works from one frozen Snapshot of everything registered.
package universe

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("type already registered")
	// ErrUnresolvable wraps failures to materialise an entry's type.
	ErrUnresolvable = errors.New("type could not be resolved")
	// ErrInitFailed wraps failures of an entry's static initialiser.
	ErrInitFailed = errors.New("static initialisation failed")
)

// Entry describes one type in the universe.
type Entry struct {
	// Name is the fully qualified type name, import/path.Type.
	Name string
	// Resolve materialises the reflect.Type. It may fail.
	Resolve func() (reflect.Type, error)
	// Init is the static initialiser, run at most once per process by a Loader.
	Init func() error
	// Statics are the static instances the type declares.
	Statics []any
}

// Type is a materialised entry handed to filters.
type Type struct {
	Name    string
	Reflect reflect.Type
	Statics []any
}

// Universe holds registered entries.
type Universe struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates an empty universe.
func New() *Universe {
	return &Universe{entries: make(map[string]Entry)}
}

var global = New()

// Default returns the process-wide universe used by init() registrations.
func Default() *Universe {
	return global
}

// Register adds an entry to the process-wide universe.
func Register(e Entry) error {
	return global.Register(e)
}

// MustRegister is Register for init() functions; it panics on error.
func MustRegister(e Entry) {
	if err := global.Register(e); err != nil {
		panic(err)
	}
}

// RegisterType registers T in the process-wide universe under its fully
// qualified name, with the given static instances. It returns that name.
func RegisterType[T any](statics ...any) string {
	name := NameOf[T]()
	MustRegister(Entry{Name: name, Resolve: staticResolve[T](), Statics: statics})
	return name
}

// EntryFor builds an entry for T without registering it.
func EntryFor[T any](statics ...any) Entry {
	return Entry{Name: NameOf[T](), Resolve: staticResolve[T](), Statics: statics}
}

func staticResolve[T any]() func() (reflect.Type, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return func() (reflect.Type, error) { return t, nil }
}

// NameOf returns the fully qualified name of T.
func NameOf[T any]() string {
	return QualifiedName(reflect.TypeOf((*T)(nil)).Elem())
}

// QualifiedName renders t as import/path.Type; pointers are dereferenced.
func QualifiedName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// Register adds an entry.
func (u *Universe) Register(e Entry) error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return fmt.Errorf("register: empty type name")
	}
	if e.Resolve == nil {
		return fmt.Errorf("register %s: missing resolver", e.Name)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if _, exists := u.entries[e.Name]; exists {
		return fmt.Errorf("register %s: %w", e.Name, ErrDuplicate)
	}
	u.entries[e.Name] = e
	return nil
}

// Len returns the number of registered entries.
func (u *Universe) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.entries)
}

// Snapshot returns an immutable, name-ordered view of the universe.
func (u *Universe) Snapshot() Snapshot {
	u.mu.RLock()
	entries := make([]Entry, 0, len(u.entries))
	for _, e := range u.entries {
		entries = append(entries, e)
	}
	u.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return Snapshot{entries: entries}
}

// Snapshot is a frozen, ordered list of entries. It is safe for concurrent reads.
type Snapshot struct {
	entries []Entry
}

// NewSnapshot freezes the given entries in the given order.
func NewSnapshot(entries ...Entry) Snapshot {
	frozen := make([]Entry, len(entries))
	copy(frozen, entries)
	return Snapshot{entries: frozen}
}

// Len returns the number of entries.
func (s Snapshot) Len() int { return len(s.entries) }

// At returns the entry at index i.
func (s Snapshot) At(i int) Entry { return s.entries[i] }

// Names lists entry names in snapshot order.
func (s Snapshot) Names() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.Name
	}
	return names
}
