package demo

import (
	"sort"
	"sync"

	"featurert/internal/dispatch"
	"featurert/internal/search"
	"featurert/internal/universe"
	"featurert/pkg/logging"
)

// Inventory is a filter listing every type discovered under a prefix.
type Inventory struct {
	dispatch.Base
	prefix string

	mu    sync.Mutex
	names []string
	done  bool
}

// NewInventory creates an inventory of the types under prefix.
func NewInventory(prefix string) *Inventory {
	return &Inventory{prefix: prefix}
}

func (i *Inventory) Name() string { return "inventory(" + i.prefix + ")" }

// Init targets the prefix only.
func (i *Inventory) Init() {
	i.Target = search.Empty().Include(i.prefix)
}

// Apply records the type name.
func (i *Inventory) Apply(t universe.Type) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.names = append(i.names, t.Name)
	return nil
}

// Finish sorts the collected names once dispatch completes.
func (i *Inventory) Finish() {
	i.mu.Lock()
	defer i.mu.Unlock()
	sort.Strings(i.names)
	i.done = true
	logging.Debug("Demo", "%s: %d types", i.Name(), len(i.names))
}

// Names returns the collected names and whether dispatch has finished.
func (i *Inventory) Names() ([]string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.names...), i.done
}

// SampleInventory lists the types of this package.
var SampleInventory = NewInventory(pkgPath)
