package harness

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a fresh Test for one run.
type Factory func() Test

// Catalog holds named tests that can be run from the command line.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Factory
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]Factory)}
}

var defaultCatalog = NewCatalog()

// DefaultCatalog returns the process-wide catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// Register adds a named factory.
func (c *Catalog) Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("catalog: empty name")
	}
	if f == nil {
		return fmt.Errorf("catalog %s: nil factory", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[name]; exists {
		return fmt.Errorf("catalog %s: already registered", name)
	}
	c.entries[name] = f
	return nil
}

// MustRegister is Register for init functions.
func (c *Catalog) MustRegister(name string, f Factory) {
	if err := c.Register(name, f); err != nil {
		panic(err)
	}
}

// Get returns the factory registered under name.
func (c *Catalog) Get(name string) (Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.entries[name]
	return f, ok
}

// Names lists registered names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
