package configurable

import (
	"featurert/internal/dispatch"
	"featurert/internal/search"
	"featurert/internal/universe"
)

// Filter collects static configurations and configurables into a Registry.
type Filter struct {
	dispatch.Base
	registry *Registry
}

// NewFilter creates a filter collecting into r.
func NewFilter(r *Registry) *Filter {
	return &Filter{registry: r}
}

// Init targets every type.
func (f *Filter) Init() {
	f.Target = search.Wide()
}

// Apply collects the type's static configurations and configurables.
func (f *Filter) Apply(t universe.Type) error {
	for _, static := range t.Statics {
		if c, ok := static.(Configuration); ok {
			f.registry.Add(c)
		}
		if c, ok := static.(Configurable); ok {
			f.registry.AddConfigurable(c)
		}
	}
	return nil
}

// Finish runs once dispatch completes.
func (f *Filter) Finish() {
	f.registry.Finish()
}

func init() {
	universe.RegisterType[*Filter](NewFilter(Default()))
}
