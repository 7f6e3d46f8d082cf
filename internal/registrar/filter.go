package registrar

import (
	"featurert/internal/dispatch"
	"featurert/internal/feature"
	"featurert/internal/search"
	"featurert/internal/universe"
	"featurert/pkg/logging"
)

// FeatureFilter registers every static feature instance a type declares.
type FeatureFilter struct {
	dispatch.Base
	registrar *Registrar
}

// NewFeatureFilter creates a filter registering into r.
func NewFeatureFilter(r *Registrar) *FeatureFilter {
	return &FeatureFilter{registrar: r}
}

// Init targets every type.
func (f *FeatureFilter) Init() {
	f.Target = search.Wide()
}

// Apply registers the type's static features.
func (f *FeatureFilter) Apply(t universe.Type) error {
	for _, static := range t.Statics {
		ft, ok := static.(feature.Feature)
		if !ok {
			continue
		}
		logging.Debug("Registrar", "found feature instance %s on %s", feature.Name(ft), t.Name)
		f.registrar.Register(ft)
	}
	return nil
}

func init() {
	universe.RegisterType[*FeatureFilter](NewFeatureFilter(Global()))
}
