// Package discovery scans the type universe once per engine, preloads marked
// types, collects filters, and dispatches them over the same snapshot.
package discovery

import (
	"context"
	"reflect"
	"sync"

	"featurert/internal/dispatch"
	"featurert/internal/marker"
	"featurert/internal/search"
	"featurert/internal/universe"
	"featurert/pkg/logging"
)

// Options configures an Engine. Zero values select the process-wide defaults.
type Options struct {
	Universe *universe.Universe
	Loader   *universe.Loader
	// Workers sizes the dispatch pool; non-positive means runtime.NumCPU().
	Workers int
	// Namespaces decides which type names are scanned at all.
	Namespaces *search.Search
}

// Engine is the discovery engine. Run is idempotent.
type Engine struct {
	universe   *universe.Universe
	loader     *universe.Loader
	pool       *dispatch.Pool
	namespaces *search.Search

	once    sync.Once
	filters []dispatch.Filter
	report  dispatch.Report
	stats   Stats
}

// Stats summarises the scan half of a run.
type Stats struct {
	Scanned      int
	Excluded     int
	Unresolvable int
	Preloaded    int
	PreloadFails int
	Filters      int
}

var filterType = reflect.TypeOf((*dispatch.Filter)(nil)).Elem()

// New creates an engine.
func New(opts Options) *Engine {
	if opts.Universe == nil {
		opts.Universe = universe.Default()
	}
	if opts.Loader == nil {
		opts.Loader = universe.ActiveLoader()
	}
	if opts.Namespaces == nil {
		opts.Namespaces = search.Narrow()
	}
	return &Engine{
		universe:   opts.Universe,
		loader:     opts.Loader,
		pool:       dispatch.NewPool(opts.Workers, opts.Loader),
		namespaces: opts.Namespaces,
	}
}

// Run scans the universe and dispatches the filters found. Only the first call
// does any work; every call returns the same filter registry.
func (e *Engine) Run(ctx context.Context) []dispatch.Filter {
	e.once.Do(func() {
		snap := e.universe.Snapshot()
		logging.Info("Discovery", "scanning %d types", snap.Len())

		e.scan(snap)
		logging.Info("Discovery", "found %d filters, dispatching", len(e.filters))

		e.report = e.pool.Dispatch(ctx, e.filters, snap)
		totals := e.report.Totals()
		if e.report.Err != nil {
			logging.Warn("Discovery", "dispatch cut short: %v", e.report.Err)
		}
		logging.Info("Discovery", "dispatch complete: applied=%d failed=%d", totals.Applied, totals.Failed)

		for _, f := range e.filters {
			if fin, ok := f.(dispatch.Finisher); ok {
				fin.Finish()
			}
		}
	})
	return e.Filters()
}

// Filters returns the filter registry in discovery order.
func (e *Engine) Filters() []dispatch.Filter {
	out := make([]dispatch.Filter, len(e.filters))
	copy(out, e.filters)
	return out
}

// Report returns the dispatch report of the completed run.
func (e *Engine) Report() dispatch.Report { return e.report }

// Stats returns scan counters of the completed run.
func (e *Engine) Stats() Stats { return e.stats }

func (e *Engine) scan(snap universe.Snapshot) {
	seen := make(map[dispatch.Filter]bool)

	for i := 0; i < snap.Len(); i++ {
		entry := snap.At(i)
		e.stats.Scanned++

		if !e.namespaces.Matches(entry.Name) {
			e.stats.Excluded++
			continue
		}

		typ, err := e.loader.Materialize(entry)
		if err != nil {
			e.stats.Unresolvable++
			logging.Debug("Discovery", "skipping %s: %v", entry.Name, err)
			continue
		}

		if !marker.Carries(typ.Reflect) {
			continue
		}
		logging.Debug("Discovery", "preloading %s", entry.Name)
		if _, err := e.loader.Load(entry); err != nil {
			e.stats.PreloadFails++
			logging.Debug("Discovery", "skipping %s: %v", entry.Name, err)
			continue
		}
		e.stats.Preloaded++

		if !isFilterCapable(typ.Reflect) {
			continue
		}
		for _, static := range typ.Statics {
			f, ok := static.(dispatch.Filter)
			if !ok || f == nil || seen[f] {
				continue
			}
			if !initFilter(f) {
				logging.Debug("Discovery", "filter %s failed to initialise", entry.Name)
				continue
			}
			seen[f] = true
			e.filters = append(e.filters, f)
			e.stats.Filters++
			logging.Debug("Discovery", "found filter %s", entry.Name)
		}
	}
}

func isFilterCapable(t reflect.Type) bool {
	if t.Implements(filterType) {
		return true
	}
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		return reflect.PointerTo(t).Implements(filterType)
	}
	return false
}

func initFilter(f dispatch.Filter) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	f.Init()
	return true
}
