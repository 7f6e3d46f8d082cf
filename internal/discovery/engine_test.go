package discovery

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featurert/internal/dispatch"
	"featurert/internal/marker"
	"featurert/internal/search"
	"featurert/internal/universe"
)

type countingFilter struct {
	dispatch.Base
	inits   atomic.Int32
	applied []string
}

func (f *countingFilter) Init() {
	f.inits.Add(1)
	f.Target = search.Empty().Include("app/plugins")
}

func (f *countingFilter) Apply(t universe.Type) error {
	f.applied = append(f.applied, t.Name)
	return nil
}

// bareFilter satisfies dispatch.Filter without embedding dispatch.Base, so it
// carries no preload marker.
type bareFilter struct {
	mu    sync.Mutex
	inits atomic.Int32
}

func (f *bareFilter) Locker() sync.Locker       { return &f.mu }
func (f *bareFilter) Matches(string) bool       { return true }
func (f *bareFilter) Init()                     { f.inits.Add(1) }
func (f *bareFilter) Apply(universe.Type) error { return nil }

type preloaded struct {
	marker.Preload
}

type plain struct{}

func testUniverse(t *testing.T, entries ...universe.Entry) *universe.Universe {
	t.Helper()
	u := universe.New()
	for _, e := range entries {
		require.NoError(t, u.Register(e))
	}
	return u
}

func named(name string, typ reflect.Type) universe.Entry {
	return universe.Entry{Name: name, Resolve: func() (reflect.Type, error) { return typ, nil }}
}

func TestEngine_RunIsIdempotent(t *testing.T) {
	filter := &countingFilter{}
	filterEntry := named("app/filters.Counting", reflect.TypeOf(filter))
	filterEntry.Statics = []any{filter, filter, "not a filter"}

	u := testUniverse(t,
		filterEntry,
		named("app/plugins.A", reflect.TypeOf(plain{})),
		named("app/plugins.B", reflect.TypeOf(plain{})),
		named("lib/other.C", reflect.TypeOf(plain{})),
	)

	engine := New(Options{Universe: u, Loader: universe.NewLoader(), Workers: 2})
	first := engine.Run(context.Background())
	second := engine.Run(context.Background())

	require.Len(t, first, 1)
	assert.Equal(t, first, second)
	assert.Same(t, filter, first[0])
	assert.Equal(t, int32(1), filter.inits.Load())
	assert.Equal(t, []string{"app/plugins.A", "app/plugins.B"}, filter.applied)
	assert.Equal(t, 1, engine.Stats().Filters)
}

func TestEngine_IgnoresUnmarkedFilters(t *testing.T) {
	bare := &bareFilter{}
	bareEntry := named("app/filters.Bare", reflect.TypeOf(bare))
	bareEntry.Statics = []any{bare}

	marked := &countingFilter{}
	markedEntry := named("app/filters.Counting", reflect.TypeOf(marked))
	markedEntry.Statics = []any{marked}

	engine := New(Options{Universe: testUniverse(t, bareEntry, markedEntry), Loader: universe.NewLoader()})
	filters := engine.Run(context.Background())

	require.Len(t, filters, 1)
	assert.Same(t, marked, filters[0])
	assert.Equal(t, int32(0), bare.inits.Load())
	assert.Equal(t, 1, engine.Stats().Preloaded)
	assert.Equal(t, 1, engine.Stats().Filters)
}

func TestEngine_PreloadsMarkedTypesOnce(t *testing.T) {
	var inits atomic.Int32
	marked := named("app/plugins.Marked", reflect.TypeOf(preloaded{}))
	marked.Init = func() error {
		inits.Add(1)
		return nil
	}
	unmarked := named("app/plugins.Unmarked", reflect.TypeOf(plain{}))
	unmarked.Init = func() error {
		inits.Add(100)
		return nil
	}

	engine := New(Options{Universe: testUniverse(t, marked, unmarked), Loader: universe.NewLoader()})
	engine.Run(context.Background())
	engine.Run(context.Background())

	assert.Equal(t, int32(1), inits.Load())
	assert.Equal(t, 1, engine.Stats().Preloaded)
}

func TestEngine_SkipsBrokenAndExcludedTypes(t *testing.T) {
	filter := &countingFilter{}
	filterEntry := named("app/filters.Counting", reflect.TypeOf(filter))
	filterEntry.Statics = []any{filter}

	broken := universe.Entry{
		Name:    "app/plugins.Broken",
		Resolve: func() (reflect.Type, error) { return nil, errors.New("linkage error") },
	}
	failingInit := named("app/plugins.FailingInit", reflect.TypeOf(preloaded{}))
	failingInit.Init = func() error { return errors.New("static init threw") }

	excludedFilter := &countingFilter{}
	excluded := named("testing/helpers.Filter", reflect.TypeOf(excludedFilter))
	excluded.Statics = []any{excludedFilter}

	u := testUniverse(t, filterEntry, broken, failingInit, excluded,
		named("app/plugins.Fine", reflect.TypeOf(plain{})))

	engine := New(Options{Universe: u, Loader: universe.NewLoader(), Workers: 1})
	filters := engine.Run(context.Background())

	require.Len(t, filters, 1)
	assert.Equal(t, int32(0), excludedFilter.inits.Load())

	stats := engine.Stats()
	assert.Equal(t, 5, stats.Scanned)
	assert.Equal(t, 1, stats.Excluded)
	assert.Equal(t, 1, stats.Unresolvable)
	assert.Equal(t, 1, stats.PreloadFails)

	// Dispatch sees the full snapshot; broken types fail inside the chain.
	fr, ok := engine.Report().For(filter)
	require.True(t, ok)
	assert.Equal(t, 5, fr.Visited)
	assert.Equal(t, 1, fr.Failed)
	assert.ElementsMatch(t, []string{"app/plugins.FailingInit", "app/plugins.Fine"}, filter.applied)
}

func TestEngine_CustomNamespaces(t *testing.T) {
	filter := &countingFilter{}
	filterEntry := named("vendor/filters.Counting", reflect.TypeOf(filter))
	filterEntry.Statics = []any{filter}

	engine := New(Options{
		Universe:   testUniverse(t, filterEntry),
		Loader:     universe.NewLoader(),
		Namespaces: search.Wide().Exclude("vendor"),
	})
	assert.Empty(t, engine.Run(context.Background()))
}
