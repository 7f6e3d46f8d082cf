package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"featurert/internal/search"
	"featurert/internal/universe"
)

type recordingFilter struct {
	Base
	name    string
	prefix  string
	inside  atomic.Int32
	overlap atomic.Bool
	applied []string
	failOn  map[string]bool
	panicOn map[string]bool
	hold    func()
}

func newRecordingFilter(name, prefix string) *recordingFilter {
	f := &recordingFilter{name: name, prefix: prefix}
	f.Init()
	return f
}

func (f *recordingFilter) Name() string { return f.name }

func (f *recordingFilter) Init() {
	if f.prefix == "" {
		f.Target = search.Empty()
		return
	}
	f.Target = search.Empty().Include(f.prefix)
}

func (f *recordingFilter) Apply(t universe.Type) error {
	if f.inside.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.inside.Add(-1)

	if f.hold != nil {
		f.hold()
	}
	f.applied = append(f.applied, t.Name)
	if f.panicOn[t.Name] {
		panic("apply exploded")
	}
	if f.failOn[t.Name] {
		return errors.New("apply failed")
	}
	return nil
}

func snapshotOf(names ...string) universe.Snapshot {
	entries := make([]universe.Entry, len(names))
	for i, name := range names {
		entries[i] = universe.Entry{
			Name:    name,
			Resolve: func() (reflect.Type, error) { return reflect.TypeOf(struct{}{}), nil },
		}
	}
	return universe.NewSnapshot(entries...)
}

func typeNames(n int, pkg string) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s.T%03d", pkg, i)
	}
	return names
}

func TestDispatch_SilentFilterDoesNotWaitOnBusyFilter(t *testing.T) {
	snap := snapshotOf(typeNames(100, "app/plugins")...)

	f1 := newRecordingFilter("F1", "")
	f2 := newRecordingFilter("F2", "app/plugins")

	f1Done := make(chan struct{})
	f2.hold = func() {
		select {
		case <-f1Done:
		case <-time.After(5 * time.Second):
			t.Error("F2 was applied before F1's chain could complete")
		}
	}

	pool := NewPool(2, universe.NewLoader())
	pool.OnChainDone = func(fr FilterReport) {
		if fr.Filter == Filter(f1) {
			close(f1Done)
		}
	}

	report := pool.Dispatch(context.Background(), []Filter{f1, f2}, snap)

	r1, ok := report.For(f1)
	require.True(t, ok)
	r2, ok := report.For(f2)
	require.True(t, ok)

	assert.Equal(t, 100, r1.Visited)
	assert.Equal(t, 0, r1.Matched)
	assert.Equal(t, 0, r1.Applied)
	assert.Empty(t, f1.applied)

	assert.Equal(t, 100, r2.Applied)
	assert.Equal(t, typeNames(100, "app/plugins"), f2.applied)
	assert.False(t, f2.overlap.Load())
}

func TestDispatch_FailuresAreAbsorbed(t *testing.T) {
	names := []string{"app/a.One", "app/a.Two", "app/a.Three", "app/a.Four"}
	entries := make([]universe.Entry, 0, len(names)+1)
	for _, name := range names {
		entries = append(entries, universe.Entry{
			Name:    name,
			Resolve: func() (reflect.Type, error) { return reflect.TypeOf(0), nil },
		})
	}
	entries = append(entries, universe.Entry{
		Name:    "app/a.Unresolvable",
		Resolve: func() (reflect.Type, error) { return nil, errors.New("missing") },
	})
	snap := universe.NewSnapshot(entries...)

	f := newRecordingFilter("faulty", "app/a")
	f.failOn = map[string]bool{"app/a.Two": true}
	f.panicOn = map[string]bool{"app/a.Three": true}

	report := NewPool(4, universe.NewLoader()).Dispatch(context.Background(), []Filter{f}, snap)
	fr, ok := report.For(f)
	require.True(t, ok)

	assert.Equal(t, 5, fr.Visited)
	assert.Equal(t, 5, fr.Matched)
	assert.Equal(t, 2, fr.Applied)
	assert.Equal(t, 3, fr.Failed)
	assert.Equal(t, names, f.applied)

	// A panic while holding the lock must still release it.
	assert.True(t, f.Locker().(*sync.Mutex).TryLock())
}

func TestDispatch_NoFilters(t *testing.T) {
	report := NewPool(0, nil).Dispatch(context.Background(), nil, snapshotOf("a.B"))
	assert.Empty(t, report.Filters)
	assert.Equal(t, 0, report.Totals().Visited)
	assert.NoError(t, report.Err)
}

func TestDispatch_CancelledContextStopsClaiming(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newRecordingFilter("cancelled", "app")
	report := NewPool(2, universe.NewLoader()).Dispatch(ctx, []Filter{f}, snapshotOf(typeNames(10, "app")...))
	assert.Equal(t, 0, report.Totals().Visited)
	assert.Empty(t, f.applied)
	assert.ErrorIs(t, report.Err, context.Canceled)
}

func TestNewPool_Defaults(t *testing.T) {
	assert.Positive(t, NewPool(0, nil).Workers())
	assert.Equal(t, 3, NewPool(3, nil).Workers())
}

func TestBase_WithoutTargetMatchesNothing(t *testing.T) {
	var b Base
	assert.False(t, b.Matches("anything.At"))
}

func TestDispatch_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		pkgs := []string{"app/a", "app/b", "lib/c"}
		var names []string
		for _, pkg := range pkgs {
			names = append(names, typeNames(rapid.IntRange(0, 30).Draw(rt, pkg), pkg)...)
		}
		snap := snapshotOf(names...)

		nFilters := rapid.IntRange(1, 6).Draw(rt, "filters")
		filters := make([]Filter, nFilters)
		recs := make([]*recordingFilter, nFilters)
		for i := range filters {
			prefix := rapid.SampledFrom([]string{"", "app", "app/a", "lib"}).Draw(rt, fmt.Sprintf("prefix%d", i))
			recs[i] = newRecordingFilter(fmt.Sprintf("f%d", i), prefix)
			filters[i] = recs[i]
		}

		workers := rapid.IntRange(1, 8).Draw(rt, "workers")
		report := NewPool(workers, universe.NewLoader()).Dispatch(context.Background(), filters, snap)

		for i, rec := range recs {
			var want []string
			for _, name := range names {
				if rec.Matches(name) {
					want = append(want, name)
				}
			}
			if !reflect.DeepEqual(want, rec.applied) {
				rt.Fatalf("filter %d applied %v, want %v", i, rec.applied, want)
			}
			if rec.overlap.Load() {
				rt.Fatalf("filter %d ran concurrently with itself", i)
			}
			if report.Filters[i].Visited != len(names) {
				rt.Fatalf("filter %d visited %d of %d", i, report.Filters[i].Visited, len(names))
			}
		}
	})
}
