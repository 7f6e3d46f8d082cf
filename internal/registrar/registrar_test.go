package registrar

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featurert/internal/feature"
	"featurert/internal/universe"
	"featurert/internal/unit"
	"featurert/internal/wrapper"
)

type tracked struct {
	feature.Base
	name string
	log  *[]string
}

func newTracked(name string, log *[]string, dep feature.Dependency) *tracked {
	return &tracked{Base: feature.Base{Dep: dep}, name: name, log: log}
}

func (t *tracked) String() string { return t.name }

func (t *tracked) PreLoop(feature.Host)  { *t.log = append(*t.log, "pre-"+t.name) }
func (t *tracked) PostLoop(feature.Host) { *t.log = append(*t.log, "post-"+t.name) }
func (t *tracked) Cleanup(feature.Host)  { *t.log = append(*t.log, "cleanup-"+t.name) }

type panicky struct {
	feature.Base
}

func (p *panicky) Cleanup(feature.Host) { panic("cleanup exploded") }

func iterativeWrapper(t *testing.T, r *Registrar) *wrapper.Wrapper {
	t.Helper()
	w, err := wrapper.New(unit.NewIterative("unit", unit.Funcs{}), r)
	require.NoError(t, err)
	return w
}

func TestRegister_QueuesOnlyWhileRunning(t *testing.T) {
	var log []string
	a := newTracked("a", &log, nil)

	r := New()
	r.Register(a)
	r.Register(a)
	assert.Equal(t, []feature.Feature{a}, r.Registered())
	assert.Equal(t, 0, r.QueueLen())

	running := NewTestMode(State{Running: true})
	running.Register(a)
	assert.Equal(t, 1, running.QueueLen())
}

func TestResolveQueue_ActivatesWithDependencies(t *testing.T) {
	var log []string
	a := newTracked("a", &log, nil)
	b := newTracked("b", &log, feature.Single(a))

	r := NewTestMode(State{Running: true})
	r.wrapper = iterativeWrapper(t, r)
	r.Register(b)
	r.Register(a)
	require.NoError(t, r.ResolveQueue())

	assert.Equal(t, []feature.Feature{a, b}, r.Active())
	assert.True(t, r.IsActive(b))
	assert.Equal(t, 0, r.QueueLen())
}

func TestResolveQueue_NoWrapper(t *testing.T) {
	var log []string
	r := NewTestMode(State{Running: true})
	r.Register(newTracked("a", &log, nil))
	assert.ErrorIs(t, r.ResolveQueue(), ErrNoWrapper)
	assert.ErrorIs(t, r.Check(newTracked("b", &log, nil)), ErrNoWrapper)
}

func TestDeregister_RemovesAtNextResolution(t *testing.T) {
	var log []string
	a := newTracked("a", &log, nil)
	r := NewTestMode(State{Registered: []feature.Feature{a}, Active: []feature.Feature{a}})

	r.Deregister(a)
	assert.True(t, r.IsActive(a))
	require.NoError(t, r.ResolveQueue())
	assert.False(t, r.IsActive(a))
	assert.Empty(t, r.Registered())
}

func TestHooks_OrderAndPostStop(t *testing.T) {
	var log []string
	a := newTracked("a", &log, nil)
	b := newTracked("b", &log, nil)

	r := NewTestMode(State{Registered: []feature.Feature{a, b}, Active: []feature.Feature{a, b}, Running: true})
	w := iterativeWrapper(t, r)
	r.wrapper = w

	require.NoError(t, w.Loop())
	require.NoError(t, r.OnPostStop())

	assert.Equal(t, []string{"pre-a", "pre-b", "post-b", "post-a", "cleanup-b", "cleanup-a"}, log)
	assert.False(t, r.Running())
	assert.Empty(t, r.Active())
	assert.Len(t, r.Registered(), 2)
}

func TestOnPostStop_CleanupPanicsAreReturned(t *testing.T) {
	var log []string
	a := newTracked("a", &log, nil)
	p := &panicky{}
	r := NewTestMode(State{Active: []feature.Feature{a, p}, Running: true})

	err := r.OnPostStop()
	assert.ErrorContains(t, err, "cleanup exploded")
	assert.Equal(t, []string{"cleanup-a"}, log)
}

func TestClean_DropsNilAndDuplicates(t *testing.T) {
	var log []string
	a := newTracked("a", &log, nil)
	r := NewTestMode(State{Registered: []feature.Feature{a, nil, a}})
	r.Clean()
	assert.Equal(t, []feature.Feature{a}, r.Registered())
}

func TestCheck_ReportsUnresolved(t *testing.T) {
	var log []string
	a := newTracked("a", &log, nil)
	needsA := newTracked("needsA", &log, feature.Single(a))

	r := NewTestMode(State{Running: true})
	r.wrapper = iterativeWrapper(t, r)
	err := r.Check(needsA)
	assert.ErrorContains(t, err, "needsA")
	assert.ErrorContains(t, err, "a not attached")

	r.active = []feature.Feature{a}
	assert.NoError(t, r.Check(needsA))
}

func TestFeatureFilter_RegistersStatics(t *testing.T) {
	var log []string
	a := newTracked("a", &log, nil)
	r := New()
	f := NewFeatureFilter(r)
	f.Init()

	assert.True(t, f.Matches("any/pkg.Type"))
	require.NoError(t, f.Apply(universe.Type{
		Name:    "any/pkg.Type",
		Reflect: reflect.TypeOf(a),
		Statics: []any{a, "not a feature", a},
	}))
	assert.Equal(t, []feature.Feature{a}, r.Registered())
}

func TestFeatureFilter_SelfRegistered(t *testing.T) {
	names := universe.Default().Snapshot().Names()
	assert.Contains(t, names, universe.NameOf[FeatureFilter]())
}
