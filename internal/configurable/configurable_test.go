package configurable

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featurert/internal/universe"
)

type motor struct {
	applied []string
}

func (m *motor) Configure() error {
	m.applied = append(m.applied, "self")
	return nil
}

func tag(name string) func(*motor) error {
	return func(m *motor) error {
		m.applied = append(m.applied, name)
		return nil
	}
}

func TestApply_HighestLevelWins(t *testing.T) {
	r := NewRegistry()
	r.Add(For[*motor]("runtime", LevelRuntime, tag("runtime")))
	r.Add(For[*motor]("library", LevelLibrary, tag("library")))
	r.Add(For[*motor]("user", LevelUser, tag("user")))
	r.Add(For[string]("unrelated", LevelUser, func(string) error { return nil }))

	m := &motor{}
	require.NoError(t, r.Apply(m))
	assert.Equal(t, []string{"user"}, m.applied)
}

func TestApply_PriorityReplacesOverridden(t *testing.T) {
	r := NewRegistry()
	base := For[*motor]("base", LevelLibrary, tag("base"))
	middle := For[*motor]("middle", LevelLibrary, tag("middle"), base)
	top := For[*motor]("top", LevelLibrary, tag("top"), middle)
	r.Add(base)
	r.Add(top)
	r.Add(middle)

	m := &motor{}
	require.NoError(t, r.Apply(m))
	assert.Equal(t, []string{"top"}, m.applied)
}

func TestApply_CompetingPeersBothApply(t *testing.T) {
	r := NewRegistry()
	r.Add(For[*motor]("left", LevelLibrary, tag("left")))
	r.Add(For[*motor]("right", LevelLibrary, tag("right")))

	m := &motor{}
	require.NoError(t, r.Apply(m))
	assert.Equal(t, []string{"left", "right"}, m.applied)
}

func TestAdd_IgnoresRepeats(t *testing.T) {
	r := NewRegistry()
	c := For[*motor]("once", LevelLibrary, tag("once"))
	r.Add(c)
	r.Add(c)
	assert.Len(t, r.Configurations(), 1)

	m := &motor{}
	require.NoError(t, r.Apply(m))
	assert.Equal(t, []string{"once"}, m.applied)
}

func TestApply_NoConfigurations(t *testing.T) {
	m := &motor{}
	require.NoError(t, NewRegistry().Apply(m))
	assert.Empty(t, m.applied)
}

func TestApply_ErrorIsReturned(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	r.Add(For[*motor]("failing", LevelUser, func(*motor) error { return boom }))
	assert.ErrorIs(t, r.Apply(&motor{}), boom)
}

type cyclic struct {
	name string
	over []Configuration
}

func (c *cyclic) Applies(any) bool                 { return true }
func (c *cyclic) Configure(any) error              { return nil }
func (c *cyclic) PrioritisedOver() []Configuration { return c.over }
func (c *cyclic) Level() Level                     { return LevelUser }

func TestFinish_DropsCyclesAndConfiguresTargets(t *testing.T) {
	a := &cyclic{name: "a"}
	b := &cyclic{name: "b", over: []Configuration{a}}
	a.over = []Configuration{b}
	self := &cyclic{name: "self"}
	self.over = []Configuration{self}
	fine := For[*motor]("fine", LevelLibrary, tag("fine"))

	r := NewRegistry()
	r.Add(a)
	r.Add(b)
	r.Add(self)
	r.Add(fine)
	m := &motor{}
	r.AddConfigurable(m)

	r.Finish()
	assert.Equal(t, []Configuration{fine}, r.Configurations())
	assert.Equal(t, []string{"self"}, m.applied)

	r.Finish()
	assert.Equal(t, []string{"self"}, m.applied)
}

func TestFilter_CollectsStatics(t *testing.T) {
	r := NewRegistry()
	f := NewFilter(r)
	f.Init()
	assert.True(t, f.Matches("any/pkg.Type"))

	cfg := For[*motor]("cfg", LevelUser, tag("cfg"))
	m := &motor{}
	require.NoError(t, f.Apply(universe.Type{
		Name:    "any/pkg.Type",
		Reflect: reflect.TypeOf(m),
		Statics: []any{cfg, m, 42},
	}))
	f.Finish()

	assert.Equal(t, []Configuration{cfg}, r.Configurations())
	assert.Equal(t, []string{"self"}, m.applied)
	require.NoError(t, r.Apply(m))
	assert.Equal(t, []string{"self", "cfg"}, m.applied)
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "library", LevelLibrary.String())
	assert.Equal(t, "level(9)", Level(9).String())
}
