package wrapper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"featurert/internal/feature"
	"featurert/internal/unit"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) Before(_ *Wrapper, p feature.Phase) { r.add(fmt.Sprintf("pre-%s", p)) }
func (r *recorder) After(_ *Wrapper, p feature.Phase)  { r.add(fmt.Sprintf("post-%s", p)) }

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New(unit.Unit{}, nil)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = New(unit.NewIterative("nil-impl", nil), nil)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestIterative_HooksAroundCallbacks(t *testing.T) {
	rec := &recorder{}
	u := unit.NewIterative("iter", unit.Funcs{
		OnInit: func() error { rec.add("init"); return nil },
		OnStop: func() error { rec.add("stop"); return nil },
	})
	w, err := New(u, rec)
	require.NoError(t, err)
	assert.Equal(t, unit.KindIterative, w.Kind())
	assert.Nil(t, w.Control())

	require.NoError(t, w.Init())
	assert.Equal(t, feature.StateInit, w.State())
	require.NoError(t, w.Start())
	assert.Equal(t, feature.StateActive, w.State())
	require.NoError(t, w.Stop())
	assert.Equal(t, feature.StateStopped, w.State())

	assert.Equal(t, []string{
		"pre-init", "init", "post-init",
		"pre-start", "post-start",
		"pre-stop", "stop", "post-stop",
	}, rec.snapshot())
}

func TestIterative_FailureSkipsPostHook(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	w, err := New(unit.NewIterative("iter", unit.Funcs{OnLoop: func() error { return boom }}), rec)
	require.NoError(t, err)

	err = w.Loop()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"pre-loop"}, rec.snapshot())
}

func TestWrongKindSurfaces(t *testing.T) {
	it, err := New(unit.NewIterative("iter", unit.Funcs{}), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, it.Run(context.Background()), ErrWrongKind)
	assert.ErrorIs(t, it.BeginMain(), ErrWrongKind)
	assert.ErrorIs(t, it.RequestStop(), ErrWrongKind)

	os, err := New(unit.NewOneShot("once", unit.RunFunc(func(context.Context, *unit.Control) error { return nil })), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, os.Init(), ErrWrongKind)
	assert.ErrorIs(t, os.Loop(), ErrWrongKind)
}

func TestOneShot_Transitions(t *testing.T) {
	rec := &recorder{}
	entered := make(chan struct{})
	u := unit.NewOneShot("once", unit.RunFunc(func(ctx context.Context, c *unit.Control) error {
		close(entered)
		if err := c.AwaitStart(ctx); err != nil {
			return err
		}
		rec.add("main")
		return c.AwaitStop(ctx)
	}))
	w, err := New(u, rec)
	require.NoError(t, err)
	require.NotNil(t, w.Control())

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	<-entered
	require.NoError(t, w.BeginMain())
	assert.Equal(t, feature.StateActive, w.State())
	require.NoError(t, w.RequestStop())
	require.NoError(t, <-done)
	assert.Equal(t, feature.StateStopped, w.State())

	events := rec.snapshot()
	assert.Equal(t, []string{"pre-init", "post-init", "pre-start"}, events[:3])
	assert.Contains(t, events, "main")
	assert.Equal(t, "post-stop", events[len(events)-1])
}

func TestOneShot_RunErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	w, err := New(unit.NewOneShot("once", unit.RunFunc(func(context.Context, *unit.Control) error { return boom })), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, w.Run(context.Background()), boom)
}

func TestOneShot_EnteredAfterInitHooks(t *testing.T) {
	rec := &recorder{}
	u := unit.NewOneShot("once", unit.RunFunc(func(ctx context.Context, c *unit.Control) error {
		return c.AwaitStop(ctx)
	}))
	w, err := New(u, rec)
	require.NoError(t, err)
	require.NotNil(t, w.Entered())

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	<-w.Entered()
	assert.Equal(t, feature.StateInit, w.State())
	assert.Equal(t, []string{"pre-init", "post-init"}, rec.snapshot())

	require.NoError(t, w.RequestStop())
	require.NoError(t, <-done)

	it, err := New(unit.NewIterative("iter", unit.Funcs{}), nil)
	require.NoError(t, err)
	assert.Nil(t, it.Entered())
}
