package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_Variants(t *testing.T) {
	it := NewIterative("iter", Funcs{})
	assert.Equal(t, KindIterative, it.Kind())
	assert.Equal(t, "iter", it.Name())
	_, ok := it.Iterative()
	assert.True(t, ok)
	_, ok = it.OneShot()
	assert.False(t, ok)

	os := NewOneShot("once", RunFunc(func(context.Context, *Control) error { return nil }))
	assert.Equal(t, KindOneShot, os.Kind())
	_, ok = os.OneShot()
	assert.True(t, ok)
	_, ok = os.Iterative()
	assert.False(t, ok)

	var zero Unit
	assert.Equal(t, KindUnknown, zero.Kind())
	assert.Equal(t, "unknown(0)", zero.Kind().String())
	assert.Equal(t, "one-shot", KindOneShot.String())
}

func TestFuncs_NilCallbacksAreNoops(t *testing.T) {
	boom := errors.New("boom")
	f := Funcs{OnLoop: func() error { return boom }}
	assert.NoError(t, f.Init())
	assert.NoError(t, f.InitLoop())
	assert.NoError(t, f.Start())
	assert.ErrorIs(t, f.Loop(), boom)
	assert.NoError(t, f.Stop())
}

func TestGate_WaitReleasesOnOpen(t *testing.T) {
	g := NewGate(false)
	assert.False(t, g.IsOpen())

	done := make(chan error, 1)
	go func() { done <- g.Wait(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Wait returned before the gate opened")
	case <-time.After(20 * time.Millisecond):
	}

	g.Open()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Open")
	}
}

func TestGate_CloseRearms(t *testing.T) {
	g := NewGate(true)
	require.NoError(t, g.Wait(context.Background()))

	g.Close()
	g.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.Wait(ctx), context.DeadlineExceeded)

	g.Set(true)
	g.Open()
	assert.True(t, g.IsOpen())
	assert.NoError(t, g.Wait(context.Background()))
}

func TestGates_Normalize(t *testing.T) {
	var nilGates *Gates
	g := nilGates.Normalize()
	assert.True(t, g.AdvanceToStart.IsOpen())
	assert.True(t, g.AdvanceToStop.IsOpen())

	partial := (&Gates{AdvanceToStart: NewGate(false)}).Normalize()
	assert.False(t, partial.AdvanceToStart.IsOpen())
	assert.True(t, partial.AdvanceToStop.IsOpen())

	closed := ClosedGates()
	assert.False(t, closed.AdvanceToStart.IsOpen())
	assert.False(t, closed.AdvanceToStop.IsOpen())
}

func TestControl_Signals(t *testing.T) {
	c := NewControl()
	assert.False(t, c.Started())
	assert.False(t, c.StopRequested())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AwaitStart(ctx), context.DeadlineExceeded)

	c.RequestStop()
	c.RequestStop()
	c.BeginMain()
	assert.True(t, c.Started())
	assert.True(t, c.StopRequested())
	assert.NoError(t, c.AwaitStart(context.Background()))
	assert.NoError(t, c.AwaitStop(context.Background()))

	select {
	case <-c.Stopping():
	default:
		t.Fatal("Stopping channel should be closed")
	}
}
