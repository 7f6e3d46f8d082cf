package harness

import (
	"context"
	"sync"
	"testing"

	"featurert/internal/discovery"
)

var (
	discoverOnce sync.Once
	discovered   *discovery.Engine
)

// Discover runs process-wide discovery the first time it is called. Later
// calls return the same engine and ignore opts.
func Discover(ctx context.Context, opts discovery.Options) *discovery.Engine {
	discoverOnce.Do(func() {
		discovered = discovery.New(opts)
		discovered.Run(ctx)
	})
	return discovered
}

// RunTest runs discovery once per process, then drives test through its
// lifecycle with default options. Any failure fails t.
func RunTest(t testing.TB, test Test) {
	t.Helper()
	RunTestWith(t, test, Options{})
}

// RunTestWith is RunTest with explicit runner options.
func RunTestWith(t testing.TB, test Test, opts Options) {
	t.Helper()
	ctx := context.Background()
	Discover(ctx, discovery.Options{})

	r, err := NewRunner(test, opts)
	if err != nil {
		t.Fatalf("wiring %T: %v", test, err)
	}
	if err := r.Run(ctx); err != nil {
		t.Fatalf("%s: %+v", test.Unit().Name(), err)
	}
}
