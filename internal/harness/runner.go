package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"featurert/internal/configurable"
	"featurert/internal/feature"
	"featurert/internal/mirror"
	"featurert/internal/registrar"
	"featurert/internal/trace"
	"featurert/internal/unit"
	"featurert/internal/wrapper"
	"featurert/pkg/logging"
)

// DefaultJoinTimeout bounds how long a stopped one-shot unit may take to return.
const DefaultJoinTimeout = 5 * time.Second

var (
	// ErrJoinTimeout is returned when a one-shot unit does not return after a
	// stop was requested.
	ErrJoinTimeout = errors.New("one-shot unit did not finish after stop was requested")
	// ErrUnknownKind is returned by NewRunner for a unit with an unrecognised kind.
	ErrUnknownKind = wrapper.ErrUnknownKind
)

// Options configures a Runner. Zero values select the process-wide defaults.
type Options struct {
	Registrar      *registrar.Registrar
	Configurations *configurable.Registry
	Recorder       trace.Recorder
	JoinTimeout    time.Duration
}

// Runner drives one Test through the lifecycle.
type Runner struct {
	test        Test
	registrar   *registrar.Registrar
	configs     *configurable.Registry
	recorder    trace.Recorder
	joinTimeout time.Duration

	registered *mirror.Cell[[]feature.Feature]
	queue      *mirror.Cell[[]registrar.Pending]
	active     *mirror.Cell[[]feature.Feature]
	installed  *mirror.Cell[*wrapper.Wrapper]
	running    *mirror.Cell[bool]
	logFails   *mirror.Cell[bool]

	runID   uuid.UUID
	handles []feature.Feature
}

// NewRunner wires a runner for test. Binding failures and unknown unit kinds
// are returned here, before anything runs.
func NewRunner(test Test, opts Options) (*Runner, error) {
	if test == nil {
		return nil, errors.New("nil test")
	}
	if k := test.Unit().Kind(); k != unit.KindIterative && k != unit.KindOneShot {
		return nil, fmt.Errorf("unit %q: %w: %s", test.Unit().Name(), ErrUnknownKind, k)
	}

	if opts.Registrar == nil {
		opts.Registrar = registrar.Global()
	}
	if opts.Configurations == nil {
		opts.Configurations = configurable.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = trace.Console{}
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = DefaultJoinTimeout
	}

	r := &Runner{
		test:        test,
		registrar:   opts.Registrar,
		configs:     opts.Configurations,
		recorder:    opts.Recorder,
		joinTimeout: opts.JoinTimeout,
	}

	var err error
	if r.registered, err = mirror.Bind[[]feature.Feature](r.registrar, "registered"); err != nil {
		return nil, err
	}
	if r.queue, err = mirror.Bind[[]registrar.Pending](r.registrar, "queue"); err != nil {
		return nil, err
	}
	if r.active, err = mirror.Bind[[]feature.Feature](r.registrar, "active"); err != nil {
		return nil, err
	}
	if r.installed, err = mirror.Bind[*wrapper.Wrapper](r.registrar, "wrapper"); err != nil {
		return nil, err
	}
	if r.running, err = mirror.Bind[bool](r.registrar, "running"); err != nil {
		return nil, err
	}
	if r.logFails, err = mirror.Bind[bool](r.registrar, "logFailures"); err != nil {
		return nil, err
	}
	return r, nil
}

// RunID identifies the most recent run.
func (r *Runner) RunID() uuid.UUID { return r.runID }

// Run drives the test through every lifecycle state.
func (r *Runner) Run(ctx context.Context) (err error) {
	r.runID = uuid.New()
	r.handles = nil
	name := r.test.Unit().Name()
	logging.Info("Runner", "running %s (%s) as %s", name, r.test.Unit().Kind(), r.runID)

	if err := r.configure(); err != nil {
		r.record(trace.PhaseConfigured, err)
		return err
	}
	r.record(trace.PhaseConfigured, nil)

	defer func() {
		if tdErr := r.teardown(); tdErr != nil {
			err = errors.Join(err, tdErr)
		}
	}()

	if err := r.register(); err != nil {
		r.record(trace.PhaseRegistered, err)
		return err
	}
	r.record(trace.PhaseRegistered, nil)

	w, err := r.patch()
	if err != nil {
		r.record(trace.PhasePatched, err)
		return err
	}
	r.record(trace.PhasePatched, nil)

	gates := r.test.Gates().Normalize()
	switch w.Kind() {
	case unit.KindIterative:
		err = r.runIterative(ctx, w, gates)
	case unit.KindOneShot:
		err = r.runOneShot(ctx, w, gates)
	}
	if err != nil {
		logging.Warn("Runner", "%s failed: %v", name, err)
	}
	return err
}

func (r *Runner) configure() error {
	if err := r.configs.Apply(r.test); err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	if err := r.test.Configure(); err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	return nil
}

// register clears state left behind by an earlier unit, then registers the
// test's features so they are picked up at patch time.
func (r *Runner) register() error {
	r.running.Set(false)
	r.active.Set(nil)
	r.queue.Set(nil)
	r.installed.Set(nil)

	for i, f := range r.test.Features() {
		if f == nil {
			return fmt.Errorf("register: feature %d is nil", i)
		}
		r.registrar.Register(f)
		r.handles = append(r.handles, f)
	}
	return nil
}

// patch drops stale entries, installs the wrapper and activates every registered
// feature as a production unit start would.
func (r *Runner) patch() (*wrapper.Wrapper, error) {
	r.registrar.Clean()
	_, verbose := r.test.(resolutionLogger)
	r.logFails.Set(verbose)

	w, err := wrapper.New(r.test.Unit(), r.registrar)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	r.installed.Set(w)
	r.running.Set(true)

	registered := r.registered.Get()
	pending := make([]registrar.Pending, len(registered))
	for i, f := range registered {
		pending[i] = registrar.Pending{Feature: f, Register: true}
	}
	r.queue.Set(pending)
	if err := r.registrar.ResolveQueue(); err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	logging.Debug("Runner", "%d features active for %s", len(r.active.Get()), w.Name())
	return w, nil
}

func (r *Runner) runIterative(ctx context.Context, w *wrapper.Wrapper, gates *unit.Gates) error {
	r.record(trace.PhaseInit, nil)
	if err := guard(w.Init); err != nil {
		return err
	}
	for !gates.AdvanceToStart.IsOpen() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := guard(w.InitLoop); err != nil {
			return err
		}
	}

	r.record(trace.PhaseStart, nil)
	if err := guard(w.Start); err != nil {
		return err
	}
	for !gates.AdvanceToStop.IsOpen() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := guard(w.Loop); err != nil {
			return err
		}
	}

	r.record(trace.PhaseStop, nil)
	return guard(w.Stop)
}

func (r *Runner) runOneShot(ctx context.Context, w *wrapper.Wrapper, gates *unit.Gates) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	r.record(trace.PhaseInit, nil)
	go func() {
		done <- guard(func() error { return w.Run(runCtx) })
	}()

	select {
	case <-w.Entered():
	case runErr := <-done:
		return runErr
	case <-ctx.Done():
		return ctx.Err()
	}

	finished, runErr, err := awaitGate(ctx, gates.AdvanceToStart, done)
	if err != nil {
		return err
	}
	if finished {
		return runErr
	}
	r.record(trace.PhaseStart, nil)
	if err := w.BeginMain(); err != nil {
		return err
	}

	finished, runErr, err = awaitGate(ctx, gates.AdvanceToStop, done)
	if err != nil {
		return err
	}
	if finished {
		return runErr
	}
	r.record(trace.PhaseStop, nil)
	if err := w.RequestStop(); err != nil {
		return err
	}

	timer := time.NewTimer(r.joinTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		cancel()
		return fmt.Errorf("%s: %w after %s", w.Name(), ErrJoinTimeout, r.joinTimeout)
	}
}

// awaitGate blocks until g opens, the unit's goroutine finishes, or ctx ends.
func awaitGate(ctx context.Context, g *unit.Gate, done <-chan error) (finished bool, runErr, err error) {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	opened := make(chan error, 1)
	go func() { opened <- g.Wait(waitCtx) }()

	select {
	case err := <-opened:
		return false, nil, err
	case runErr := <-done:
		return true, runErr, nil
	}
}

// teardown runs STOPPING and TORN_DOWN. Every deregistration is attempted
// regardless of earlier failures. The registrar is only touched through its
// locked methods here, since a one-shot unit that missed its join timeout may
// still be calling into it.
func (r *Runner) teardown() error {
	var errs []error

	if err := r.registrar.OnPostStop(); err != nil {
		errs = append(errs, fmt.Errorf("post-stop: %w", err))
	}
	r.record(trace.PhaseStopping, errors.Join(errs...))

	targets := r.registrar.Registered()
	for _, f := range r.handles {
		if !containsFeature(targets, f) {
			targets = append(targets, f)
		}
	}
	for _, f := range targets {
		if err := guard(func() error { r.registrar.Deregister(f); return nil }); err != nil {
			errs = append(errs, fmt.Errorf("deregister %s: %w", feature.Name(f), err))
		}
	}
	if err := r.registrar.ResolveQueue(); err != nil {
		errs = append(errs, fmt.Errorf("teardown: %w", err))
	}

	err := errors.Join(errs...)
	r.record(trace.PhaseTornDown, err)
	logging.Debug("Runner", "deregistered %d features", len(targets))
	return err
}

func (r *Runner) record(phase trace.Phase, err error) {
	if rerr := r.recorder.Record(trace.NewEvent(r.runID, r.test.Unit().Name(), phase, err)); rerr != nil {
		logging.Warn("Runner", "recording %s: %v", phase, rerr)
	}
}

// guard converts a panic in unit or feature code into an error with a stack.
func guard(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = pkgerrors.WithStack(e)
				return
			}
			err = pkgerrors.Errorf("panic: %v", rec)
		}
	}()
	return fn()
}

func containsFeature(fs []feature.Feature, f feature.Feature) bool {
	for _, candidate := range fs {
		if candidate == f {
			return true
		}
	}
	return false
}
