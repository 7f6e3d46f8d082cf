package dispatch

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"featurert/internal/universe"
	"featurert/pkg/logging"
)

// FilterReport counts what happened on one filter's chain.
type FilterReport struct {
	Name    string
	Filter  Filter
	Visited int
	Matched int
	Applied int
	Failed  int
}

// Report is the outcome of one Dispatch, in filter order.
type Report struct {
	Filters []FilterReport
	// Err is the context error when a chain was cut short by cancellation.
	Err error
}

// For returns the report of the given filter.
func (r Report) For(f Filter) (FilterReport, bool) {
	for _, fr := range r.Filters {
		if fr.Filter == f {
			return fr, true
		}
	}
	return FilterReport{}, false
}

// Totals sums every filter report.
func (r Report) Totals() FilterReport {
	total := FilterReport{Name: "total"}
	for _, fr := range r.Filters {
		total.Visited += fr.Visited
		total.Matched += fr.Matched
		total.Applied += fr.Applied
		total.Failed += fr.Failed
	}
	return total
}

// Pool is a bounded worker pool shared by every filter chain of a dispatch.
type Pool struct {
	workers int
	loader  *universe.Loader

	// OnChainDone, if set, is called from a worker when a chain finishes.
	OnChainDone func(FilterReport)
}

// NewPool creates a pool with the given number of workers. Non-positive
// values fall back to runtime.NumCPU(). A nil loader uses the active one.
func NewPool(workers int, loader *universe.Loader) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if loader == nil {
		loader = universe.ActiveLoader()
	}
	return &Pool{workers: workers, loader: loader}
}

// Workers returns the pool size.
func (p *Pool) Workers() int { return p.workers }

// chain walks one filter over the snapshot. Only one task per chain is ever
// queued or running, so its fields need no locking.
type chain struct {
	filter Filter
	cursor int
	report FilterReport
}

// Dispatch runs every filter over the snapshot and blocks until all chains
// have completed. Cancelling ctx stops chains from claiming further types; the
// report's Err is then set.
func (p *Pool) Dispatch(ctx context.Context, filters []Filter, snap universe.Snapshot) Report {
	chains := make([]*chain, len(filters))
	for i, f := range filters {
		chains[i] = &chain{filter: f, report: FilterReport{Name: filterName(f), Filter: f}}
	}
	if len(chains) == 0 {
		return Report{}
	}

	// Capacity equals the number of chains, and each chain holds at most one
	// slot, so resubmission from a worker never blocks.
	tasks := make(chan *chain, len(chains))
	for _, c := range chains {
		tasks <- c
	}

	var pending sync.WaitGroup
	pending.Add(len(chains))
	go func() {
		pending.Wait()
		close(tasks)
	}()

	workers := p.workers
	if workers > len(chains) {
		workers = len(chains)
	}
	logging.Debug("Dispatch", "dispatching %d filters over %d types with %d workers", len(chains), snap.Len(), workers)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			var cut error
			for c := range tasks {
				if p.step(ctx, c, snap) {
					tasks <- c
					continue
				}
				if c.cursor < snap.Len() && cut == nil {
					cut = ctx.Err()
				}
				logging.Debug("Dispatch", "filter %s finished: visited=%d matched=%d applied=%d failed=%d",
					c.report.Name, c.report.Visited, c.report.Matched, c.report.Applied, c.report.Failed)
				if p.OnChainDone != nil {
					p.OnChainDone(c.report)
				}
				pending.Done()
			}
			return cut
		})
	}
	err := g.Wait()

	report := Report{Filters: make([]FilterReport, len(chains)), Err: err}
	for i, c := range chains {
		report.Filters[i] = c.report
	}
	return report
}

// step claims the chain's next type and processes it. It reports whether the
// chain has more work.
func (p *Pool) step(ctx context.Context, c *chain, snap universe.Snapshot) bool {
	if c.cursor >= snap.Len() || ctx.Err() != nil {
		return false
	}
	entry := snap.At(c.cursor)
	c.cursor++
	c.report.Visited++

	matched, err := safeMatches(c.filter, entry.Name)
	if err != nil {
		c.report.Failed++
		logging.Debug("Dispatch", "filter %s: match %s: %v", c.report.Name, entry.Name, err)
		return true
	}
	if !matched {
		return true
	}
	c.report.Matched++

	if err := p.apply(c.filter, entry); err != nil {
		c.report.Failed++
		logging.Debug("Dispatch", "filter %s: apply %s: %v", c.report.Name, entry.Name, err)
		return true
	}
	c.report.Applied++
	return true
}

func (p *Pool) apply(f Filter, entry universe.Entry) (err error) {
	lock := f.Locker()
	lock.Lock()
	defer lock.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	t, err := p.loader.Materialize(entry)
	if err != nil {
		return err
	}
	return f.Apply(t)
}

func safeMatches(f Filter, name string) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f.Matches(name), nil
}

func filterName(f Filter) string {
	if named, ok := f.(interface{ Name() string }); ok {
		return named.Name()
	}
	return universe.QualifiedName(reflect.TypeOf(f))
}
