package harness

import (
	"context"
	"fmt"
	"time"

	"featurert/internal/unit"
)

// Suite runs catalog entries one after another. Runs share the process-wide
// registrar, so they are never concurrent.
type Suite struct {
	catalog  *Catalog
	reporter Reporter
	opts     Options
	failFast bool
}

// NewSuite creates a suite.
func NewSuite(catalog *Catalog, reporter Reporter, opts Options, failFast bool) *Suite {
	if reporter == nil {
		reporter = NewQuietReporter(nil)
	}
	return &Suite{catalog: catalog, reporter: reporter, opts: opts, failFast: failFast}
}

// Run executes the named entries, or every entry when names is empty.
func (s *Suite) Run(ctx context.Context, names []string) (*SuiteResult, error) {
	if len(names) == 0 {
		names = s.catalog.Names()
	}
	for _, name := range names {
		if _, ok := s.catalog.Get(name); !ok {
			return nil, fmt.Errorf("unknown unit %q", name)
		}
	}

	result := &SuiteResult{
		StartTime: time.Now(),
		Total:     len(names),
		Units:     make([]UnitResult, 0, len(names)),
	}
	s.reporter.ReportStart(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			break
		}
		factory, _ := s.catalog.Get(name)

		s.reporter.ReportUnitStart(name)
		unitResult := s.runOne(ctx, name, factory)
		result.Units = append(result.Units, unitResult)
		s.updateCounters(result, unitResult)
		s.reporter.ReportUnitResult(unitResult)

		if s.failFast && unitResult.Result != ResultPassed {
			break
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	s.reporter.ReportSuiteResult(*result)
	return result, nil
}

func (s *Suite) runOne(ctx context.Context, name string, factory Factory) UnitResult {
	result := UnitResult{Name: name, StartTime: time.Now(), Result: ResultPassed, Kind: unit.KindUnknown}
	finish := func() UnitResult {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
		return result
	}

	test := factory()
	if test == nil {
		result.Result = ResultError
		result.Error = "factory returned nil"
		return finish()
	}
	result.Kind = test.Unit().Kind()

	runner, err := NewRunner(test, s.opts)
	if err != nil {
		result.Result = ResultError
		result.Error = err.Error()
		return finish()
	}

	err = runner.Run(ctx)
	result.RunID = runner.RunID()
	if err != nil {
		result.Result = ResultFailed
		result.Error = err.Error()
	}
	return finish()
}

func (s *Suite) updateCounters(result *SuiteResult, u UnitResult) {
	switch u.Result {
	case ResultPassed:
		result.Passed++
	case ResultFailed:
		result.Failed++
	case ResultError:
		result.Errors++
	}
}
