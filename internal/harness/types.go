package harness

import (
	"time"

	"github.com/google/uuid"

	"featurert/internal/feature"
	"featurert/internal/unit"
)

// Test describes one unit under test and the features registered for it.
type Test interface {
	// Configure runs after collected configurations have been applied to the
	// test, and may adjust the result.
	Configure() error
	// Unit is the unit to drive.
	Unit() unit.Unit
	// Features are registered before the unit runs and deregistered after.
	Features() []feature.Feature
	// Gates control when the unit advances to its main phase and to stop.
	Gates() *unit.Gates
}

// Base supplies defaults for every Test method except Unit.
type Base struct{}

// Configure does nothing.
func (Base) Configure() error { return nil }

// Features returns none.
func (Base) Features() []feature.Feature { return nil }

// Gates returns open gates.
func (Base) Gates() *unit.Gates { return unit.OpenGates() }

// LogResolutionFailures is embedded by a test to have features that fail to
// activate for its unit logged at error level instead of debug.
type LogResolutionFailures struct{}

func (LogResolutionFailures) logResolutionFailures() {}

type resolutionLogger interface {
	logResolutionFailures()
}

// Result is the outcome of one unit run
type Result string

const (
	// ResultPassed indicates the unit ran and tore down cleanly
	ResultPassed Result = "PASSED"
	// ResultFailed indicates the unit or its teardown returned an error
	ResultFailed Result = "FAILED"
	// ResultError indicates the runner could not be wired for the unit
	ResultError Result = "ERROR"
)

// UnitResult represents the result of running a single catalog entry
type UnitResult struct {
	// Name is the catalog name of the test
	Name string `json:"name"`
	// Kind is the unit kind that was driven
	Kind unit.Kind `json:"kind"`
	// RunID identifies the run in trace journals
	RunID uuid.UUID `json:"run_id"`
	// Result is the overall result
	Result Result `json:"result"`
	// StartTime when the run began
	StartTime time.Time `json:"start_time"`
	// EndTime when the run completed
	EndTime time.Time `json:"end_time"`
	// Duration of the run
	Duration time.Duration `json:"duration"`
	// Error message if the run failed
	Error string `json:"error,omitempty"`
}

// SuiteResult represents the overall result of running several catalog entries
type SuiteResult struct {
	// StartTime when suite execution began
	StartTime time.Time `json:"start_time"`
	// EndTime when suite execution completed
	EndTime time.Time `json:"end_time"`
	// Duration of suite execution
	Duration time.Duration `json:"duration"`
	// Total is the number of units selected
	Total int `json:"total"`
	// Passed is the number of units that passed
	Passed int `json:"passed"`
	// Failed is the number of units that failed
	Failed int `json:"failed"`
	// Errors is the number of units that could not be run
	Errors int `json:"errors"`
	// Units contains individual results
	Units []UnitResult `json:"units"`
}

// Reporter receives suite progress
type Reporter interface {
	// ReportStart is called before the first unit runs
	ReportStart(names []string)
	// ReportUnitStart is called when a unit begins
	ReportUnitStart(name string)
	// ReportUnitResult is called when a unit completes
	ReportUnitResult(result UnitResult)
	// ReportSuiteResult is called when every selected unit completed
	ReportSuiteResult(result SuiteResult)
}
