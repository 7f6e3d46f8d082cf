package harness

import (
	"fmt"
	"io"
	"os"
)

// consoleReporter prints progress lines for each unit
type consoleReporter struct {
	out     io.Writer
	verbose bool
}

// NewConsoleReporter creates a reporter writing to out, or stdout when nil
func NewConsoleReporter(out io.Writer, verbose bool) Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &consoleReporter{out: out, verbose: verbose}
}

// ReportStart is called before the first unit runs
func (r *consoleReporter) ReportStart(names []string) {
	fmt.Fprintf(r.out, "🧪 Running %d units\n", len(names))
	if r.verbose {
		for _, name := range names {
			fmt.Fprintf(r.out, "   • %s\n", name)
		}
		fmt.Fprintf(r.out, "\n")
	}
}

// ReportUnitStart is called when a unit begins
func (r *consoleReporter) ReportUnitStart(name string) {
	if r.verbose {
		fmt.Fprintf(r.out, "🎯 Starting unit: %s\n", name)
		return
	}
	fmt.Fprintf(r.out, "🎯 %s... ", name)
}

// ReportUnitResult is called when a unit completes
func (r *consoleReporter) ReportUnitResult(result UnitResult) {
	symbol := resultSymbol(result.Result)
	if r.verbose {
		fmt.Fprintf(r.out, "%s Unit completed: %s [%s] (%v)\n", symbol, result.Name, result.Kind, result.Duration)
		fmt.Fprintf(r.out, "   🔖 Run: %s\n", result.RunID)
		if result.Error != "" {
			fmt.Fprintf(r.out, "   ❌ Error: %s\n", result.Error)
		}
		fmt.Fprintf(r.out, "\n")
		return
	}
	fmt.Fprintf(r.out, "%s (%v)\n", symbol, result.Duration)
	if result.Error != "" {
		fmt.Fprintf(r.out, "   ❌ %s\n", result.Error)
	}
}

// ReportSuiteResult is called when every selected unit completed
func (r *consoleReporter) ReportSuiteResult(result SuiteResult) {
	fmt.Fprintf(r.out, "\n🏁 Run Complete\n")
	fmt.Fprintf(r.out, "⏱️  Duration: %v\n", result.Duration)
	fmt.Fprintf(r.out, "📊 Results:\n")
	fmt.Fprintf(r.out, "   ✅ Passed: %d\n", result.Passed)
	if result.Failed > 0 {
		fmt.Fprintf(r.out, "   ❌ Failed: %d\n", result.Failed)
	}
	if result.Errors > 0 {
		fmt.Fprintf(r.out, "   💥 Errors: %d\n", result.Errors)
	}
	fmt.Fprintf(r.out, "   📈 Total: %d\n", result.Total)

	if result.Failed == 0 && result.Errors == 0 {
		fmt.Fprintf(r.out, "\n🎉 All units passed!\n")
	} else {
		fmt.Fprintf(r.out, "\n💔 Some units failed\n")
	}
}

func resultSymbol(result Result) string {
	switch result {
	case ResultPassed:
		return "✅"
	case ResultFailed:
		return "❌"
	case ResultError:
		return "💥"
	default:
		return "❓"
	}
}

// NewQuietReporter creates a reporter that only prints failures and a summary
func NewQuietReporter(out io.Writer) Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &quietReporter{out: out}
}

// quietReporter implements minimal output for CI
type quietReporter struct {
	out io.Writer
}

func (r *quietReporter) ReportStart([]string) {}

func (r *quietReporter) ReportUnitStart(string) {}

func (r *quietReporter) ReportUnitResult(result UnitResult) {
	if result.Result == ResultPassed {
		return
	}
	fmt.Fprintf(r.out, "%s %s: %s\n", resultSymbol(result.Result), result.Name, result.Error)
}

func (r *quietReporter) ReportSuiteResult(result SuiteResult) {
	if result.Failed == 0 && result.Errors == 0 {
		fmt.Fprintf(r.out, "✅ All %d units passed\n", result.Passed)
		return
	}
	fmt.Fprintf(r.out, "❌ %d/%d units failed\n", result.Failed+result.Errors, result.Total)
}
