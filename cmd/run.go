package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"featurert/internal/harness"
	"featurert/pkg/logging"
)

var (
	runTimeout    time.Duration
	runVerbose    bool
	runQuiet      bool
	runFailFast   bool
	runReportPath string
	runTraceDir   string
	runWorkers    int
)

// completeUnitArgs provides shell completion for catalog entries
func completeUnitArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return harness.DefaultCatalog().Names(), cobra.ShellCompDirectiveNoFileComp
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [unit...]",
		Short: "Run catalog units through their lifecycle",
		Long: `The run command performs discovery once, then drives each selected catalog
unit through configure, register, patch, run, stop and teardown with its
features attached. Units run one after another.

Example usage:
  featurert run                          # Run every catalog unit
  featurert run counter                  # Run a single unit
  featurert run --verbose --fail-fast    # Detailed output, stop on first failure
  featurert run --trace-dir=.trace       # Append lifecycle events to a journal
  featurert run --report=result.json     # Save a JSON report`,
		ValidArgsFunction: completeUnitArgs,
		RunE:              runUnits,
	}

	cmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "Overall execution timeout")
	cmd.Flags().BoolVar(&runVerbose, "verbose", false, "Enable verbose output")
	cmd.Flags().BoolVar(&runQuiet, "quiet", false, "Only print failures and a summary")
	cmd.Flags().BoolVar(&runFailFast, "fail-fast", false, "Stop on first failure")
	cmd.Flags().StringVar(&runReportPath, "report", "", "Path to save a JSON report (default: stdout only)")
	cmd.Flags().StringVar(&runTraceDir, "trace-dir", "", "Lifecycle journal directory (overrides the config file)")
	cmd.Flags().IntVar(&runWorkers, "workers", 0, "Dispatch workers for discovery (default from config)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	return cmd
}

func runUnits(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()
	timeoutCtx, timeoutCancel := context.WithTimeout(ctx, runTimeout)
	defer timeoutCancel()

	harness.Discover(timeoutCtx, discoveryOptions(cfg, runWorkers))

	opts, closeJournal, err := runnerOptions(cfg, runTraceDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeJournal(); err != nil {
			logging.Warn("CLI", "closing trace journal: %v", err)
		}
	}()

	reporter := harness.NewConsoleReporter(cmd.OutOrStdout(), runVerbose)
	if runQuiet {
		reporter = harness.NewQuietReporter(cmd.OutOrStdout())
	}

	suite := harness.NewSuite(harness.DefaultCatalog(), reporter, opts, runFailFast)
	result, err := suite.Run(timeoutCtx, args)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if runReportPath != "" {
		if err := writeReport(runReportPath, result); err != nil {
			return err
		}
	}

	if result.Failed > 0 || result.Errors > 0 {
		return fmt.Errorf("%d of %d units did not pass", result.Failed+result.Errors, result.Total)
	}
	return nil
}

func writeReport(path string, result *harness.SuiteResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// signalContext derives a context from the command's that is cancelled on
// interrupt or termination.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
