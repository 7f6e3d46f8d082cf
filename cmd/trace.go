package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"featurert/internal/trace"
)

var traceRunID string

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <dir>",
		Short: "Print the lifecycle events recorded in a trace journal",
		Long: `The trace command reads a journal written by "featurert run --trace-dir"
and prints one line per recorded phase, oldest first.

Example usage:
  featurert trace .trace
  featurert trace .trace --run=4f1c...   # Only one run`,
		Args: cobra.ExactArgs(1),
		RunE: runTrace,
	}
	cmd.Flags().StringVar(&traceRunID, "run", "", "Only print events of this run id")
	return cmd
}

func runTrace(cmd *cobra.Command, args []string) error {
	var only uuid.UUID
	if traceRunID != "" {
		id, err := uuid.Parse(traceRunID)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", traceRunID, err)
		}
		only = id
	}

	events, err := trace.ReadAll(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tUNIT\tPHASE\tAT\tERROR")
	shown := 0
	for _, e := range events {
		if only != uuid.Nil && e.RunID != only {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.RunID, e.Unit, e.Phase, e.At.Format(time.RFC3339Nano), e.Err)
		shown++
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if shown == 0 {
		fmt.Fprintf(out, "⚠️  No events in %s\n", args[0])
	}
	return nil
}
