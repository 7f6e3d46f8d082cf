package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"featurert/internal/discovery"
)

var (
	discoverWorkers int
	discoverJSON    bool
)

type filterSummary struct {
	Name    string `json:"name"`
	Visited int    `json:"visited"`
	Matched int    `json:"matched"`
	Applied int    `json:"applied"`
	Failed  int    `json:"failed"`
}

type discoverSummary struct {
	Stats   discovery.Stats `json:"stats"`
	Filters []filterSummary `json:"filters"`
}

func newDiscoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan the type universe and dispatch every discovered filter",
		Long: `The discover command scans every registered type outside the excluded
namespaces, preloads marked types, collects filters and applies each filter to
every type it matches. It prints scan counters and a per-filter report.

Example usage:
  featurert discover                 # Scan with one worker per CPU
  featurert discover --workers=2     # Bound the dispatch pool
  featurert discover --json          # Machine-readable output`,
		Args: cobra.NoArgs,
		RunE: runDiscover,
	}
	cmd.Flags().IntVar(&discoverWorkers, "workers", 0, "Dispatch workers (default from config, then one per CPU)")
	cmd.Flags().BoolVar(&discoverJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	engine := discovery.New(discoveryOptions(cfg, discoverWorkers))
	engine.Run(ctx)

	summary := discoverSummary{Stats: engine.Stats()}
	for _, r := range engine.Report().Filters {
		summary.Filters = append(summary.Filters, filterSummary{
			Name:    r.Name,
			Visited: r.Visited,
			Matched: r.Matched,
			Applied: r.Applied,
			Failed:  r.Failed,
		})
	}

	if discoverJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	printDiscoverSummary(cmd.OutOrStdout(), summary)
	return nil
}

func printDiscoverSummary(out io.Writer, s discoverSummary) {
	fmt.Fprintf(out, "🔍 Scanned %d types\n", s.Stats.Scanned)
	fmt.Fprintf(out, "   🚫 Excluded: %d\n", s.Stats.Excluded)
	fmt.Fprintf(out, "   ❓ Unresolvable: %d\n", s.Stats.Unresolvable)
	fmt.Fprintf(out, "   📦 Preloaded: %d (%d failed)\n", s.Stats.Preloaded, s.Stats.PreloadFails)
	fmt.Fprintf(out, "   🧩 Filters: %d\n", s.Stats.Filters)
	for _, f := range s.Filters {
		fmt.Fprintf(out, "\n🧩 %s\n", f.Name)
		fmt.Fprintf(out, "   visited %d, matched %d, applied %d, failed %d\n", f.Visited, f.Matched, f.Applied, f.Failed)
	}
}
