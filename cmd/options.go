package cmd

import (
	"fmt"

	"featurert/internal/config"
	"featurert/internal/discovery"
	"featurert/internal/harness"
	"featurert/internal/search"
	"featurert/internal/trace"
)

// discoveryOptions maps configuration onto discovery settings. Configured
// exclusions extend the built-in ones.
func discoveryOptions(cfg config.FeaturertConfig, workers int) discovery.Options {
	namespaces := search.Narrow()
	for _, prefix := range cfg.Discovery.ExcludePrefixes {
		namespaces.Exclude(prefix)
	}
	if workers <= 0 {
		workers = cfg.Discovery.Workers
	}
	return discovery.Options{Workers: workers, Namespaces: namespaces}
}

// runnerOptions maps configuration onto runner settings. The returned close
// function releases the trace journal, if one was opened.
func runnerOptions(cfg config.FeaturertConfig, traceDir string) (harness.Options, func() error, error) {
	joinTimeout, err := cfg.JoinTimeoutDuration()
	if err != nil {
		return harness.Options{}, nil, err
	}
	opts := harness.Options{JoinTimeout: joinTimeout, Recorder: trace.Console{}}
	closeFn := func() error { return nil }

	if traceDir == "" {
		traceDir = cfg.Runner.TraceDir
	}
	if traceDir != "" {
		journal, err := trace.OpenJournal(traceDir)
		if err != nil {
			return harness.Options{}, nil, fmt.Errorf("failed to open trace journal: %w", err)
		}
		opts.Recorder = trace.Multi{trace.Console{}, journal}
		closeFn = journal.Close
	}
	return opts, closeFn, nil
}
