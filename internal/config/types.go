package config

import (
	"fmt"
	"time"

	"featurert/pkg/logging"
)

// FeaturertConfig is the top-level configuration structure for featurert.
type FeaturertConfig struct {
	Discovery DiscoveryConfig `yaml:"discovery" toml:"discovery"`
	Runner    RunnerConfig    `yaml:"runner" toml:"runner"`
	LogLevel  string          `yaml:"logLevel,omitempty" toml:"logLevel"` // debug, info, warn or error
}

// DiscoveryConfig tunes type discovery and filter dispatch.
type DiscoveryConfig struct {
	Workers         int      `yaml:"workers,omitempty" toml:"workers"`                 // Dispatch workers, 0 means one per CPU
	ExcludePrefixes []string `yaml:"excludePrefixes,omitempty" toml:"excludePrefixes"` // Namespaces skipped in addition to the built-in ones
}

// RunnerConfig tunes the lifecycle runner.
type RunnerConfig struct {
	JoinTimeout string `yaml:"joinTimeout,omitempty" toml:"joinTimeout"` // e.g. "5s"; bounds one-shot joins
	TraceDir    string `yaml:"traceDir,omitempty" toml:"traceDir"`       // Lifecycle journal directory, empty disables it
}

// JoinTimeoutDuration parses Runner.JoinTimeout. An empty value yields zero,
// which selects the runner's default.
func (c FeaturertConfig) JoinTimeoutDuration() (time.Duration, error) {
	if c.Runner.JoinTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Runner.JoinTimeout)
	if err != nil {
		return 0, fmt.Errorf("runner.joinTimeout: %w", err)
	}
	return d, nil
}

// Validate reports the first invalid setting.
func (c FeaturertConfig) Validate() error {
	if c.Discovery.Workers < 0 {
		return fmt.Errorf("discovery.workers must not be negative, got %d", c.Discovery.Workers)
	}
	for i, p := range c.Discovery.ExcludePrefixes {
		if p == "" {
			return fmt.Errorf("discovery.excludePrefixes[%d] is empty", i)
		}
	}
	d, err := c.JoinTimeoutDuration()
	if err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("runner.joinTimeout must not be negative, got %s", d)
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("unknown logLevel %q", c.LogLevel)
	}
	return nil
}

// GetDefaultConfig returns the configuration used when no file overrides it.
func GetDefaultConfig() FeaturertConfig {
	return FeaturertConfig{
		Discovery: DiscoveryConfig{
			Workers:         0,
			ExcludePrefixes: []string{},
		},
		Runner: RunnerConfig{
			JoinTimeout: "5s",
		},
		LogLevel: "info",
	}
}
