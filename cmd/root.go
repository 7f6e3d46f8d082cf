package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"featurert/internal/config"
	_ "featurert/internal/demo" // sample plugins and catalog entries
	"featurert/pkg/logging"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "featurert",
	Short: "Discover plugins and drive execution units through their lifecycle",
	Long: `featurert scans the registered type universe for plugins, applies the
filters it finds to every type, and runs execution units through a simulated
lifecycle with their features attached, recording each phase.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. failed units, invalid configuration)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v // Set cobra's version field as well
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "featurert version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newDiscoverCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newTraceCmd())
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file, YAML or TOML (default layers ~/.config/featurert and ./.featurert)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides the config file)")
}

// loadSettings loads the layered configuration, applies flag overrides and
// initialises logging.
func loadSettings() (config.FeaturertConfig, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return config.FeaturertConfig{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		return config.FeaturertConfig{}, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	logging.InitForCLI(level, os.Stderr)
	return cfg, nil
}
