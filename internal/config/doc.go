// Package config provides configuration management for featurert.
//
// Configuration is loaded from several sources and merged in order, with later
// sources overriding earlier ones:
//
//  1. Default configuration (GetDefaultConfig)
//  2. User configuration (~/.config/featurert/config.yaml)
//  3. Project configuration (./.featurert/config.yaml)
//  4. An explicit file passed with --config
//
// Files are YAML unless their name ends in .toml. A typical file:
//
//	discovery:
//	  workers: 4
//	  excludePrefixes:
//	    - "example.com/vendored"
//	runner:
//	  joinTimeout: "10s"
//	  traceDir: ".featurert/trace"
//	logLevel: debug
//
// Excluded prefixes are added to the built-in exclusions; they never replace
// them.
package config
