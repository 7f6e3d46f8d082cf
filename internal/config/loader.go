package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"featurert/pkg/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/featurert"
	projectConfigDir = ".featurert"
	configFileName   = "config.yaml"
)

// LoadConfig loads the featurert configuration by layering default, user and
// project settings, then the explicit file at path when it is not empty.
func LoadConfig(path string) (FeaturertConfig, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User config is optional
		logging.Warn("Config", "could not determine user config path: %v", err)
	} else if config, err = overlayIfExists(config, userConfigPath); err != nil {
		return FeaturertConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		logging.Warn("Config", "could not determine project config path: %v", err)
	} else if config, err = overlayIfExists(config, projectConfigPath); err != nil {
		return FeaturertConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
	}

	if path != "" {
		explicit, err := loadConfigFromFile(path)
		if err != nil {
			return FeaturertConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
		}
		config = mergeConfigs(config, explicit)
	}

	if err := config.Validate(); err != nil {
		return FeaturertConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func overlayIfExists(base FeaturertConfig, path string) (FeaturertConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return base, nil
	}
	overlay, err := loadConfigFromFile(path)
	if err != nil {
		return base, err
	}
	logging.Debug("Config", "merged %s", path)
	return mergeConfigs(base, overlay), nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads a FeaturertConfig from a YAML or TOML file.
func loadConfigFromFile(filePath string) (FeaturertConfig, error) {
	var config FeaturertConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return FeaturertConfig{}, err
	}
	if strings.EqualFold(filepath.Ext(filePath), ".toml") {
		if _, err := toml.Decode(string(data), &config); err != nil {
			return FeaturertConfig{}, err
		}
		return config, nil
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return FeaturertConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Zero values in
// overlay leave base untouched; exclusion prefixes accumulate.
func mergeConfigs(base, overlay FeaturertConfig) FeaturertConfig {
	merged := base

	if overlay.Discovery.Workers != 0 {
		merged.Discovery.Workers = overlay.Discovery.Workers
	}
	merged.Discovery.ExcludePrefixes = append([]string(nil), base.Discovery.ExcludePrefixes...)
	for _, p := range overlay.Discovery.ExcludePrefixes {
		if !contains(merged.Discovery.ExcludePrefixes, p) {
			merged.Discovery.ExcludePrefixes = append(merged.Discovery.ExcludePrefixes, p)
		}
	}

	if overlay.Runner.JoinTimeout != "" {
		merged.Runner.JoinTimeout = overlay.Runner.JoinTimeout
	}
	if overlay.Runner.TraceDir != "" {
		merged.Runner.TraceDir = overlay.Runner.TraceDir
	}
	if overlay.LogLevel != "" {
		merged.LogLevel = overlay.LogLevel
	}

	return merged
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
