package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"alpaca/pkg/logging"
)

const (
	userConfigDir  = ".config/alpaca"
	configFileName = "config.yaml"
)

// osUserHomeDir is replaced in tests.
var osUserHomeDir = os.UserHomeDir

// DefaultConfigPath returns ~/.config/alpaca.
func DefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads config.yaml from configPath on top of the built-in
// defaults. A missing file is not an error.
func LoadConfig(configPath string) (AlpacaConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return AlpacaConfig{}, &ConfigurationError{
			FilePath:  configFilePath,
			ErrorType: "io",
			Message:   err.Error(),
			Err:       err,
		}
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return AlpacaConfig{}, &ConfigurationError{
			FilePath:    configFilePath,
			ErrorType:   "parse",
			Message:     fmt.Sprintf("malformed YAML: %v", err),
			Suggestions: []string{"Check the indentation and quoting of config.yaml"},
			Err:         err,
		}
	}

	if err := validate(configFilePath, config); err != nil {
		return AlpacaConfig{}, err
	}

	logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

func validate(path string, config AlpacaConfig) error {
	if config.Output != "" && !slices.Contains(OutputFormats(), config.Output) {
		return &ConfigurationError{
			FilePath:    path,
			Field:       "output",
			ErrorType:   "validation",
			Message:     fmt.Sprintf("unsupported output format %q", config.Output),
			Suggestions: []string{"Use one of: " + strings.Join(OutputFormats(), ", ")},
		}
	}
	if _, err := logging.ParseLevel(config.LogLevel); err != nil {
		return &ConfigurationError{
			FilePath:    path,
			Field:       "logLevel",
			ErrorType:   "validation",
			Message:     err.Error(),
			Suggestions: []string{"Use one of: debug, info, warn, error"},
			Err:         err,
		}
	}
	if p := config.DefaultConnection.Port; p < 0 || p > 65535 {
		return &ConfigurationError{
			FilePath:  path,
			Field:     "defaultConnection.port",
			ErrorType: "validation",
			Message:   fmt.Sprintf("port %d out of range", p),
		}
	}
	if proto := config.DefaultConnection.Protocol; proto != "" && proto != "http" && proto != "https" {
		return &ConfigurationError{
			FilePath:    path,
			Field:       "defaultConnection.protocol",
			ErrorType:   "validation",
			Message:     fmt.Sprintf("unsupported protocol %q", proto),
			Suggestions: []string{"Use http or https"},
		}
	}
	return nil
}
