// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// EnvApplier is implemented by configurations that take overrides from
// dedicated environment variables after the file is parsed.
type EnvApplier interface {
	ApplyEnv() error
}

// Load loads configuration from a YAML file with environment variable expansion.
func Load[T any](filename string, target *T) error {
	if err := decode(filename, target); err != nil {
		return err
	}
	return finish(target)
}

// LoadOptional is Load for a configuration file that may not exist. A
// missing file keeps the values already in target; environment overrides
// and validation still apply.
func LoadOptional[T any](filename string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return finish(target)
	}
	return Load(filename, target)
}

func decode[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expandedData := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expandedData), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return nil
}

func finish[T any](target *T) error {
	if applier, ok := any(target).(EnvApplier); ok {
		if err := applier.ApplyEnv(); err != nil {
			return fmt.Errorf("config environment overrides failed: %w", err)
		}
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}
