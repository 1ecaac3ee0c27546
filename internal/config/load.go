package config

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/conn-castle/metal-server/internal/messages"
)

// ErrConfigValidation is a sentinel that wraps config validation failures
// (as opposed to TOML syntax, filesystem, or other loading errors).
// Callers can use errors.Is(err, ErrConfigValidation) to distinguish
// validation problems from other LoadConfig failure modes.
var ErrConfigValidation = errors.New("config validation failed")

// LoadConfig reads the config file at path from fs and validates it.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf(messages.ConfigMissingFileFmt, path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses and validates config TOML data from a source identifier.
// Keys the data leaves out keep their Default values.
func ParseConfig(data []byte, source string) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf(messages.ConfigInvalidConfigFmt, source, err)
	}
	if err := decodeStrict(data); err != nil {
		return nil, fmt.Errorf("%w: "+messages.ConfigUnrecognizedKeysFmt+" "+messages.ConfigValidationGuidance, ErrConfigValidation, source, err)
	}
	if err := cfg.Validate(source); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigValidation, err)
	}
	return &cfg, nil
}

// decodeStrict re-decodes the TOML data with strict unknown-field rejection.
func decodeStrict(data []byte) error {
	var cfg Config
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	return decoder.Decode(&cfg)
}

// Load resolves the config path from flag and the environment and loads it. A
// missing file at the default location yields the validated defaults; a missing
// file the operator named is an error. The returned source names where the
// config came from.
func Load(fs afero.Fs, flag string) (cfg *Config, source string, err error) {
	path, explicit := ResolvePath(flag)
	if !explicit {
		exists, err := afero.Exists(fs, path)
		if err != nil {
			return nil, path, fmt.Errorf(messages.ConfigMissingFileFmt, path, err)
		}
		if !exists {
			defaults := Default()
			if err := defaults.Validate(defaultsSource); err != nil {
				return nil, defaultsSource, fmt.Errorf("%w: %w", ErrConfigValidation, err)
			}
			return &defaults, defaultsSource, nil
		}
	}
	cfg, err = LoadConfig(fs, path)
	return cfg, path, err
}

const defaultsSource = "built-in defaults"
