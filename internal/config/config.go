// SPDX-License-Identifier: MPL-2.0

// Package config loads pysling configuration from a CUE file, with
// environment-variable overrides, validated against an embedded schema.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"pysling/internal/issue"
)

const (
	// AppName is the application name, used for the config directory.
	AppName = "pysling"
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
)

//go:embed config_schema.cue
var configSchema string

type (
	// Backend selects an execution-filesystem variant.
	Backend string

	// Config holds all pysling settings.
	Config struct {
		// Interpreter is the Python executable for bare-fork runs.
		Interpreter string `mapstructure:"interpreter"`
		// BaseDir is where file assets are created.
		BaseDir string `mapstructure:"base_dir"`
		// KeepFiles inhibits cleanup after a run.
		KeepFiles bool `mapstructure:"keep_files"`
		// FS selects the execution-filesystem backend.
		FS Backend `mapstructure:"fs"`
		// MountPoint is the volume backend's mount point.
		MountPoint string `mapstructure:"mount_point"`
		// VolumePath locates the shared directory under the mount point.
		VolumePath string `mapstructure:"volume_path"`
		// Payloads are archive paths for the target's module search path.
		Payloads []string `mapstructure:"payloads"`
	}

	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ConfigFilePath forces loading from a specific file when set.
		ConfigFilePath string
	}
)

// Backend values for Config.FS.
const (
	BackendLocal  Backend = "local"
	BackendShared Backend = "shared"
	BackendVolume Backend = "volume"
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Interpreter: "python3",
		BaseDir:     ".",
		FS:          BackendLocal,
	}
}

// ConfigDir returns the pysling configuration directory following
// XDG conventions.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName), nil
}

// Load reads configuration from opts.ConfigFilePath when set, otherwise
// from the config directory, falling back to defaults when no file exists.
// Environment variables with the PYSLING_ prefix override file values.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("interpreter", defaults.Interpreter)
	v.SetDefault("base_dir", defaults.BaseDir)
	v.SetDefault("keep_files", defaults.KeepFiles)
	v.SetDefault("fs", string(defaults.FS))
	// Registered so environment overrides are visible to Unmarshal even
	// when no config file sets them.
	v.SetDefault("mount_point", defaults.MountPoint)
	v.SetDefault("volume_path", defaults.VolumePath)

	v.SetEnvPrefix("PYSLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := opts.ConfigFilePath
	if path == "" {
		cfgDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		candidate := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		if fileExists(candidate) {
			path = candidate
		}
	} else if !fileExists(path) {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			Wrap(fmt.Errorf("config file not found")).
			Build()
	}

	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the values match the expected schema").
				Wrap(err).
				Build()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config
// schema, and merges its contents into Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		return fmt.Errorf("internal error: #Config not found in schema: %w", schema.Err())
	}

	value := ctx.CompileString(string(data))
	if value.Err() != nil {
		return fmt.Errorf("invalid CUE syntax: %w", value.Err())
	}

	unified := schema.Unify(value)
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}

	var settings map[string]any
	if err := unified.Decode(&settings); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return v.MergeConfigMap(settings)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
