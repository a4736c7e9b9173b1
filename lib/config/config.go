// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/compiledb/lib/eventlog"
)

// EnvironmentVariable names the configuration file when no --config
// flag is given.
const EnvironmentVariable = "COMPILEDB_CONFIG"

// Interception modes.
const (
	// ModeWrapper interposes compiler-named links to the shim
	// executable ahead of PATH.
	ModeWrapper = "wrapper"

	// ModePreload exports the platform preload variable with an
	// interception library.
	ModePreload = "preload"
)

// Config is the complete compiledb configuration.
type Config struct {
	// Output configures what a session writes.
	Output OutputConfig `yaml:"output"`

	// Intercept configures how invocations are captured.
	Intercept InterceptConfig `yaml:"intercept"`
}

// OutputConfig configures session outputs.
type OutputConfig struct {
	// Path is the compilation database.
	// Default: compile_commands.json
	Path string `yaml:"path"`

	// Append merges into an existing database instead of replacing it.
	Append bool `yaml:"append"`

	// CommandString writes shell-quoted "command" strings instead of
	// "arguments" arrays.
	CommandString bool `yaml:"command_string"`

	// Events, when set, also archives the raw invocation records. The
	// suffix selects the format (.json, .cbor, .cbor.zst, .cbor.lz4,
	// .sqlite).
	Events string `yaml:"events"`
}

// InterceptConfig configures interception.
type InterceptConfig struct {
	// Mode is "wrapper" or "preload".
	// Default: wrapper
	Mode string `yaml:"mode"`

	// Library is the interception library exported in preload mode.
	// A literal $LIB is kept for the dynamic loader to expand.
	Library string `yaml:"library"`

	// Shim is the compiledb-shim executable for wrapper mode.
	// Default: compiledb-shim beside the compiledb binary, then PATH.
	Shim string `yaml:"shim"`

	// Compilers are extra program names to intercept and treat as
	// compilers, in addition to the built-in cc/gcc/clang families.
	Compilers []string `yaml:"compilers"`

	// EnvironmentKeys are extra environment variables to record with
	// each invocation.
	EnvironmentKeys []string `yaml:"environment_keys"`

	// ReportTimeout bounds how long a shim waits for its record to be
	// acknowledged before running the compiler anyway.
	// Default: 5s
	ReportTimeout time.Duration `yaml:"report_timeout"`

	// DrainTimeout bounds how long the session waits for in-flight
	// reports after the build command exits.
	// Default: 5s
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Path: "compile_commands.json",
		},
		Intercept: InterceptConfig{
			Mode:          ModeWrapper,
			ReportTimeout: 5 * time.Second,
			DrainTimeout:  5 * time.Second,
		},
	}
}

// Load loads the file named by COMPILEDB_CONFIG, or returns [Default]
// when the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path over the defaults and expands
// variables in path fields.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.expandVariables(os.LookupEnv)
	return cfg, nil
}

// decode merges YAML data into c. Unknown keys are errors so typos in
// option names do not silently fall back to defaults.
func (c *Config) decode(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables(lookup func(string) (string, bool)) {
	c.Output.Path = expandVars(c.Output.Path, lookup)
	c.Output.Events = expandVars(c.Output.Events, lookup)
	c.Intercept.Library = expandVars(c.Intercept.Library, lookup)
	c.Intercept.Shim = expandVars(c.Intercept.Shim, lookup)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. Unset or
// empty variables take the default, or the empty string without one.
func expandVars(s string, lookup func(string) (string, bool)) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value, ok := lookup(parts[1]); ok && value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration, reporting every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Output.Path == "" {
		errs = append(errs, errors.New("output.path is required"))
	}
	if c.Output.Events != "" {
		if _, err := eventlog.FormatForPath(c.Output.Events); err != nil {
			errs = append(errs, fmt.Errorf("output.events: %w", err))
		}
	}

	modes := []string{ModeWrapper, ModePreload}
	if !slices.Contains(modes, c.Intercept.Mode) {
		errs = append(errs, fmt.Errorf("intercept.mode must be one of: %v", modes))
	}
	if c.Intercept.Mode == ModePreload && c.Intercept.Library == "" {
		errs = append(errs, errors.New("intercept.library is required in preload mode"))
	}

	for _, name := range c.Intercept.Compilers {
		if name == "" {
			errs = append(errs, errors.New("intercept.compilers contains an empty name"))
			break
		}
	}

	if c.Intercept.ReportTimeout <= 0 {
		errs = append(errs, errors.New("intercept.report_timeout must be positive"))
	}
	if c.Intercept.DrainTimeout <= 0 {
		errs = append(errs, errors.New("intercept.drain_timeout must be positive"))
	}

	return errors.Join(errs...)
}
