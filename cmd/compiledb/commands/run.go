// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/compiledb/cmd/compiledb/cli"
	"github.com/bureau-foundation/compiledb/lib/compilation"
	"github.com/bureau-foundation/compiledb/lib/config"
	"github.com/bureau-foundation/compiledb/lib/environ"
	"github.com/bureau-foundation/compiledb/lib/session"
	"github.com/bureau-foundation/compiledb/lib/shim"
)

// runFlags are the flags of the run command. Each one overrides the
// matching configuration value only when given on the command line.
type runFlags struct {
	output        string
	append        bool
	events        string
	mode          string
	library       string
	shim          string
	commandString bool
	configPath    string
	verbose       bool
}

func (f *runFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&f.output, "output", "o", "compile_commands.json", "compilation database to write")
	flagSet.BoolVarP(&f.append, "append", "a", false, "merge into an existing database instead of overwriting it")
	flagSet.StringVar(&f.events, "events", "", "also write raw invocation records (.json, .cbor, .cbor.zst, .cbor.lz4, .sqlite)")
	flagSet.StringVar(&f.mode, "mode", config.ModeWrapper, "interception mode: wrapper or preload")
	flagSet.StringVar(&f.library, "library", "", "interception library for preload mode ($LIB is kept literal)")
	flagSet.StringVar(&f.shim, "shim", "", "shim executable (default: "+shim.Name+" next to compiledb, then PATH)")
	flagSet.BoolVar(&f.commandString, "command-string", false, `write "command" strings instead of "arguments" arrays`)
	flagSet.StringVar(&f.configPath, "config", "", "YAML configuration file (default: $"+config.EnvironmentVariable+")")
	flagSet.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
}

// apply overrides cfg with every flag set on the command line.
func (f *runFlags) apply(flagSet *pflag.FlagSet, cfg *config.Config) {
	if flagSet.Changed("output") {
		cfg.Output.Path = f.output
	}
	if flagSet.Changed("append") {
		cfg.Output.Append = f.append
	}
	if flagSet.Changed("events") {
		cfg.Output.Events = f.events
	}
	if flagSet.Changed("command-string") {
		cfg.Output.CommandString = f.commandString
	}
	if flagSet.Changed("mode") {
		cfg.Intercept.Mode = f.mode
	}
	if flagSet.Changed("library") {
		cfg.Intercept.Library = f.library
	}
	if flagSet.Changed("shim") {
		cfg.Intercept.Shim = f.shim
	}
}

func runCommand(streams Streams) *cli.Command {
	var flags runFlags
	var flagSet *pflag.FlagSet

	return &cli.Command{
		Name:    "run",
		Summary: "Run a build command and write its compilation database",
		Description: `Run a build command with compiler invocations intercepted, then write
the compilation database.

The exit status is the build command's. A build killed by a signal
exits with 128 plus the signal number. Failing to write the database is
logged but does not change the exit status.

Wrapper mode (the default) intercepts compilers found through PATH and
through CC or CXX. A build that runs a compiler by absolute path, as
CMake, Meson, and Ninja generated builds do (/usr/bin/cc), bypasses it
and records nothing; use --mode preload for those.`,
		Usage: "compiledb run [flags] [--] <build-command...>",
		Examples: []cli.Example{
			{
				Description: "Capture a make build",
				Command:     "compiledb -- make -j8",
			},
			{
				Description: "Add a second build's entries to the existing database",
				Command:     "compiledb --append -- make -C tools",
			},
			{
				Description: "Keep the raw records for later regeneration",
				Command:     "compiledb --events build.cbor.zst -- ninja",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet = pflag.NewFlagSet("run", pflag.ContinueOnError)
			flagSet.SetInterspersed(false)
			flags = runFlags{}
			flags.register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if flags.verbose && streams.Level != nil {
				streams.Level.Set(slog.LevelDebug)
			}

			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return cli.Validation("loading configuration: %w", err)
			}
			flags.apply(flagSet, cfg)
			if err := cfg.Validate(); err != nil {
				return cli.Validation("invalid configuration: %w", err)
			}
			if len(args) == 0 {
				return cli.Validation("no build command given\n\nUsage: compiledb [flags] -- <build-command...>")
			}

			return runBuild(ctx, args, cfg, flags.verbose, streams, logger)
		},
	}
}

// runBuild runs one capture session for args.
func runBuild(ctx context.Context, args []string, cfg *config.Config, verbose bool, streams Streams, logger *slog.Logger) error {
	shimPath := cfg.Intercept.Shim
	if cfg.Intercept.Mode == config.ModeWrapper && shimPath == "" {
		var err error
		if shimPath, err = locateShim(selfPath(), os.Getenv("PATH")); err != nil {
			return cli.Internal("%w", err)
		}
	}

	format := compilation.DefaultFormat()
	format.CommandAsArray = !cfg.Output.CommandString

	build, err := session.New(session.Config{
		Command:         args,
		Mode:            session.Mode(cfg.Intercept.Mode),
		ShimPath:        shimPath,
		Library:         cfg.Intercept.Library,
		Compilers:       cfg.Intercept.Compilers,
		EnvironmentKeys: cfg.Intercept.EnvironmentKeys,
		ReportTimeout:   cfg.Intercept.ReportTimeout,
		DrainTimeout:    cfg.Intercept.DrainTimeout,
		Output:          cfg.Output.Path,
		Append:          cfg.Output.Append,
		Format:          format,
		EventLog:        cfg.Output.Events,
		Stdin:           streams.Stdin,
		Stdout:          streams.Stdout,
		Stderr:          streams.Stderr,
		Verbose:         verbose,
		Logger:          logger,
	})
	if err != nil {
		return cli.Validation("%w", err)
	}

	result, err := build.Run(ctx)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return cli.NotFound("%s: command not found", args[0])
		}
		return cli.Internal("%w", err)
	}

	logger.Debug("session complete",
		"records", len(result.Records),
		"entries", len(result.Entries),
		"duplicates", result.Duplicates,
		"dropped", result.Dropped,
	)
	if result.ExitCode != 0 {
		return &cli.ExitError{Code: result.ExitCode}
	}
	return nil
}

// selfPath returns the running compiledb binary with symlinks
// resolved, or "" if it cannot be determined.
func selfPath() string {
	self, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(self); err == nil {
		return resolved
	}
	return self
}

// locateShim finds the shim executable: first beside the compiledb
// binary at self, then on pathValue.
func locateShim(self, pathValue string) (string, error) {
	if self != "" {
		candidate := filepath.Join(filepath.Dir(self), shim.Name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	for _, directory := range environ.SearchPath(pathValue) {
		candidate := filepath.Join(directory, shim.Name)
		if !isExecutable(candidate) {
			continue
		}
		absolute, err := filepath.Abs(candidate)
		if err != nil {
			return "", err
		}
		return absolute, nil
	}
	return "", fmt.Errorf("%s not found next to compiledb or in PATH (use --shim)", shim.Name)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode()&0o111 != 0
}
