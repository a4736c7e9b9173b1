// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the compiledb command tree.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/compiledb/cmd/compiledb/cli"
	"github.com/bureau-foundation/compiledb/lib/config"
	"github.com/bureau-foundation/compiledb/lib/version"
)

// Streams are the process resources commands use besides their
// arguments.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Level is the logger's level, raised to debug by --verbose.
	Level *slog.LevelVar
}

// Root builds the compiledb command tree. With no subcommand, the
// arguments are a build command to run under capture.
func Root(streams Streams) *cli.Command {
	root := runCommand(streams)
	root.Name = "compiledb"
	root.Summary = ""
	root.Description = `compiledb: generate a compilation database by watching a build.

Runs the build command with every compiler invocation intercepted, then
writes compile_commands.json describing how each source file was
compiled.`
	root.Usage = "compiledb [flags] [--] <build-command...>\n  compiledb <command> [flags]"
	root.Subcommands = []*cli.Command{
		runCommand(streams),
		generateCommand(streams),
		reportCommand(streams),
		versionCommand(streams),
	}
	return root
}

func versionCommand(streams Streams) *cli.Command {
	var short bool
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Usage:   "compiledb version [--short]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("version", pflag.ContinueOnError)
			flagSet.BoolVar(&short, "short", false, "print only the version and commit")
			return flagSet
		},
		Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
			if short {
				fmt.Fprintln(streams.Stdout, version.Info())
				return nil
			}
			fmt.Fprintf(streams.Stdout, "compiledb %s\n", version.Full())
			return nil
		},
	}
}

// loadConfig reads the configuration named by --config, or by
// COMPILEDB_CONFIG when the flag is empty.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
