// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/compiledb/cmd/compiledb/cli"
	"github.com/bureau-foundation/compiledb/lib/compilation"
	"github.com/bureau-foundation/compiledb/lib/compiler"
	"github.com/bureau-foundation/compiledb/lib/eventlog"
)

func generateCommand(streams Streams) *cli.Command {
	var (
		events        string
		output        string
		appendMode    bool
		commandString bool
		compilers     []string
		configPath    string
	)

	return &cli.Command{
		Name:    "generate",
		Summary: "Write a compilation database from a recorded event log",
		Description: `Convert the raw invocation records of an earlier session (written with
--events) into a compilation database, without running the build again.`,
		Usage: "compiledb generate --events PATH [flags]",
		Examples: []cli.Example{
			{
				Description: "Regenerate the database with command strings",
				Command:     "compiledb generate --events build.cbor.zst --command-string",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("generate", pflag.ContinueOnError)
			flagSet.StringVar(&events, "events", "", "event log to read (required)")
			flagSet.StringVarP(&output, "output", "o", "compile_commands.json", "compilation database to write")
			flagSet.BoolVarP(&appendMode, "append", "a", false, "merge into an existing database instead of overwriting it")
			flagSet.BoolVar(&commandString, "command-string", false, `write "command" strings instead of "arguments" arrays`)
			flagSet.StringSliceVar(&compilers, "compiler", nil, "extra program name to treat as a compiler (repeatable)")
			flagSet.StringVar(&configPath, "config", "", "YAML configuration file supplying extra compiler names")
			return flagSet
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			if events == "" {
				return cli.Validation("--events is required")
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return cli.Validation("loading configuration: %w", err)
			}

			records, err := eventlog.Read(events)
			if err != nil {
				return cli.Internal("%w", err)
			}

			recognizer := compiler.NewRecognizer(append(cfg.Intercept.Compilers, compilers...)...)
			entries := compilation.FromRecords(records, recognizer)
			format := compilation.Format{CommandAsArray: !commandString}

			written := len(entries)
			if appendMode {
				written, err = compilation.Append(output, entries, format)
			} else {
				err = compilation.Save(output, entries, format)
			}
			if err != nil {
				return cli.Internal("writing compilation database: %w", err)
			}

			logger.Info("compilation database written",
				"path", output,
				"records", len(records),
				"entries", written,
			)
			return nil
		},
	}
}
