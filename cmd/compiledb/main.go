// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// compiledb runs a build command and writes a compilation database
// (compile_commands.json) describing every compiler invocation the
// build made.
//
//	compiledb -- make -j8
//	compiledb --append --events build.cbor.zst -- ninja
//
// Compilers are intercepted by compiledb-shim, linked under compiler
// names in a private directory placed first in PATH. See "compiledb
// --help" for every subcommand.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/bureau-foundation/compiledb/cmd/compiledb/cli"
	"github.com/bureau-foundation/compiledb/cmd/compiledb/commands"
	"github.com/bureau-foundation/compiledb/lib/process"
)

func main() {
	process.Exit(run())
}

func run() error {
	level := new(slog.LevelVar)
	logger := cli.NewCommandLogger(level)
	root := commands.Root(commands.Streams{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Level:  level,
	})
	return root.Execute(context.Background(), os.Args[1:], logger)
}
