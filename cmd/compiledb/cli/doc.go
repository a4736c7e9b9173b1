// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the compiledb
// binary.
//
// A [Command] tree is dispatched by its first positional argument.
// Flags use github.com/spf13/pflag; each command builds its FlagSet
// lazily. A command may carry both Run and Subcommands: Run handles
// any argument list that does not name a subcommand, which is how
// "compiledb make -j8" and "compiledb run -- make -j8" mean the same
// thing.
//
// Errors returned by commands select the process exit status through
// an ExitCode() method (see lib/process). [Validation], [NotFound], and
// [Internal] categorize failures; [ExitError] carries a status that has
// already been reported, such as the build command's own exit code.
package cli
