// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// DebugEnvironment turns on debug logging without -v.
const DebugEnvironment = "COMPILEDB_DEBUG"

// NewCommandLogger creates the structured logger for command
// operations. When stderr is a terminal it uses slog.TextHandler for
// human-readable output; when stderr is piped or redirected (CI,
// scripts, integration tests) it uses slog.JSONHandler.
//
// The level is read through level on every record, so a command can
// raise verbosity after its flags are parsed:
//
//	level := new(slog.LevelVar)
//	logger := cli.NewCommandLogger(level)
//	...
//	level.Set(slog.LevelDebug)
func NewCommandLogger(level *slog.LevelVar) *slog.Logger {
	if os.Getenv(DebugEnvironment) != "" {
		level.Set(slog.LevelDebug)
	}
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level)
}

func newLogger(w io.Writer, terminal bool, level slog.Leveler) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if terminal {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}
