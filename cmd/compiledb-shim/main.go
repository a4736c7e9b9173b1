// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// compiledb-shim stands in for a compiler during a compiledb session.
// It reports the invocation to the session's collector, then replaces
// itself with the real program so the build sees unchanged behavior.
//
// The session wrapper links compiler names (cc, gcc, clang++, ...) to
// this binary in a private directory placed first in PATH. Outside a
// session the shim simply runs the real program.
package main

import (
	"os"

	"github.com/bureau-foundation/compiledb/lib/shim"
)

func main() {
	os.Exit(shim.Main())
}
