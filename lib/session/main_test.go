// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/compiledb/lib/compiler"
	"github.com/bureau-foundation/compiledb/lib/shim"
)

// TestMain lets the test binary serve as the shim. Sessions in these
// tests link compiler names to os.Executable(); when the build runs
// one of them, this process starts under that name and behaves exactly
// like compiledb-shim.
func TestMain(m *testing.M) {
	name := filepath.Base(os.Args[0])
	if name == shim.Name || compiler.NewRecognizer(testCompilerNames...).IsCompiler(name) {
		os.Exit(shim.Main())
	}
	os.Exit(m.Run())
}

// testCompilerNames are extra compiler names used by tests.
var testCompilerNames = []string{"fakecc"}
