// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SocketDir creates a temporary directory suitable for Unix domain
// sockets. The directory is automatically removed when the test
// completes.
func SocketDir(t *testing.T) string {
	t.Helper()
	directory, err := os.MkdirTemp("/tmp", "compiledb-test-*")
	if err != nil {
		t.Fatalf("creating socket directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(directory)
	})
	return directory
}

// Script writes body as an executable /bin/sh script named name in
// directory and returns its path.
//
//	compiler := testutil.Script(t, binDirectory, "cc", `touch "$4"`)
func Script(t *testing.T, directory, name, body string) string {
	t.Helper()
	path := filepath.Join(directory, name)
	content := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("writing script %s: %v", path, err)
	}
	return path
}
