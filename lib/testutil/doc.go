// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for compiledb packages.
//
// [SocketDir] creates a temporary directory in /tmp suitable for Unix
// domain sockets. Unix domain sockets have a 108-byte path limit
// (sun_path in sockaddr_un), and t.TempDir() under a deeply nested
// TMPDIR can exceed it. The directory is removed when the test
// completes.
//
// [Script] writes an executable shell script, used to stand in for
// compilers and build commands so tests never depend on a real
// toolchain being installed.
//
// [RequireReceive] encapsulates the timeout safety valve pattern
// (select with time.After fallback) so that individual tests do not
// need direct time.After calls.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no compiledb-internal dependencies.
package testutil
