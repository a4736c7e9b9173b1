// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the compiledb
// binaries: translating the error returned from main's run function
// into a message on stderr and the process exit status. That write
// happens outside the structured logger.
//
// Errors that carry their own status implement ExitCode() int. The
// compiledb CLI uses this to mirror the build command's exit code and
// to exit 127 when the build command does not exist.
package process
