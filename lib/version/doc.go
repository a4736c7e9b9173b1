// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the compiledb
// binaries.
//
// Three package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- semantic version string (set manually for releases)
//
// When they are not injected (go install, go run, tests) the commit and
// dirty flag fall back to the VCS stamp the Go toolchain embeds in the
// binary, read through runtime/debug.
//
//   - [Info] -- "0.1.0-dev (abc1234, 2026-02-10T...)" for version output
//   - [Full] -- Info plus Go version and GOOS/GOARCH
package version
