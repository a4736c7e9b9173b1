// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session runs a build command under interception and turns
// the invocations it captured into a compilation database.
//
// A [Session] moves one way through five states:
//
//	Idle → ChildSpawned → Draining → Finalizing → Done
//
// Setup (Idle) opens a collector on a Unix socket in a private
// directory and, in wrapper mode, fills a second directory with
// compiler-named links to the shim executable. The build command then
// runs in its own process group with an environment that routes every
// compiler exec through the shim (ChildSpawned). Signals the wrapper
// receives are forwarded to the group; cancelling the context kills it.
//
// When the build's direct child exits, the collector keeps accepting
// while any member of its process group survives, then stops and waits
// for reports still in flight, all within DrainTimeout (Draining).
// Shims only run the real compiler after their record is acknowledged,
// so every compiler run the build waited for is already stored by then.
//
// Finalizing deduplicates records by fingerprint, orders them
// deterministically, writes the optional event log, and writes or
// appends the compilation database. Failures here are reported in
// [Result].Err and never change the exit code: the session exits with
// the build's status, or 128+signal when the build was killed.
package session
