// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compilation reads and writes JSON compilation databases
// (compile_commands.json) as consumed by clang tooling.
//
// A database is a JSON array of entries, each naming a working
// directory, a source file, and the compiler command either as an
// "arguments" array or as a shell-quoted "command" string, plus an
// optional "output". [Load] accepts both command forms and tolerates
// comments and trailing commas; [Save] writes the form selected by
// [Format] and replaces the file atomically.
//
// Entries are built from captured invocation records with
// [FromRecords]. Two entries are the same when directory, file, and
// arguments match; output does not participate, so re-running a build
// into the same database with [Merge] adds nothing new.
package compilation
