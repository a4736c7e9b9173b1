// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package atomicfile replaces files atomically: content is written to
// a temporary file in the destination directory, fsynced, renamed into
// place, and the parent directory is fsynced. Readers see either the
// previous file or the complete new one, never a partial write.
//
// Both session outputs, the compilation database and the event log, go
// through [Write]. A build interrupted while compiledb finalizes leaves
// the previous compile_commands.json intact.
package atomicfile
