// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"github.com/bureau-foundation/compiledb/lib/compilation"
	"github.com/bureau-foundation/compiledb/lib/record"
)

// Result describes a finished session.
type Result struct {
	// ExitCode is the build command's exit status, or 128+signal when
	// a signal terminated it.
	ExitCode int

	// Records are the deduplicated invocation records, sorted.
	Records []record.Record

	// Entries are the compilation database entries derived from
	// Records. In append mode these are the new entries only.
	Entries []compilation.Entry

	// DatabaseEntries is the number of entries written to the
	// database, including merged ones in append mode. Zero when no
	// database was written.
	DatabaseEntries int

	// Dropped counts frames the collector rejected as malformed.
	Dropped int64

	// Duplicates counts redelivered records removed by fingerprint.
	Duplicates int

	// Err holds aggregation and output failures. It never affects
	// ExitCode.
	Err error
}
