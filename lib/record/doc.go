// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package record defines the Invocation Record: the captured
// description of one process-creation event observed by the
// interception shim.
//
// A [Record] is created by the shim at interception time, travels to
// the session wrapper as one CBOR frame, and is consumed exactly once
// by the session's aggregator. Records are treated as immutable once
// captured; nothing in compiledb mutates a record after [Record.Validate]
// has accepted it.
//
// [Fingerprint] identifies the exec event a record describes. Two
// deliveries of the same event (same process, same command, same
// directory) produce the same fingerprint and are collapsed during
// aggregation. Two different processes running an identical command
// line produce different fingerprints, because each one is a real
// compiler invocation that must appear in the output.
package record
