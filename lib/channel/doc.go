// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package channel implements the report channel between interception
// shims and the session wrapper.
//
// # Transport
//
// The wrapper listens on a Unix stream socket whose path it exports to
// the build as COMPILEDB_REPORT_SOCKET. Each shim opens its own
// connection, so frames written by concurrent processes can never
// interleave on the wire. The wrapper owns the read side exclusively.
//
// # Framing
//
// A connection carries one or more frames:
//
//	+----------------------+-------------------------------+
//	| length (uint32, BE)  | payload (length bytes, CBOR)  |
//	+----------------------+-------------------------------+
//
// The payload is one CBOR map encoding an invocation record using the
// json field names of record.Record ("executable", "arguments",
// "directory", "environment", "pid", "ppid", "captured"). Lengths of 0
// or above [MaxFrameSize] are framing errors. Arguments may contain
// any byte sequence, including newlines and NULs in quoted strings,
// without ambiguity, which is why the protocol is not line-delimited.
//
// # Acknowledgement
//
// After each frame the collector answers with one byte:
//
//   - [Ack] (0x06): the record was validated and stored.
//   - [Nak] (0x15): the frame was well-formed but the record was
//     rejected; the connection stays usable.
//
// On a framing error the collector closes the connection without
// answering. A shim does not exec the real program until it has read
// the acknowledgement (or given up after its timeout), which guarantees
// that every record from a process that ran to completion is stored
// before the build command exits.
//
// Any implementation of the shim, including a preloaded C library, can
// interoperate by following this description.
package channel
