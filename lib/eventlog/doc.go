// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventlog archives the raw invocation records of a session.
//
// The compilation database keeps only compiler runs and only what clang
// tooling needs. The event log keeps every record the session
// collected, so a database can be regenerated later (compiledb
// generate) with different settings, and so builds can be inspected
// (compiledb report).
//
// The format is chosen by file name:
//
//	events.json        indented JSON array
//	events.cbor        CBOR sequence (RFC 8742), one record per item
//	events.cbor.zst    zstd-compressed CBOR sequence
//	events.cbor.lz4    LZ4 frame-compressed CBOR sequence
//	events.sqlite      SQLite table, queryable with the sqlite3 shell
//
// Every format is written atomically: a reader sees the previous
// archive or the complete new one.
package eventlog
