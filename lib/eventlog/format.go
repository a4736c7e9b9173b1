// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"fmt"
	"strings"
)

// Format identifies an event log encoding.
type Format uint8

const (
	// FormatJSON is an indented JSON array of records.
	FormatJSON Format = iota + 1

	// FormatCBOR is a CBOR sequence of records.
	FormatCBOR

	// FormatCBORZstd is a CBOR sequence compressed with zstd.
	FormatCBORZstd

	// FormatCBORLZ4 is a CBOR sequence in an LZ4 frame.
	FormatCBORLZ4

	// FormatSQLite is a SQLite database with one row per record.
	FormatSQLite
)

// suffixes maps file name endings to formats. Longer suffixes come
// first so ".cbor.zst" is not taken for ".zst" of something else.
var suffixes = []struct {
	suffix string
	format Format
}{
	{".cbor.zst", FormatCBORZstd},
	{".cbor.lz4", FormatCBORLZ4},
	{".cbor", FormatCBOR},
	{".json", FormatJSON},
	{".sqlite", FormatSQLite},
	{".sqlite3", FormatSQLite},
	{".db", FormatSQLite},
}

// String returns the format's canonical file suffix without the dot.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCBOR:
		return "cbor"
	case FormatCBORZstd:
		return "cbor.zst"
	case FormatCBORLZ4:
		return "cbor.lz4"
	case FormatSQLite:
		return "sqlite"
	default:
		return fmt.Sprintf("unknown(%d)", f)
	}
}

// FormatForPath returns the format selected by path's suffix.
func FormatForPath(path string) (Format, error) {
	lower := strings.ToLower(path)
	for _, candidate := range suffixes {
		if strings.HasSuffix(lower, candidate.suffix) {
			return candidate.format, nil
		}
	}
	return 0, fmt.Errorf("event log %s: unrecognized suffix (want .json, .cbor, .cbor.zst, .cbor.lz4, or .sqlite)", path)
}
