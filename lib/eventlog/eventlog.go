// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/compiledb/lib/atomicfile"
	"github.com/bureau-foundation/compiledb/lib/codec"
	"github.com/bureau-foundation/compiledb/lib/record"
)

// Write atomically replaces the event log at path with records, in the
// format selected by path's suffix.
func Write(path string, records []record.Record) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	if format == FormatSQLite {
		return writeSQLite(path, records)
	}
	return atomicfile.Write(path, 0o644, func(w io.Writer) error {
		return Encode(w, format, records)
	})
}

// Read returns the records stored in the event log at path.
func Read(path string) ([]record.Record, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	if format == FormatSQLite {
		return readSQLite(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := Decode(file, format)
	if err != nil {
		return nil, fmt.Errorf("reading event log %s: %w", path, err)
	}
	return records, nil
}

// Encode writes records to w in a stream format. FormatSQLite is not a
// stream format and is rejected.
func Encode(w io.Writer, format Format, records []record.Record) error {
	switch format {
	case FormatJSON:
		if records == nil {
			records = []record.Record{}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		return encoder.Encode(records)

	case FormatCBOR:
		return encodeSequence(w, records)

	case FormatCBORZstd:
		compressor, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("zstd writer: %w", err)
		}
		if err := encodeSequence(compressor, records); err != nil {
			compressor.Close()
			return err
		}
		return compressor.Close()

	case FormatCBORLZ4:
		compressor := lz4.NewWriter(w)
		if err := encodeSequence(compressor, records); err != nil {
			compressor.Close()
			return err
		}
		return compressor.Close()

	default:
		return fmt.Errorf("format %s cannot be streamed", format)
	}
}

// Decode reads records from r in a stream format.
func Decode(r io.Reader, format Format) ([]record.Record, error) {
	switch format {
	case FormatJSON:
		var records []record.Record
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, err
		}
		return records, nil

	case FormatCBOR:
		return decodeSequence(r)

	case FormatCBORZstd:
		decompressor, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer decompressor.Close()
		return decodeSequence(decompressor)

	case FormatCBORLZ4:
		return decodeSequence(lz4.NewReader(r))

	default:
		return nil, fmt.Errorf("format %s cannot be streamed", format)
	}
}

func encodeSequence(w io.Writer, records []record.Record) error {
	encoder := codec.NewEncoder(w)
	for index := range records {
		if err := encoder.Encode(&records[index]); err != nil {
			return fmt.Errorf("encoding record %d: %w", index, err)
		}
	}
	return nil
}

func decodeSequence(r io.Reader) ([]record.Record, error) {
	decoder := codec.NewDecoder(r)
	var records []record.Record
	for {
		var item record.Record
		err := decoder.Decode(&item)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decoding record %d: %w", len(records), err)
		}
		records = append(records, item)
	}
}
