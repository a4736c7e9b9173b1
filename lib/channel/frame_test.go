// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundtrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("a"),
		[]byte("cc -c 'file with\nnewline.c'"),
		bytes.Repeat([]byte{0x00, 0xFF}, 10000),
	}

	var buffer bytes.Buffer
	for _, payload := range payloads {
		if err := WriteFrame(&buffer, payload); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	for i, want := range payloads {
		got, err := ReadFrame(&buffer)
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d mismatch: %d bytes vs %d", i, len(got), len(want))
		}
	}

	if _, err := ReadFrame(&buffer); err != io.EOF {
		t.Errorf("ReadFrame at end = %v, want io.EOF", err)
	}
}

func TestWriteFrameRejects(t *testing.T) {
	if err := WriteFrame(io.Discard, nil); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("empty payload: %v", err)
	}
	if err := WriteFrame(io.Discard, make([]byte, MaxFrameSize+1)); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("oversized payload: %v", err)
	}
}

// countingWriter counts Write calls so the test can assert a
// frame is never split by the writer.
type countingWriter struct {
	calls int
	bytes.Buffer
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.calls++
	return w.Buffer.Write(p)
}

func TestWriteFrameSingleWrite(t *testing.T) {
	var writer countingWriter
	if err := WriteFrame(&writer, []byte("payload")); err != nil {
		t.Fatal(err)
	}
	if writer.calls != 1 {
		t.Errorf("WriteFrame issued %d writes, want 1", writer.calls)
	}
	if writer.Len() != headerSize+len("payload") {
		t.Errorf("wrote %d bytes", writer.Len())
	}
}

func TestReadFrameErrors(t *testing.T) {
	header := func(length uint32) []byte {
		var prefix [4]byte
		binary.BigEndian.PutUint32(prefix[:], length)
		return prefix[:]
	}

	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{name: "partial header", input: []byte{0x00, 0x00}, want: ErrTruncatedFrame},
		{name: "zero length", input: header(0), want: ErrEmptyFrame},
		{name: "oversized", input: header(MaxFrameSize + 1), want: ErrFrameTooLarge},
		{name: "truncated payload", input: append(header(10), 'a', 'b'), want: ErrTruncatedFrame},
		{name: "header only", input: header(3), want: ErrTruncatedFrame},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(test.input))
			if !errors.Is(err, test.want) {
				t.Errorf("ReadFrame error = %v, want %v", err, test.want)
			}
		})
	}
}
