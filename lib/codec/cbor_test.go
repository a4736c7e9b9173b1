// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// sampleFrame is a representative internal message using cbor struct
// tags (the convention for purely-internal types).
type sampleFrame struct {
	Executable string   `cbor:"executable"`
	Arguments  []string `cbor:"arguments,omitempty"`
	PID        int      `cbor:"pid"`
}

// sampleDualRecord uses json struct tags (the convention for types
// that serve both JSON and CBOR, relying on fxamacker's fallback).
type sampleDualRecord struct {
	Directory string    `json:"directory"`
	Captured  time.Time `json:"captured"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleFrame{
		Executable: "/usr/bin/cc",
		Arguments:  []string{"cc", "-c", "a.c"},
		PID:        4242,
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Marshal produced empty output")
	}

	var decoded sampleFrame
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Executable != original.Executable || decoded.PID != original.PID ||
		strings.Join(decoded.Arguments, " ") != strings.Join(original.Arguments, " ") {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"pid": 7, "executable": "/bin/cc", "arguments": []string{"cc"}}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestEncoderDecoderStreamRoundtrip(t *testing.T) {
	frames := []sampleFrame{
		{Executable: "/usr/bin/cc", PID: 1},
		{Executable: "/usr/bin/c++", Arguments: []string{"c++", "-c", "b.cc"}, PID: 2},
		{Executable: "/usr/bin/ld", PID: 3},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, frame := range frames {
		if err := encoder.Encode(frame); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range frames {
		var got sampleFrame
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode frame %d: %v", i, err)
		}
		if got.Executable != want.Executable || got.PID != want.PID {
			t.Errorf("frame %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestJSONTagFallbackWithTime(t *testing.T) {
	original := sampleDualRecord{
		Directory: "/build",
		Captured:  time.Date(2026, 3, 1, 12, 30, 0, 123456789, time.UTC),
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"directory"`) {
		t.Errorf("json tag name not used as CBOR key: %s", notation)
	}
	if !strings.Contains(notation, "2026-03-01T12:30:00.123456789Z") {
		t.Errorf("time not encoded as RFC 3339 text: %s", notation)
	}

	var decoded sampleDualRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Directory != original.Directory || !decoded.Captured.Equal(original.Captured) {
		t.Errorf("json-tag roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var frame sampleFrame
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &frame); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestUnmarshalRejectsTrailingBytes(t *testing.T) {
	data, err := Marshal(sampleFrame{Executable: "/bin/cc"})
	if err != nil {
		t.Fatal(err)
	}
	data = append(data, 0x01)

	var frame sampleFrame
	if err := Unmarshal(data, &frame); err == nil {
		t.Error("Unmarshal should reject trailing bytes after the first item")
	}
}

func BenchmarkMarshal(b *testing.B) {
	frame := sampleFrame{
		Executable: "/usr/bin/cc",
		Arguments:  []string{"cc", "-O2", "-c", "src/main.c", "-o", "build/main.o"},
		PID:        4242,
	}

	b.ReportAllocs()
	for b.Loop() {
		Marshal(frame)
	}
}
