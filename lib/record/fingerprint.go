// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/compiledb/lib/codec"
)

// Fingerprint is a 32-byte BLAKE3 digest identifying one exec event.
type Fingerprint [32]byte

// String returns the hex encoding of the fingerprint.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 12 hex characters, for log lines.
func (f Fingerprint) Short() string {
	return f.String()[:12]
}

// fingerprintDomainKey is the BLAKE3 key for record fingerprints. The
// bytes are the ASCII domain name zero-padded to 32 bytes. Changing
// this value changes every fingerprint.
var fingerprintDomainKey = [32]byte{
	'c', 'o', 'm', 'p', 'i', 'l', 'e', 'd', 'b', '.', 'r', 'e', 'c', 'o', 'r', 'd',
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// identity is the subset of a record that determines its fingerprint.
// Environment and capture time are deliberately excluded: a redelivered
// frame must collapse with the original even if it was re-captured.
type identity struct {
	Executable string   `cbor:"executable"`
	Arguments  []string `cbor:"arguments"`
	Directory  string   `cbor:"directory"`
	PID        int      `cbor:"pid"`
}

// Fingerprint computes the record's identity hash over the
// deterministic CBOR encoding of its identity fields.
func (r *Record) Fingerprint() Fingerprint {
	data, err := codec.Marshal(identity{
		Executable: r.Executable,
		Arguments:  r.Arguments,
		Directory:  r.Directory,
		PID:        r.PID,
	})
	if err != nil {
		// Strings, string slices, and ints always encode.
		panic("record: encoding fingerprint identity: " + err.Error())
	}

	hasher, err := blake3.NewKeyed(fingerprintDomainKey[:])
	if err != nil {
		panic("record: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)

	var fingerprint Fingerprint
	copy(fingerprint[:], hasher.Sum(nil))
	return fingerprint
}
