// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides compiledb's standard CBOR encoding configuration.
//
// compiledb uses two serialization formats with a clear boundary:
//
//   - JSON for external artifacts: the compilation database
//     (compile_commands.json) and the JSON form of the event log.
//   - CBOR for internal protocols: shim-to-wrapper report frames, the
//     binary event log, and the canonical bytes hashed into record
//     fingerprints.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. Same
// logical data always produces identical bytes, which is what makes
// record fingerprints stable across processes.
//
// For buffer-oriented operations (frames, fingerprints):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (event log files):
//
//	encoder := codec.NewEncoder(file)
//	decoder := codec.NewDecoder(file)
//
// # Struct Tag Rules
//
//   - `cbor` tag: the type is only ever serialized as CBOR (wire
//     acknowledgements, fingerprint keys).
//   - `json` tag: the type may be serialized as both JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor` tags
//     are absent. Invocation records use json tags because they appear
//     in both the CBOR wire protocol and the JSON event log.
//
// Never use both tags on the same field.
package codec
