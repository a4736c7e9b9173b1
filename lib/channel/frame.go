// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame's payload. Real compiler command
// lines top out in the hundreds of kilobytes (response files expanded by
// build systems); 4 MiB leaves headroom while keeping a misbehaving
// peer from exhausting the wrapper's memory.
const MaxFrameSize = 4 << 20

// headerSize is the size of the big-endian length prefix.
const headerSize = 4

// Acknowledgement bytes sent by the collector after each frame.
const (
	Ack byte = 0x06
	Nak byte = 0x15
)

var (
	// ErrFrameTooLarge is returned for frames declaring a payload above
	// MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")

	// ErrEmptyFrame is returned for frames declaring a zero-length
	// payload.
	ErrEmptyFrame = errors.New("frame has empty payload")

	// ErrTruncatedFrame is returned when the stream ends inside a frame.
	ErrTruncatedFrame = errors.New("frame truncated")
)

// WriteFrame writes payload as a single length-prefixed frame. Header
// and payload go out in one Write call so a frame is never split
// across writes by this side.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyFrame
	}
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	buffer := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buffer, uint32(len(payload)))
	copy(buffer[headerSize:], payload)

	_, err := w.Write(buffer)
	return err
}

// ReadFrame reads one frame and returns its payload. At a clean frame
// boundary an exhausted stream returns io.EOF unchanged; ending inside
// a frame returns an error wrapping ErrTruncatedFrame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: incomplete length prefix", ErrTruncatedFrame)
		}
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[:])
	if length == 0 {
		return nil, ErrEmptyFrame
	}
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: expected %d payload bytes", ErrTruncatedFrame, length)
		}
		return nil, err
	}
	return payload, nil
}
