// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/bureau-foundation/compiledb/lib/codec"
	"github.com/bureau-foundation/compiledb/lib/record"
)

var (
	// ErrNotConfigured is returned by Report when the client has no
	// socket address, which is the normal state of a process running
	// outside any session.
	ErrNotConfigured = errors.New("report channel not configured")

	// ErrRejected is returned when the collector answered Nak.
	ErrRejected = errors.New("record rejected by collector")
)

// Client delivers records to a session's collector.
type Client struct {
	address string
	timeout time.Duration
}

// NewClient returns a client for the collector listening at address. A
// zero or negative timeout means no deadline beyond ctx.
func NewClient(address string, timeout time.Duration) *Client {
	return &Client{address: address, timeout: timeout}
}

// Report sends r as one frame and waits for the acknowledgement. It
// returns only after the collector stored the record, rejected it, or
// the deadline passed.
func (c *Client) Report(ctx context.Context, r record.Record) error {
	if c.address == "" {
		return ErrNotConfigured
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := codec.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", c.address)
	if err != nil {
		return fmt.Errorf("connecting to collector at %s: %w", c.address, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := WriteFrame(conn, payload); err != nil {
		return fmt.Errorf("writing record frame: %w", err)
	}

	var answer [1]byte
	if _, err := io.ReadFull(conn, answer[:]); err != nil {
		return fmt.Errorf("reading acknowledgement: %w", err)
	}
	switch answer[0] {
	case Ack:
		return nil
	case Nak:
		return ErrRejected
	default:
		return fmt.Errorf("unexpected acknowledgement byte 0x%02x", answer[0])
	}
}
