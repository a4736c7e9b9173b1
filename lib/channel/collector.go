// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bureau-foundation/compiledb/lib/codec"
	"github.com/bureau-foundation/compiledb/lib/record"
)

// Sink receives every record the collector accepts. It is called from
// connection goroutines concurrently and must be safe for that.
// The acknowledgement is sent only after Sink returns.
type Sink func(record.Record)

// CollectorConfig holds configuration for creating a Collector.
type CollectorConfig struct {
	// SocketPath is where the Unix socket is created. Any stale file at
	// this path is removed first.
	SocketPath string

	// Sink receives accepted records. Required.
	Sink Sink

	// ReadTimeout bounds how long a connection may stay idle between
	// frames. Default: 30s.
	ReadTimeout time.Duration

	// Logger for collector operations. Default: slog.Default().
	Logger *slog.Logger
}

// Collector is the read side of the report channel. It accepts
// connections on a Unix socket, decodes framed records, and hands
// valid ones to its Sink.
type Collector struct {
	socketPath  string
	sink        Sink
	readTimeout time.Duration
	logger      *slog.Logger

	listener net.Listener

	// activeConnections tracks in-flight connection handlers so
	// Shutdown can wait for reports already being delivered.
	activeConnections sync.WaitGroup

	connectionsMu sync.Mutex
	connections   map[net.Conn]struct{}

	accepted atomic.Int64
	dropped  atomic.Int64

	serving   atomic.Bool
	serveDone chan struct{}
}

// NewCollector validates config and returns a Collector. Call Listen
// before spawning anything that may report, then Serve.
func NewCollector(config CollectorConfig) (*Collector, error) {
	if config.SocketPath == "" {
		return nil, fmt.Errorf("socket path is required")
	}
	if config.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}

	readTimeout := config.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Collector{
		socketPath:  config.SocketPath,
		sink:        config.Sink,
		readTimeout: readTimeout,
		logger:      logger,
		connections: make(map[net.Conn]struct{}),
		serveDone:   make(chan struct{}),
	}, nil
}

// SocketPath returns the path shims must connect to.
func (c *Collector) SocketPath() string {
	return c.socketPath
}

// Listen creates the socket. Separate from Serve so the socket exists
// before the build command starts.
func (c *Collector) Listen() error {
	if err := os.Remove(c.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", c.socketPath, err)
	}

	listener, err := net.Listen("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", c.socketPath, err)
	}
	c.listener = listener
	return nil
}

// Serve accepts connections until the listener is closed by Shutdown.
// Each connection is handled on its own goroutine.
func (c *Collector) Serve() error {
	if c.listener == nil {
		return fmt.Errorf("collector: Serve called before Listen")
	}
	c.serving.Store(true)
	defer close(c.serveDone)

	for {
		conn, err := c.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			c.logger.Error("accept failed", "error", err)
			continue
		}

		c.track(conn)
		c.activeConnections.Add(1)
		go func() {
			defer c.activeConnections.Done()
			defer c.untrack(conn)
			c.handleConnection(conn)
		}()
	}
}

// Shutdown stops accepting connections and waits for in-flight
// connections to finish. If ctx ends first, remaining connections are
// closed forcibly and ctx's error is returned. The socket file is
// removed in either case.
func (c *Collector) Shutdown(ctx context.Context) error {
	if c.listener != nil {
		c.listener.Close()
		if c.serving.Load() {
			<-c.serveDone
		}
	}
	defer os.Remove(c.socketPath)

	finished := make(chan struct{})
	go func() {
		c.activeConnections.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		select {
		case <-finished:
			return nil
		default:
		}
		c.connectionsMu.Lock()
		pending := len(c.connections)
		for conn := range c.connections {
			conn.Close()
		}
		c.connectionsMu.Unlock()
		<-finished
		c.logger.Warn("abandoned in-flight reports at shutdown",
			"connections", pending,
		)
		return ctx.Err()
	}
}

// Accepted returns the number of records handed to the sink.
func (c *Collector) Accepted() int64 {
	return c.accepted.Load()
}

// Dropped returns the number of frames discarded as corrupt or invalid.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

func (c *Collector) track(conn net.Conn) {
	c.connectionsMu.Lock()
	c.connections[conn] = struct{}{}
	c.connectionsMu.Unlock()
}

func (c *Collector) untrack(conn net.Conn) {
	c.connectionsMu.Lock()
	delete(c.connections, conn)
	c.connectionsMu.Unlock()
	conn.Close()
}

// handleConnection reads frames until the peer closes the connection
// or a framing error makes the stream unrecoverable.
func (c *Collector) handleConnection(conn net.Conn) {
	for {
		conn.SetReadDeadline(time.Now().Add(c.readTimeout))

		payload, err := ReadFrame(conn)
		if err != nil {
			if isExpectedClose(err) {
				return
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				c.logger.Debug("closing idle report connection")
				return
			}
			c.dropped.Add(1)
			c.logger.Warn("dropping corrupt report frame", "error", err)
			return
		}

		var r record.Record
		if err := codec.Unmarshal(payload, &r); err != nil {
			c.dropped.Add(1)
			c.logger.Warn("dropping undecodable report", "error", err, "bytes", len(payload))
			if !c.answer(conn, Nak) {
				return
			}
			continue
		}
		if err := r.Validate(); err != nil {
			c.dropped.Add(1)
			c.logger.Warn("dropping invalid report", "error", err, "pid", r.PID, "frame", diagnose(payload))
			if !c.answer(conn, Nak) {
				return
			}
			continue
		}

		c.sink(r)
		c.accepted.Add(1)
		c.logger.Debug("recorded invocation",
			"pid", r.PID,
			"executable", r.Executable,
			"directory", r.Directory,
		)

		if !c.answer(conn, Ack) {
			return
		}
	}
}

// writeTimeout bounds how long an acknowledgement write may block.
const writeTimeout = 10 * time.Second

// answer writes one acknowledgement byte and reports whether the
// connection is still usable. Write failures are logged at debug
// level: the record is already stored, and a shim that stopped
// waiting has proceeded with its exec regardless.
func (c *Collector) answer(conn net.Conn, value byte) bool {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write([]byte{value}); err != nil {
		c.logger.Debug("failed to write acknowledgement", "error", err)
		return false
	}
	return true
}

// isExpectedClose reports whether err is a normal end of a shim
// connection: EOF at a frame boundary, a connection closed during
// Shutdown, or a peer that reset after giving up on its deadline.
func isExpectedClose(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}

// maxDiagnosticLength caps the CBOR diagnostic notation logged for a
// rejected frame.
const maxDiagnosticLength = 512

// diagnose renders payload in CBOR diagnostic notation for logs.
func diagnose(payload []byte) string {
	notation, err := codec.Diagnose(payload)
	if err != nil {
		return fmt.Sprintf("<%d undiagnosable bytes>", len(payload))
	}
	if len(notation) > maxDiagnosticLength {
		notation = notation[:maxDiagnosticLength] + "..."
	}
	return notation
}
