// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Config holds the parameters for opening a pool.
type Config struct {
	// Path is the database file. The parent directory must exist. The
	// file is created unless ReadOnly is set.
	Path string

	// PoolSize is the number of connections. Default: 1, which
	// serializes all access; archives have a single writer.
	PoolSize int

	// JournalMode is the SQLite journal mode: "DELETE" (default) or
	// "WAL". Ignored for read-only pools.
	JournalMode string

	// ReadOnly opens existing databases without write access.
	ReadOnly bool

	// Logger receives open and close messages. Default: discard.
	Logger *slog.Logger

	// OnConnect runs once per connection after the standard pragmas,
	// typically to create the schema. An error discards the
	// connection and is returned from Take.
	OnConnect func(conn *sqlite.Conn) error
}

// Pool is a fixed-size pool of SQLite connections.
type Pool struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// Open validates cfg and opens the pool. Connections are initialized
// lazily on first Take. The caller must Close the pool.
func Open(cfg Config) (*Pool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitepool: Path is required")
	}

	journalMode := strings.ToUpper(cfg.JournalMode)
	switch journalMode {
	case "":
		journalMode = "DELETE"
	case "DELETE", "WAL":
	default:
		return nil, fmt.Errorf("sqlitepool: unsupported journal mode %q", cfg.JournalMode)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 1
	}

	flags := sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenURI
	if cfg.ReadOnly {
		flags = sqlite.OpenReadOnly | sqlite.OpenURI
	}

	inner, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		Flags:    flags,
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			return prepareConnection(conn, journalMode, cfg.ReadOnly, cfg.OnConnect)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: opening %s: %w", cfg.Path, err)
	}

	logger.Debug("sqlite pool opened",
		"path", cfg.Path,
		"pool_size", poolSize,
		"read_only", cfg.ReadOnly,
	)

	return &Pool{
		inner:  inner,
		logger: logger,
		path:   cfg.Path,
	}, nil
}

// Take borrows a connection, blocking until one is free or ctx is
// done. The caller must Put it back:
//
//	conn, err := pool.Take(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Put(conn)
func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: take: %w", err)
	}
	return conn, nil
}

// Put returns a connection to the pool. Safe to call with nil.
func (p *Pool) Put(conn *sqlite.Conn) {
	p.inner.Put(conn)
}

// Close closes every connection, blocking until borrowed connections
// are returned.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Error("sqlite pool close error", "path", p.path, "error", err)
		return fmt.Errorf("sqlitepool: closing %s: %w", p.path, err)
	}
	p.logger.Debug("sqlite pool closed", "path", p.path)
	return nil
}

func prepareConnection(conn *sqlite.Conn, journalMode string, readOnly bool, onConnect func(*sqlite.Conn) error) error {
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	if !readOnly {
		pragmas = append(pragmas,
			"PRAGMA journal_mode="+journalMode,
			"PRAGMA synchronous=NORMAL",
		)
	}

	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlitepool: %s: %w", pragma, err)
		}
	}

	if onConnect != nil {
		if err := onConnect(conn); err != nil {
			return fmt.Errorf("sqlitepool: OnConnect: %w", err)
		}
	}
	return nil
}
