// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/compiledb/lib/sqlitepool"
)

func queryText(t *testing.T, conn *sqlite.Conn, query string) string {
	t.Helper()
	var result string
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			result = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	return result
}

func TestOpenDefaultsToDeleteJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.sqlite")
	pool, err := sqlitepool.Open(sqlitepool.Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if mode := queryText(t, conn, "PRAGMA journal_mode"); mode != "delete" {
		t.Errorf("journal_mode = %q, want %q", mode, "delete")
	}
	pool.Put(conn)

	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path + "-wal"); !os.IsNotExist(err) {
		t.Errorf("WAL file left beside archive: %v", err)
	}
}

func TestOpenWAL(t *testing.T) {
	pool := openTestPool(t, sqlitepool.Config{
		Path:        filepath.Join(t.TempDir(), "store.sqlite"),
		JournalMode: "wal",
	})

	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)

	if mode := queryText(t, conn, "PRAGMA journal_mode"); mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}

func TestOnConnectAndReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.sqlite")
	writer, err := sqlitepool.Open(sqlitepool.Config{
		Path: path,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, `
				CREATE TABLE IF NOT EXISTS invocations (value TEXT NOT NULL);
			`, nil)
		},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	conn, err := writer.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	err = sqlitex.Execute(conn, "INSERT INTO invocations (value) VALUES (?)", &sqlitex.ExecOptions{
		Args: []any{"cc -c a.c"},
	})
	if err != nil {
		t.Fatalf("INSERT: %v", err)
	}
	writer.Put(conn)
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reader := openTestPool(t, sqlitepool.Config{Path: path, ReadOnly: true})
	conn, err = reader.Take(context.Background())
	if err != nil {
		t.Fatalf("Take read-only: %v", err)
	}
	defer reader.Put(conn)

	if value := queryText(t, conn, "SELECT value FROM invocations"); value != "cc -c a.c" {
		t.Errorf("value = %q", value)
	}
	err = sqlitex.Execute(conn, "INSERT INTO invocations (value) VALUES ('x')", nil)
	if err == nil {
		t.Error("expected write through read-only pool to fail")
	}
}

func TestOpenValidation(t *testing.T) {
	if _, err := sqlitepool.Open(sqlitepool.Config{}); err == nil {
		t.Error("expected error for empty Path")
	}
	if _, err := sqlitepool.Open(sqlitepool.Config{Path: "x.sqlite", JournalMode: "MEMORY"}); err == nil {
		t.Error("expected error for unsupported journal mode")
	}
}

func TestContextCancellation(t *testing.T) {
	pool := openTestPool(t, sqlitepool.Config{
		Path: filepath.Join(t.TempDir(), "cancel.sqlite"),
	})

	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)

	// The pool has one connection, so a second Take must fail.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Take(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

// openTestPool opens a pool that is closed at test cleanup.
func openTestPool(t *testing.T, cfg sqlitepool.Config) *sqlitepool.Pool {
	t.Helper()
	pool, err := sqlitepool.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}
