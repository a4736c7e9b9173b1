// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite databases with the pragmas compiledb
// uses for its invocation archives.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Callers [Pool.Take]
// a connection, perform work, and [Pool.Put] it back. Connections are
// not safe for concurrent use.
//
// Archives are single files handed to other tools, so the default
// journal mode is DELETE: nothing is left beside the database once the
// pool is closed. Long-lived stores can ask for WAL through
// [Config.JournalMode].
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:      "events.sqlite",
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
// The package exposes the zombiezen types directly. Callers write SQL,
// use sqlitex.Execute for cached statements, and manage transactions
// with sqlitex.ImmediateTransaction.
package sqlitepool
