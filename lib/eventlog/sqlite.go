// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/compiledb/lib/record"
	"github.com/bureau-foundation/compiledb/lib/sqlitepool"
)

// schema is the SQLite archive layout. Arguments and environment are
// JSON so the sqlite3 shell's json functions can query them.
const schema = `
CREATE TABLE IF NOT EXISTS invocations (
	sequence    INTEGER PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	executable  TEXT NOT NULL,
	arguments   TEXT NOT NULL,
	directory   TEXT NOT NULL,
	environment TEXT,
	pid         INTEGER NOT NULL,
	ppid        INTEGER NOT NULL,
	captured    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS invocations_executable ON invocations (executable);
`

const insertInvocation = `
INSERT INTO invocations
	(fingerprint, executable, arguments, directory, environment, pid, ppid, captured)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const selectInvocations = `
SELECT executable, arguments, directory, environment, pid, ppid, captured
FROM invocations ORDER BY sequence`

// writeSQLite builds the archive in a temporary file beside path and
// renames it into place once the pool is closed.
func writeSQLite(path string, records []record.Record) error {
	directory := filepath.Dir(path)
	temporary, err := os.CreateTemp(directory, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	temporaryPath := temporary.Name()
	temporary.Close()

	if err := fillSQLite(temporaryPath, records); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("writing event log %s: %w", path, err)
	}
	if err := os.Chmod(temporaryPath, 0o644); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("setting mode on %s: %w", temporaryPath, err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming %s into place: %w", path, err)
	}
	if parentDirectory, err := os.Open(directory); err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}
	return nil
}

func fillSQLite(path string, records []record.Record) (err error) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path: path,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := pool.Close(); err == nil {
			err = closeErr
		}
	}()

	conn, err := pool.Take(context.Background())
	if err != nil {
		return err
	}
	defer pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer endTransaction(&err)

	for index := range records {
		if err := insertRecord(conn, &records[index]); err != nil {
			return fmt.Errorf("inserting record %d: %w", index, err)
		}
	}
	return nil
}

func insertRecord(conn *sqlite.Conn, r *record.Record) error {
	arguments, err := json.Marshal(r.Arguments)
	if err != nil {
		return err
	}
	var environment any
	if len(r.Environment) > 0 {
		encoded, err := json.Marshal(r.Environment)
		if err != nil {
			return err
		}
		environment = string(encoded)
	}

	return sqlitex.Execute(conn, insertInvocation, &sqlitex.ExecOptions{
		Args: []any{
			r.Fingerprint().String(),
			r.Executable,
			string(arguments),
			r.Directory,
			environment,
			r.PID,
			r.ParentPID,
			r.Captured.UTC().Format(time.RFC3339Nano),
		},
	})
}

func readSQLite(path string) ([]record.Record, error) {
	// A read-only open of a missing file fails with a SQLite error;
	// stat first so callers can test for os.ErrNotExist.
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{Path: path, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	conn, err := pool.Take(context.Background())
	if err != nil {
		return nil, err
	}
	defer pool.Put(conn)

	var records []record.Record
	err = sqlitex.Execute(conn, selectInvocations, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			r := record.Record{
				Executable: stmt.ColumnText(0),
				Directory:  stmt.ColumnText(2),
				PID:        stmt.ColumnInt(4),
				ParentPID:  stmt.ColumnInt(5),
			}
			if err := json.Unmarshal([]byte(stmt.ColumnText(1)), &r.Arguments); err != nil {
				return fmt.Errorf("decoding arguments of row %d: %w", len(records), err)
			}
			if stmt.ColumnType(3) != sqlite.TypeNull {
				if err := json.Unmarshal([]byte(stmt.ColumnText(3)), &r.Environment); err != nil {
					return fmt.Errorf("decoding environment of row %d: %w", len(records), err)
				}
			}
			captured, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(6))
			if err != nil {
				return fmt.Errorf("decoding capture time of row %d: %w", len(records), err)
			}
			r.Captured = captured
			records = append(records, r)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("reading event log %s: %w", path, err)
	}
	return records, nil
}
