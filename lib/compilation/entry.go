// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compilation

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/bureau-foundation/compiledb/lib/compiler"
	"github.com/bureau-foundation/compiledb/lib/record"
)

// Entry is one compilation of one source file.
type Entry struct {
	// Directory is the working directory of the compilation.
	Directory string

	// File is the source file, absolute.
	File string

	// Arguments is the full compiler command, starting with the
	// compiler executable.
	Arguments []string

	// Output is the -o target, absolute, or empty when the command
	// does not name one.
	Output string
}

// Equal reports whether e and other describe the same compilation.
// Output is not compared.
func (e Entry) Equal(other Entry) bool {
	return e.Directory == other.Directory &&
		e.File == other.File &&
		slices.Equal(e.Arguments, other.Arguments)
}

// key is a comparable form of the fields Equal compares.
func (e Entry) key() string {
	var builder strings.Builder
	builder.WriteString(e.Directory)
	builder.WriteByte(0)
	builder.WriteString(e.File)
	for _, argument := range e.Arguments {
		builder.WriteByte(0)
		builder.WriteString(argument)
	}
	return builder.String()
}

// FromRecord returns one entry per source file compiled by r. Records
// of programs that are not compilers return [compiler.ErrNotCompiler];
// compiler runs that compile nothing return [compiler.ErrNoCompilation].
//
// The entry's first argument is the resolved executable rather than
// argv[0] as invoked, so tools that re-run the command find the same
// compiler the build used.
func FromRecord(r record.Record, recognizer *compiler.Recognizer) ([]Entry, error) {
	if len(r.Arguments) == 0 {
		return nil, compiler.ErrNotCompiler
	}

	program := r.Arguments[0]
	if !recognizer.IsCompiler(program) {
		program = r.Executable
	}
	arguments := slices.Clone(r.Arguments)
	arguments[0] = program
	invocation, err := recognizer.Parse(arguments)
	if err != nil {
		return nil, err
	}
	arguments[0] = r.Executable

	output := ""
	if invocation.Output != "" {
		output = absolute(r.Directory, invocation.Output)
	}

	entries := make([]Entry, 0, len(invocation.Sources))
	for _, source := range invocation.Sources {
		entries = append(entries, Entry{
			Directory: r.Directory,
			File:      absolute(r.Directory, source),
			Arguments: arguments,
			Output:    output,
		})
	}
	return entries, nil
}

// FromRecords converts records in order, skipping those that compile
// nothing, and removes duplicate entries.
func FromRecords(records []record.Record, recognizer *compiler.Recognizer) []Entry {
	var entries []Entry
	for _, r := range records {
		converted, err := FromRecord(r, recognizer)
		if err != nil {
			continue
		}
		entries = append(entries, converted...)
	}
	return Merge(nil, entries)
}

// Merge returns existing followed by every entry of added not already
// present, dropping duplicates within either list. The first occurrence
// of a duplicate wins.
func Merge(existing, added []Entry) []Entry {
	seen := make(map[string]bool, len(existing)+len(added))
	merged := make([]Entry, 0, len(existing)+len(added))
	for _, list := range [][]Entry{existing, added} {
		for _, entry := range list {
			key := entry.key()
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, entry)
		}
	}
	return merged
}

func absolute(directory, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(directory, path)
}
