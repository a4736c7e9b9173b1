// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compilation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alessio/shellescape"
	"github.com/google/shlex"
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/compiledb/lib/atomicfile"
)

// Format selects how entries are written.
type Format struct {
	// CommandAsArray writes "arguments" arrays. When false, the
	// command is written as a single shell-quoted "command" string.
	CommandAsArray bool
}

// DefaultFormat writes "arguments" arrays.
func DefaultFormat() Format {
	return Format{CommandAsArray: true}
}

// fileEntry is the on-disk shape of an entry. Exactly one of Arguments
// and Command is set.
type fileEntry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Arguments []string `json:"arguments,omitempty"`
	Command   string   `json:"command,omitempty"`
	Output    string   `json:"output,omitempty"`
}

func toFileEntry(entry Entry, format Format) fileEntry {
	converted := fileEntry{
		Directory: entry.Directory,
		File:      entry.File,
		Output:    entry.Output,
	}
	if format.CommandAsArray {
		converted.Arguments = entry.Arguments
	} else {
		converted.Command = shellescape.QuoteCommand(entry.Arguments)
	}
	return converted
}

func fromFileEntry(converted fileEntry) (Entry, error) {
	if converted.Directory == "" {
		return Entry{}, errors.New("missing directory")
	}
	if converted.File == "" {
		return Entry{}, errors.New("missing file")
	}

	arguments := converted.Arguments
	if len(arguments) == 0 {
		if converted.Command == "" {
			return Entry{}, errors.New("neither arguments nor command present")
		}
		split, err := shlex.Split(converted.Command)
		if err != nil {
			return Entry{}, fmt.Errorf("splitting command: %w", err)
		}
		if len(split) == 0 {
			return Entry{}, errors.New("empty command")
		}
		arguments = split
	}

	return Entry{
		Directory: converted.Directory,
		File:      absolute(converted.Directory, converted.File),
		Arguments: arguments,
		Output:    converted.Output,
	}, nil
}

// Read decodes a compilation database. Every malformed entry is
// reported in the returned error, not just the first.
func Read(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var converted []fileEntry
	if err := json.Unmarshal(jsonc.ToJSON(data), &converted); err != nil {
		return nil, fmt.Errorf("parsing compilation database: %w", err)
	}

	entries := make([]Entry, 0, len(converted))
	var problems []error
	for index, item := range converted {
		entry, err := fromFileEntry(item)
		if err != nil {
			problems = append(problems, fmt.Errorf("entry %d (%s): %w", index, item.File, err))
			continue
		}
		entries = append(entries, entry)
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return entries, nil
}

// Write encodes entries as an indented JSON array.
func Write(w io.Writer, entries []Entry, format Format) error {
	converted := make([]fileEntry, 0, len(entries))
	for _, entry := range entries {
		converted = append(converted, toFileEntry(entry, format))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(converted)
}

// Load reads the compilation database at path.
func Load(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	entries, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Save atomically replaces the database at path with entries.
func Save(path string, entries []Entry, format Format) error {
	return atomicfile.Write(path, 0o644, func(w io.Writer) error {
		return Write(w, entries, format)
	})
}

// Append merges entries into the database at path, creating it when
// missing, and returns the number of entries written.
func Append(path string, entries []Entry, format Format) (int, error) {
	existing, err := Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("loading existing database: %w", err)
	}
	merged := Merge(existing, entries)
	if err := Save(path, merged, format); err != nil {
		return 0, err
	}
	return len(merged), nil
}
