// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package atomicfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Write atomically replaces path with the content produced by fill.
// fill writes into a buffered writer over the temporary file; if it
// returns an error, the temporary file is removed and path is left
// untouched. The parent directory must already exist.
func Write(path string, mode os.FileMode, fill func(io.Writer) error) error {
	directory := filepath.Dir(path)
	file, err := os.CreateTemp(directory, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	temporaryPath := file.Name()

	// Write, flush, chmod, sync, close, in that order. Any failure
	// removes the temporary file and reports the first error.
	fail := func(step string, err error) error {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("%s temporary file for %s: %w", step, path, err)
	}

	buffered := bufio.NewWriter(file)
	if err := fill(buffered); err != nil {
		return fail("writing", err)
	}
	if err := buffered.Flush(); err != nil {
		return fail("flushing", err)
	}
	if err := file.Chmod(mode); err != nil {
		return fail("setting mode on", err)
	}
	if err := file.Sync(); err != nil {
		return fail("syncing", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary file for %s: %w", path, err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming %s into place: %w", path, err)
	}

	// Sync the parent directory so the rename survives power loss.
	if parentDirectory, err := os.Open(directory); err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}
	return nil
}
