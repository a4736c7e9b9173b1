// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// exitCoder is implemented by errors that choose the exit status.
type exitCoder interface {
	ExitCode() int
}

// silent is implemented by errors whose message has already been
// reported (or that have none) and must not be printed again.
type silent interface {
	Silent() bool
}

// Exit terminates the process for the error returned by a binary's run
// function. A nil error exits 0.
func Exit(err error) {
	os.Exit(Report(os.Stderr, err))
}

// Report writes err to w unless it is silent and returns the exit
// status it maps to: the error's ExitCode() when it has one, 1
// otherwise, 0 for nil.
func Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	code := 1
	var coder exitCoder
	if errors.As(err, &coder) {
		code = coder.ExitCode()
	}
	var quiet silent
	if !errors.As(err, &quiet) || !quiet.Silent() {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	return code
}
