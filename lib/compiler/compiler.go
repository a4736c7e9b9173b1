// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compiler

import (
	"errors"
	"path/filepath"
	"regexp"
	"slices"
)

var (
	// ErrNotCompiler is returned by [Recognizer.Parse] when the program
	// is not a recognized compiler.
	ErrNotCompiler = errors.New("not a compiler invocation")

	// ErrNoCompilation is returned by [Recognizer.Parse] when the
	// program is a compiler but the invocation compiles no source
	// (preprocess-only, dependency-only, driver queries, link-only).
	ErrNoCompilation = errors.New("invocation compiles no source")
)

// DefaultNames are the compiler names the session wrapper links to the
// shim when no configuration adds more.
var DefaultNames = []string{"cc", "c++", "gcc", "g++", "clang", "clang++"}

// familyPattern matches compiler driver names with an optional cross
// prefix ("aarch64-linux-gnu-") and version suffix ("-12", "-17.0").
var familyPattern = regexp.MustCompile(
	`^(?:[A-Za-z0-9_.]+-)*(cc|c\+\+|gcc|g\+\+|clang|clang\+\+|icc|icpc|icx|icpx|nvcc)(?:-[0-9]+(?:\.[0-9]+)*)?$`)

// Recognizer decides which programs are compilers.
type Recognizer struct {
	extra []string
}

// NewRecognizer returns a Recognizer for the built-in families plus the
// exact program names in extra (compared by base name).
func NewRecognizer(extra ...string) *Recognizer {
	var names []string
	for _, name := range extra {
		if name != "" {
			names = append(names, filepath.Base(name))
		}
	}
	return &Recognizer{extra: names}
}

// IsCompiler reports whether program names a compiler driver. Only the
// base name is considered.
func (r *Recognizer) IsCompiler(program string) bool {
	base := filepath.Base(program)
	if slices.Contains(r.extra, base) {
		return true
	}
	return familyPattern.MatchString(base)
}

// Parse classifies a compiler argument vector (arguments[0] is the
// program). It returns [ErrNotCompiler] for other programs and
// [ErrNoCompilation] for compiler runs that compile nothing.
func (r *Recognizer) Parse(arguments []string) (Invocation, error) {
	if len(arguments) == 0 || !r.IsCompiler(arguments[0]) {
		return Invocation{}, ErrNotCompiler
	}
	invocation := parseArguments(arguments[1:])
	if invocation.skip || len(invocation.Sources) == 0 {
		return Invocation{}, ErrNoCompilation
	}
	return invocation, nil
}
