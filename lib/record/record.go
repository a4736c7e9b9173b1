// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Record is one captured process-creation event.
//
// The json tags serve both formats: the JSON event log and (through
// fxamacker/cbor's json-tag fallback) the CBOR wire protocol.
type Record struct {
	// Executable is the absolute path of the program that was actually
	// executed, after the shim resolved argv[0] past its own wrapper
	// directory.
	Executable string `json:"executable"`

	// Arguments is the argument vector exactly as the caller passed it,
	// including argv[0] as invoked (often a bare name like "cc").
	Arguments []string `json:"arguments"`

	// Directory is the working directory of the process at exec time.
	Directory string `json:"directory"`

	// Environment holds the subset of the process environment relevant
	// to compilation (include paths, SDK roots, and any keys the
	// wrapper asked the shim to capture). Nil when none were set.
	Environment map[string]string `json:"environment,omitempty"`

	// PID is the process id of the intercepted process. Because the
	// shim replaces its own image with the real program, this is also
	// the pid of the compiler itself.
	PID int `json:"pid"`

	// ParentPID is the process id of the process that exec'd the
	// compiler (typically make, ninja, or a shell).
	ParentPID int `json:"ppid"`

	// Captured is the UTC time the shim captured the event. It is
	// informational and does not participate in identity.
	Captured time.Time `json:"captured"`
}

// ErrInvalid is wrapped by every validation failure returned from
// [Record.Validate].
var ErrInvalid = errors.New("invalid invocation record")

// Validate checks the structural invariants every record must satisfy
// before the aggregator accepts it. A record failing validation came
// from a broken or incompatible shim and is dropped.
func (r *Record) Validate() error {
	var problems []string

	if r.Executable == "" {
		problems = append(problems, "executable is empty")
	} else if !filepath.IsAbs(r.Executable) {
		problems = append(problems, fmt.Sprintf("executable %q is not absolute", r.Executable))
	}
	if len(r.Arguments) == 0 {
		problems = append(problems, "argument list is empty")
	}
	if r.Directory == "" {
		problems = append(problems, "directory is empty")
	} else if !filepath.IsAbs(r.Directory) {
		problems = append(problems, fmt.Sprintf("directory %q is not absolute", r.Directory))
	}
	if r.PID <= 0 {
		problems = append(problems, fmt.Sprintf("pid %d is not positive", r.PID))
	}
	if r.ParentPID < 0 {
		problems = append(problems, fmt.Sprintf("ppid %d is negative", r.ParentPID))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Program returns the base name of the executed program, which is the
// name compiler recognition keys on ("gcc-13", "clang++", ...).
func (r *Record) Program() string {
	return filepath.Base(r.Executable)
}

// Equal reports whether two records describe identical events,
// including environment and capture time. Aggregation uses
// [Fingerprint] instead; Equal exists for round-trip checks.
func (r *Record) Equal(other *Record) bool {
	if r.Executable != other.Executable || r.Directory != other.Directory ||
		r.PID != other.PID || r.ParentPID != other.ParentPID ||
		!r.Captured.Equal(other.Captured) {
		return false
	}
	if !slices.Equal(r.Arguments, other.Arguments) {
		return false
	}
	if len(r.Environment) != len(other.Environment) {
		return false
	}
	for key, value := range r.Environment {
		if otherValue, ok := other.Environment[key]; !ok || otherValue != value {
			return false
		}
	}
	return true
}

// Compare orders records for deterministic output: by directory, then
// executable, then argument list, then pid. The resulting order is
// independent of the order in which concurrent shims reported.
func Compare(a, b *Record) int {
	if c := strings.Compare(a.Directory, b.Directory); c != 0 {
		return c
	}
	if c := strings.Compare(a.Executable, b.Executable); c != 0 {
		return c
	}
	if c := slices.Compare(a.Arguments, b.Arguments); c != 0 {
		return c
	}
	return a.PID - b.PID
}
