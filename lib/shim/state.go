// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shim

import (
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/compiledb/lib/environ"
)

// State is the process-local interception configuration.
type State struct {
	// SocketPath is the collector address. Empty disables capture.
	SocketPath string

	// ShimDirectory is the wrapper's link directory, excluded from
	// PATH when resolving the real program.
	ShimDirectory string

	// Overrides maps link names to real programs.
	Overrides map[string]string

	// CaptureKeys are extra environment variables to record.
	CaptureKeys []string

	// ReportTimeout bounds delivery of one record.
	ReportTimeout time.Duration

	// Verbose enables diagnostics on stderr.
	Verbose bool
}

// Enabled reports whether capture is active for this process.
func (s State) Enabled() bool {
	return s.SocketPath != ""
}

// LoadState reads interception configuration from env. Malformed
// values fall back to defaults rather than failing.
func LoadState(env []string) State {
	var state State

	state.SocketPath, _ = environ.Get(env, environ.ReportSocket)
	state.ShimDirectory, _ = environ.Get(env, environ.ShimDirectory)

	if value, ok := environ.Get(env, environ.Overrides); ok {
		state.Overrides = environ.ParseOverrides(value)
	}
	if value, ok := environ.Get(env, environ.CaptureKeys); ok {
		state.CaptureKeys = environ.ParseKeyList(value)
	}

	defaultTimeout, _ := time.ParseDuration(environ.DefaultReportTimeout)
	state.ReportTimeout = defaultTimeout
	if value, ok := environ.Get(env, environ.ReportTimeout); ok {
		if timeout, err := time.ParseDuration(value); err == nil && timeout > 0 {
			state.ReportTimeout = timeout
		}
	}

	if value, ok := environ.Get(env, environ.Verbose); ok && value != "" && value != "0" {
		state.Verbose = true
	}

	return state
}

// Current returns this process's interception state, read from
// os.Environ on first use.
var Current = sync.OnceValue(func() State {
	return LoadState(os.Environ())
})
