// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package environ

import (
	"path/filepath"
	"slices"
	"strings"
)

// Variables set by the session wrapper and consumed by the shim.
const (
	// ReportSocket is the Unix socket path of the session's collector.
	ReportSocket = "COMPILEDB_REPORT_SOCKET"

	// ShimDirectory is the directory of compiler-named links to the
	// shim executable (wrapper mode only). The shim removes it from
	// PATH when resolving the real program.
	ShimDirectory = "COMPILEDB_SHIM_DIR"

	// Overrides maps link names to real programs for compilers the
	// build selected by absolute path through CC or CXX. See
	// [FormatOverrides].
	Overrides = "COMPILEDB_OVERRIDES"

	// CaptureKeys lists extra environment variable names, comma
	// separated, that the shim records in addition to
	// [DefaultCaptureKeys].
	CaptureKeys = "COMPILEDB_ENV_KEYS"

	// ReportTimeout bounds how long the shim waits to deliver a record,
	// as a Go duration string. Defaults to [DefaultReportTimeout].
	ReportTimeout = "COMPILEDB_REPORT_TIMEOUT"

	// ShimChain records the programs a shim already delegated to, so a
	// launcher that execs the shim link again (ccache's masquerade
	// directory, distcc's, or a user wrapper script named cc) resolves
	// past itself instead of looping. See [FormatChain].
	ShimChain = "COMPILEDB_SHIM_CHAIN"

	// Verbose enables shim diagnostics on stderr. Off by default
	// because the shim's stderr is the compiler's stderr.
	Verbose = "COMPILEDB_VERBOSE"
)

// DefaultReportTimeout is the shim's delivery deadline when
// [ReportTimeout] is unset or unparseable.
const DefaultReportTimeout = "5s"

// DefaultCaptureKeys are the environment variables that change what a
// compiler does without appearing on its command line.
var DefaultCaptureKeys = []string{
	"CPATH",
	"C_INCLUDE_PATH",
	"CPLUS_INCLUDE_PATH",
	"OBJC_INCLUDE_PATH",
	"LIBRARY_PATH",
	"COMPILER_PATH",
	"GCC_EXEC_PREFIX",
	"SOURCE_DATE_EPOCH",
	"SDKROOT",
	"MACOSX_DEPLOYMENT_TARGET",
	"IPHONEOS_DEPLOYMENT_TARGET",
	"CCC_OVERRIDE_OPTIONS",
}

// Get returns the value of key in env. When key appears more than once
// the last occurrence wins, matching getenv(3) on the resulting
// process.
func Get(env []string, key string) (string, bool) {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if value, found := strings.CutPrefix(env[i], prefix); found {
			return value, true
		}
	}
	return "", false
}

// Set returns env with key bound to value. Existing bindings of key are
// removed so the result carries exactly one. The input slice is not
// modified.
func Set(env []string, key, value string) []string {
	result := Unset(env, key)
	return append(result, key+"="+value)
}

// Unset returns env without any binding of key. The input slice is not
// modified.
func Unset(env []string, key string) []string {
	prefix := key + "="
	result := make([]string, 0, len(env)+1)
	for _, entry := range env {
		if !strings.HasPrefix(entry, prefix) {
			result = append(result, entry)
		}
	}
	return result
}

// Capture extracts the default capture keys plus extraKeys from env.
// Returns nil when none of the keys are bound, so records from builds
// with a clean environment carry no environment field at all.
func Capture(env []string, extraKeys []string) map[string]string {
	var captured map[string]string
	for _, key := range slices.Concat(DefaultCaptureKeys, extraKeys) {
		if key == "" {
			continue
		}
		value, ok := Get(env, key)
		if !ok {
			continue
		}
		if captured == nil {
			captured = make(map[string]string)
		}
		captured[key] = value
	}
	return captured
}

// ParseKeyList splits a comma-separated [CaptureKeys] value, trimming
// whitespace and dropping empty names.
func ParseKeyList(value string) []string {
	var keys []string
	for _, key := range strings.Split(value, ",") {
		key = strings.TrimSpace(key)
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// PrependPath returns env with directory placed first in PATH. An
// existing entry for the same directory is removed so repeated
// sessions (compiledb run -- compiledb run -- make) do not grow PATH.
func PrependPath(env []string, directory string) []string {
	current, _ := Get(env, "PATH")
	entries := []string{directory}
	for _, entry := range filepath.SplitList(current) {
		if entry == "" || filepath.Clean(entry) == filepath.Clean(directory) {
			continue
		}
		entries = append(entries, entry)
	}
	return Set(env, "PATH", strings.Join(entries, string(filepath.ListSeparator)))
}

// SearchPath returns the PATH entries of pathValue in order, without
// any entry equal to one of excluded. Empty entries mean the current
// directory, as in execvp(3).
func SearchPath(pathValue string, excluded ...string) []string {
	var cleanedExcluded []string
	for _, directory := range excluded {
		if directory != "" {
			cleanedExcluded = append(cleanedExcluded, filepath.Clean(directory))
		}
	}

	var result []string
	for _, entry := range filepath.SplitList(pathValue) {
		if entry == "" {
			entry = "."
		}
		if slices.Contains(cleanedExcluded, filepath.Clean(entry)) {
			continue
		}
		result = append(result, entry)
	}
	return result
}
