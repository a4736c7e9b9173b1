// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package environ

import (
	"maps"
	"slices"
	"strings"
)

// FormatOverrides encodes a link-name to real-program table as the
// value of [Overrides]: one "name=path" pair per line, sorted by name.
// Newlines separate entries because program paths may contain the PATH
// list separator but, in practice, never a newline.
func FormatOverrides(overrides map[string]string) string {
	var builder strings.Builder
	for _, name := range slices.Sorted(maps.Keys(overrides)) {
		if builder.Len() > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(name)
		builder.WriteByte('=')
		builder.WriteString(overrides[name])
	}
	return builder.String()
}

// ParseOverrides decodes a [FormatOverrides] value. Malformed lines are
// skipped: the shim must never fail because of its own configuration.
func ParseOverrides(value string) map[string]string {
	overrides := make(map[string]string)
	for _, line := range strings.Split(value, "\n") {
		name, path, found := strings.Cut(line, "=")
		if !found || name == "" || path == "" {
			continue
		}
		overrides[name] = path
	}
	return overrides
}
