// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package environ

import "strings"

// PreloadVariable returns the dynamic loader variable that injects a
// shared library into every process on goos, or "" when the platform
// has no such mechanism compiledb knows how to drive.
func PreloadVariable(goos string) string {
	switch goos {
	case "darwin":
		return "DYLD_INSERT_LIBRARIES"
	case "linux", "freebsd", "netbsd", "openbsd", "dragonfly", "solaris", "illumos":
		return "LD_PRELOAD"
	default:
		return ""
	}
}

// AddPreload returns env with library prepended to the platform preload
// variable, keeping any libraries the caller already preloads.
//
// The library path is passed through verbatim. A literal "$LIB" token
// is therefore left for ld.so to expand per process, which is how one
// setting selects the lib, lib64, or libx32 build of the interception
// library matching each program's ABI.
//
// On darwin DYLD_FORCE_FLAT_NAMESPACE is also set, without which
// interposed symbols are not resolved through the inserted library.
func AddPreload(env []string, goos, library string) []string {
	variable := PreloadVariable(goos)
	if variable == "" || library == "" {
		return env
	}

	value := library
	if existing, ok := Get(env, variable); ok && existing != "" {
		alreadyPresent := false
		for _, entry := range strings.FieldsFunc(existing, isPreloadSeparator) {
			if entry == library {
				alreadyPresent = true
				break
			}
		}
		if alreadyPresent {
			value = existing
		} else {
			value = library + ":" + existing
		}
	}

	env = Set(env, variable, value)
	if goos == "darwin" {
		env = Set(env, "DYLD_FORCE_FLAT_NAMESPACE", "1")
	}
	return env
}

// isPreloadSeparator matches the separators ld.so accepts between
// LD_PRELOAD entries (colon or whitespace).
func isPreloadSeparator(r rune) bool {
	return r == ':' || r == ' ' || r == '\t'
}
