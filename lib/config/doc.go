// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the optional compiledb YAML configuration file.
//
// The file is named explicitly, by the COMPILEDB_CONFIG environment
// variable (via [Load]) or a --config flag (via [LoadFile]). There is
// no discovery in the working directory or under ~/.config: the same
// command line produces the same database on every machine. Without a
// file, [Default] applies.
//
// Command-line flags override file values; that merge happens in the
// CLI, not here.
//
// Path fields support ${VAR} and ${VAR:-default} expansion after
// loading. A bare $LIB in intercept.library is left alone for the
// dynamic loader.
//
//	output:
//	  path: ${BUILD_DIR:-.}/compile_commands.json
//	  append: true
//	  events: build-events.cbor.zst
//	intercept:
//	  mode: wrapper
//	  compilers: [arm-none-eabi-gcc, mycc]
//	  environment_keys: [PKG_CONFIG_PATH]
//	  report_timeout: 2s
//	  drain_timeout: 10s
package config
