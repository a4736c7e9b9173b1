// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compiler recognizes C-family compiler invocations and
// extracts what a compilation database needs from them: the source
// files compiled and the output named with -o.
//
// Recognition is by program name. The known families are cc, gcc,
// clang, their C++ drivers, the Intel and CUDA drivers, and any
// cross-prefixed or version-suffixed variant ("x86_64-linux-gnu-gcc-12",
// "clang++-17"). A [Recognizer] can be extended with additional exact
// names from configuration.
//
// An invocation yields no compilation when it only preprocesses (-E),
// only generates dependencies (-M, -MM), only queries the driver
// (--version, -dumpmachine, -print-*), or only links object files.
package compiler
