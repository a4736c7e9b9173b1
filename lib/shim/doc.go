// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package shim implements the interception shim: the program that runs
// in place of a compiler inside a compiledb session, reports the
// invocation to the session wrapper, and then becomes the real
// compiler.
//
// The wrapper places a directory of links named after compilers
// ("cc", "gcc", "clang++", ...) first in PATH. Every link points at the
// compiledb-shim executable. When the build runs "cc -c a.c", the shim
// starts with argv[0] == "cc" and:
//
//  1. resolves the real "cc" by searching PATH with its own directory
//     removed (or through the override table for compilers the build
//     selected by absolute path);
//  2. captures the argument vector, working directory, relevant
//     environment, pid, and parent pid into a record.Record;
//  3. delivers the record over the report channel and waits for the
//     acknowledgement;
//  4. replaces its process image with the real compiler via execve,
//     passing the original arguments and environment.
//
// Capture always precedes delegation. Because step 4 replaces the shim
// rather than spawning a child, the compiler keeps the shim's pid, its
// exit status reaches the build unchanged, and the shim never has to
// match the compiler's ABI.
//
// Nothing the shim does for itself may make the build fail: a missing
// channel, an unreachable collector, or an encoding failure only
// disables capture for that call. The only errors the build can observe
// are those it would have seen without compiledb: a program that does
// not exist (exit 127) or cannot be executed (exit 126).
//
// Interception state is read from the environment once per process
// (see [Current]) and is never shared with other processes except
// through the report channel.
package shim
