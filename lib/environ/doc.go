// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package environ defines the environment contract between the session
// wrapper and the interception shim, and the helpers both sides use to
// read and rewrite environment lists.
//
// The wrapper is the only writer of the COMPILEDB_* variables; the shim
// is the only reader. Every variable is optional from the shim's point
// of view: when [ReportSocket] is absent the shim disables capture and
// behaves as a transparent passthrough.
//
// Environment lists are handled in the os.Environ form ("KEY=value"
// strings) so the helpers compose directly with exec.Cmd.Env and
// unix.Exec.
package environ
