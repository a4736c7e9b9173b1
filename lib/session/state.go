// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import "fmt"

// State is a session lifecycle phase.
type State int32

const (
	// Idle: created, nothing started.
	Idle State = iota

	// ChildSpawned: the build command is running.
	ChildSpawned

	// Draining: the build exited; in-flight reports are being
	// collected.
	Draining

	// Finalizing: outputs are being written.
	Finalizing

	// Done: the session is over. Terminal.
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ChildSpawned:
		return "child-spawned"
	case Draining:
		return "draining"
	case Finalizing:
		return "finalizing"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
