// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestStampFromVCSSettings(t *testing.T) {
	got := stampFrom([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-03-01T10:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	})
	want := Version + " (0123456-dirty, 2026-03-01T10:00:00Z)"
	if got.format() != want {
		t.Errorf("format() = %q, want %q", got.format(), want)
	}
}

func TestStampPrefersLinkerValues(t *testing.T) {
	savedCommit, savedTime := GitCommit, BuildTime
	t.Cleanup(func() { GitCommit, BuildTime = savedCommit, savedTime })
	GitCommit, BuildTime = "feedbee", "2026-01-01T00:00:00Z"

	got := stampFrom([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-03-01T10:00:00Z"},
	})
	if got.commit != "feedbee" || got.time != "2026-01-01T00:00:00Z" || got.dirty {
		t.Errorf("stamp = %+v, want linker values", got)
	}
}

func TestFull(t *testing.T) {
	full := Full()
	if !strings.HasPrefix(full, Info()) {
		t.Errorf("Full() = %q does not start with Info()", full)
	}
	if !strings.Contains(full, "Platform: ") {
		t.Errorf("Full() = %q missing platform", full)
	}
}
