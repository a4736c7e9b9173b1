// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// These variables are set via -ldflags at build time, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/compiledb/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// stamp is the build identity after falling back to embedded VCS
// settings for anything ldflags left unset.
type stamp struct {
	commit string
	time   string
	dirty  bool
}

var buildStamp = sync.OnceValue(func() stamp {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return stamp{commit: GitCommit, time: BuildTime}
	}
	return stampFrom(info.Settings)
})

// stampFrom combines the ldflags variables with VCS build settings.
func stampFrom(settings []debug.BuildSetting) stamp {
	result := stamp{commit: GitCommit, time: BuildTime}
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			if result.commit == "unknown" && setting.Value != "" {
				result.commit = setting.Value
				if len(result.commit) > 7 {
					result.commit = result.commit[:7]
				}
			}
		case "vcs.time":
			if result.time == "unknown" && setting.Value != "" {
				result.time = setting.Value
			}
		case "vcs.modified":
			result.dirty = setting.Value == "true"
		}
	}
	return result
}

// Info returns a formatted version string suitable for version output.
func Info() string {
	return buildStamp().format()
}

func (s stamp) format() string {
	dirty := ""
	if s.dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, s.commit, dirty, s.time)
}

// Full returns detailed version information including Go version.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
