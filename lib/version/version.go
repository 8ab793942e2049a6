// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build of the chained binaries.
//
// Release builds set the variables with -ldflags:
//
//	go build -ldflags "-X github.com/chainedsocial/chainedsocial/lib/version.Version=v0.3.0"
//
// Otherwise the commit comes from the VCS stamp the go command embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "0.1.0-dev"
	GitCommit = ""
	BuildTime = ""
)

// Info is the one-line form printed by --version.
func Info() string {
	commit, modified, built := stamp()
	if modified {
		commit += "-dirty"
	}
	if built == "" {
		return fmt.Sprintf("%s (%s)", Version, commit)
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, built)
}

// Full adds the toolchain and platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s", Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func stamp() (commit string, modified bool, built string) {
	commit, built = GitCommit, BuildTime
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if commit == "" && len(setting.Value) >= 7 {
					commit = setting.Value[:7]
				}
			case "vcs.modified":
				modified = setting.Value == "true"
			case "vcs.time":
				if built == "" {
					built = setting.Value
				}
			}
		}
	}
	if commit == "" {
		commit = "unknown"
	}
	return commit, modified, built
}
