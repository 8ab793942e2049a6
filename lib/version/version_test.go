// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfoUsesLinkerValues(t *testing.T) {
	savedVersion, savedCommit, savedTime := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = savedVersion, savedCommit, savedTime })

	Version, GitCommit, BuildTime = "v1.2.3", "abc1234", "2026-03-01T00:00:00Z"
	info := Info()
	if !strings.HasPrefix(info, "v1.2.3 (abc1234") || !strings.HasSuffix(info, ", 2026-03-01T00:00:00Z)") {
		t.Errorf("Info() = %q", info)
	}
	if !strings.Contains(Full(), "Platform: ") {
		t.Errorf("Full() = %q", Full())
	}
}

func TestInfoWithoutStamp(t *testing.T) {
	savedCommit := GitCommit
	t.Cleanup(func() { GitCommit = savedCommit })
	GitCommit = ""
	if info := Info(); !strings.HasPrefix(info, Version+" (") {
		t.Errorf("Info() = %q", info)
	}
}
