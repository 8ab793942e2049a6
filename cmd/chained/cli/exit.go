// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError ends the process with Code and no further output. The
// command has already printed what it wanted to say, as "profile
// check" does for a taken name.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode lets main tell a handled non-zero exit from an error it
// should print.
func (e *ExitError) ExitCode() int {
	return e.Code
}
