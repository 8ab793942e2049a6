// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds small helpers shared by the test suites.
//
// [RequireReceive], [RequireNoReceive] and [RequireClosed] wrap the
// select-with-timeout pattern so tests never hang on a missing
// signal. These are the only places the tests use real wall-clock
// timeouts. Everything else runs on lib/clock's fake clock.
package testutil
