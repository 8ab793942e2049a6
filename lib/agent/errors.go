// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"errors"
	"fmt"
)

// RejectCode classifies a replica rejection.
type RejectCode uint64

const (
	RejectSysFatal           RejectCode = 1
	RejectSysTransient       RejectCode = 2
	RejectDestinationInvalid RejectCode = 3
	RejectCanisterReject     RejectCode = 4
	RejectCanisterError      RejectCode = 5
)

func (c RejectCode) String() string {
	switch c {
	case RejectSysFatal:
		return "SYS_FATAL"
	case RejectSysTransient:
		return "SYS_TRANSIENT"
	case RejectDestinationInvalid:
		return "DESTINATION_INVALID"
	case RejectCanisterReject:
		return "CANISTER_REJECT"
	case RejectCanisterError:
		return "CANISTER_ERROR"
	}
	return fmt.Sprintf("REJECT_%d", uint64(c))
}

// RejectError is a well-formed rejection from the replica: the
// request reached it but was not executed or trapped.
type RejectError struct {
	Canister string
	Method   string
	Code     RejectCode
	Message  string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("%s.%s rejected (%s): %s", e.Canister, e.Method, e.Code, e.Message)
}

// HTTPError is a non-2xx answer that did not carry a rejection body.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

// IsReject reports whether err is, or wraps, a *RejectError.
func IsReject(err error) bool {
	var reject *RejectError
	return errors.As(err, &reject)
}
