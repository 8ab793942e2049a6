// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package session

import "fmt"

// AuthErrorKind classifies a failed login.
type AuthErrorKind string

const (
	// DelegationUnavailable: the identity provider would not issue a
	// delegation.
	DelegationUnavailable AuthErrorKind = "delegation-unavailable"

	// LocalBackendUnreachable: the development replica did not answer
	// the root key fetch or the status probe.
	LocalBackendUnreachable AuthErrorKind = "local-backend-unreachable"

	// InitializationExhausted: the identity provider never finished
	// initialising.
	InitializationExhausted AuthErrorKind = "initialization-exhausted"

	Unknown AuthErrorKind = "unknown"
)

// AuthError is the only error Login returns.
type AuthError struct {
	Kind AuthErrorKind

	// Host is the backend or provider involved, when known.
	Host string

	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Remediation is the message shown to the user.
func (e *AuthError) Remediation() string {
	switch e.Kind {
	case LocalBackendUnreachable:
		if e.Host != "" {
			return fmt.Sprintf("Local replica not running at %s. Start it with: chained-replica", e.Host)
		}
		return "Local replica not running. Start it with: chained-replica"
	case DelegationUnavailable:
		return "Authentication service unavailable. Please try again or check your internet connection."
	case InitializationExhausted:
		return "The identity provider is still initializing. Please try again in a moment."
	}
	if e.Err != nil {
		return "Login failed: " + e.Err.Error()
	}
	return "Login failed"
}
