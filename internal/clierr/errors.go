// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package clierr provides error classification and user-friendly error formatting for the CLI.
// It helps distinguish between different error types and provides actionable hints.
package clierr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/monadic/cfgport/pkg/portal"
)

// Common error types for CLI output.
const (
	TypeForbidden  = "forbidden"  // Portal denied the request
	TypeNotFound   = "not_found"  // App, cluster or env unknown to the portal
	TypeNetwork    = "network"    // Connection/network errors
	TypeInternal   = "internal"   // Internal/unexpected errors
	TypeValidation = "validation" // Input validation errors
)

// ErrValidation marks errors caused by user input.
var ErrValidation = errors.New("invalid input")

// Validation wraps a user input problem so ClassifyError reports it as such.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsForbidden checks if the error is an access denied error.
func IsForbidden(err error) bool {
	if err == nil {
		return false
	}
	if portal.IsForbidden(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "access denied")
}

// IsNotFound checks if the error indicates a missing app, cluster or env.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return portal.IsNotFound(err)
}

// IsNetworkError checks if the error is a connection/network error.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "context deadline exceeded")
}

// ClassifyError determines the type of error for appropriate handling.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrValidation) {
		return TypeValidation
	}
	if IsForbidden(err) {
		return TypeForbidden
	}
	if IsNotFound(err) {
		return TypeNotFound
	}
	if IsNetworkError(err) {
		return TypeNetwork
	}
	return TypeInternal
}

// BackendMessage returns the message the portal sent with err, or "" when
// err carries no response body.
func BackendMessage(err error) string {
	var se *portal.StatusError
	if errors.As(err, &se) {
		return se.Message()
	}
	return ""
}

// Message returns the text to show a user for err: the portal's own
// message when it sent one, the error text otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if msg := BackendMessage(err); msg != "" {
		return msg
	}
	return err.Error()
}

// Pretty formats an error with a user-friendly message and actionable hints.
func Pretty(err error) string {
	if err == nil {
		return ""
	}

	errType := ClassifyError(err)
	baseMsg := Message(err)

	switch errType {
	case TypeValidation:
		return baseMsg

	case TypeForbidden:
		return fmt.Sprintf("Access denied: %s\n\nHint: Check your portal permissions. You may need:\n"+
			"  - app admin rights for per-app export and import\n"+
			"  - super admin rights for multi-environment import\n"+
			"  - cfgport auth login to store a token", baseMsg)

	case TypeNotFound:
		return fmt.Sprintf("Not found: %s\n\nHint: Check the app ID, environment and cluster name.\n"+
			"  - cfgport envs lists the environments the portal knows", baseMsg)

	case TypeNetwork:
		return fmt.Sprintf("Connection error: %s\n\nHint: Check your portal connectivity:\n"+
			"  - the --url flag or CFGPORT_URL\n"+
			"  - the --prefix flag if the portal is served under a sub path", baseMsg)

	default:
		return fmt.Sprintf("Error: %s", baseMsg)
	}
}

// WrapWithHint wraps an error with an additional hint message.
func WrapWithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w\n\nHint: %s", err, hint)
}

// NothingFound returns a user-friendly message when a query returns no results.
// This is different from an error - it's a valid "empty" result.
func NothingFound(resource string) string {
	return fmt.Sprintf("No %s found matching your criteria.\n\n"+
		"This might mean:\n"+
		"  - Nothing has been recorded yet\n"+
		"  - Your filter is too restrictive", resource)
}
