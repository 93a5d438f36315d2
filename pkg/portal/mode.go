// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package portal is the connection library for the configuration portal.
// This is the single source of truth for portal connectivity.
package portal

// Mode represents how the client talks to the portal.
type Mode int

const (
	// Anonymous means no token is configured. The portal may still accept
	// requests, e.g. behind an SSO proxy that sets its own cookie.
	Anonymous Mode = iota

	// Authenticated means every request carries the stored token.
	Authenticated
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}
