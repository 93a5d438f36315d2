// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StatusError is returned for every non-2xx portal response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := e.Message()
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.URL, e.StatusCode, msg)
}

// Message returns the human readable part of the response body.
// The portal reports failures as {"status":..,"message":..}; other bodies
// are returned trimmed.
func (e *StatusError) Message() string {
	body := strings.TrimSpace(e.Body)
	if strings.HasPrefix(body, "{") {
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(body), &payload); err == nil && payload.Message != "" {
			return payload.Message
		}
	}
	return body
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsForbidden reports whether the portal denied the request.
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}

// IsNotFound reports whether the portal answered 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
