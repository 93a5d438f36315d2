// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package clierr

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/monadic/cfgport/pkg/portal"
)

func statusErr(code int, body string) error {
	return &portal.StatusError{Method: "GET", URL: "http://portal/envs", StatusCode: code, Body: body}
}

func TestIsForbidden(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "portal 403",
			err:      statusErr(403, ""),
			expected: true,
		},
		{
			name:     "wrapped portal 403",
			err:      fmt.Errorf("check: %w", statusErr(403, "")),
			expected: true,
		},
		{
			name:     "error with access denied",
			err:      errors.New("access denied to resource"),
			expected: true,
		},
		{
			name:     "portal 500",
			err:      statusErr(500, "boom"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsForbidden(tt.err)
			if got != tt.expected {
				t.Errorf("IsForbidden() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp 127.0.0.1:8070: connection refused"),
			expected: true,
		},
		{
			name:     "no such host",
			err:      errors.New("dial tcp: lookup portal.local: no such host"),
			expected: true,
		},
		{
			name:     "context deadline exceeded",
			err:      errors.New("context deadline exceeded"),
			expected: true,
		},
		{
			name:     "regular error",
			err:      errors.New("something went wrong"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsNetworkError(tt.err)
			if got != tt.expected {
				t.Errorf("IsNetworkError() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "validation error",
			err:      Validation("unknown environment %q", "UAT"),
			expected: TypeValidation,
		},
		{
			name:     "forbidden error",
			err:      statusErr(403, ""),
			expected: TypeForbidden,
		},
		{
			name:     "not found error",
			err:      statusErr(404, `{"message":"cluster not found"}`),
			expected: TypeNotFound,
		},
		{
			name:     "network error",
			err:      errors.New("connection refused"),
			expected: TypeNetwork,
		},
		{
			name:     "internal error",
			err:      errors.New("unexpected error"),
			expected: TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if got != tt.expected {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "portal json message", err: statusErr(500, `{"status":500,"message":"env not found"}`), want: "env not found"},
		{name: "portal plain body", err: statusErr(400, "bad zip"), want: "bad zip"},
		{name: "portal empty body falls back", err: statusErr(502, ""), want: "GET http://portal/envs: 502: Bad Gateway"},
		{name: "plain error", err: errors.New("dial tcp: refused"), want: "dial tcp: refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBackendMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "portal json message", err: statusErr(500, `{"message":"db down"}`), want: "db down"},
		{name: "wrapped plain body", err: fmt.Errorf("import: %w", statusErr(400, "bad zip")), want: "bad zip"},
		{name: "portal empty body", err: statusErr(500, ""), want: ""},
		{name: "network error", err: errors.New("dial tcp: connection refused"), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BackendMessage(tt.err); got != tt.want {
				t.Errorf("BackendMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapWithHint(t *testing.T) {
	if err := WrapWithHint(nil, "ignored"); err != nil {
		t.Errorf("WrapWithHint(nil) = %v, want nil", err)
	}

	base := Validation("no token given")
	err := WrapWithHint(base, "run cfgport auth login")
	if !errors.Is(err, ErrValidation) {
		t.Error("WrapWithHint must keep the wrapped error")
	}
	if !strings.HasSuffix(err.Error(), "\n\nHint: run cfgport auth login") {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestPretty(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantContain string
	}{
		{
			name:        "nil error",
			err:         nil,
			wantContain: "",
		},
		{
			name:        "forbidden error includes permission hint",
			err:         statusErr(403, ""),
			wantContain: "portal permissions",
		},
		{
			name:        "not found includes lookup hint",
			err:         statusErr(404, "cluster not found"),
			wantContain: "cfgport envs",
		},
		{
			name:        "network error includes connectivity hint",
			err:         errors.New("connection refused"),
			wantContain: "CFGPORT_URL",
		},
		{
			name:        "validation error is shown as is",
			err:         Validation("no environment selected"),
			wantContain: "no environment selected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pretty(tt.err)
			if tt.wantContain != "" && !strings.Contains(got, tt.wantContain) {
				t.Errorf("Pretty() = %q, want to contain %q", got, tt.wantContain)
			}
		})
	}
}

func TestNothingFound(t *testing.T) {
	result := NothingFound("transfers")
	if !strings.Contains(result, "transfers") {
		t.Errorf("NothingFound() should contain resource name")
	}
	if !strings.HasPrefix(result, "No ") {
		t.Errorf("NothingFound() should start with 'No '")
	}
}
