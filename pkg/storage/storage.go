// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package storage defines where exported archives are written and where
// archives to import can be read from. Backends are the local filesystem
// and S3-compatible object storage (AWS S3, MinIO, OSS).
package storage

import (
	"context"
	"io"
)

// Storage is implemented by every archive backend.
type Storage interface {
	// PutObject writes data under key. size may be -1 when unknown.
	PutObject(ctx context.Context, key string, data io.Reader, contentType string, size int64) error

	// GetObject opens the object stored under key. The caller closes it.
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	// ObjectExists checks if an object exists under key.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// Location describes where key lives, e.g. a file path or s3://bucket/key.
	Location(key string) string

	// Type returns the backend identifier ("local" or "s3").
	Type() string
}
