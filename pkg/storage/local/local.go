// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package local implements the local filesystem storage adapter.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Storage implements storage.Storage on a directory.
type Storage struct {
	dir string
}

// New creates a local storage adapter rooted at dir ("." when empty).
func New(dir string) (*Storage, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// PutObject writes a file, replacing any previous content.
func (s *Storage) PutObject(ctx context.Context, key string, data io.Reader, contentType string, size int64) error {
	fullPath := s.keyToPath(key)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		os.Remove(fullPath)
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// GetObject opens a file.
func (s *Storage) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object not found: %s", key)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// ObjectExists checks if a file exists.
func (s *Storage) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}
	return true, nil
}

// Location returns the file path of key.
func (s *Storage) Location(key string) string {
	return s.keyToPath(key)
}

// Type returns "local".
func (s *Storage) Type() string {
	return "local"
}

// Dir returns the root directory.
func (s *Storage) Dir() string {
	return s.dir
}

// keyToPath maps a key into the root. Keys cannot climb out of it.
func (s *Storage) keyToPath(key string) string {
	return filepath.Join(s.dir, filepath.Clean("/"+key))
}
