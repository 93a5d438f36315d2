// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package portal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/99designs/keyring"
)

// KeyringService is the keyring namespace tokens are stored under.
const KeyringService = "cfgport"

// TokenStore keeps one portal token per portal URL in the OS keyring.
type TokenStore struct {
	ring keyring.Keyring
}

// NewTokenStore wraps an already opened keyring.
func NewTokenStore(ring keyring.Keyring) *TokenStore {
	return &TokenStore{ring: ring}
}

// OpenTokenStore opens the keyring backend named by backend ("auto",
// "keychain", "wincred", "secret-service", "pass" or "file"). When the
// preferred backend is unavailable it falls back to the file backend in
// fileDir.
func OpenTokenStore(backend, fileDir string) (*TokenStore, error) {
	if fileDir == "" {
		fileDir = authConfigDir()
	}
	cfg := keyring.Config{
		ServiceName:             KeyringService,
		FileDir:                 fileDir,
		FilePasswordFunc:        keyring.FixedStringPrompt(KeyringService),
		LibSecretCollectionName: KeyringService,
	}

	preferred, err := backendType(backend)
	if err != nil {
		return nil, err
	}
	cfg.AllowedBackends = []keyring.BackendType{preferred}

	ring, err := keyring.Open(cfg)
	if err != nil && preferred != keyring.FileBackend {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
		ring, err = keyring.Open(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return &TokenStore{ring: ring}, nil
}

func backendType(name string) (keyring.BackendType, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		switch runtime.GOOS {
		case "darwin":
			return keyring.KeychainBackend, nil
		case "windows":
			return keyring.WinCredBackend, nil
		case "linux":
			return keyring.SecretServiceBackend, nil
		default:
			return keyring.FileBackend, nil
		}
	case "keychain":
		return keyring.KeychainBackend, nil
	case "wincred":
		return keyring.WinCredBackend, nil
	case "secret-service":
		return keyring.SecretServiceBackend, nil
	case "pass":
		return keyring.PassBackend, nil
	case "file":
		return keyring.FileBackend, nil
	default:
		return "", fmt.Errorf("unsupported keyring backend: %s", name)
	}
}

// Save stores the token used for portalURL.
func (s *TokenStore) Save(portalURL, token string) error {
	return s.ring.Set(keyring.Item{
		Key:         tokenKey(portalURL),
		Data:        []byte(token),
		Label:       "cfgport token: " + portalURL,
		Description: "Portal access token managed by cfgport",
	})
}

// Load returns the token stored for portalURL, or "" when there is none.
func (s *TokenStore) Load(portalURL string) (string, error) {
	item, err := s.ring.Get(tokenKey(portalURL))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return string(item.Data), nil
}

// Delete removes the token stored for portalURL (logout).
func (s *TokenStore) Delete(portalURL string) error {
	err := s.ring.Remove(tokenKey(portalURL))
	if err == nil || errors.Is(err, keyring.ErrKeyNotFound) || os.IsNotExist(err) {
		return nil
	}
	return fmt.Errorf("remove token: %w", err)
}

func tokenKey(portalURL string) string {
	return "token:" + strings.TrimRight(portalURL, "/")
}

// authConfigDir returns the directory of the file keyring backend.
func authConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cfgport", "keyring")
}
