// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvConfig, EnvURL, EnvPrefix, EnvToken, EnvLocale} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8070", cfg.Portal.URL)
	assert.Equal(t, 30*time.Second, cfg.Portal.Timeout)
	assert.Equal(t, "local", cfg.Output.Type)
	assert.Equal(t, "sqlite", cfg.History.Driver)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
portal:
  url: https://apollo.example.com
  prefix: /portal
  timeout: 5s
locale: zh-CN
output:
  type: s3
  s3:
    bucket: archives
    prefix: apollo
    path_style: true
history:
  driver: postgres
  dsn: host=db user=cfgport
keyring:
  backend: file
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://apollo.example.com", cfg.Portal.URL)
	assert.Equal(t, "/portal", cfg.Portal.Prefix)
	assert.Equal(t, 5*time.Second, cfg.Portal.Timeout)
	assert.Equal(t, "zh-CN", cfg.Locale)
	assert.Equal(t, "s3", cfg.Output.Type)
	assert.Equal(t, "archives", cfg.Output.S3.Bucket)
	assert.True(t, cfg.Output.S3.PathStyle)
	assert.Equal(t, "us-east-1", cfg.Output.S3.Region, "unset keys keep defaults")
	assert.Equal(t, "postgres", cfg.History.Driver)
	assert.Equal(t, "file", cfg.Keyring.Backend)
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("portal:\n  url: http://file\nlocale: en\n"), 0o644))
	t.Setenv(EnvURL, "http://env")
	t.Setenv(EnvPrefix, "/p")
	t.Setenv(EnvToken, "secret")
	t.Setenv(EnvLocale, "zh_CN.UTF-8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env", cfg.Portal.URL)
	assert.Equal(t, "/p", cfg.Portal.Prefix)
	assert.Equal(t, "secret", cfg.Portal.Token)
	assert.Equal(t, "zh_CN.UTF-8", cfg.Locale)
}

func TestConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv(EnvConfig, path)
	assert.Equal(t, path, DefaultPath())
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("portal: [unclosed"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "dir", "config.yaml")
	cfg := Default()
	cfg.Portal.URL = "http://saved"
	cfg.Portal.Token = "never-written"

	require.NoError(t, cfg.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "never-written")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://saved", loaded.Portal.URL)
}
