// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfig_Default tests that Default() returns a valid config with defaults.
func TestConfig_Default(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://127.0.0.1:5000/api/chat", cfg.ChatURL())
	assert.Equal(t, "http://127.0.0.1:5000/api/health", cfg.HealthURL())
	assert.Equal(t, 4*time.Second, cfg.HealthTimeout())
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout())
	assert.True(t, cfg.UI.Markdown)
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"empty base url", func(c *Config) { c.Endpoint.BaseURL = "" }, "endpoint.base_url"},
		{"ftp scheme", func(c *Config) { c.Endpoint.BaseURL = "ftp://host/api" }, "endpoint.base_url"},
		{"zero health timeout", func(c *Config) { c.Endpoint.HealthTimeoutMs = 0 }, "endpoint.health_timeout_ms"},
		{"outer shorter than probe", func(c *Config) { c.Endpoint.RequestTimeoutMs = 1000 }, "endpoint.request_timeout_ms"},
		{"bad style", func(c *Config) { c.UI.Style = "neon" }, "ui.style"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://localhost:5000/api", "http://localhost:5000/api", false},
		{"localhost:5000/api/", "http://localhost:5000/api", false},
		{"https://faq.example.com/", "https://faq.example.com", false},
		{"  ", "", true},
		{"http:///api", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NormalizeBaseURL(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConfig_ResolveOverride(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Resolve("backend.internal:8080/api/"))

	assert.Equal(t, "http://backend.internal:8080/api/chat", cfg.ChatURL())
	assert.Equal(t, "http://backend.internal:8080/api/health", cfg.HealthURL())

	// Empty override keeps the configured base.
	cfg2 := Default()
	require.NoError(t, cfg2.Resolve(""))
	assert.Equal(t, DefaultBaseURL, cfg2.Endpoint.BaseURL)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[endpoint]
base_url = "http://files.example:9000/api"
health_timeout_ms = 2500

[ui]
style = "dark"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	t.Setenv("FAQCHAT_BASE_URL", "")
	t.Setenv("FAQCHAT_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://files.example:9000/api", cfg.Endpoint.BaseURL)
	assert.Equal(t, 2500*time.Millisecond, cfg.HealthTimeout())
	assert.Equal(t, "dark", cfg.UI.Style)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset keys keep defaults.
	assert.Equal(t, "/chat", cfg.Endpoint.ChatPath)
	assert.Equal(t, 5000, cfg.Endpoint.RequestTimeoutMs)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[endpoint]\nbase_url = \"http://file:1/api\"\n"), 0600))

	t.Setenv("FAQCHAT_BASE_URL", "http://env:2/api")
	t.Setenv("FAQCHAT_NO_MARKDOWN", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env:2/api", cfg.Endpoint.BaseURL)
	assert.False(t, cfg.UI.Markdown)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("FAQCHAT_BASE_URL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.Endpoint.BaseURL)
}

func TestLoad_UnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[endpoint]\nbase_uri = \"typo\"\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint.base_uri")
}

func TestConfig_StringRoundTrips(t *testing.T) {
	cfg := Default()
	cfg.Endpoint.BaseURL = "http://roundtrip:1/api"

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(cfg.String()), 0600))

	loaded := Default()
	require.NoError(t, LoadTOML(loaded, path))
	assert.Equal(t, cfg, loaded)
}
