// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and endpoint resolution for faqchat.
//
// Configuration is read once at startup from a TOML file, overlaid with
// environment variables and command-line overrides, validated, and then
// passed explicitly to the transport and UI layers.
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete faqchat configuration.
type Config struct {
	// Endpoint configuration (backend location and deadlines)
	Endpoint EndpointConfig `toml:"endpoint"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// Log configuration
	Log LogConfig `toml:"log"`
}

// EndpointConfig describes where the chat backend lives.
type EndpointConfig struct {
	// BaseURL is the API base, e.g. http://127.0.0.1:5000/api
	BaseURL string `toml:"base_url"`
	// ChatPath is joined to BaseURL for the chat endpoint
	ChatPath string `toml:"chat_path"`
	// HealthPath is joined to BaseURL for the health endpoint
	HealthPath string `toml:"health_path"`
	// HealthTimeoutMs bounds the startup health probe
	HealthTimeoutMs int `toml:"health_timeout_ms"`
	// RequestTimeoutMs is the outer deadline for all deadline-bound calls.
	// Must be at least HealthTimeoutMs.
	RequestTimeoutMs int `toml:"request_timeout_ms"`
	// UserAgent sent with every request
	UserAgent string `toml:"user_agent"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Markdown enables rendering of replies; false shows raw text
	Markdown bool `toml:"markdown"`
	// Style is the glamour style: auto, dark, light, notty
	Style string `toml:"style"`
	// WordWrap is the initial render width before the terminal size is known
	WordWrap int `toml:"word_wrap"`
	// MaxFPS caps viewport re-layout while a reply streams
	MaxFPS int `toml:"max_fps"`
	// MaxInputLines caps the auto-growing input height
	MaxInputLines int `toml:"max_input_lines"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Path of the log file; empty means <config dir>/faqchat.log
	Path string `toml:"path"`
	// Level is one of trace, debug, info, warn, error, disabled
	Level string `toml:"level"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

const (
	// DefaultBaseURL matches the reference backend (port 5000, /api prefix).
	DefaultBaseURL = "http://127.0.0.1:5000/api"

	defaultHealthTimeoutMs  = 4000
	defaultRequestTimeoutMs = 5000
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			BaseURL:          DefaultBaseURL,
			ChatPath:         "/chat",
			HealthPath:       "/health",
			HealthTimeoutMs:  defaultHealthTimeoutMs,
			RequestTimeoutMs: defaultRequestTimeoutMs,
			UserAgent:        "faqchat",
		},
		UI: UIConfig{
			Markdown:      true,
			Style:         "auto",
			WordWrap:      80,
			MaxFPS:        30,
			MaxInputLines: 6,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the faqchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".faqchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads the config file at path (the default path when empty), applies
// environment overrides and defaults, and validates the result.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := ConfigPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, err
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file on top of cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.Wrapf(err, "failed to decode %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return errors.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - FAQCHAT_BASE_URL: overrides endpoint.base_url
//   - FAQCHAT_HEALTH_TIMEOUT_MS: overrides endpoint.health_timeout_ms
//   - FAQCHAT_LOG_LEVEL: overrides log.level
//   - FAQCHAT_NO_MARKDOWN: "1" or "true" disables markdown rendering
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("FAQCHAT_BASE_URL"); base != "" {
		c.Endpoint.BaseURL = base
	}

	if ms := os.Getenv("FAQCHAT_HEALTH_TIMEOUT_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil {
			c.Endpoint.HealthTimeoutMs = v
		}
	}

	if level := os.Getenv("FAQCHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}

	if noMD := os.Getenv("FAQCHAT_NO_MARKDOWN"); noMD != "" {
		c.UI.Markdown = !(noMD == "1" || strings.EqualFold(noMD, "true"))
	}
}

// Resolve applies a command-line base URL override. It is called once at
// startup after Load; an empty override leaves the config untouched.
func (c *Config) Resolve(baseURLOverride string) error {
	if baseURLOverride != "" {
		c.Endpoint.BaseURL = baseURLOverride
	}
	normalized, err := NormalizeBaseURL(c.Endpoint.BaseURL)
	if err != nil {
		return err
	}
	c.Endpoint.BaseURL = normalized
	return nil
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Endpoint.BaseURL == "" {
		c.Endpoint.BaseURL = d.Endpoint.BaseURL
	}
	if c.Endpoint.ChatPath == "" {
		c.Endpoint.ChatPath = d.Endpoint.ChatPath
	}
	if c.Endpoint.HealthPath == "" {
		c.Endpoint.HealthPath = d.Endpoint.HealthPath
	}
	if c.Endpoint.HealthTimeoutMs == 0 {
		c.Endpoint.HealthTimeoutMs = d.Endpoint.HealthTimeoutMs
	}
	if c.Endpoint.RequestTimeoutMs == 0 {
		c.Endpoint.RequestTimeoutMs = d.Endpoint.RequestTimeoutMs
	}
	if c.Endpoint.UserAgent == "" {
		c.Endpoint.UserAgent = d.Endpoint.UserAgent
	}
	if c.UI.Style == "" {
		c.UI.Style = d.UI.Style
	}
	if c.UI.WordWrap == 0 {
		c.UI.WordWrap = d.UI.WordWrap
	}
	if c.UI.MaxFPS == 0 {
		c.UI.MaxFPS = d.UI.MaxFPS
	}
	if c.UI.MaxInputLines == 0 {
		c.UI.MaxInputLines = d.UI.MaxInputLines
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if _, err := NormalizeBaseURL(c.Endpoint.BaseURL); err != nil {
		errs = append(errs, ValidationError{Field: "endpoint.base_url", Message: err.Error()})
	}
	if c.Endpoint.HealthTimeoutMs <= 0 {
		errs = append(errs, ValidationError{Field: "endpoint.health_timeout_ms", Message: "must be positive"})
	}
	if c.Endpoint.RequestTimeoutMs < c.Endpoint.HealthTimeoutMs {
		errs = append(errs, ValidationError{
			Field:   "endpoint.request_timeout_ms",
			Message: fmt.Sprintf("must be >= health_timeout_ms (%d)", c.Endpoint.HealthTimeoutMs),
		})
	}

	validStyles := map[string]bool{"auto": true, "dark": true, "light": true, "notty": true}
	if !validStyles[strings.ToLower(c.UI.Style)] {
		errs = append(errs, ValidationError{
			Field:   "ui.style",
			Message: fmt.Sprintf("invalid style '%s', must be one of: auto, dark, light, notty", c.UI.Style),
		})
	}
	if c.UI.MaxFPS < 0 || c.UI.MaxFPS > 120 {
		errs = append(errs, ValidationError{Field: "ui.max_fps", Message: "must be between 0 and 120"})
	}
	if c.UI.MaxInputLines < 0 {
		errs = append(errs, ValidationError{Field: "ui.max_input_lines", Message: "must not be negative"})
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s'", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENDPOINT RESOLUTION
// =============================================================================

// NormalizeBaseURL adds a missing http:// scheme and trims trailing slashes.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("base URL is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, "invalid base URL")
	}
	if u.Host == "" {
		return "", errors.Errorf("base URL %q has no host", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.Errorf("base URL scheme %q is not http or https", u.Scheme)
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// ChatURL returns the fully resolved chat endpoint.
func (c *Config) ChatURL() string {
	return joinPath(c.Endpoint.BaseURL, c.Endpoint.ChatPath)
}

// HealthURL returns the fully resolved health endpoint.
func (c *Config) HealthURL() string {
	return joinPath(c.Endpoint.BaseURL, c.Endpoint.HealthPath)
}

// HealthTimeout is the deadline for the startup probe.
func (c *Config) HealthTimeout() time.Duration {
	return time.Duration(c.Endpoint.HealthTimeoutMs) * time.Millisecond
}

// RequestTimeout is the outer deadline applied by the transport client.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Endpoint.RequestTimeoutMs) * time.Millisecond
}

func joinPath(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

// =============================================================================
// OUTPUT
// =============================================================================

// String returns the configuration encoded as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config encode error: %v>", err)
	}
	return buf.String()
}
