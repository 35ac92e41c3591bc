// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and endpoint resolution for faqchat.
//
// # Configuration Precedence
//
// Configuration is resolved once at startup from (highest first):
//   - Command-line flags (--base-url)
//   - Environment variables (FAQCHAT_*)
//   - ~/.faqchat/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Resolve(flagBaseURL); err != nil {
//	    return err
//	}
//	chatURL, healthURL := cfg.ChatURL(), cfg.HealthURL()
package config
