// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the faqchat command line.
//
// Commands:
//
//	faqchat                      chat screen (line mode when not a terminal)
//	faqchat chat [--plain]       line-mode chat with input history
//	faqchat ask "question"       one-shot question, prints the final reply
//	faqchat health               probe the backend, exit 1 when unreachable
//	faqchat config [show|path]   print the effective configuration
//
// Global flags --base-url, --config, --log-level and --no-markdown apply to
// every command. Configuration is resolved once in the root command's
// PersistentPreRunE and shared through App.
package cli
