// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the chat surfaces.
//
// # Key Functions
//
// Text:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - StringWidth, TruncateWidth: display-width aware helpers (CJK, emoji)
//   - VisualLines: how many terminal rows a text occupies at a given width
//
// Files:
//   - WriteFileAtomic: crash-safe replacement of a file from a writer callback
package util
