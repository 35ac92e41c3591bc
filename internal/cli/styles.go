// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/faqchat/internal/ui/styles"
)

func init() {
	// NO_COLOR, FORCE_COLOR and piped output all go through ColorProfile.
	lipgloss.SetColorProfile(ColorProfile())
}

// Shared line-mode styles.
var (
	promptStyle = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	botStyle    = lipgloss.NewStyle().Foreground(styles.Purple).Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(styles.TextMuted)
	okStyle     = lipgloss.NewStyle().Foreground(styles.Emerald)
	errorStyle  = lipgloss.NewStyle().Foreground(styles.Rose)
	noticeStyle = lipgloss.NewStyle().Foreground(styles.Amber)
)
