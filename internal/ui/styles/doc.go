// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors and Lip Gloss styles of the chat TUI.

All colors are lipgloss.AdaptiveColor values so the transcript reads on both
light and dark terminals.

# Color System (colors.go)

  - Purple: assistant messages, spinner
  - Cyan: brand, user messages, focused input
  - Amber: system notices
  - Rose: failed replies
  - Emerald: healthy backend

# Theme (theme.go)

Theme bundles the styles used by the view. Create one per program and call
SetSize on every window resize:

	theme := styles.NewTheme()
	theme.SetSize(msg.Width, msg.Height)
	label := theme.BotLabel.Render("Assistant")
*/
package styles
