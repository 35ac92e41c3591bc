// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles used to draw the chat screen.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel   lipgloss.Style
	BotLabel    lipgloss.Style
	SystemLabel lipgloss.Style
	FailedLabel lipgloss.Style
	Timestamp   lipgloss.Style

	UserBody   lipgloss.Style
	BotBody    lipgloss.Style
	SystemBody lipgloss.Style
	FailedBody lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS
	// ==========================================================================

	InputFocused  lipgloss.Style
	InputDisabled lipgloss.Style
	Spinner       lipgloss.Style

	StatusBar   lipgloss.Style
	StatusHint  lipgloss.Style
	StatusOK    lipgloss.Style
	StatusError lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.HeaderSubtitle = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.BotLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.SystemLabel = lipgloss.NewStyle().Bold(true).Foreground(Amber)
	t.FailedLabel = lipgloss.NewStyle().Bold(true).Foreground(Rose)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)

	t.UserBody = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBorder).
		PaddingLeft(1)
	t.BotBody = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(BotBorder).
		PaddingLeft(1)
	t.SystemBody = lipgloss.NewStyle().
		Foreground(SystemFg).
		Italic(true).
		PaddingLeft(2)
	t.FailedBody = lipgloss.NewStyle().
		Foreground(FailedFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Rose).
		PaddingLeft(1)

	t.InputFocused = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Cyan)
	t.InputDisabled = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Foreground(TextMuted)
	t.Spinner = lipgloss.NewStyle().Foreground(Purple)

	t.StatusBar = lipgloss.NewStyle().Foreground(TextSecondary).Padding(0, 1)
	t.StatusHint = lipgloss.NewStyle().Foreground(TextMuted)
	t.StatusOK = lipgloss.NewStyle().Foreground(Emerald)
	t.StatusError = lipgloss.NewStyle().Foreground(Rose)
}

// SetSize updates the dimensions used for width-dependent styles.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// ContentWidth is the usable width for message bodies: the window minus the
// left border and padding of the body styles.
func (t *Theme) ContentWidth() int {
	w := t.Width - 2
	if w < 10 {
		return 10
	}
	return w
}
