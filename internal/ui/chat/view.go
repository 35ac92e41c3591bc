// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/faqchat/internal/model"
	"github.com/jeranaias/faqchat/internal/ui/styles"
	"github.com/jeranaias/faqchat/internal/util"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the chat screen: header, transcript, input, status bar.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready || m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	input := m.renderInput()
	status := m.renderStatusBar()

	// The viewport height is set in layout(); clamp here so a stale height
	// never pushes the input off screen.
	available := m.height - lipgloss.Height(header) - lipgloss.Height(input) - lipgloss.Height(status)
	if available < 1 {
		available = 1
	}
	messages := lipgloss.NewStyle().
		Height(available).
		MaxHeight(available).
		Render(m.viewport.View())

	return lipgloss.JoinVertical(lipgloss.Left, header, messages, input, status)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("faqchat")
	sub := m.theme.HeaderSubtitle.Render(util.TruncateWidth(m.cfg.Endpoint.BaseURL, m.width/2))
	return m.theme.Header.Width(m.width).MaxHeight(headerHeight).Render(title + "  " + sub)
}

func (m Model) renderInput() string {
	style := m.theme.InputFocused
	if !m.input.Focused() {
		style = m.theme.InputDisabled
	}
	return style.Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	var left string
	switch {
	case m.loading && m.machine.State() == StateStreaming:
		left = m.spinner.View() + fmt.Sprintf(" receiving reply (%d chunks)", m.chunks)
	case m.loading:
		left = m.spinner.View() + " waiting for reply"
	default:
		left = m.theme.StatusHint.Render(m.keys.HelpLine())
	}

	var right string
	switch m.health {
	case healthOK:
		right = m.theme.StatusOK.Render(styles.StatusIndicators.OK + " backend")
	case healthDown:
		right = m.theme.StatusError.Render(styles.StatusIndicators.Error + " backend")
	default:
		right = m.theme.StatusHint.Render(styles.StatusIndicators.Pending + " backend")
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.MaxHeight(statusBarHeight).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderMessages renders every message for the viewport.
func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		return m.theme.StatusHint.Render("Ask anything. Answers stream in as they are written.")
	}

	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg))
	}
	return b.String()
}

func (m Model) renderMessage(msg *model.Message) string {
	label, body := m.messageStyles(msg)

	heading := label.Render(msg.Sender.Label()) + " " +
		m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

	content := msg.Display()
	switch {
	case msg.Sender == model.SenderBot && msg.IsEmpty() && !msg.IsFrozen():
		content = m.theme.StatusHint.Render("Thinking...")
	case msg.Markup:
		// Renderer output is already wrapped to the content width.
		content = strings.TrimRight(content, "\n")
	default:
		body = body.Width(m.theme.ContentWidth())
	}

	return heading + "\n" + body.Render(content)
}

func (m Model) messageStyles(msg *model.Message) (label, body lipgloss.Style) {
	switch {
	case msg.Failed:
		return m.theme.FailedLabel, m.theme.FailedBody
	case msg.Sender == model.SenderUser:
		return m.theme.UserLabel, m.theme.UserBody
	case msg.Sender == model.SenderSystem:
		return m.theme.SystemLabel, m.theme.SystemBody
	default:
		return m.theme.BotLabel, m.theme.BotBody
	}
}
