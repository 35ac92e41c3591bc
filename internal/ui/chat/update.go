// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/faqchat/internal/model"
	"github.com/jeranaias/faqchat/internal/stream"
	"github.com/jeranaias/faqchat/internal/util"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case StreamEventMsg:
		return m.handleStreamEvent(msg)

	case streamClosedMsg:
		return m.handleStreamClosed(msg)

	case flushMsg:
		m.flushPending = false
		if m.dirty {
			m.refresh()
		}
		return m, nil

	case HealthResultMsg:
		return m.handleHealth(msg)

	case spinner.TickMsg:
		// Not re-ticking stops the spinner once loading is hidden.
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Cursor blink and other component messages.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// INPUT
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	// Input is disabled while a request is in flight.
	if !m.input.Focused() {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.autoGrow()
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	question := m.input.Value()

	eff, err := m.machine.Submit(question)
	if err != nil {
		m.logger.Debug().Err(err).Msg("submit ignored")
		return m, nil
	}
	if eff == 0 {
		return m, nil
	}
	question = strings.TrimSpace(question)

	ctx, cancel := context.WithCancel(context.Background())
	m.session++
	m.cancel = cancel
	m.chunks = 0
	m.bot = model.NewBotMessage()

	cmds := m.applyEffects(eff, question)

	m.events = m.consumer.SendChan(ctx, question)
	cmds = append(cmds, waitForEvent(m.session, m.events))

	m.logger.Debug().Uint64("session", m.session).Msg("question submitted")
	return m, tea.Batch(cmds...)
}

// applyEffects performs the UI side of a transition.
func (m *Model) applyEffects(eff Effect, question string) []tea.Cmd {
	var cmds []tea.Cmd

	if eff.Has(EffectDisableInput) {
		m.input.Blur()
	}
	if eff.Has(EffectShowLoading) {
		m.loading = true
		cmds = append(cmds, m.spinner.Tick)
	}
	if eff.Has(EffectAppendMessages) {
		m.messages = append(m.messages, model.NewUserMessage(question), m.bot)
	}
	if eff.Has(EffectClearInput) {
		m.input.Reset()
		m.autoGrow()
	}
	if eff.Has(EffectHideLoading) {
		m.loading = false
	}
	if eff.Has(EffectEnableInput) || eff.Has(EffectFocusInput) {
		cmds = append(cmds, m.input.Focus())
	}
	if eff.Has(EffectScroll) {
		m.refresh()
	}

	return cmds
}

// autoGrow sizes the input to its wrapped line count.
func (m *Model) autoGrow() {
	lines := util.VisualLines(m.input.Value(), m.input.Width())
	if lines < 1 {
		lines = 1
	}
	if lines > m.maxLines {
		lines = m.maxLines
	}
	if lines != m.input.Height() {
		m.input.SetHeight(lines)
		m.layout()
	}
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

func (m Model) handleStreamEvent(msg StreamEventMsg) (tea.Model, tea.Cmd) {
	if msg.Session != m.session || m.events == nil {
		return m, nil
	}

	ev := msg.Event
	if ev.Terminal() {
		return m.settle(ev)
	}

	if _, err := m.machine.Fire(TriggerChunk); err != nil {
		m.logger.Warn().Err(err).Msg("unexpected chunk")
		return m, waitForEvent(m.session, m.events)
	}

	m.chunks = ev.Chunks
	m.updateBot(ev)
	return m, tea.Batch(m.scheduleRefresh(), waitForEvent(m.session, m.events))
}

// handleStreamClosed settles a session whose channel closed without a
// terminal event.
func (m Model) handleStreamClosed(msg streamClosedMsg) (tea.Model, tea.Cmd) {
	if msg.Session != m.session || m.events == nil {
		return m, nil
	}
	return m.settle(stream.Event{
		Kind:    stream.EventFailed,
		Status:  stream.StatusFailed,
		Content: "Sorry, something went wrong. The reply ended unexpectedly.",
	})
}

// settle finishes the current session. Cleanup runs whatever the outcome.
func (m Model) settle(ev stream.Event) (tea.Model, tea.Cmd) {
	failed := ev.Kind == stream.EventFailed

	eff, err := m.machine.Settle(failed)
	if err != nil {
		m.logger.Warn().Err(err).Msg("settle from unexpected state")
		eff = EffectCleanup
	}

	if m.bot != nil {
		if eff.Has(EffectWriteFailure) {
			_ = m.bot.SetContent(ev.Content, false)
		} else {
			m.updateBot(ev)
		}
		m.bot.Freeze(failed)
	}

	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = nil
	m.events = nil
	m.bot = nil
	m.dirty = false

	return m, tea.Batch(m.applyEffects(eff, "")...)
}

func (m *Model) updateBot(ev stream.Event) {
	if m.bot == nil {
		return
	}
	_ = m.bot.SetContent(ev.Content, ev.Markup)
	if ev.Markup {
		_ = m.bot.SetText(ev.Text)
	}
}

// =============================================================================
// HEALTH
// =============================================================================

func (m Model) handleHealth(msg HealthResultMsg) (tea.Model, tea.Cmd) {
	if msg.OK() {
		m.health = healthOK
		m.logger.Debug().Str("url", msg.URL).Msg("backend reachable")
		return m, nil
	}

	m.health = healthDown
	if m.healthReported {
		return m, nil
	}
	m.healthReported = true

	m.logger.Warn().Err(msg.Err).Str("url", msg.URL).Msg("backend not reachable")
	m.messages = append(m.messages, model.NewSystemMessage(HealthNotice(msg.URL, msg.Err, m.cfg.HealthTimeout())))
	m.refresh()
	return m, nil
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	widthChanged := msg.Width != m.width
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)

	inputWidth := m.width - inputBorder
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.SetWidth(inputWidth)
	m.viewport.Width = m.width

	if widthChanged && m.renderer != nil {
		if err := m.renderer.SetWidth(m.theme.ContentWidth()); err != nil {
			m.logger.Warn().Err(err).Msg("renderer resize failed")
		}
	}

	m.autoGrow()
	m.layout()
	m.ready = true
	m.refresh()
	return m, nil
}

// layout gives the viewport whatever rows the other parts leave.
func (m *Model) layout() {
	h := m.height - headerHeight - statusBarHeight - (m.input.Height() + inputBorder)
	if h < 1 {
		h = 1
	}
	m.viewport.Height = h
}

// refresh re-renders the transcript and scrolls to the newest message.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
	m.dirty = false
}

// scheduleRefresh re-renders now if the frame budget allows, otherwise
// defers it to a single pending flush.
func (m *Model) scheduleRefresh() tea.Cmd {
	if m.limiter.Allow() {
		m.refresh()
		return nil
	}
	m.dirty = true
	if m.flushPending {
		return nil
	}
	m.flushPending = true
	return flushAfter(m.frame)
}
