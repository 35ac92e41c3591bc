// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/faqchat/internal/util"
)

// ErrFrozen is returned when a settled message is updated.
var ErrFrozen = errors.New("message is frozen")

// =============================================================================
// SENDER
// =============================================================================

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// Label returns the heading shown above a message.
func (s Sender) Label() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderBot:
		return "Assistant"
	case SenderSystem:
		return "System"
	default:
		return string(s)
	}
}

// =============================================================================
// MESSAGE
// =============================================================================

// Message is a single transcript entry.
//
// Text always holds plain text. Rendered holds renderer output and is only
// meaningful when Markup is true; it is replaced wholesale on every update,
// never appended to.
type Message struct {
	ID        string
	Sender    Sender
	Timestamp time.Time

	Text     string
	Rendered string
	Markup   bool

	// Failed marks a bot message whose reply ended in an error.
	Failed bool

	frozen bool
}

// NewMessage creates a message with a fresh ID.
func NewMessage(sender Sender, text string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Timestamp: time.Now(),
		Text:      text,
	}
}

// NewUserMessage creates a frozen message holding the submitted question.
func NewUserMessage(question string) *Message {
	m := NewMessage(SenderUser, question)
	m.frozen = true
	return m
}

// NewBotMessage creates the empty placeholder that a streaming reply fills.
func NewBotMessage() *Message {
	return NewMessage(SenderBot, "")
}

// NewSystemMessage creates a frozen notice.
func NewSystemMessage(text string) *Message {
	m := NewMessage(SenderSystem, text)
	m.frozen = true
	return m
}

// SetContent replaces the displayed content. With markup the content is
// renderer output, otherwise it is plain text and any previous rendering is
// discarded.
func (m *Message) SetContent(content string, markup bool) error {
	if m.frozen {
		return ErrFrozen
	}
	if markup {
		m.Rendered = content
		m.Markup = true
		return nil
	}
	m.Text = content
	m.Rendered = ""
	m.Markup = false
	return nil
}

// SetText sets the plain text while keeping the current rendering. It is
// used to keep the raw reply alongside the rendered one.
func (m *Message) SetText(text string) error {
	if m.frozen {
		return ErrFrozen
	}
	m.Text = text
	return nil
}

// Freeze settles the message. Later updates return ErrFrozen.
func (m *Message) Freeze(failed bool) {
	m.Failed = failed
	m.frozen = true
}

// IsFrozen reports whether the message has settled.
func (m *Message) IsFrozen() bool {
	return m.frozen
}

// Display returns what should be drawn for the message.
func (m *Message) Display() string {
	if m.Markup {
		return m.Rendered
	}
	return m.Text
}

// IsEmpty reports whether there is nothing to display yet.
func (m *Message) IsEmpty() bool {
	return strings.TrimSpace(m.Display()) == ""
}

// Preview returns a single-line excerpt of the plain text for logs and
// line-mode prompts.
func (m *Message) Preview(maxRunes int) string {
	line := strings.Join(strings.Fields(m.Text), " ")
	return util.TruncateRunes(line, maxRunes)
}
