// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
	"time"
)

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status is the lifecycle state of a StreamSession.
type Status int

const (
	StatusPending Status = iota
	StatusStreaming
	StatusDone
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusStreaming:
		return "streaming"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is Done or Failed.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind distinguishes partial renders from the terminal event.
type EventKind int

const (
	EventRender EventKind = iota
	EventDone
	EventFailed
)

// Event is one step of a session, delivered in chunk order.
type Event struct {
	Kind   EventKind
	Status Status

	// Text is the raw accumulated reply so far.
	Text string
	// Content is what should be displayed: the render of Text, the raw Text
	// when rendering is unavailable, or the failure message.
	Content string
	// Markup is true when Content came from the renderer.
	Markup bool

	// Err is set on EventFailed.
	Err error

	// Chunks is the number of body chunks read so far.
	Chunks int
}

// Terminal reports whether e ends its session.
func (e Event) Terminal() bool {
	return e.Kind == EventDone || e.Kind == EventFailed
}

// =============================================================================
// SESSION
// =============================================================================

// session is the state of one in-flight reply. It is owned by a single
// Send call and never shared.
type session struct {
	status  Status
	text    strings.Builder
	chunks  int
	bytes   int
	started time.Time
}

func newSession() *session {
	return &session{status: StatusPending, started: time.Now()}
}

// append adds decoded text and moves the session to Streaming.
func (s *session) append(raw []byte, decoded string) {
	s.status = StatusStreaming
	s.chunks++
	s.bytes += len(raw)
	s.text.WriteString(decoded)
}

func (s *session) accumulated() string {
	return s.text.String()
}
