// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/faqchat/internal/stream"
)

// =============================================================================
// STREAM MESSAGES
// =============================================================================

// StreamEventMsg carries one event of the session numbered Session.
type StreamEventMsg struct {
	Session uint64
	Event   stream.Event
}

// streamClosedMsg is sent when a session's channel closes. After a terminal
// event it is never requested, so seeing it means the session was cut short.
type streamClosedMsg struct {
	Session uint64
}

// flushMsg asks for a deferred viewport re-layout.
type flushMsg struct{}

// =============================================================================
// HEALTH MESSAGES
// =============================================================================

// HealthResultMsg is the outcome of the startup reachability probe.
type HealthResultMsg struct {
	URL string
	Err error
}

// OK reports whether the backend answered the probe.
func (m HealthResultMsg) OK() bool {
	return m.Err == nil
}
