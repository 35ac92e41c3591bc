// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/faqchat/internal/stream"
	"github.com/jeranaias/faqchat/internal/transport"
)

// =============================================================================
// STREAM COMMANDS
// =============================================================================

// waitForEvent blocks for the next event of a session. The model asks for
// the next one only after handling the current, which keeps chunk order.
func waitForEvent(session uint64, events <-chan stream.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{Session: session}
		}
		return StreamEventMsg{Session: session, Event: ev}
	}
}

// flushAfter schedules a deferred re-layout.
func flushAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return flushMsg{}
	})
}

// =============================================================================
// HEALTH PROBE
// =============================================================================

// healthCmd probes url once. The probe has its own deadline, and outer
// bounds the whole command in case the transport hangs past it.
func healthCmd(client *transport.Client, url string, timeout, outer time.Duration) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return HealthResultMsg{URL: url, Err: errors.New("no client configured")}
		}

		ctx, cancel := context.WithTimeout(context.Background(), outer)
		defer cancel()

		err := client.CheckHealth(ctx, url, timeout)
		return HealthResultMsg{URL: url, Err: err}
	}
}

// HealthReason describes a failed probe in a few words.
func HealthReason(err error, timeout time.Duration) string {
	var ce *transport.ClientError
	switch {
	case err == nil:
		return ""
	case transport.IsTimeout(err):
		return fmt.Sprintf("timed out after %s", timeout)
	case transport.IsAPI(err) && errors.As(err, &ce):
		return fmt.Sprintf("HTTP %d", ce.StatusCode)
	case errors.As(err, &ce) && ce.Cause != nil:
		return ce.Cause.Error()
	default:
		return err.Error()
	}
}

// HealthNotice is the system message shown when the probe fails.
func HealthNotice(url string, err error, timeout time.Duration) string {
	return fmt.Sprintf(
		"Backend not reachable at %s (%s). Check the backend is running and FAQCHAT_BASE_URL / --base-url points at it.",
		url, HealthReason(err, timeout),
	)
}
