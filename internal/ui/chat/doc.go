// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the interactive chat screen of faqchat.

# Key Components

## Machine (machine.go)

Machine is the request lifecycle as an explicit transition table:

	Idle --Submit--> Sending --Chunk--> Streaming --StreamEnd/Failure--> Settled --Reset--> Idle

Every transition returns the Effects the caller must apply. Settling always
carries the cleanup effects (enable input, hide loading, focus input, final
scroll) whatever the outcome. The line-mode REPL drives the same Machine.

## Model (model.go, update.go, view.go)

Model is the Bubble Tea model: an auto-growing textarea, a viewport with the
transcript, and a spinner while a reply is pending. Stream events arrive from
stream.Consumer.SendChan one at a time through waitForEvent.

## Health probe (commands.go)

Init starts a single reachability probe. A failure adds exactly one system
message to the transcript and leaves the input usable.

# Usage

	m := chat.New(chat.Options{
		Config:   cfg,
		Client:   client,
		Consumer: consumer,
		Renderer: term,
		Logger:   logger,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
*/
package chat
