// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the message types shown in the chat transcript.
//
// # Key Types
//
//   - Message: one transcript entry with a sender, plain text and an
//     optional rendered form
//   - Sender: who produced the message (user, bot, system)
//
// A bot message is created empty when a question is submitted, updated in
// place while its reply streams, and frozen once the reply settles:
//
//	bot := model.NewBotMessage()
//	bot.SetContent(ev.Content, ev.Markup)
//	bot.Freeze(ev.Status == stream.StatusFailed)
package model
