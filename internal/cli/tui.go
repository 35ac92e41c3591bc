// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/jeranaias/faqchat/internal/render"
	"github.com/jeranaias/faqchat/internal/ui/chat"
	"github.com/jeranaias/faqchat/internal/ui/styles"
)

// runTUI opens the full-screen chat.
func runTUI(ctx context.Context, app *App) error {
	opts := chat.Options{
		Config: app.Config,
		Client: app.Client,
		Theme:  styles.NewTheme(),
		Logger: app.Logger,
	}

	// The renderer detects the background now, before Bubble Tea owns the
	// terminal.
	if term := newTerminalRenderer(app, app.Config.UI.WordWrap); term != nil {
		opts.Consumer = app.newConsumer(term)
		opts.Renderer = term
	} else {
		opts.Consumer = app.newConsumer(nil)
	}

	p := tea.NewProgram(
		chat.New(opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
		tea.WithInput(app.In),
		tea.WithOutput(app.Out),
	)

	_, err := p.Run()
	return errors.Wrap(err, "chat screen")
}

// newTerminalRenderer returns a glamour renderer, or nil when Markdown is
// off or the renderer cannot be built.
func newTerminalRenderer(app *App, width int) *render.Terminal {
	if !app.Config.UI.Markdown {
		return nil
	}
	term, err := render.NewTerminal(app.Config.UI.Style, width)
	if err != nil {
		app.Logger.Warn().Err(err).Msg("markdown renderer unavailable, showing plain text")
		return nil
	}
	return term
}
