// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/faqchat/internal/render"
	"github.com/jeranaias/faqchat/internal/stream"
)

func newAskCommand(app *App) *cobra.Command {
	var html, raw bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and print the reply",
		Long: `Ask one question and print the final reply.

The reply is rendered for the terminal when stdout is a terminal, printed
as HTML with --html, or printed as the raw Markdown with --raw or when
output is piped. Use "-" to read the question from stdin.`,
		Example: `  $ faqchat ask "How do I reset my password?"
  $ echo "Which plans include SSO?" | faqchat ask -
  $ faqchat ask --html "Shipping times" > answer.html`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if html && raw {
				return &usageError{msg: "--html and --raw are mutually exclusive"}
			}

			question := strings.Join(args, " ")
			if question == "-" {
				data, err := io.ReadAll(app.In)
				if err != nil {
					return err
				}
				question = string(data)
			}

			consumer := app.newConsumer(askRenderer(app, html, raw))

			var final stream.Event
			err := consumer.Send(cmd.Context(), question, func(ev stream.Event) {
				if ev.Terminal() {
					final = ev
				}
			})
			if errors.Is(err, stream.ErrEmptyQuestion) {
				return &usageError{msg: "question is empty"}
			}
			if err != nil {
				fmt.Fprintln(app.Err, errorStyle.Render(final.Content))
				return reported(err)
			}

			out := final.Content
			if !strings.HasSuffix(out, "\n") {
				out += "\n"
			}
			_, err = io.WriteString(app.Out, out)
			return err
		},
	}

	cmd.Flags().BoolVar(&html, "html", false, "print the reply as HTML")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the reply as raw Markdown")
	return cmd
}

// askRenderer picks the renderer for a one-shot reply. Piped output gets
// raw Markdown so it is not corrupted by escape codes.
func askRenderer(app *App, html, raw bool) stream.Renderer {
	switch {
	case raw:
		return nil
	case html:
		return render.NewHTML()
	case !isTerminal(app.Out):
		return nil
	}
	if term := newTerminalRenderer(app, TerminalWidth(app.Out)); term != nil {
		return term
	}
	return nil
}
