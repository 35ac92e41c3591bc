// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/faqchat/internal/config"
	"github.com/jeranaias/faqchat/internal/stream"
	"github.com/jeranaias/faqchat/internal/ui/chat"
	"github.com/jeranaias/faqchat/internal/util"
)

const linePrompt = "you> "

func newChatCommand(app *App) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Line-mode chat with input history",
		Long: `Chat one line at a time. Replies are printed as plain text while they
stream. Use arrow keys for input history; Ctrl+C cancels a reply in
progress, Ctrl+D exits.

Commands: /help, /health, /quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineChat(cmd.Context(), app, plain || !isTerminal(app.In))
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "read questions from stdin without line editing or history")
	return cmd
}

func runLineChat(ctx context.Context, app *App, plain bool) error {
	var reader lineReader
	if plain {
		reader = newPlainReader(app.In)
	} else {
		lr := newLinerReader(historyPath())
		defer lr.Close()
		reader = lr
	}

	lc := NewLineChat(app, reader)
	lc.probe(ctx)
	return lc.Run(ctx)
}

// =============================================================================
// INPUT READERS
// =============================================================================

// lineReader is where questions come from.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// linerReader provides line editing and persistent history.
type linerReader struct {
	line        *liner.State
	historyFile string
}

func historyPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "chat_history")
}

func newLinerReader(historyFile string) *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &linerReader{line: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	return r.line.Prompt(prompt)
}

func (r *linerReader) AppendHistory(item string) {
	r.line.AppendHistory(item)
}

// Close saves history (owner-only permissions) and restores the terminal.
func (r *linerReader) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		_ = util.WriteFileAtomic(r.historyFile, 0600, func(w io.Writer) error {
			_, err := r.line.WriteHistory(w)
			return err
		})
	}
	r.line.Close()
}

// plainReader reads one question per line with no editing.
type plainReader struct {
	scanner *bufio.Scanner
}

func newPlainReader(in io.Reader) *plainReader {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &plainReader{scanner: s}
}

func (r *plainReader) Prompt(prompt string) (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *plainReader) AppendHistory(string) {}

// =============================================================================
// LINE CHAT
// =============================================================================

// LineChat is the line-mode chat loop. It drives the same Machine as the
// chat screen and prints reply text as it streams.
type LineChat struct {
	app      *App
	consumer *stream.Consumer
	machine  *chat.Machine
	reader   lineReader
	out      io.Writer
}

// NewLineChat creates a line chat reading from reader. Replies are never
// rendered; the raw text streams straight to the terminal.
func NewLineChat(app *App, reader lineReader) *LineChat {
	return &LineChat{
		app:      app,
		consumer: app.newConsumer(nil),
		machine:  chat.NewMachine(),
		reader:   reader,
		out:      app.Out,
	}
}

// Run reads questions until EOF, Ctrl+D or /quit.
func (lc *LineChat) Run(ctx context.Context) error {
	fmt.Fprintln(lc.out, hintStyle.Render("Connected to "+lc.app.Config.ChatURL()+". Type /help for commands."))

	for {
		line, err := lc.reader.Prompt(linePrompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		question := strings.TrimSpace(line)
		if question == "" {
			continue
		}
		if strings.HasPrefix(question, "/") {
			if quit := lc.command(ctx, question); quit {
				return nil
			}
			continue
		}

		lc.reader.AppendHistory(question)

		// Ctrl+C cancels this reply only.
		reqCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		err = lc.Ask(reqCtx, question)
		stop()
		if err != nil {
			lc.app.Logger.Debug().Err(err).Msg("question failed")
		}
	}
}

// Ask sends one question and streams the reply to the output. The returned
// error is the classified failure, already shown to the user.
func (lc *LineChat) Ask(ctx context.Context, question string) error {
	eff, err := lc.machine.Submit(question)
	if err != nil {
		return err
	}
	if eff == 0 {
		return nil
	}

	fmt.Fprintln(lc.out, botStyle.Render("Assistant:"))

	printed := 0
	flush := func(text string) {
		if len(text) > printed {
			io.WriteString(lc.out, text[printed:])
			printed = len(text)
		}
	}

	return lc.consumer.Send(ctx, question, func(ev stream.Event) {
		switch ev.Kind {
		case stream.EventRender:
			if _, err := lc.machine.Fire(chat.TriggerChunk); err != nil {
				lc.app.Logger.Warn().Err(err).Msg("unexpected chunk")
			}
			flush(ev.Text)

		case stream.EventDone:
			flush(ev.Text)
			fmt.Fprintln(lc.out)
			_, _ = lc.machine.Settle(false)

		case stream.EventFailed:
			if printed > 0 {
				fmt.Fprintln(lc.out)
			}
			fmt.Fprintln(lc.out, errorStyle.Render(ev.Content))
			_, _ = lc.machine.Settle(true)
		}
	})
}

// command runs a slash command and reports whether to quit.
func (lc *LineChat) command(ctx context.Context, input string) bool {
	switch strings.Fields(input)[0] {
	case "/quit", "/exit", "/q":
		return true
	case "/health":
		if lc.probe(ctx) {
			fmt.Fprintln(lc.out, okStyle.Render("[OK] backend reachable at "+lc.app.Config.HealthURL()))
		}
	case "/help", "/h":
		fmt.Fprintln(lc.out, hintStyle.Render("/health  check the backend\n/quit    exit (or Ctrl+D)"))
	default:
		fmt.Fprintln(lc.out, noticeStyle.Render("Unknown command "+input+". Type /help."))
	}
	return false
}

// probe checks the backend once and prints a notice when it is down.
func (lc *LineChat) probe(ctx context.Context) bool {
	cfg := lc.app.Config
	pctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()

	if err := lc.app.Client.CheckHealth(pctx, cfg.HealthURL(), cfg.HealthTimeout()); err != nil {
		lc.app.Logger.Warn().Err(err).Msg("backend not reachable")
		fmt.Fprintln(lc.out, noticeStyle.Render(chat.HealthNotice(cfg.HealthURL(), err, cfg.HealthTimeout())))
		return false
	}
	return true
}
