// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/faqchat/internal/config"
	"github.com/jeranaias/faqchat/internal/logging"
	"github.com/jeranaias/faqchat/internal/stream"
	"github.com/jeranaias/faqchat/internal/transport"
)

// =============================================================================
// APP
// =============================================================================

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	baseURL    string
	configPath string
	logLevel   string
	noMarkdown bool
}

// App is the state shared by all commands once configuration is resolved.
type App struct {
	Version    string
	Config     *config.Config
	ConfigPath string
	Logger     zerolog.Logger
	Client     *transport.Client

	In  io.Reader
	Out io.Writer
	Err io.Writer

	flags     globalFlags
	logCloser io.Closer
}

// setup resolves configuration, logging and the transport client. It runs
// once, before any command.
func (a *App) setup(cmd *cobra.Command) error {
	a.In = cmd.InOrStdin()
	a.Out = cmd.OutOrStdout()
	a.Err = cmd.ErrOrStderr()

	path := a.flags.configPath
	if path == "" {
		if p, err := config.ConfigPath(); err == nil {
			path = p
		}
	}
	a.ConfigPath = path

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	if a.flags.noMarkdown {
		cfg.UI.Markdown = false
	}
	if err := cfg.Resolve(a.flags.baseURL); err != nil {
		return &usageError{msg: "invalid --base-url: " + err.Error()}
	}
	a.Config = cfg

	// The chat screen owns the terminal; line-mode commands may log to
	// stderr when a level is asked for explicitly.
	toStderr := cmd != cmd.Root() && cmd.Flags().Changed("log-level")
	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Path:   cfg.Log.Path,
		Stderr: toStderr,
	})
	if err != nil {
		fmt.Fprintln(a.Err, hintStyle.Render("logging disabled: "+err.Error()))
		logger = zerolog.Nop()
	}
	a.Logger = logger.With().Str("cmd", cmd.Name()).Logger()
	a.logCloser = closer

	a.Client = transport.NewClient(&transport.ClientConfig{
		OuterTimeout: cfg.RequestTimeout(),
		UserAgent:    cfg.Endpoint.UserAgent,
	}, transport.WithLogger(a.Logger))

	a.Logger.Debug().
		Str("base_url", cfg.Endpoint.BaseURL).
		Str("config", path).
		Str("version", a.Version).
		Msg("configuration resolved")
	return nil
}

// Close releases the log file.
func (a *App) Close() error {
	if a.logCloser == nil {
		return nil
	}
	return a.logCloser.Close()
}

// newConsumer builds a stream consumer for the chat endpoint. r may be nil
// for plain text.
func (a *App) newConsumer(r stream.Renderer) *stream.Consumer {
	opts := []stream.ConsumerOption{stream.WithLogger(a.Logger)}
	if r != nil {
		opts = append(opts, stream.WithRenderer(r))
	}
	return stream.NewConsumer(a.Client, a.Config.ChatURL(), opts...)
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand builds the command tree.
func NewRootCommand(version string) (*cobra.Command, *App) {
	app := &App{Version: version}

	root := &cobra.Command{
		Use:     "faqchat",
		Short:   "Chat with a question-answering backend from the terminal",
		Version: version,
		Long: `faqchat sends your questions to a chat backend and renders the streamed
Markdown reply as it arrives.

Without a subcommand it opens the chat screen, or falls back to line mode
when input or output is not a terminal.`,
		Example: `  # Open the chat screen against the default backend
  $ faqchat

  # Point at another backend
  $ faqchat --base-url http://faq.internal:5000/api

  # One question, rendered reply on stdout
  $ faqchat ask "What is the refund policy?"

  # Check the backend is up
  $ faqchat health`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if interactive(app.In, app.Out) {
				return runTUI(cmd.Context(), app)
			}
			return runLineChat(cmd.Context(), app, true)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&app.flags.baseURL, "base-url", "", "backend API base URL (env FAQCHAT_BASE_URL)")
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default ~/.faqchat/config.toml)")
	pf.StringVar(&app.flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error, disabled")
	pf.BoolVar(&app.flags.noMarkdown, "no-markdown", false, "show replies as plain text")

	root.AddCommand(
		newChatCommand(app),
		newAskCommand(app),
		newHealthCommand(app),
		newConfigCommand(app),
	)

	return root, app
}

// Execute runs the CLI and returns the process exit status.
func Execute(version string) int {
	root, _ := NewRootCommand(version)

	if err := root.ExecuteContext(context.Background()); err != nil {
		var r *reportedError
		if !errors.As(err, &r) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		}
		return ExitCode(err)
	}
	return ExitSuccess
}
