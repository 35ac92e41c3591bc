// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jeranaias/faqchat/internal/config"
	"github.com/jeranaias/faqchat/internal/model"
	"github.com/jeranaias/faqchat/internal/stream"
	"github.com/jeranaias/faqchat/internal/transport"
	"github.com/jeranaias/faqchat/internal/ui/styles"
)

// Layout rows outside the viewport.
const (
	headerHeight    = 1
	statusBarHeight = 1
	inputBorder     = 2
)

// healthState is what the status bar knows about the backend.
type healthState int

const (
	healthUnknown healthState = iota
	healthOK
	healthDown
)

// WidthSetter is implemented by renderers whose output depends on the
// window width.
type WidthSetter interface {
	SetWidth(width int) error
}

// Options configures a chat Model.
type Options struct {
	Config   *config.Config
	Client   *transport.Client
	Consumer *stream.Consumer

	// Renderer, when set, is told the content width on every resize. It is
	// the same renderer the Consumer was built with.
	Renderer WidthSetter

	Theme  *styles.Theme
	Logger zerolog.Logger

	// SkipHealthCheck disables the startup probe.
	SkipHealthCheck bool
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	machine *Machine
	keys    KeyMap
	theme   *styles.Theme
	logger  zerolog.Logger

	cfg      *config.Config
	client   *transport.Client
	consumer *stream.Consumer
	renderer WidthSetter

	// Components
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	// Transcript
	messages []*model.Message
	bot      *model.Message

	// In-flight session
	session uint64
	events  <-chan stream.Event
	cancel  context.CancelFunc
	chunks  int
	loading bool

	// Re-layout coalescing while streaming
	limiter      *rate.Limiter
	frame        time.Duration
	dirty        bool
	flushPending bool

	health         healthState
	healthReported bool
	skipHealth     bool

	width    int
	height   int
	maxLines int
	ready    bool
	quitting bool
}

// New creates a chat model. Config, Client and Consumer are required.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}

	ta := textarea.New()
	ta.Placeholder = "Ask a question..."
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline = DefaultKeyMap().Newline
	ta.Focus()

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(theme.Spinner),
	)

	fps := cfg.UI.MaxFPS
	if fps <= 0 {
		fps = 30
	}
	frame := time.Second / time.Duration(fps)

	maxLines := cfg.UI.MaxInputLines
	if maxLines < 1 {
		maxLines = 1
	}

	return Model{
		machine:    NewMachine(),
		keys:       DefaultKeyMap(),
		theme:      theme,
		logger:     opts.Logger,
		cfg:        cfg,
		client:     opts.Client,
		consumer:   opts.Consumer,
		renderer:   opts.Renderer,
		input:      ta,
		viewport:   viewport.New(80, 20),
		spinner:    sp,
		limiter:    rate.NewLimiter(rate.Every(frame), 1),
		frame:      frame,
		maxLines:   maxLines,
		skipHealth: opts.SkipHealthCheck,
	}
}

// Init starts cursor blinking and the reachability probe.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if !m.skipHealth {
		cmds = append(cmds, healthCmd(m.client, m.cfg.HealthURL(), m.cfg.HealthTimeout(), m.cfg.RequestTimeout()))
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// GETTERS
// =============================================================================

// State returns the lifecycle state.
func (m Model) State() State {
	return m.machine.State()
}

// Messages returns the transcript.
func (m Model) Messages() []*model.Message {
	return m.messages
}

// InputEnabled reports whether the input accepts typing.
func (m Model) InputEnabled() bool {
	return m.input.Focused()
}

// Loading reports whether the loading indicator is visible.
func (m Model) Loading() bool {
	return m.loading
}
