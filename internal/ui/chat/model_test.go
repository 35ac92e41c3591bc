// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/faqchat/internal/config"
	"github.com/jeranaias/faqchat/internal/model"
	"github.com/jeranaias/faqchat/internal/stream"
	"github.com/jeranaias/faqchat/internal/transport"
)

// =============================================================================
// HELPERS
// =============================================================================

func newTestModel(t *testing.T, baseURL string, opts ...stream.ConsumerOption) Model {
	t.Helper()

	cfg := config.Default()
	cfg.Endpoint.BaseURL = baseURL
	cfg.Endpoint.HealthTimeoutMs = 50

	client := transport.NewClient(&transport.ClientConfig{OuterTimeout: 2 * time.Second})
	m := New(Options{
		Config:          cfg,
		Client:          client,
		Consumer:        stream.NewConsumer(client, cfg.ChatURL(), opts...),
		Logger:          zerolog.Nop(),
		SkipHealthCheck: true,
	})
	return update(m, tea.WindowSizeMsg{Width: 80, Height: 24})
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func typeText(m Model, s string) Model {
	return update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func pressEnter(m Model) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

// drive runs cmd and every command it leads to, feeding the stream, health
// and flush messages back into the model until done reports true. Cursor
// blink and spinner ticks are dropped so the loop ends.
func drive(t *testing.T, m Model, cmd tea.Cmd, done func(Model) bool) Model {
	t.Helper()

	msgs := make(chan tea.Msg, 128)
	start := func(c tea.Cmd) {
		if c == nil {
			return
		}
		go func() { msgs <- c() }()
	}
	start(cmd)

	deadline := time.After(5 * time.Second)
	for !done(m) {
		select {
		case msg := <-msgs:
			switch msg := msg.(type) {
			case tea.BatchMsg:
				for _, c := range msg {
					start(c)
				}
			case StreamEventMsg, streamClosedMsg, HealthResultMsg, flushMsg:
				next, c := m.Update(msg)
				m = next.(Model)
				start(c)
			}
		case <-deadline:
			t.Fatalf("model did not settle; state=%s messages=%d", m.State(), len(m.Messages()))
		}
	}
	return m
}

func settled(m Model) bool {
	msgs := m.Messages()
	return m.State() == StateIdle && len(msgs) >= 2 && msgs[len(msgs)-1].IsFrozen()
}

func chunkedHandler(chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		for _, c := range chunks {
			_, _ = io.WriteString(w, c)
			w.(http.Flusher).Flush()
		}
	}
}

// =============================================================================
// SUBMIT AND STREAM TESTS
// =============================================================================

func TestModel_StreamsReplyAndReenablesInput(t *testing.T) {
	srv := httptest.NewServer(chunkedHandler("Hello", " **world**"))
	defer srv.Close()

	m := newTestModel(t, srv.URL+"/api")
	m = typeText(m, "what are your hours?")

	m, cmd := pressEnter(m)
	assert.Equal(t, StateSending, m.State())
	assert.False(t, m.InputEnabled())
	assert.True(t, m.Loading())
	assert.Empty(t, m.input.Value())
	require.Len(t, m.Messages(), 2)

	m = drive(t, m, cmd, settled)

	msgs := m.Messages()
	assert.Equal(t, model.SenderUser, msgs[0].Sender)
	assert.Equal(t, "what are your hours?", msgs[0].Text)

	bot := msgs[1]
	assert.Equal(t, model.SenderBot, bot.Sender)
	assert.Equal(t, "Hello **world**", bot.Display())
	assert.False(t, bot.Markup)
	assert.False(t, bot.Failed)

	assert.True(t, m.InputEnabled())
	assert.False(t, m.Loading())
	assert.Equal(t, OutcomeDone, m.machine.Outcome())
}

func TestModel_RendersThroughRenderer(t *testing.T) {
	srv := httptest.NewServer(chunkedHandler("hello ", "world"))
	defer srv.Close()

	upper := stream.RendererFunc(func(md string) (string, error) {
		return strings.ToUpper(md), nil
	})
	m := newTestModel(t, srv.URL+"/api", stream.WithRenderer(upper))
	m = typeText(m, "hi")
	m, cmd := pressEnter(m)
	m = drive(t, m, cmd, settled)

	bot := m.Messages()[1]
	assert.True(t, bot.Markup)
	assert.Equal(t, "HELLO WORLD", bot.Display())
	assert.Equal(t, "hello world", bot.Text)
}

func TestModel_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL + "/api"
	srv.Close()

	m := newTestModel(t, base)
	m = typeText(m, "anyone there?")
	m, cmd := pressEnter(m)
	m = drive(t, m, cmd, settled)

	bot := m.Messages()[1]
	assert.True(t, bot.Failed)
	assert.Contains(t, bot.Text, "Sorry, something went wrong.")
	assert.Contains(t, bot.Text, "Cannot reach "+base+"/chat")

	assert.True(t, m.InputEnabled())
	assert.False(t, m.Loading())
	assert.Equal(t, OutcomeFailed, m.machine.Outcome())
}

func TestModel_ServerErrorReplacesPartialContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "boom")
	}))
	defer srv.Close()

	m := newTestModel(t, srv.URL+"/api")
	m = typeText(m, "q")
	m, cmd := pressEnter(m)
	m = drive(t, m, cmd, settled)

	bot := m.Messages()[1]
	assert.True(t, bot.Failed)
	assert.Contains(t, bot.Text, "500")
	assert.Contains(t, bot.Text, "boom")
	assert.True(t, m.InputEnabled())
}

func TestModel_EmptySubmitDoesNothing(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	m := newTestModel(t, srv.URL+"/api")
	m = typeText(m, "   ")
	m, cmd := pressEnter(m)

	assert.Nil(t, cmd)
	assert.Equal(t, StateIdle, m.State())
	assert.Empty(t, m.Messages())
	assert.True(t, m.InputEnabled())
	assert.Zero(t, requests.Load())
}

func TestModel_SubmitIgnoredWhileBusy(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-release
		_, _ = io.WriteString(w, "done")
	}))
	defer srv.Close()

	m := newTestModel(t, srv.URL+"/api")
	m = typeText(m, "first")
	m, cmd := pressEnter(m)

	// Typing is blocked, and a second submit is rejected.
	m = typeText(m, "ignored")
	assert.Empty(t, m.input.Value())
	m.input.SetValue("second")
	m, second := pressEnter(m)
	assert.Nil(t, second)
	assert.Len(t, m.Messages(), 2)

	close(release)
	m = drive(t, m, cmd, settled)
	assert.Equal(t, "done", m.Messages()[1].Text)
	assert.Len(t, m.Messages(), 2)
}

func TestModel_QuitCancelsInFlightRequest(t *testing.T) {
	arrived := make(chan struct{})
	canceled := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
			close(canceled)
		case <-time.After(3 * time.Second):
		}
	}))
	defer srv.Close()

	m := newTestModel(t, srv.URL+"/api")
	m = typeText(m, "slow question")
	m, _ = pressEnter(m)

	select {
	case <-arrived:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the backend")
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("request was not canceled on quit")
	}
}

func TestModel_StaleSessionEventsIgnored(t *testing.T) {
	m := newTestModel(t, "http://127.0.0.1:1/api")

	m = update(m, StreamEventMsg{Session: 42, Event: stream.Event{Kind: stream.EventDone}})
	assert.Equal(t, StateIdle, m.State())
	assert.Empty(t, m.Messages())
}

// =============================================================================
// INPUT TESTS
// =============================================================================

func TestModel_NewlineAndAutoGrow(t *testing.T) {
	m := newTestModel(t, "http://127.0.0.1:1/api")
	assert.Equal(t, 1, m.input.Height())

	m = typeText(m, "line one")
	m = update(m, tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	m = typeText(m, "line two")

	assert.Equal(t, "line one\nline two", m.input.Value())
	assert.Equal(t, 2, m.input.Height())
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, 24-headerHeight-statusBarHeight-(2+inputBorder), m.viewport.Height)
}

func TestModel_AutoGrowIsCapped(t *testing.T) {
	m := newTestModel(t, "http://127.0.0.1:1/api")

	m.input.SetValue(strings.Repeat("x\n", 20))
	m = typeText(m, "y")

	assert.Equal(t, m.cfg.UI.MaxInputLines, m.input.Height())
}

// =============================================================================
// HEALTH PROBE TESTS
// =============================================================================

func TestModel_HealthTimeoutAddsOneSystemMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	}))
	defer srv.Close()

	m := newTestModel(t, srv.URL+"/api")
	m.skipHealth = false

	m = drive(t, m, m.Init(), func(m Model) bool { return m.health != healthUnknown })

	require.Len(t, m.Messages(), 1)
	notice := m.Messages()[0]
	assert.Equal(t, model.SenderSystem, notice.Sender)
	assert.Contains(t, notice.Text, "Backend not reachable at "+srv.URL+"/api/health")
	assert.Contains(t, notice.Text, "timed out after 50ms")

	// Input is unaffected by the probe.
	assert.True(t, m.InputEnabled())
	assert.Equal(t, StateIdle, m.State())

	// A repeated failure does not add a second notice.
	m = update(m, HealthResultMsg{URL: srv.URL + "/api/health", Err: transport.ErrNetwork})
	assert.Len(t, m.Messages(), 1)
}

func TestModel_HealthOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := newTestModel(t, srv.URL+"/api")
	m.skipHealth = false
	m = drive(t, m, m.Init(), func(m Model) bool { return m.health != healthUnknown })

	assert.Equal(t, healthOK, m.health)
	assert.Empty(t, m.Messages())
}

func TestHealthReason(t *testing.T) {
	assert.Equal(t, "", HealthReason(nil, time.Second))
	assert.Equal(t, "timed out after 4s", HealthReason(transport.ErrTimeout, 4*time.Second))
	assert.Equal(t, "HTTP 503", HealthReason(transport.NewAPIError("u", 503, "Service Unavailable", ""), time.Second))
	assert.Equal(t, "EOF", HealthReason(io.EOF, time.Second))
}

// =============================================================================
// VIEW TESTS
// =============================================================================

func TestModel_ViewShowsTranscript(t *testing.T) {
	m := newTestModel(t, "http://127.0.0.1:1/api")
	m.messages = append(m.messages,
		model.NewUserMessage("where is my order?"),
		model.NewSystemMessage("Backend not reachable"),
	)
	m.refresh()

	view := m.View()
	assert.Contains(t, view, "faqchat")
	assert.Contains(t, view, "where is my order?")
	assert.Contains(t, view, "Backend not reachable")
	assert.Contains(t, view, "Enter send")
}
