// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/faqchat/internal/transport"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// chunkBody yields exactly one chunk per Read, then err (io.EOF by default).
type chunkBody struct {
	chunks [][]byte
	err    error
}

func (b *chunkBody) Read(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	if n < len(b.chunks[0]) {
		b.chunks[0] = b.chunks[0][n:]
	} else {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *chunkBody) Close() error { return nil }

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// chunkedConsumer returns a consumer whose replies are the given chunks.
func chunkedConsumer(t *testing.T, requests *int32, readErr error, chunks ...[]byte) *Consumer {
	t.Helper()
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if requests != nil {
			atomic.AddInt32(requests, 1)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/plain"}},
			Body:       &chunkBody{chunks: chunks, err: readErr},
			Request:    r,
		}, nil
	})
	client := transport.NewClient(nil, transport.WithHTTPClient(&http.Client{Transport: rt}))
	return NewConsumer(client, "http://backend.test/api/chat")
}

func collect(t *testing.T, c *Consumer, question string) ([]Event, error) {
	t.Helper()
	var events []Event
	err := c.Send(context.Background(), question, func(ev Event) {
		events = append(events, ev)
	})
	return events, err
}

func terminalCount(events []Event) int {
	n := 0
	for _, ev := range events {
		if ev.Terminal() {
			n++
		}
	}
	return n
}

// =============================================================================
// REQUEST SHAPE
// =============================================================================

func TestSend_PostsJSONQuestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what are the opening hours?", req.Question)

		w.Header().Set("Content-Type", "text/plain")
		flusher := w.(http.Flusher)
		for _, part := range []string{"We open ", "at **9am**."} {
			w.Write([]byte(part))
			flusher.Flush()
		}
	}))
	defer srv.Close()

	c := NewConsumer(transport.NewClient(nil), srv.URL+"/api/chat")
	events, err := collect(t, c, "  what are the opening hours?\n")
	require.NoError(t, err)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventDone, last.Kind)
	assert.Equal(t, StatusDone, last.Status)
	assert.Equal(t, "We open at **9am**.", last.Text)
	assert.Equal(t, 1, terminalCount(events))
}

// =============================================================================
// EMPTY INPUT
// =============================================================================

func TestSend_EmptyQuestionIsNoOp(t *testing.T) {
	var requests int32
	c := chunkedConsumer(t, &requests, nil, []byte("never"))

	for _, q := range []string{"", "   ", "\n\t"} {
		events, err := collect(t, c, q)
		assert.ErrorIs(t, err, ErrEmptyQuestion)
		assert.Empty(t, events)
	}
	assert.Zero(t, atomic.LoadInt32(&requests))
}

// =============================================================================
// STREAMING AND RENDERING
// =============================================================================

func TestSend_EmitsRenderPerChunkThenDone(t *testing.T) {
	c := chunkedConsumer(t, nil, nil, []byte("# Ti"), []byte("tle\n"), []byte("body"))

	events, err := collect(t, c, "q")
	require.NoError(t, err)

	require.Len(t, events, 4)
	assert.Equal(t, "# Ti", events[0].Text)
	assert.Equal(t, "# Title\n", events[1].Text)
	assert.Equal(t, "# Title\nbody", events[2].Text)
	for _, ev := range events[:3] {
		assert.Equal(t, EventRender, ev.Kind)
		assert.Equal(t, StatusStreaming, ev.Status)
	}
	assert.Equal(t, EventDone, events[3].Kind)
	assert.Equal(t, "# Title\nbody", events[3].Text)
}

func TestSend_NoRendererShowsRawText(t *testing.T) {
	reply := "**héllo** 🚀 wörld"
	raw := []byte(reply)
	c := chunkedConsumer(t, nil, nil, raw[:3], raw[3:9], raw[9:14], raw[14:])

	events, err := collect(t, c, "q")
	require.NoError(t, err)

	last := events[len(events)-1]
	assert.Equal(t, reply, last.Content)
	assert.False(t, last.Markup)
	for _, ev := range events {
		assert.Equal(t, ev.Text, ev.Content)
	}
}

func TestSend_RendersFullTextEachTime(t *testing.T) {
	var seen []string
	r := RendererFunc(func(md string) (string, error) {
		seen = append(seen, md)
		return "<p>" + md + "</p>", nil
	})

	c := chunkedConsumer(t, nil, nil, []byte("a"), []byte("b"), []byte("c"))
	c.renderer = r

	events, err := collect(t, c, "q")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "ab", "abc"}, seen)
	last := events[len(events)-1]
	assert.Equal(t, "<p>abc</p>", last.Content)
	assert.True(t, last.Markup)
}

func TestSend_RendererFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		renderer Renderer
	}{
		{"nil interface", nil},
		{"nil func", RendererFunc(nil)},
		{"error", RendererFunc(func(string) (string, error) { return "", errors.New("broken") })},
		{"panic", RendererFunc(func(string) (string, error) { panic("boom") })},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := chunkedConsumer(t, nil, nil, []byte("plain "), []byte("text"))
			c.renderer = tc.renderer

			events, err := collect(t, c, "q")
			require.NoError(t, err)
			for _, ev := range events {
				assert.False(t, ev.Markup)
				assert.Equal(t, ev.Text, ev.Content)
			}
			assert.Equal(t, "plain text", events[len(events)-1].Content)
		})
	}
}

func TestRenderContent_Idempotent(t *testing.T) {
	r := RendererFunc(func(md string) (string, error) {
		return strings.ToUpper(md), nil
	})
	a, ma := renderContent(r, "same *text*")
	b, mb := renderContent(r, "same *text*")
	assert.Equal(t, a, b)
	assert.Equal(t, ma, mb)
}

func TestSend_SplitMultibyteAcrossChunks(t *testing.T) {
	reply := "naïve café ☕"
	raw := []byte(reply)

	for i := 0; i <= len(raw); i++ {
		c := chunkedConsumer(t, nil, nil, raw[:i], raw[i:])
		events, err := collect(t, c, "q")
		require.NoError(t, err)
		assert.Equal(t, reply, events[len(events)-1].Text, "split at %d", i)
		for _, ev := range events {
			assert.NotContains(t, ev.Text, "�", "split at %d", i)
		}
	}
}

func TestSend_EmptyReplyStillDone(t *testing.T) {
	c := chunkedConsumer(t, nil, nil)

	events, err := collect(t, c, "q")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventDone, events[0].Kind)
	assert.Equal(t, "", events[0].Text)
}

// =============================================================================
// FAILURES
// =============================================================================

func TestSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewConsumer(transport.NewClient(nil), srv.URL+"/chat")
	events, err := collect(t, c, "q")
	require.Error(t, err)
	assert.True(t, transport.IsAPI(err))

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, EventFailed, ev.Kind)
	assert.Equal(t, StatusFailed, ev.Status)
	assert.Contains(t, ev.Content, "500")
	assert.Contains(t, ev.Content, "boom")
	assert.NotContains(t, ev.Content, "Cannot reach")
}

func TestSend_APIErrorWithoutBodyUsesStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewConsumer(transport.NewClient(nil), srv.URL+"/chat")
	events, _ := collect(t, c, "q")
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Content, "API Error 502: Bad Gateway")
}

func TestSend_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	chatURL := "http://" + ln.Addr().String() + "/api/chat"
	ln.Close()

	c := NewConsumer(transport.NewClient(nil), chatURL)
	events, err := collect(t, c, "q")
	require.Error(t, err)
	assert.True(t, transport.IsNetwork(err))

	require.Len(t, events, 1)
	assert.Equal(t, EventFailed, events[0].Kind)
	assert.Contains(t, events[0].Content, "Cannot reach "+chatURL)
}

func TestSend_MidStreamFailureReplacesContent(t *testing.T) {
	c := chunkedConsumer(t, nil, io.ErrUnexpectedEOF, []byte("partial answ"))

	events, err := collect(t, c, "q")
	require.Error(t, err)
	assert.True(t, transport.IsDecode(err))

	require.Len(t, events, 2)
	assert.Equal(t, EventRender, events[0].Kind)

	failed := events[1]
	assert.Equal(t, EventFailed, failed.Kind)
	assert.NotContains(t, failed.Content, "partial answ")
	assert.Contains(t, failed.Content, "Sorry, something went wrong.")
	assert.Contains(t, failed.Content, "Cannot reach")
	assert.Equal(t, 1, terminalCount(events))
}

func TestSend_ContextCanceled(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("first"))
		w.(http.Flusher).Flush()
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewConsumer(transport.NewClient(nil), srv.URL)

	var events []Event
	go func() {
		<-started
		cancel()
	}()
	err := c.Send(ctx, "q", func(ev Event) { events = append(events, ev) })
	require.Error(t, err)
	assert.Equal(t, 1, terminalCount(events))
	assert.Equal(t, EventFailed, events[len(events)-1].Kind)
}

// =============================================================================
// CHANNEL DELIVERY
// =============================================================================

func TestSendChan_DeliversInOrderAndCloses(t *testing.T) {
	c := chunkedConsumer(t, nil, nil, []byte("1"), []byte("2"), []byte("3"))

	var texts []string
	var kinds []EventKind
	for ev := range c.SendChan(context.Background(), "q") {
		texts = append(texts, ev.Text)
		kinds = append(kinds, ev.Kind)
	}

	assert.Equal(t, []string{"1", "12", "123", "123"}, texts)
	assert.Equal(t, []EventKind{EventRender, EventRender, EventRender, EventDone}, kinds)
}

func TestSendChan_EmptyQuestionClosesImmediately(t *testing.T) {
	c := chunkedConsumer(t, nil, nil, []byte("x"))
	_, ok := <-c.SendChan(context.Background(), " ")
	assert.False(t, ok)
}
