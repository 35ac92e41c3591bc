// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream owns the chat request lifecycle: it sends a question,
// consumes the chunked reply incrementally, and emits a render event for
// every increment followed by exactly one terminal event.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/faqchat/internal/transport"
)

// ErrEmptyQuestion is returned by Send when the question is blank. No
// request is made and no events are emitted.
var ErrEmptyQuestion = errors.New("question is empty")

const (
	defaultReadSize = 32 << 10
	maxDetailBytes  = 4 << 10
)

// ChatRequest is the JSON body sent to the chat endpoint.
type ChatRequest struct {
	Question string `json:"question"`
}

// =============================================================================
// CONSUMER
// =============================================================================

// Consumer issues chat requests against one endpoint.
type Consumer struct {
	client   *transport.Client
	chatURL  string
	renderer Renderer
	logger   zerolog.Logger
	readSize int
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithRenderer sets the Markdown renderer. nil means plain text.
func WithRenderer(r Renderer) ConsumerOption {
	return func(c *Consumer) { c.renderer = r }
}

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) ConsumerOption {
	return func(c *Consumer) { c.logger = l }
}

// WithReadSize sets the maximum number of bytes read per chunk.
func WithReadSize(n int) ConsumerOption {
	return func(c *Consumer) {
		if n > 0 {
			c.readSize = n
		}
	}
}

// NewConsumer creates a consumer that posts to chatURL through client.
func NewConsumer(client *transport.Client, chatURL string, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		client:   client,
		chatURL:  chatURL,
		logger:   zerolog.Nop(),
		readSize: defaultReadSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChatURL returns the endpoint this consumer posts to.
func (c *Consumer) ChatURL() string {
	return c.chatURL
}

// Send asks question and calls emit for every render event and then once
// for the terminal event, synchronously and in chunk order. It returns nil
// when the session ends Done, ErrEmptyQuestion for a blank question, and the
// classified *transport.ClientError when it ends Failed.
func (c *Consumer) Send(ctx context.Context, question string, emit func(Event)) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrEmptyQuestion
	}

	s := newSession()
	c.logger.Debug().Int("question_len", len(question)).Str("url", c.chatURL).Msg("chat session started")

	last, err := c.run(ctx, s, question, emit)
	if err != nil {
		ce := transport.Classify(c.chatURL, err)
		s.status = StatusFailed
		c.logger.Warn().
			Err(ce).
			Str("type", ce.Type.String()).
			Int("chunks", s.chunks).
			Dur("elapsed", time.Since(s.started)).
			Msg("chat session failed")

		emit(Event{
			Kind:    EventFailed,
			Status:  StatusFailed,
			Text:    s.accumulated(),
			Content: FailureMessage(ce, c.chatURL),
			Err:     ce,
			Chunks:  s.chunks,
		})
		return ce
	}

	s.status = StatusDone
	c.logger.Debug().
		Int("chunks", s.chunks).
		Int("bytes", s.bytes).
		Dur("elapsed", time.Since(s.started)).
		Msg("chat session done")

	if last == nil {
		content, markup := renderContent(c.renderer, "")
		last = &Event{Content: content, Markup: markup}
	}
	emit(Event{
		Kind:    EventDone,
		Status:  StatusDone,
		Text:    s.accumulated(),
		Content: last.Content,
		Markup:  last.Markup,
		Chunks:  s.chunks,
	})
	return nil
}

// SendChan runs Send on its own goroutine and delivers the events on the
// returned channel, which is closed after the terminal event. Events are
// dropped once ctx is done.
func (c *Consumer) SendChan(ctx context.Context, question string) <-chan Event {
	ch := make(chan Event)

	go func() {
		defer close(ch)
		_ = c.Send(ctx, question, func(ev Event) {
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		})
	}()

	return ch
}

// run performs the request and the read loop. It returns the last render
// event emitted, if any.
func (c *Consumer) run(ctx context.Context, s *session, question string, emit func(Event)) (*Event, error) {
	body, err := json.Marshal(ChatRequest{Question: question})
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(ctx, c.chatURL, transport.RequestOptions{
		Method: http.MethodPost,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !transport.IsSuccess(resp.StatusCode) {
		detail := readDetail(resp.Body)
		return nil, transport.NewAPIError(c.chatURL, resp.StatusCode, http.StatusText(resp.StatusCode), detail)
	}

	var last *Event
	dec := NewDecoder()
	buf := make([]byte, c.readSize)

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			text, decErr := dec.Decode(buf[:n])
			if decErr != nil {
				return last, transport.NewDecodeError(c.chatURL, decErr)
			}
			s.append(buf[:n], text)
			if text != "" {
				last = c.emitRender(s, emit)
			}
		}

		if errors.Is(readErr, io.EOF) {
			tail, decErr := dec.Flush()
			if decErr != nil {
				return last, transport.NewDecodeError(c.chatURL, decErr)
			}
			if tail != "" {
				s.text.WriteString(tail)
				last = c.emitRender(s, emit)
			}
			return last, nil
		}
		if readErr != nil {
			return last, readErr
		}
	}
}

// emitRender renders the whole accumulated text and emits it.
func (c *Consumer) emitRender(s *session, emit func(Event)) *Event {
	text := s.accumulated()
	content, markup := renderContent(c.renderer, text)
	ev := Event{
		Kind:    EventRender,
		Status:  s.status,
		Text:    text,
		Content: content,
		Markup:  markup,
		Chunks:  s.chunks,
	}
	emit(ev)
	return &ev
}

// readDetail reads an error body best-effort; a failed read yields "".
func readDetail(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxDetailBytes))
	if err != nil {
		return ""
	}
	return string(b)
}

// =============================================================================
// USER-FACING MESSAGES
// =============================================================================

// FailureMessage turns a classified failure into the text shown in place of
// the reply. Network and decode failures get a reachability hint naming
// chatURL.
func FailureMessage(err *transport.ClientError, chatURL string) string {
	var hint string
	if err.Type == transport.ErrTypeNetwork || err.Type == transport.ErrTypeDecode {
		hint = fmt.Sprintf("Cannot reach %s. Check the backend is running and the URL is correct.", chatURL)
	}
	return strings.TrimSpace(fmt.Sprintf("Sorry, something went wrong. %s %s", err.Error(), hint))
}
