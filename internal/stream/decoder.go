// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// =============================================================================
// INCREMENTAL DECODER
// =============================================================================

// Decoder turns a sequence of byte chunks into UTF-8 text. A multi-byte
// sequence split across chunks is held back until the rest arrives, so the
// result never depends on where the chunk boundaries fall. Invalid bytes
// decode to U+FFFD.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	buf     []byte
}

// NewDecoder creates a decoder with no pending state.
func NewDecoder() *Decoder {
	return &Decoder{
		t:   unicode.UTF8.NewDecoder(),
		buf: make([]byte, 4096),
	}
}

// Decode consumes chunk and returns the text it completes.
func (d *Decoder) Decode(chunk []byte) (string, error) {
	return d.decode(chunk, false)
}

// Flush decodes whatever is still pending as if the stream ended. An
// incomplete trailing sequence becomes U+FFFD.
func (d *Decoder) Flush() (string, error) {
	out, err := d.decode(nil, true)
	d.t.Reset()
	return out, err
}

// Pending returns the number of bytes held back for the next chunk.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

func (d *Decoder) decode(chunk []byte, atEOF bool) (string, error) {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}

	var out strings.Builder
	for {
		nDst, nSrc, err := d.t.Transform(d.buf, src, atEOF)
		out.Write(d.buf[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			return out.String(), nil
		case errors.Is(err, transform.ErrShortDst):
			continue
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append([]byte(nil), src...)
			return out.String(), nil
		default:
			return out.String(), err
		}
	}
}
