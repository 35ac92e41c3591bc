// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render provides the Markdown renderers plugged into the stream
// consumer: glamour for the terminal and goldmark for HTML output.
package render

import (
	"bytes"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmutil "github.com/yuin/goldmark/util"
)

// =============================================================================
// TERMINAL RENDERER
// =============================================================================

// Terminal renders Markdown to ANSI text with glamour. It is safe for
// concurrent use; SetWidth rebuilds the underlying renderer.
type Terminal struct {
	mu    sync.Mutex
	style string
	width int
	tr    *glamour.TermRenderer
}

// ResolveStyle maps "auto" to dark or light using the terminal background.
// Must be called before a Bubble Tea program takes over the terminal.
func ResolveStyle(style string) string {
	style = strings.ToLower(strings.TrimSpace(style))
	switch style {
	case "", "auto":
		if termenv.HasDarkBackground() {
			return "dark"
		}
		return "light"
	default:
		return style
	}
}

// NewTerminal creates a renderer for style ("auto", "dark", "light",
// "notty") wrapping at width columns.
func NewTerminal(style string, width int) (*Terminal, error) {
	t := &Terminal{style: ResolveStyle(style)}
	if err := t.SetWidth(width); err != nil {
		return nil, err
	}
	return t, nil
}

// SetWidth changes the wrap width. Widths below 20 are raised to 20.
func (t *Terminal) SetWidth(width int) error {
	if width < 20 {
		width = 20
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tr != nil && width == t.width {
		return nil
	}

	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(t.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return errors.Wrapf(err, "create %s markdown renderer", t.style)
	}
	t.tr = tr
	t.width = width
	return nil
}

// Width returns the current wrap width.
func (t *Terminal) Width() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width
}

// Render renders markdown, trimming the blank lines glamour adds around
// the document.
func (t *Terminal) Render(markdown string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	out, err := t.tr.Render(markdown)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

// =============================================================================
// HTML RENDERER
// =============================================================================

// HTML renders Markdown to an HTML fragment with goldmark (GitHub flavored).
// Raw HTML in the source is not passed through. Fenced code blocks are
// highlighted by chroma with inline styles, so the fragment needs no
// stylesheet.
type HTML struct {
	md goldmark.Markdown
}

// HTMLOption configures an HTML renderer.
type HTMLOption func(*htmlOptions)

type htmlOptions struct {
	codeStyle string
}

// WithCodeStyle selects the chroma style used for code blocks. Unknown
// names fall back to chroma's default style.
func WithCodeStyle(name string) HTMLOption {
	return func(o *htmlOptions) {
		o.codeStyle = name
	}
}

// NewHTML creates an HTML renderer.
func NewHTML(opts ...HTMLOption) *HTML {
	o := htmlOptions{codeStyle: "github"}
	for _, opt := range opts {
		opt(&o)
	}

	code := &codeBlockRenderer{
		style:     chromastyles.Get(o.codeStyle),
		formatter: chromahtml.New(chromahtml.WithClasses(false)),
	}
	return &HTML{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				renderer.WithNodeRenderers(gmutil.Prioritized(code, 100)),
			),
		),
	}
}

// Render converts markdown to HTML.
func (h *HTML) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(markdown), &buf); err != nil {
		return "", errors.Wrap(err, "convert markdown")
	}
	return buf.String(), nil
}

// codeBlockRenderer replaces goldmark's fenced code block output with
// chroma-highlighted HTML.
type codeBlockRenderer struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(w gmutil.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	lexer := lexers.Get(string(n.Language(source)))
	if lexer == nil {
		lexer = lexers.Fallback
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, code.String())
	if err != nil {
		return ast.WalkStop, errors.Wrap(err, "tokenise code block")
	}
	if err := r.formatter.Format(w, r.style, it); err != nil {
		return ast.WalkStop, errors.Wrap(err, "highlight code block")
	}
	return ast.WalkSkipChildren, nil
}
