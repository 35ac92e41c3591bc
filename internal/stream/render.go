// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

// =============================================================================
// RENDERING CAPABILITY
// =============================================================================

// Renderer converts Markdown into displayable content. It is optional: a
// Consumer with no Renderer shows replies as plain text.
type Renderer interface {
	Render(markdown string) (string, error)
}

// RendererFunc adapts a plain function to Renderer. A nil RendererFunc counts
// as an absent renderer.
type RendererFunc func(markdown string) (string, error)

// Render calls f.
func (f RendererFunc) Render(markdown string) (string, error) {
	return f(markdown)
}

// available reports whether r can be called.
func available(r Renderer) bool {
	if r == nil {
		return false
	}
	if f, ok := r.(RendererFunc); ok && f == nil {
		return false
	}
	return true
}

// renderContent renders the full accumulated text. It never fails: an absent
// renderer, a render error, or a renderer panic all yield the raw text with
// markup=false.
func renderContent(r Renderer, text string) (content string, markup bool) {
	if !available(r) {
		return text, false
	}

	defer func() {
		if recover() != nil {
			content, markup = text, false
		}
	}()

	out, err := r.Render(text)
	if err != nil {
		return text, false
	}
	return out, true
}
