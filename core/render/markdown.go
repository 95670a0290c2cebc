// Package render provides output renderers for clipped articles.
// This file implements the Markdown renderer, a passthrough over the
// conversion result (frontmatter and references are already inline).
package render

import (
	"github.com/yknothing/clipdown/core"
)

// MarkdownRenderer writes the converted Markdown as-is.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render returns the Markdown as bytes.
func (r *MarkdownRenderer) Render(article *core.Article, conv *core.Conversion) ([]byte, error) {
	return []byte(conv.Markdown), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}
