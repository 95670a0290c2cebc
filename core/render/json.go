// Package render — JSON renderer.
// Emits the article metadata alongside the Markdown, the image list,
// and the reference lines, plus a few structural counts computed from
// the Markdown itself.
package render

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/yknothing/clipdown/core"
)

// JSONRenderer produces structured JSON output for a clipped article.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// clipJSON is the serialized shape of one clipped page.
type clipJSON struct {
	Title            string            `json:"title"`
	Byline           string            `json:"byline,omitempty"`
	Excerpt          string            `json:"excerpt,omitempty"`
	BaseURI          string            `json:"base_uri"`
	ExtractionMethod string            `json:"extraction_method"`
	ExtractedAt      time.Time         `json:"extracted_at"`
	TextLength       int               `json:"text_length"`
	Markdown         string            `json:"markdown"`
	ImageList        map[string]string `json:"image_list"`
	References       []string          `json:"references"`
	Structure        structure         `json:"structure"`
}

type structure struct {
	Headings   int `json:"headings"`
	Links      int `json:"links"`
	Images     int `json:"images"`
	CodeBlocks int `json:"code_blocks"`
}

var (
	headingRegex = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)
	linkRegex    = regexp.MustCompile(`[^!]\[[^\]]*\]\([^)]+\)`)
	imageRegex   = regexp.MustCompile(`!\[[^\]]*\][\(\[]`)
	fenceRegex   = regexp.MustCompile("(?m)^`{3,}")
)

// Render converts the article and conversion result into indented JSON.
func (r *JSONRenderer) Render(article *core.Article, conv *core.Conversion) ([]byte, error) {
	page := clipJSON{
		Title:            article.Title,
		Byline:           article.Byline,
		Excerpt:          article.Excerpt,
		BaseURI:          article.BaseURI,
		ExtractionMethod: string(article.ExtractionMethod),
		ExtractedAt:      article.ExtractedAt,
		TextLength:       article.Length,
		Markdown:         conv.Markdown,
		ImageList:        conv.ImageList,
		References:       conv.References,
		Structure: structure{
			Headings:   len(headingRegex.FindAllString(conv.Markdown, -1)),
			Links:      len(linkRegex.FindAllString(conv.Markdown, -1)),
			Images:     len(imageRegex.FindAllString(conv.Markdown, -1)),
			CodeBlocks: len(fenceRegex.FindAllString(conv.Markdown, -1)) / 2,
		},
	}

	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}
