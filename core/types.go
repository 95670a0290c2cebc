// Package core defines the shared types and stage interfaces for clipdown.
// Each stage of the pipeline is a clean, testable interface.
package core

import (
	"context"
	"time"
)

// ExtractionMethod records which strategy produced an Article.
type ExtractionMethod string

const (
	// MethodReader means the external readability strategy produced the content.
	MethodReader ExtractionMethod = "reader"
	// MethodCustom means the built-in container-scoring extractor produced it.
	MethodCustom ExtractionMethod = "custom"
	// MethodFallback means extraction degraded to a minimal valid Article.
	MethodFallback ExtractionMethod = "fallback"
)

// DefaultTitle is used when neither the document nor the caller supplies one.
const DefaultTitle = "Untitled Document"

// MathInfo holds a captured TeX expression keyed by element id in Article.Math.
type MathInfo struct {
	TeX    string
	Inline bool
}

// Article is the normalized result of content extraction.
// Title is never empty and Content is always a string (possibly empty).
type Article struct {
	Title            string
	Byline           string
	Excerpt          string
	Content          string // HTML fragment of the extracted container
	TextContent      string
	Length           int
	BaseURI          string
	ExtractionMethod ExtractionMethod
	Math             map[string]MathInfo
	ExtractedAt      time.Time
}

// ParsedArticle is what a Reader strategy returns on success.
type ParsedArticle struct {
	Title       string
	Byline      string
	Excerpt     string
	Content     string
	TextContent string
}

// ReaderStrategy is an optional external readability-style extractor.
// TryParse reports false when the strategy cannot produce usable content;
// callers then fall back to custom extraction. A nil strategy behaves as
// a permanent false.
type ReaderStrategy interface {
	TryParse(html string, baseURI string) (*ParsedArticle, bool)
}

// Heading, bullet, code, link, image and reference style values recognized
// by ConversionOptions. Unknown values fall back to the defaults.
const (
	HeadingATX    = "atx"
	HeadingSetext = "setext"

	CodeBlockFenced   = "fenced"
	CodeBlockIndented = "indented"

	LinkInlined    = "inlined"
	LinkStripped   = "stripLinks"

	ImageStyleMarkdown         = "markdown"
	ImageStyleObsidian         = "obsidian"
	ImageStyleObsidianNoFolder = "obsidian-nofolder"
	ImageStyleNone             = "noImage"

	ImageRefInline     = "inline"
	ImageRefReferenced = "referenced"
)

// ConversionOptions configures the Markdown conversion.
type ConversionOptions struct {
	HeadingStyle     string `yaml:"headingStyle"`
	BulletListMarker string `yaml:"bulletListMarker"`
	CodeBlockStyle   string `yaml:"codeBlockStyle"`
	Fence            string `yaml:"fence"`
	LinkStyle        string `yaml:"linkStyle"`
	ImageStyle       string `yaml:"imageStyle"`
	ImageRefStyle    string `yaml:"imageRefStyle"`
	Frontmatter      string `yaml:"frontmatter"`
	Backmatter       string `yaml:"backmatter"`
	DownloadImages   bool   `yaml:"downloadImages"`
	ImagePrefix      string `yaml:"imagePrefix"`
	Escape           bool   `yaml:"escape"`
	DisallowedChars  string `yaml:"disallowedChars"`
}

// DefaultOptions returns the documented option defaults.
func DefaultOptions() ConversionOptions {
	return ConversionOptions{
		HeadingStyle:     HeadingATX,
		BulletListMarker: "-",
		CodeBlockStyle:   CodeBlockFenced,
		Fence:            "```",
		LinkStyle:        LinkInlined,
		ImageStyle:       ImageStyleMarkdown,
		ImageRefStyle:    ImageRefInline,
		Escape:           true,
		DisallowedChars:  `[]#^`,
	}
}

// Conversion is the successful output of a Convert call.
type Conversion struct {
	Markdown string `json:"markdown"`
	// ImageList maps resolved source URI to the unique local filename
	// issued for it. Populated only when DownloadImages is set.
	ImageList map[string]string `json:"image_list"`
	// References holds the reference-style image definitions in
	// document order ("[fig1]: https://… \"title\"").
	References []string `json:"references"`
}

// ConversionResult is what the pipeline hands back to callers.
// When Success is false, Error carries the reason and the Conversion
// fields are empty but non-nil.
type ConversionResult struct {
	Success    bool       `json:"success"`
	Conversion Conversion `json:"conversion"`
	Error      string     `json:"error,omitempty"`
}

// FetchResult holds the raw HTML and response metadata from a fetch.
type FetchResult struct {
	URL        string
	StatusCode int
	HTML       string
}

// Fetcher retrieves raw HTML from a URL. It is the only component that
// touches the network on the way in; the core never does.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Extractor turns raw page HTML into a normalized Article. It never fails:
// malformed input degrades to a fallback Article.
type Extractor interface {
	Extract(html string, baseURI string, fallbackTitle string) *Article
}

// Converter turns an Article into Markdown plus image/reference bookkeeping.
type Converter interface {
	Convert(article *Article, opts ConversionOptions) (*Conversion, error)
}

// Renderer converts a ConversionResult into a final output format.
type Renderer interface {
	Render(article *Article, conv *Conversion) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md").
	Extension() string
}
