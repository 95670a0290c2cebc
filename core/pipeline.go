package core

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Pipeline orchestrates extraction and conversion for a single page.
// Extraction never fails; a conversion error (or a panicking rule) is
// converted into a structured failure result rather than propagated.
type Pipeline struct {
	Extractor Extractor
	Converter Converter
}

// NewPipeline wires an extractor and a converter together.
func NewPipeline(e Extractor, c Converter) *Pipeline {
	return &Pipeline{Extractor: e, Converter: c}
}

// Run extracts the article from html and converts it to Markdown.
// The returned result's Success flag is authoritative: a failed
// conversion yields empty markdown and a non-empty Error.
func (p *Pipeline) Run(html, baseURI, fallbackTitle string, opts ConversionOptions) (*Article, ConversionResult) {
	article := p.Extractor.Extract(html, baseURI, fallbackTitle)
	return article, p.convert(article, opts)
}

func (p *Pipeline) convert(article *Article, opts ConversionOptions) (result ConversionResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("conversion rule panicked")
			result = failure(fmt.Errorf("conversion panicked: %v", r))
		}
	}()

	conv, err := p.Converter.Convert(article, opts)
	if err != nil {
		return failure(fmt.Errorf("converting article: %w", err))
	}
	return ConversionResult{Success: true, Conversion: *conv}
}

func failure(err error) ConversionResult {
	return ConversionResult{
		Success: false,
		Conversion: Conversion{
			ImageList:  map[string]string{},
			References: []string{},
		},
		Error: err.Error(),
	}
}
