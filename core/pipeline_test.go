package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct{ article *Article }

func (s *stubExtractor) Extract(html, baseURI, fallbackTitle string) *Article {
	return s.article
}

type stubConverter struct {
	conv   *Conversion
	err    error
	panics bool
}

func (s *stubConverter) Convert(article *Article, opts ConversionOptions) (*Conversion, error) {
	if s.panics {
		panic("rule blew up")
	}
	return s.conv, s.err
}

func TestPipeline_Success(t *testing.T) {
	article := &Article{Title: "T", Content: "<p>x</p>"}
	conv := &Conversion{
		Markdown:   "x",
		ImageList:  map[string]string{},
		References: []string{},
	}
	p := NewPipeline(&stubExtractor{article: article}, &stubConverter{conv: conv})

	got, result := p.Run("<p>x</p>", "https://example.com/", "", DefaultOptions())

	assert.Same(t, article, got)
	assert.True(t, result.Success)
	assert.Equal(t, "x", result.Conversion.Markdown)
	assert.Empty(t, result.Error)
}

func TestPipeline_ConverterErrorBecomesFailure(t *testing.T) {
	p := NewPipeline(
		&stubExtractor{article: &Article{Title: "T"}},
		&stubConverter{err: errors.New("bad rule")},
	)

	article, result := p.Run("", "", "", DefaultOptions())

	require.NotNil(t, article)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "bad rule")
	assert.Equal(t, "", result.Conversion.Markdown)
	assert.NotNil(t, result.Conversion.ImageList)
	assert.NotNil(t, result.Conversion.References)
}

func TestPipeline_ConverterPanicBecomesFailure(t *testing.T) {
	p := NewPipeline(
		&stubExtractor{article: &Article{Title: "T"}},
		&stubConverter{panics: true},
	)

	require.NotPanics(t, func() {
		_, result := p.Run("", "", "", DefaultOptions())
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "panicked")
		assert.NotNil(t, result.Conversion.ImageList)
	})
}
