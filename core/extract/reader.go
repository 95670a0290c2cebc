package extract

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"

	"github.com/yknothing/clipdown/core"
)

// minReaderText is the shortest text content the readability strategy
// may return and still count as usable.
const minReaderText = 25

// ReadabilityReader adapts go-readability to the core.ReaderStrategy
// capability. A parse error or thin result reports false so the caller
// falls through to custom extraction.
type ReadabilityReader struct{}

// NewReader creates a ReadabilityReader.
func NewReader() *ReadabilityReader {
	return &ReadabilityReader{}
}

// TryParse runs readability over the stripped document HTML.
func (r *ReadabilityReader) TryParse(htmlStr string, baseURI string) (*core.ParsedArticle, bool) {
	var pageURL *url.URL
	if baseURI != "" {
		parsed, err := url.Parse(baseURI)
		if err == nil {
			pageURL = parsed
		}
	}

	article, err := readability.FromReader(strings.NewReader(htmlStr), pageURL)
	if err != nil {
		log.Warn().Err(err).Msg("readability parse failed")
		return nil, false
	}

	if len(strings.TrimSpace(article.TextContent)) < minReaderText {
		return nil, false
	}

	return &core.ParsedArticle{
		Title:       article.Title,
		Byline:      article.Byline,
		Excerpt:     article.Excerpt,
		Content:     article.Content,
		TextContent: article.TextContent,
	}, true
}
