// Package extract turns raw page HTML into a normalized Article.
// It prefers an optional readability strategy and falls back to a
// container-scoring heuristic, degrading to a minimal Article when
// everything else fails. Extract never panics outward.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/yknothing/clipdown/core"
)

// Container scoring weights and normalization targets. A candidate's
// score is the weighted sum of its normalized text length, inverse
// link density, child count, and heading count.
const (
	weightTextLength  = 0.4
	weightLinkDensity = 0.3
	weightChildCount  = 0.2
	weightHeadings    = 0.1

	targetTextLength = 800.0
	targetChildCount = 10.0
	targetHeadings   = 5.0

	// Candidates with less text than this never qualify.
	minCandidateText = 25

	excerptLimit = 200
)

// candidateSelector lists the elements considered as article containers.
const candidateSelector = "article, main, section, div"

// titleSelectors are tried in order after <h1> and before <title>.
var titleSelectors = []string{
	".post-title", ".entry-title", ".article-title",
	"#post-title", "#entry-title", "#article-title",
}

// bylineSelectors are tried in order; the first non-empty match wins.
var bylineSelectors = []string{".byline", ".author", ".post-author", ".meta-author"}

// readerStripSelector removes noise before the Reader strategy sees the
// document: scripts, chrome elements, and navigation-like class matches.
const readerStripSelector = "script, style, noscript, nav, header, footer, " +
	`[class*="nav"], [class*="menu"], [class*="sidebar"], [class*="banner"]`

// keptAttributes survive attribute stripping. id stays so the math and
// code-language conventions keep working downstream.
var keptAttributes = map[string]bool{
	"href": true, "src": true, "alt": true, "title": true, "id": true,
}

// ContentExtractor implements core.Extractor.
type ContentExtractor struct {
	// Reader is the optional readability strategy; nil disables it.
	Reader core.ReaderStrategy
	// StripAttributes reduces every element to the kept-attribute set.
	StripAttributes bool
	// Sanitize runs the extracted fragment through a bluemonday UGC policy.
	Sanitize bool

	policy *bluemonday.Policy
}

// New creates a ContentExtractor with no Reader strategy attached.
func New() *ContentExtractor {
	return &ContentExtractor{policy: newPolicy()}
}

// NewWithReader creates a ContentExtractor that tries the given Reader first.
func NewWithReader(reader core.ReaderStrategy) *ContentExtractor {
	e := New()
	e.Reader = reader
	return e
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id").Globally()
	return p
}

// Extract parses html and produces an Article. It never returns nil and
// never panics: parse or scoring failures degrade tier by tier down to
// a fallback Article carrying only the title.
func (e *ContentExtractor) Extract(htmlStr, baseURI, fallbackTitle string) *core.Article {
	if fallbackTitle == "" {
		fallbackTitle = core.DefaultTitle
	}

	if strings.TrimSpace(htmlStr) == "" {
		return e.fallbackArticle(baseURI, fallbackTitle)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		log.Warn().Err(err).Msg("HTML parse failed, using fallback article")
		return e.fallbackArticle(baseURI, fallbackTitle)
	}

	math := captureMath(doc)

	if article := e.tryReader(doc, baseURI, fallbackTitle); article != nil {
		article.Math = math
		return article
	}

	if article := e.tryCustom(doc, baseURI, fallbackTitle); article != nil {
		article.Math = math
		return article
	}

	article := e.fallbackArticle(baseURI, fallbackTitle)
	article.Math = math
	return article
}

// tryReader hands a stripped clone of the document to the Reader
// strategy. A panic or unusable result selects the next tier.
func (e *ContentExtractor) tryReader(doc *goquery.Document, baseURI, fallbackTitle string) (article *core.Article) {
	if e.Reader == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("reader strategy panicked, falling back")
			article = nil
		}
	}()

	parsed, ok := e.Reader.TryParse(strippedClone(doc), baseURI)
	if !ok || parsed == nil || strings.TrimSpace(parsed.Content) == "" {
		return nil
	}

	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		title = extractTitle(doc, fallbackTitle)
	}
	return e.stamp(&core.Article{
		Title:            title,
		Byline:           strings.TrimSpace(parsed.Byline),
		Excerpt:          truncateExcerpt(parsed.Excerpt),
		Content:          parsed.Content,
		TextContent:      parsed.TextContent,
		BaseURI:          baseURI,
		ExtractionMethod: core.MethodReader,
	})
}

// tryCustom runs the container-scoring extraction path.
func (e *ContentExtractor) tryCustom(doc *goquery.Document, baseURI, fallbackTitle string) (article *core.Article) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("custom extraction panicked, falling back")
			article = nil
		}
	}()

	container := findBestContainer(doc)
	if container == nil || container.Length() == 0 {
		return nil
	}

	title := extractTitle(doc, fallbackTitle)
	byline := extractByline(doc)
	excerpt := extractExcerpt(container)

	content, err := e.cleanContent(container)
	if err != nil {
		log.Warn().Err(err).Msg("content cleanup failed, falling back")
		return nil
	}

	return e.stamp(&core.Article{
		Title:            title,
		Byline:           byline,
		Excerpt:          excerpt,
		Content:          content,
		TextContent:      strings.TrimSpace(collapseSpaces(container.Text())),
		BaseURI:          baseURI,
		ExtractionMethod: core.MethodCustom,
	})
}

func (e *ContentExtractor) fallbackArticle(baseURI, fallbackTitle string) *core.Article {
	return e.stamp(&core.Article{
		Title:            fallbackTitle,
		Content:          "",
		BaseURI:          baseURI,
		ExtractionMethod: core.MethodFallback,
	})
}

func (e *ContentExtractor) stamp(a *core.Article) *core.Article {
	a.Length = len(a.TextContent)
	a.ExtractedAt = time.Now().UTC()
	if a.Math == nil {
		a.Math = map[string]core.MathInfo{}
	}
	return a
}

// findBestContainer scores every candidate element and returns the
// highest scorer, or <body> when nothing qualifies.
func findBestContainer(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestScore := 0.0

	doc.Find(candidateSelector).Each(func(_ int, s *goquery.Selection) {
		score, ok := scoreContainer(s)
		if ok && score > bestScore {
			best = s
			bestScore = score
		}
	})

	if best != nil {
		return best
	}
	return doc.Find("body").First()
}

// scoreContainer computes the weighted container score. The second
// return value is false when the element has too little text to qualify.
func scoreContainer(s *goquery.Selection) (float64, bool) {
	text := strings.TrimSpace(s.Text())
	textLen := len(text)
	if textLen < minCandidateText {
		return 0, false
	}

	children := s.Children().Length()
	headings := s.Find("h1, h2, h3, h4, h5, h6").Length()

	score := weightTextLength*clamp01(float64(textLen)/targetTextLength) +
		weightLinkDensity*(1-linkDensity(s)) +
		weightChildCount*clamp01(float64(children)/targetChildCount) +
		weightHeadings*clamp01(float64(headings)/targetHeadings)
	return score, true
}

// linkDensity is the ratio of anchor text to total text. Link-heavy
// elements (menus, footers) score close to 1.
func linkDensity(s *goquery.Selection) float64 {
	total := len(strings.TrimSpace(s.Text()))
	if total == 0 {
		return 0
	}
	anchors := 0
	s.Find("a").Each(func(_ int, a *goquery.Selection) {
		anchors += len(strings.TrimSpace(a.Text()))
	})
	d := float64(anchors) / float64(total)
	if d > 1 {
		d = 1
	}
	return d
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

// extractTitle tries <h1>, then well-known title classes/ids, then
// <title>; the first non-empty text wins.
func extractTitle(doc *goquery.Document, fallbackTitle string) string {
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	for _, sel := range titleSelectors {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return fallbackTitle
}

func extractByline(doc *goquery.Document) string {
	for _, sel := range bylineSelectors {
		if b := strings.TrimSpace(doc.Find(sel).First().Text()); b != "" {
			return b
		}
	}
	return ""
}

// extractExcerpt prefers the first non-empty paragraph, then the start
// of the container text. Either way the result caps at 200 characters.
func extractExcerpt(container *goquery.Selection) string {
	excerpt := ""
	container.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if t := strings.TrimSpace(p.Text()); t != "" {
			excerpt = t
			return false
		}
		return true
	})
	if excerpt == "" {
		excerpt = strings.TrimSpace(container.Text())
	}
	return truncateExcerpt(excerpt)
}

func truncateExcerpt(s string) string {
	s = collapseSpaces(strings.TrimSpace(s))
	runes := []rune(s)
	if len(runes) <= excerptLimit {
		return s
	}
	return string(runes[:excerptLimit]) + "..."
}

// cleanContent normalizes the chosen container: whitespace runs collapse
// to single spaces (outside pre/code), empty paragraphs disappear, and
// attributes optionally reduce to the kept set. The cleaned inner HTML
// is returned, optionally sanitized.
func (e *ContentExtractor) cleanContent(container *goquery.Selection) (string, error) {
	container.Find("p").Each(func(_ int, p *goquery.Selection) {
		if strings.TrimSpace(p.Text()) == "" && p.Find("img").Length() == 0 {
			p.Remove()
		}
	})

	for _, node := range container.Nodes {
		collapseTextNodes(node, false)
	}

	if e.StripAttributes {
		container.Find("*").Each(func(_ int, s *goquery.Selection) {
			stripAttributes(s)
		})
	}

	content, err := container.Html()
	if err != nil {
		return "", fmt.Errorf("serializing container: %w", err)
	}
	if e.Sanitize {
		content = e.policy.Sanitize(content)
	}
	return strings.TrimSpace(content), nil
}

func stripAttributes(s *goquery.Selection) {
	for _, node := range s.Nodes {
		kept := node.Attr[:0]
		for _, attr := range node.Attr {
			if keptAttributes[attr.Key] {
				kept = append(kept, attr)
			}
		}
		node.Attr = kept
	}
}

// collapseTextNodes rewrites text nodes in place, preserving verbatim
// whitespace inside pre and code.
func collapseTextNodes(n *html.Node, inPre bool) {
	if n.Type == html.ElementNode {
		name := strings.ToLower(n.Data)
		if name == "pre" || name == "code" {
			inPre = true
		}
	}
	if n.Type == html.TextNode && !inPre {
		n.Data = collapseSpaces(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collapseTextNodes(c, inPre)
	}
}

var spaceRun = regexp.MustCompile(`[ \t\r\n]+`)

// collapseSpaces reduces whitespace runs to single spaces while keeping
// word boundaries at node edges intact.
func collapseSpaces(s string) string {
	return spaceRun.ReplaceAllString(s, " ")
}

// captureMath records MathJax source scripts into the math map and
// replaces each with an id-bearing span the conversion rules can match.
func captureMath(doc *goquery.Document) map[string]core.MathInfo {
	math := map[string]core.MathInfo{}
	n := 0
	doc.Find("script[type]").Each(func(_ int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		if !strings.Contains(typ, "math/tex") {
			return
		}
		id, ok := s.Attr("id")
		if !ok || id == "" {
			id = fmt.Sprintf("math-%d", n)
		}
		n++
		math[id] = core.MathInfo{
			TeX:    s.Text(),
			Inline: !strings.Contains(typ, "mode=display"),
		}
		s.ReplaceWithHtml(fmt.Sprintf(`<span id=%q></span>`, id))
	})
	return math
}

// strippedClone serializes a copy of the document with scripts, page
// chrome, and navigation-like elements removed, ready for the Reader.
func strippedClone(doc *goquery.Document) string {
	clone := goquery.CloneDocument(doc)
	clone.Find(readerStripSelector).Remove()
	out, err := clone.Html()
	if err != nil {
		return ""
	}
	return out
}
