// Package crawl provides URL discovery for --all mode: clip every
// internal page of a site. It tries sitemap.xml first and falls back
// to BFS link crawling. Candidate links pass through the same URI
// validator that guards conversion, so javascript:, data:, and
// private-host targets never enter the frontier.
package crawl

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/yknothing/clipdown/core"
	"github.com/yknothing/clipdown/core/uri"
)

// maxPages bounds BFS crawling to avoid runaway discovery.
const maxPages = 100

type sitemapEntry struct {
	Loc string `xml:"loc"`
}

type sitemap struct {
	URLs []sitemapEntry `xml:"url"`
}

// Discoverer finds the internal pages of a site.
type Discoverer struct {
	Fetcher   core.Fetcher
	Validator *uri.Validator
}

// NewDiscoverer creates a Discoverer around the given fetcher.
func NewDiscoverer(fetcher core.Fetcher) *Discoverer {
	return &Discoverer{Fetcher: fetcher, Validator: uri.New()}
}

// DiscoverAll returns every internal URL reachable from startURL, the
// start URL included, in discovery order.
func (d *Discoverer) DiscoverAll(ctx context.Context, startURL string) ([]string, error) {
	parsed, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("parsing start URL: %w", err)
	}
	sc := scope{host: parsed.Host}

	sitemapURL := fmt.Sprintf("%s://%s/sitemap.xml", parsed.Scheme, parsed.Host)
	if urls, err := d.fromSitemap(ctx, sitemapURL, sc); err == nil && len(urls) > 0 {
		log.Debug().Int("count", len(urls)).Msg("discovered pages via sitemap")
		return urls, nil
	}

	return d.fromLinks(ctx, startURL, sc)
}

// fromSitemap fetches and parses sitemap.xml for internal page URLs.
func (d *Discoverer) fromSitemap(ctx context.Context, sitemapURL string, sc scope) ([]string, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var sm sitemap
	if err := xml.Unmarshal(body, &sm); err != nil {
		return nil, err
	}

	var urls []string
	for _, entry := range sm.URLs {
		if canonical, ok := sc.admit(entry.Loc); ok {
			urls = append(urls, canonical)
		}
	}
	return urls, nil
}

// fromLinks performs BFS crawling, following validated internal links.
func (d *Discoverer) fromLinks(ctx context.Context, startURL string, sc scope) ([]string, error) {
	frontier := NewFrontier()
	if canonical, ok := sc.admit(startURL); ok {
		frontier.Add(canonical)
	}

	for frontier.Seen() < maxPages {
		current, ok := frontier.Pop()
		if !ok {
			break
		}

		result, err := d.Fetcher.Fetch(ctx, current)
		if err != nil {
			log.Warn().Str("url", current).Err(err).Msg("skipping page during discovery")
			continue
		}

		for _, link := range d.pageLinks(result.HTML, current) {
			if canonical, ok := sc.admit(link); ok {
				frontier.Add(canonical)
			}
		}
	}

	return frontier.Discovered(), nil
}

// pageLinks extracts absolute hrefs from the page. Each href is made
// absolute against the page URL first, then run through the validator,
// so root-relative links survive while blocked schemes and local hosts
// do not.
func (d *Discoverer) pageLinks(html, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		// In-page anchors resolve back to the page itself.
		if strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		resolved, err := d.Validator.Validate(abs, pageURL)
		if err != nil {
			return
		}
		links = append(links, resolved)
	})
	return links
}
