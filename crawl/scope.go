// Package crawl — site scope decisions.
package crawl

import (
	"net/url"
	"path"
	"strings"
)

// staticExtensions mark URLs that point at assets, not pages.
var staticExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".ico": true, ".bmp": true,
	".css": true, ".js": true, ".mjs": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".mp4": true, ".webm": true, ".mp3": true, ".wav": true,
	".zip": true, ".tar": true, ".gz": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
}

// scope decides which URLs belong to the crawled site. admit makes the
// whole call in one parse: the URL must sit on the site's host and not
// be a static asset, and comes back in canonical form (fragment and
// trailing slash stripped) so the frontier deduplicates equivalents.
type scope struct {
	host string
}

func (s scope) admit(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host != s.host {
		return "", false
	}
	if staticExtensions[strings.ToLower(path.Ext(parsed.Path))] {
		return "", false
	}

	parsed.Fragment = ""
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}
	return parsed.String(), true
}
