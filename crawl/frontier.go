// Package crawl — discovery frontier.
package crawl

// Frontier holds the URLs waiting to be visited and remembers every
// URL ever admitted, so each one is processed at most once.
type Frontier struct {
	pending    []string
	discovered []string
	seen       map[string]bool
}

// NewFrontier creates an empty Frontier.
func NewFrontier() *Frontier {
	return &Frontier{seen: map[string]bool{}}
}

// Add admits a URL unless it was seen before.
func (f *Frontier) Add(url string) {
	if f.seen[url] {
		return
	}
	f.seen[url] = true
	f.pending = append(f.pending, url)
	f.discovered = append(f.discovered, url)
}

// Pop removes and returns the next pending URL. The second return is
// false when the frontier is drained.
func (f *Frontier) Pop() (string, bool) {
	if len(f.pending) == 0 {
		return "", false
	}
	url := f.pending[0]
	f.pending = f.pending[1:]
	return url, true
}

// Seen returns the number of unique URLs ever admitted.
func (f *Frontier) Seen() int {
	return len(f.seen)
}

// Discovered returns every admitted URL in admission order.
func (f *Frontier) Discovered() []string {
	return f.discovered
}
