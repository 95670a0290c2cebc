// Package uri is the security gate for every URI touched by extraction
// and conversion. Policy violations come back as *SecurityError so
// callers can substitute placeholders instead of aborting a document.
package uri

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// MaxURILength is the silent truncation limit applied to every URI.
const MaxURILength = 2048

// blockedSchemes are rejected case-insensitively after control
// characters have been stripped, so "java\tscript:" cannot slip through.
var blockedSchemes = []string{
	"javascript:", "vbscript:", "data:", "file:", "ftp:", "mailto:",
}

// SecurityError reports a URI that failed the validation policy.
type SecurityError struct {
	URI    string
	Reason string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("uri rejected (%s): %q", e.Reason, e.URI)
}

// Validator sanitizes and resolves URIs before they are embedded in
// Markdown output or used to derive filenames.
type Validator struct{}

// New creates a Validator.
func New() *Validator {
	return &Validator{}
}

// Validate applies the ordered policy to raw and, when baseURI is
// non-empty, resolves the result to absolute form. It returns the
// sanitized URI or a *SecurityError. A parse failure during base
// resolution only is non-fatal: the truncated value passes through
// with a logged warning.
func (v *Validator) Validate(raw string, baseURI string) (string, error) {
	if raw == "" {
		return "", &SecurityError{URI: raw, Reason: "empty"}
	}

	cleaned := stripControlChars(raw)

	if !hasAllowedForm(cleaned) {
		return "", &SecurityError{URI: cleaned, Reason: "scheme not allowed"}
	}
	lower := strings.ToLower(cleaned)
	for _, scheme := range blockedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", &SecurityError{URI: cleaned, Reason: "blocked scheme"}
		}
	}

	// Traversal heuristic. Rejects "..", so only "#…" and "./…" survive
	// among the relative forms; that matches the observed policy.
	if strings.Contains(cleaned, "..") || strings.Contains(cleaned, `\`) {
		return "", &SecurityError{URI: cleaned, Reason: "path traversal"}
	}

	if runes := []rune(cleaned); len(runes) > MaxURILength {
		cleaned = string(runes[:MaxURILength])
	}

	if baseURI == "" {
		return cleaned, nil
	}
	return v.resolve(cleaned, baseURI)
}

// resolve makes cleaned absolute against baseURI and rejects hosts that
// point back into the local network. Detection parses the host as an IP
// (loopback, private, link-local, unspecified) instead of substring
// matching, and additionally blocks the localhost name.
func (v *Validator) resolve(cleaned, baseURI string) (string, error) {
	base, err := url.Parse(baseURI)
	if err != nil {
		log.Warn().Str("base", baseURI).Err(err).Msg("unparseable base URI, passing value through")
		return cleaned, nil
	}
	ref, err := url.Parse(cleaned)
	if err != nil {
		log.Warn().Str("uri", cleaned).Err(err).Msg("unparseable URI, passing value through")
		return cleaned, nil
	}

	resolved := base.ResolveReference(ref)
	if host := resolved.Hostname(); isLocalHost(host) {
		return "", &SecurityError{URI: resolved.String(), Reason: "local or private host"}
	}
	return resolved.String(), nil
}

func isLocalHost(host string) bool {
	h := strings.ToLower(host)
	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return true
	}
	addr, err := netip.ParseAddr(h)
	if err != nil {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || addr.IsLinkLocalUnicast()
}

// hasAllowedForm accepts absolute http(s) URIs and the fragment or
// dot-relative forms produced by in-page links.
func hasAllowedForm(s string) bool {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return true
	}
	return strings.HasPrefix(s, "#") || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../")
}

func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
