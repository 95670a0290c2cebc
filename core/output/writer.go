// Package output handles file naming and writing for clipped pages.
// Single clips get a flat, title-derived filename; --all mode mirrors
// the URL path structure under the output directory.
package output

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Writer writes rendered output to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{OutputDir: outputDir}, nil
}

// WriteClip writes a single clip. The filename is derived from the
// article title when present, otherwise from the URL.
func (w *Writer) WriteClip(title, rawURL string, data []byte, ext string) (string, error) {
	name := slugify(title)
	if name == "" {
		name = filenameFromURL(rawURL)
	}
	path := filepath.Join(w.OutputDir, name+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// WriteMirrored writes output for --all mode, mirroring the URL path.
// Example: https://site.com/docs/intro → <out>/docs/intro.md
func (w *Writer) WriteMirrored(rawURL string, data []byte, ext string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing URL: %w", err)
	}

	urlPath := strings.TrimSuffix(parsed.Path, "/")
	if urlPath == "" || urlPath == "/" {
		urlPath = "/index"
	}
	urlPath = strings.TrimPrefix(urlPath, "/")

	fullPath := filepath.Join(w.OutputDir, urlPath+ext)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", filepath.Dir(fullPath), err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", fullPath, err)
	}
	return fullPath, nil
}

// filenameFromURL converts a URL into a flat filename.
// Example: https://example.com/docs/intro → example_com_docs_intro
func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return slugify(rawURL)
	}
	parts := []string{slugify(parsed.Host)}
	if p := strings.Trim(parsed.Path, "/"); p != "" {
		for _, seg := range strings.Split(p, "/") {
			parts = append(parts, slugify(seg))
		}
	}
	return strings.Join(parts, "_")
}

// slugify lowercases and replaces non-alphanumeric runs with single
// underscores, trimming them from the ends.
func slugify(s string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, ch := range strings.ToLower(s) {
		switch {
		case (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9'):
			b.WriteRune(ch)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
