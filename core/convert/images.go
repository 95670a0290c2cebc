package convert

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/yknothing/clipdown/core"
	"github.com/yknothing/clipdown/core/uri"
)

// placeholderExt is appended when a URL basename carries no extension,
// so every issued filename ends in one.
const placeholderExt = ".bin"

// state is the per-conversion accumulator. It is created at the start
// of every Convert call and discarded with it; nothing here is shared.
type state struct {
	opts      core.ConversionOptions
	baseURI   string
	validator *uri.Validator

	imageList  map[string]string
	taken      map[string]bool
	figure     int
	references []string
}

func newState(opts core.ConversionOptions, baseURI string, v *uri.Validator) *state {
	return &state{
		opts:      opts,
		baseURI:   baseURI,
		validator: v,
		imageList: map[string]string{},
		taken:     map[string]bool{},
	}
}

// recordImage issues a unique local filename for the resolved source
// URI and remembers the mapping. Repeated sources reuse their filename;
// distinct sources colliding on basename get a numeric disambiguator
// inserted before the extension.
func (st *state) recordImage(src string) string {
	if name, ok := st.imageList[src]; ok {
		return name
	}
	name := st.dedupe(filenameForURL(src, st.opts.ImagePrefix, st.opts.DisallowedChars))
	st.imageList[src] = name
	return name
}

func (st *state) dedupe(name string) string {
	if !st.taken[name] {
		st.taken[name] = true
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !st.taken[candidate] {
			st.taken[candidate] = true
			return candidate
		}
	}
}

// nextFigure returns the label for the next referenced image, numbered
// by document order of first encounter.
func (st *state) nextFigure() string {
	st.figure++
	return fmt.Sprintf("fig%d", st.figure)
}

// filenameForURL derives a local filename from the URL basename with
// query and fragment stripped, a placeholder extension when none is
// present, disallowed characters removed, and the prefix applied.
func filenameForURL(src, prefix, disallowed string) string {
	base := ""
	if u, err := url.Parse(src); err == nil {
		base = path.Base(u.Path)
	} else {
		// Unparseable URL: strip query/fragment by hand.
		trimmed := src
		if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
			trimmed = trimmed[:i]
		}
		base = path.Base(trimmed)
	}

	base = removeChars(base, disallowed)
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	if path.Ext(base) == "" {
		base += placeholderExt
	}
	return prefix + base
}

func removeChars(s, disallowed string) string {
	if disallowed == "" {
		return s
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(disallowed, r) {
			return -1
		}
		return r
	}, s)
}

// baseName is like path.Base but tolerates already-local names.
func baseName(name string) string {
	return path.Base(name)
}
