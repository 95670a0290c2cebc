// Package convert turns an extracted Article into Markdown using
// rule-based conversion: custom filter/replacement pairs for images,
// links, math, and code blocks layered over a GitHub-flavored base.
// Every URI in the document passes through the validator before it is
// embedded in output or used to derive a filename.
package convert

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/yknothing/clipdown/core"
	"github.com/yknothing/clipdown/core/uri"
)

// keepTags are emitted as raw HTML instead of being converted.
var keepTags = []string{"iframe", "sub", "sup", "u", "ins", "del", "small", "big"}

// codeLangPrefix is the id convention carrying a code block's language.
const codeLangPrefix = "code-lang-"

// nonPrinting matches the characters stripped from the final output:
// controls, soft hyphen, zero-width characters, BOM, line/paragraph
// separators, and interlinear annotation marks.
var nonPrinting = regexp.MustCompile(`[\x{0000}-\x{0008}\x{000B}\x{000C}\x{000E}-\x{001F}\x{007F}\x{00AD}\x{200B}-\x{200F}\x{2028}\x{2029}\x{2060}\x{FEFF}\x{FFF9}-\x{FFFB}]`)

// MarkdownConverter implements core.Converter. It is stateless between
// calls: every Convert builds a fresh rule set over per-call state, so
// concurrent conversions cannot corrupt each other's image lists.
type MarkdownConverter struct {
	Validator *uri.Validator
	// Normalize, when set, is applied to the assembled output last.
	Normalize func(string) string
}

// New creates a MarkdownConverter with a default validator.
func New() *MarkdownConverter {
	return &MarkdownConverter{Validator: uri.New()}
}

// Convert renders the article content as Markdown. Rule errors are not
// swallowed here; the pipeline turns them into failure results.
func (c *MarkdownConverter) Convert(article *core.Article, opts core.ConversionOptions) (*core.Conversion, error) {
	if article == nil {
		return nil, fmt.Errorf("nil article")
	}
	opts = normalizeOptions(opts)
	st := newState(opts, article.BaseURI, c.Validator)

	body := ""
	if strings.TrimSpace(article.Content) != "" {
		conv := md.NewConverter("", true, &md.Options{
			HeadingStyle:     opts.HeadingStyle,
			BulletListMarker: opts.BulletListMarker,
			CodeBlockStyle:   opts.CodeBlockStyle,
			Fence:            opts.Fence,
			EscapeMode:       escapeMode(opts.Escape),
		})
		conv.Use(plugin.GitHubFlavored())
		conv.Keep(keepTags...)
		conv.AddRules(c.rules(article, st)...)

		out, err := conv.ConvertString(article.Content)
		if err != nil {
			return nil, fmt.Errorf("converting HTML: %w", err)
		}
		body = out
	}

	markdown := assemble(opts, body, st.references)
	markdown = nonPrinting.ReplaceAllString(markdown, "")
	if c.Normalize != nil {
		markdown = c.Normalize(markdown)
	}

	return &core.Conversion{
		Markdown:   markdown,
		ImageList:  st.imageList,
		References: append([]string{}, st.references...),
	}, nil
}

// rules builds the custom rule set for one conversion. The math rule is
// registered only when the article carries math.
func (c *MarkdownConverter) rules(article *core.Article, st *state) []md.Rule {
	rules := []md.Rule{imageRule(st), linkRule(st), codeRule(st)}
	if len(article.Math) > 0 {
		rules = append(rules, mathRule(article.Math))
	}
	return rules
}

// imageRule resolves image sources through the validator, handles the
// download bookkeeping, and renders according to ImageStyle.
func imageRule(st *state) md.Rule {
	return md.Rule{
		Filter: []string{"img"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			src := strings.TrimSpace(selec.AttrOr("src", ""))
			if src == "" {
				return md.String("")
			}
			resolved, err := st.validator.Validate(src, st.baseURI)
			if err != nil {
				log.Warn().Str("src", src).Err(err).Msg("dropping image with rejected source")
				return md.String("")
			}

			// target is what the output points at: the resolved URI, or
			// the issued local filename when downloads are requested.
			// Bookkeeping happens before the style switch: noImage only
			// suppresses the replacement text, not the download entry.
			target := resolved
			if st.opts.DownloadImages {
				target = st.recordImage(resolved)
			}

			if st.opts.ImageStyle == core.ImageStyleNone {
				return md.String("")
			}

			switch st.opts.ImageStyle {
			case core.ImageStyleObsidian:
				return md.String("![[" + target + "]]")
			case core.ImageStyleObsidianNoFolder:
				return md.String("![[" + baseName(target) + "]]")
			}

			alt := cleanAttr(selec.AttrOr("alt", ""))
			title := cleanAttr(selec.AttrOr("title", ""))

			if st.opts.ImageRefStyle == core.ImageRefReferenced {
				label := st.nextFigure()
				ref := fmt.Sprintf("[%s]: %s", label, target)
				if title != "" {
					ref += fmt.Sprintf(" %q", title)
				}
				st.references = append(st.references, ref)
				return md.String(fmt.Sprintf("![%s][%s]", alt, label))
			}

			if title != "" {
				return md.String(fmt.Sprintf("![%s](%s %q)", alt, target, title))
			}
			return md.String(fmt.Sprintf("![%s](%s)", alt, target))
		},
	}
}

// linkRule validates hrefs and implements the stripLinks style. A
// rejected href keeps the rendered text and drops the link.
func linkRule(st *state) md.Rule {
	return md.Rule{
		Filter: []string{"a"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			href := strings.TrimSpace(selec.AttrOr("href", ""))
			if href == "" {
				return nil
			}
			if st.opts.LinkStyle == core.LinkStripped {
				return md.String(content)
			}
			resolved, err := st.validator.Validate(href, st.baseURI)
			if err != nil {
				log.Warn().Str("href", href).Err(err).Msg("dropping link with rejected target")
				return md.String(content)
			}

			text := content
			if strings.TrimSpace(text) == "" {
				text = resolved
			}
			if title := cleanAttr(selec.AttrOr("title", "")); title != "" {
				return md.String(fmt.Sprintf("[%s](%s %q)", text, resolved, title))
			}
			return md.String(fmt.Sprintf("[%s](%s)", text, resolved))
		},
	}
}

// mathRule replaces placeholder nodes whose id appears in the article's
// math map with $…$ or $$…$$ blocks.
func mathRule(math map[string]core.MathInfo) md.Rule {
	return md.Rule{
		Filter: []string{"span", "div", "script", "mjx-container"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			id, ok := selec.Attr("id")
			if !ok {
				return nil
			}
			info, ok := math[id]
			if !ok {
				return nil
			}

			tex := strings.TrimSpace(strings.ReplaceAll(info.TeX, "\u00a0", ""))
			if info.Inline {
				tex = strings.Join(strings.Fields(tex), " ")
				return md.String("$" + tex + "$")
			}
			return md.String("\n\n$$\n" + tex + "\n$$\n\n")
		},
	}
}

// codeRule renders fenced code blocks with a fence long enough to never
// collide with fence runs inside the code. Indented style falls through
// to the library's default handling.
func codeRule(st *state) md.Rule {
	return md.Rule{
		Filter: []string{"pre"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			if st.opts.CodeBlockStyle != core.CodeBlockFenced {
				return nil
			}

			var text, lang string
			code := selec.Find("code").First()
			if code.Length() > 0 {
				text = code.Text()
				if id, ok := code.Attr("id"); ok && strings.HasPrefix(id, codeLangPrefix) {
					lang = strings.TrimPrefix(id, codeLangPrefix)
				}
			} else {
				if selec.Find("img").Length() > 0 {
					return nil
				}
				text = selec.Text()
			}

			text = strings.TrimRight(text, "\n")
			fence := growFence(text, fenceChar(st.opts.Fence))
			return md.String("\n\n" + fence + lang + "\n" + text + "\n" + fence + "\n\n")
		},
	}
}

// growFence returns a fence at least three characters long and one
// longer than the longest run of the fence character starting a line
// inside the code.
func growFence(code string, ch byte) string {
	longest := 0
	for _, line := range strings.Split(code, "\n") {
		run := 0
		for run < len(line) && line[run] == ch {
			run++
		}
		if run > longest {
			longest = run
		}
	}
	size := longest + 1
	if size < 3 {
		size = 3
	}
	return strings.Repeat(string(ch), size)
}

func fenceChar(fence string) byte {
	if fence == "" {
		return '`'
	}
	return fence[0]
}

// assemble concatenates frontmatter, body with appended references, and
// backmatter. References are separated from the body and each other by
// blank lines.
func assemble(opts core.ConversionOptions, body string, references []string) string {
	body = strings.TrimSpace(body)
	if len(references) > 0 {
		if body != "" {
			body += "\n\n"
		}
		body += strings.Join(references, "\n\n")
	}

	var parts []string
	if opts.Frontmatter != "" {
		parts = append(parts, strings.TrimSpace(opts.Frontmatter))
	}
	parts = append(parts, body)
	if opts.Backmatter != "" {
		parts = append(parts, strings.TrimSpace(opts.Backmatter))
	}
	return strings.Join(parts, "\n\n")
}

// cleanAttr HTML-escapes an attribute value and collapses newlines so
// it stays on one Markdown line.
func cleanAttr(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return html.EscapeString(strings.TrimSpace(s))
}

func escapeMode(escape bool) string {
	if escape {
		return "basic"
	}
	return "disabled"
}

// normalizeOptions fills zero values and unrecognized styles with the
// documented defaults, so a partially populated options struct behaves.
func normalizeOptions(opts core.ConversionOptions) core.ConversionOptions {
	def := core.DefaultOptions()

	if opts.HeadingStyle != core.HeadingATX && opts.HeadingStyle != core.HeadingSetext {
		opts.HeadingStyle = def.HeadingStyle
	}
	if opts.BulletListMarker == "" {
		opts.BulletListMarker = def.BulletListMarker
	}
	if opts.CodeBlockStyle != core.CodeBlockFenced && opts.CodeBlockStyle != core.CodeBlockIndented {
		opts.CodeBlockStyle = def.CodeBlockStyle
	}
	if opts.Fence == "" {
		opts.Fence = def.Fence
	}
	if opts.LinkStyle != core.LinkInlined && opts.LinkStyle != core.LinkStripped {
		opts.LinkStyle = def.LinkStyle
	}
	switch opts.ImageStyle {
	case core.ImageStyleMarkdown, core.ImageStyleObsidian, core.ImageStyleObsidianNoFolder, core.ImageStyleNone:
	default:
		opts.ImageStyle = def.ImageStyle
	}
	if opts.ImageRefStyle != core.ImageRefInline && opts.ImageRefStyle != core.ImageRefReferenced {
		opts.ImageRefStyle = def.ImageRefStyle
	}
	if opts.DisallowedChars == "" {
		opts.DisallowedChars = def.DisallowedChars
	}
	return opts
}
