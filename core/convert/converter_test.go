package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yknothing/clipdown/core"
)

func article(content, baseURI string) *core.Article {
	return &core.Article{
		Title:            "T",
		Content:          content,
		BaseURI:          baseURI,
		ExtractionMethod: core.MethodCustom,
		Math:             map[string]core.MathInfo{},
	}
}

func mustConvert(t *testing.T, content string, opts core.ConversionOptions) *core.Conversion {
	t.Helper()
	conv, err := New().Convert(article(content, "https://example.com/post"), opts)
	require.NoError(t, err)
	return conv
}

func TestConvert_HeadingAndParagraph(t *testing.T) {
	conv := mustConvert(t, "<h1>Title</h1><p>Body</p>", core.DefaultOptions())

	assert.Contains(t, conv.Markdown, "# Title")
	assert.Contains(t, conv.Markdown, "Body")
	assert.NotContains(t, conv.Markdown, "<h1>")
	assert.NotContains(t, conv.Markdown, "<p>")
}

func TestConvert_Idempotent(t *testing.T) {
	c := New()
	opts := core.DefaultOptions()
	opts.DownloadImages = true
	opts.ImageRefStyle = core.ImageRefReferenced
	art := article(
		`<h1>Title</h1><p>Body</p>`+
			`<img src="https://a.com/x.jpg" alt="one">`+
			`<img src="https://b.com/x.jpg" alt="two">`,
		"https://example.com/post",
	)

	first, err := c.Convert(art, opts)
	require.NoError(t, err)
	second, err := c.Convert(art, opts)
	require.NoError(t, err)

	assert.Equal(t, first.Markdown, second.Markdown)
	assert.Equal(t, first.ImageList, second.ImageList)
	assert.Equal(t, first.References, second.References)
}

func TestConvert_ImageDownloadFilename(t *testing.T) {
	opts := core.DefaultOptions()
	opts.DownloadImages = true
	opts.ImagePrefix = "img/"

	conv := mustConvert(t, `<img src="https://x.com/a.jpg" alt="A">`, opts)

	require.Len(t, conv.ImageList, 1)
	name, ok := conv.ImageList["https://x.com/a.jpg"]
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(name, "img/"))
	assert.True(t, strings.HasSuffix(name, ".jpg"))
	assert.Contains(t, conv.Markdown, "![A](img/a.jpg)")
}

func TestConvert_ImageFilenamesPairwiseUnique(t *testing.T) {
	opts := core.DefaultOptions()
	opts.DownloadImages = true

	conv := mustConvert(t,
		`<img src="https://a.com/a.jpg"><img src="https://b.com/a.jpg"><img src="https://c.com/a.jpg">`,
		opts)

	require.Len(t, conv.ImageList, 3)
	seen := map[string]bool{}
	for _, name := range conv.ImageList {
		assert.False(t, seen[name], "duplicate filename %q", name)
		seen[name] = true
	}
	assert.Equal(t, "a.jpg", conv.ImageList["https://a.com/a.jpg"])
	assert.Equal(t, "a_2.jpg", conv.ImageList["https://b.com/a.jpg"])
	assert.Equal(t, "a_3.jpg", conv.ImageList["https://c.com/a.jpg"])
}

func TestConvert_ReferencedImages(t *testing.T) {
	opts := core.DefaultOptions()
	opts.ImageRefStyle = core.ImageRefReferenced

	conv := mustConvert(t,
		`<p>one</p><img src="https://x.com/1.png" alt="first">`+
			`<p>two</p><img src="https://x.com/2.png" alt="second" title="cap">`,
		opts)

	require.Len(t, conv.References, 2)
	assert.Equal(t, "[fig1]: https://x.com/1.png", conv.References[0])
	assert.Equal(t, `[fig2]: https://x.com/2.png "cap"`, conv.References[1])
	assert.Contains(t, conv.Markdown, "![first][fig1]")
	assert.Contains(t, conv.Markdown, "![second][fig2]")
	// References land at the end of the document, in order.
	assert.Less(t,
		strings.Index(conv.Markdown, "![second][fig2]"),
		strings.Index(conv.Markdown, "[fig1]: "))
}

func TestConvert_ImageStyles(t *testing.T) {
	content := `<img src="https://x.com/pics/a.jpg" alt="A">`

	t.Run("noImage", func(t *testing.T) {
		opts := core.DefaultOptions()
		opts.ImageStyle = core.ImageStyleNone
		conv := mustConvert(t, content, opts)
		assert.NotContains(t, conv.Markdown, "a.jpg")
	})

	t.Run("obsidian", func(t *testing.T) {
		opts := core.DefaultOptions()
		opts.ImageStyle = core.ImageStyleObsidian
		opts.DownloadImages = true
		opts.ImagePrefix = "assets/"
		conv := mustConvert(t, content, opts)
		assert.Contains(t, conv.Markdown, "![[assets/a.jpg]]")
	})

	t.Run("obsidian-nofolder", func(t *testing.T) {
		opts := core.DefaultOptions()
		opts.ImageStyle = core.ImageStyleObsidianNoFolder
		opts.DownloadImages = true
		opts.ImagePrefix = "assets/"
		conv := mustConvert(t, content, opts)
		assert.Contains(t, conv.Markdown, "![[a.jpg]]")
		assert.NotContains(t, conv.Markdown, "![[assets/")
	})
}

func TestConvert_NoImageStyleStillRecordsDownloads(t *testing.T) {
	opts := core.DefaultOptions()
	opts.ImageStyle = core.ImageStyleNone
	opts.DownloadImages = true

	conv := mustConvert(t, `<p>text</p><img src="https://x.com/a.jpg" alt="A">`, opts)

	// The style suppresses only the replacement text; the download
	// entry is still issued for the collaborator to fetch.
	require.Len(t, conv.ImageList, 1)
	assert.Equal(t, "a.jpg", conv.ImageList["https://x.com/a.jpg"])
	assert.NotContains(t, conv.Markdown, "a.jpg")
}

func TestConvert_BlockedImageSourceDropped(t *testing.T) {
	opts := core.DefaultOptions()
	opts.DownloadImages = true

	conv := mustConvert(t, `<p>text</p><img src="javascript:alert(1)" alt="evil">`, opts)

	assert.Empty(t, conv.ImageList)
	assert.NotContains(t, conv.Markdown, "javascript:")
}

func TestConvert_Links(t *testing.T) {
	content := `<p>See <a href="./other" title="Other">the other page</a> for details.</p>`

	t.Run("inlined resolves against base", func(t *testing.T) {
		conv := mustConvert(t, content, core.DefaultOptions())
		assert.Contains(t, conv.Markdown, `[the other page](https://example.com/other "Other")`)
	})

	t.Run("stripLinks keeps only text", func(t *testing.T) {
		opts := core.DefaultOptions()
		opts.LinkStyle = core.LinkStripped
		conv := mustConvert(t, content, opts)
		assert.Contains(t, conv.Markdown, "the other page")
		assert.NotContains(t, conv.Markdown, "](")
	})

	t.Run("rejected href keeps text drops link", func(t *testing.T) {
		conv := mustConvert(t, `<p><a href="javascript:alert(1)">click me</a></p>`, core.DefaultOptions())
		assert.Contains(t, conv.Markdown, "click me")
		assert.NotContains(t, conv.Markdown, "javascript:")
	})
}

func TestConvert_FencedCodeWithLanguage(t *testing.T) {
	conv := mustConvert(t, `<pre><code id="code-lang-python">print(1)</code></pre>`, core.DefaultOptions())

	assert.Contains(t, conv.Markdown, "```python\nprint(1)\n```")
}

func TestConvert_FenceGrowsPastEmbeddedFences(t *testing.T) {
	code := "normal line\n```\nembedded fence above\n````\nlonger run above"
	conv := mustConvert(t, "<pre><code>"+code+"</code></pre>", core.DefaultOptions())

	// Longest embedded run is 4, so the emitted fence must be 5.
	assert.Contains(t, conv.Markdown, "`````\n")
	assert.NotContains(t, conv.Markdown, "``````")
}

func TestConvert_BarePreGetsUntaggedFence(t *testing.T) {
	conv := mustConvert(t, "<pre>plain preformatted\n  text</pre>", core.DefaultOptions())
	assert.Contains(t, conv.Markdown, "```\nplain preformatted\n  text\n```")
}

func TestConvert_MathRules(t *testing.T) {
	art := article(`<p>inline <span id="eq1"></span> and block</p><span id="eq2"></span>`, "https://example.com/")
	art.Math = map[string]core.MathInfo{
		"eq1": {TeX: "a +\nb", Inline: true},
		"eq2": {TeX: " \\int_0^1 x\\,dx ", Inline: false},
	}

	conv, err := New().Convert(art, core.DefaultOptions())
	require.NoError(t, err)

	assert.Contains(t, conv.Markdown, "$a + b$")
	assert.Contains(t, conv.Markdown, "$$\n\\int_0^1 x\\,dx\n$$")
}

func TestConvert_FrontmatterBackmatterAndReferences(t *testing.T) {
	opts := core.DefaultOptions()
	opts.Frontmatter = "---\ntitle: T\n---"
	opts.Backmatter = "*clipped*"
	opts.ImageRefStyle = core.ImageRefReferenced

	conv := mustConvert(t, `<p>Body</p><img src="https://x.com/a.png" alt="a">`, opts)

	assert.True(t, strings.HasPrefix(conv.Markdown, "---\ntitle: T\n---"))
	assert.True(t, strings.HasSuffix(conv.Markdown, "*clipped*"))
	assert.Less(t,
		strings.Index(conv.Markdown, "[fig1]:"),
		strings.Index(conv.Markdown, "*clipped*"))
}

func TestConvert_StripsNonPrintingCharacters(t *testing.T) {
	conv := mustConvert(t, "<p>soft­hyphen zero​width bom\ufeff</p>", core.DefaultOptions())

	assert.Contains(t, conv.Markdown, "softhyphen")
	assert.Contains(t, conv.Markdown, "zerowidth")
	assert.NotContains(t, conv.Markdown, "\ufeff")
}

func TestConvert_KeepsRawHTMLAllowlist(t *testing.T) {
	conv := mustConvert(t, "<p>H<sub>2</sub>O and x<sup>2</sup></p>", core.DefaultOptions())
	assert.Contains(t, conv.Markdown, "<sub>2</sub>")
	assert.Contains(t, conv.Markdown, "<sup>2</sup>")
}

func TestConvert_GFMTable(t *testing.T) {
	conv := mustConvert(t,
		`<table><thead><tr><th>A</th><th>B</th></tr></thead><tbody><tr><td>1</td><td>2</td></tr></tbody></table>`,
		core.DefaultOptions())
	assert.Contains(t, conv.Markdown, "| A | B |")
}

func TestConvert_EmptyContent(t *testing.T) {
	conv, err := New().Convert(article("", "https://example.com/"), core.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "", conv.Markdown)
	assert.Empty(t, conv.ImageList)
	assert.Empty(t, conv.References)
}

func TestConvert_NilArticle(t *testing.T) {
	_, err := New().Convert(nil, core.DefaultOptions())
	require.Error(t, err)
}

func TestNormalizeOptions_UnknownValuesFallBack(t *testing.T) {
	opts := normalizeOptions(core.ConversionOptions{
		HeadingStyle:   "shouty",
		CodeBlockStyle: "mystery",
		ImageStyle:     "ascii-art",
	})
	def := core.DefaultOptions()
	assert.Equal(t, def.HeadingStyle, opts.HeadingStyle)
	assert.Equal(t, def.CodeBlockStyle, opts.CodeBlockStyle)
	assert.Equal(t, def.ImageStyle, opts.ImageStyle)
	assert.Equal(t, def.Fence, opts.Fence)
}
