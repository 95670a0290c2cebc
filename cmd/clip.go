// Package cmd — clip command.
// Orchestrates the pipeline for one URL or a whole site:
// fetch → extract → convert → render → write, with optional image
// downloads for the issued image list.
package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/yknothing/clipdown/core"
	"github.com/yknothing/clipdown/core/config"
	"github.com/yknothing/clipdown/core/convert"
	"github.com/yknothing/clipdown/core/extract"
	"github.com/yknothing/clipdown/core/fetch"
	"github.com/yknothing/clipdown/core/output"
	"github.com/yknothing/clipdown/core/render"
	"github.com/yknothing/clipdown/crawl"
)

// Flag variables.
var (
	flagAll       bool
	flagMarkdown  bool
	flagJSON      bool
	flagPDF       bool
	flagOutputDir string
	flagConfig    string

	flagDownloadImages bool
	flagImagePrefix    string
	flagImageStyle     string
	flagImageRefs      string
	flagLinkStyle      string
	flagHeadingStyle   string
	flagCodeStyle      string
	flagNoEscape       bool
	flagNoReader       bool
	flagTitleFallback  string
)

var clipCmd = &cobra.Command{
	Use:   "clip <url>",
	Short: "Clip a page (or a whole site) to Markdown",
	Long: `Clip fetches a web page, extracts the readable article, and converts
it to Markdown (or JSON/PDF built from that Markdown).

Examples:
  clipdown clip https://example.com/post
  clipdown clip https://example.com/post --download-images --image-prefix img/
  clipdown clip https://example.com --all --output_dir ./site
  clipdown clip https://example.com/post --json`,
	Args: cobra.ExactArgs(1),
	RunE: runClip,
}

func init() {
	rootCmd.AddCommand(clipCmd)

	clipCmd.Flags().BoolVar(&flagAll, "all", false, "Clip all discovered pages of the site")

	clipCmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "Output Markdown (default)")
	clipCmd.Flags().BoolVar(&flagJSON, "json", false, "Output structured JSON")
	clipCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Output PDF")

	clipCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
	clipCmd.Flags().StringVar(&flagConfig, "config", "", "Path to YAML config file")

	clipCmd.Flags().BoolVar(&flagDownloadImages, "download-images", false, "Download images next to the Markdown file")
	clipCmd.Flags().StringVar(&flagImagePrefix, "image-prefix", "", "Prefix for local image filenames")
	clipCmd.Flags().StringVar(&flagImageStyle, "image-style", "", "Image style: markdown|obsidian|obsidian-nofolder|noImage")
	clipCmd.Flags().StringVar(&flagImageRefs, "image-refs", "", "Image reference style: inline|referenced")
	clipCmd.Flags().StringVar(&flagLinkStyle, "link-style", "", "Link style: inlined|stripLinks")
	clipCmd.Flags().StringVar(&flagHeadingStyle, "heading-style", "", "Heading style: atx|setext")
	clipCmd.Flags().StringVar(&flagCodeStyle, "code-style", "", "Code block style: fenced|indented")
	clipCmd.Flags().BoolVar(&flagNoEscape, "no-escape", false, "Disable Markdown character escaping")
	clipCmd.Flags().BoolVar(&flagNoReader, "no-reader", false, "Skip the readability strategy, use heuristic extraction only")
	clipCmd.Flags().StringVar(&flagTitleFallback, "title-fallback", "", "Title to use when the page provides none")
}

func runClip(cmd *cobra.Command, args []string) error {
	rawURL := args[0]

	if err := validateFormatFlags(); err != nil {
		return err
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid URL: %s (must include scheme, e.g. https://example.com)", rawURL)
	}

	settings, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	applyFlags(settings)

	if flagOutputDir != "" {
		settings.OutputDir = flagOutputDir
	}
	writer, err := output.New(settings.OutputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	extractor := extract.New()
	extractor.StripAttributes = settings.StripAttributes
	extractor.Sanitize = settings.Sanitize
	if settings.UseReader {
		extractor.Reader = extract.NewReader()
	}

	pipeline := core.NewPipeline(extractor, convert.New())
	fetcher := fetch.New()
	renderer := selectRenderer()

	ctx := context.Background()
	if flagAll {
		return clipSite(ctx, rawURL, fetcher, pipeline, renderer, writer, settings.Options)
	}
	return clipOne(ctx, rawURL, fetcher, pipeline, renderer, writer, settings.Options, false)
}

// clipOne runs a single URL through the pipeline and writes the result.
func clipOne(
	ctx context.Context,
	rawURL string,
	fetcher core.Fetcher,
	pipeline *core.Pipeline,
	renderer core.Renderer,
	writer *output.Writer,
	opts core.ConversionOptions,
	mirrored bool,
) error {
	result, err := fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	article, converted := pipeline.Run(result.HTML, rawURL, flagTitleFallback, opts)
	if !converted.Success {
		return fmt.Errorf("conversion failed: %s", converted.Error)
	}

	data, err := renderer.Render(article, &converted.Conversion)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	var path string
	if mirrored {
		path, err = writer.WriteMirrored(rawURL, data, renderer.Extension())
	} else {
		path, err = writer.WriteClip(article.Title, rawURL, data, renderer.Extension())
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Written: %s\n", path)

	if opts.DownloadImages && len(converted.Conversion.ImageList) > 0 {
		saved, _ := writer.DownloadImages(ctx, converted.Conversion.ImageList)
		fmt.Fprintf(os.Stdout, "  %d/%d images saved\n", saved, len(converted.Conversion.ImageList))
	}
	return nil
}

// clipSite discovers all internal pages and clips each one.
func clipSite(
	ctx context.Context,
	rawURL string,
	fetcher core.Fetcher,
	pipeline *core.Pipeline,
	renderer core.Renderer,
	writer *output.Writer,
	opts core.ConversionOptions,
) error {
	fmt.Fprintf(os.Stdout, "Discovering pages from %s...\n", rawURL)

	urls, err := crawl.NewDiscoverer(fetcher).DiscoverAll(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("discovering pages: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Found %d pages to clip\n", len(urls))

	var errCount int
	for i, pageURL := range urls {
		fmt.Fprintf(os.Stdout, "[%d/%d] Clipping %s\n", i+1, len(urls), pageURL)
		if err := clipOne(ctx, pageURL, fetcher, pipeline, renderer, writer, opts, true); err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Error: %v\n", err)
			errCount++
		}
	}

	if errCount > 0 {
		fmt.Fprintf(os.Stderr, "\n%d/%d pages failed\n", errCount, len(urls))
	}
	return nil
}

// applyFlags layers explicitly set conversion flags over the config.
func applyFlags(settings *config.Settings) {
	o := &settings.Options
	if flagDownloadImages {
		o.DownloadImages = true
	}
	if flagImagePrefix != "" {
		o.ImagePrefix = flagImagePrefix
	}
	if flagImageStyle != "" {
		o.ImageStyle = flagImageStyle
	}
	if flagImageRefs != "" {
		o.ImageRefStyle = flagImageRefs
	}
	if flagLinkStyle != "" {
		o.LinkStyle = flagLinkStyle
	}
	if flagHeadingStyle != "" {
		o.HeadingStyle = flagHeadingStyle
	}
	if flagCodeStyle != "" {
		o.CodeBlockStyle = flagCodeStyle
	}
	if flagNoEscape {
		o.Escape = false
	}
	if flagNoReader {
		settings.UseReader = false
	}
}

// validateFormatFlags checks that at most one output format is chosen.
func validateFormatFlags() error {
	count := 0
	for _, set := range []bool{flagMarkdown, flagJSON, flagPDF} {
		if set {
			count++
		}
	}
	if count > 1 {
		return fmt.Errorf("only one output format allowed per run (got %d)", count)
	}
	return nil
}

// selectRenderer picks the renderer for the chosen format; Markdown is
// the default.
func selectRenderer() core.Renderer {
	switch {
	case flagJSON:
		return render.NewJSONRenderer()
	case flagPDF:
		return render.NewPDFRenderer()
	default:
		return render.NewMarkdownRenderer()
	}
}
