// Package render — PDF renderer.
// Lays the converted Markdown out as a simple styled PDF via gofpdf:
// headings with scaled fonts, monospaced code blocks, bullet lists.
// Images are referenced by name only; bytes are never fetched here.
package render

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/yknothing/clipdown/core"
)

// PDFRenderer renders converted Markdown as a PDF document.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

var (
	numberedItem = regexp.MustCompile(`^\d+\.\s`)
	inlineLink   = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	emphasisRun  = regexp.MustCompile(`(^|\s)\*([^*]+)\*(\s|$)`)
)

// Render converts the Markdown into PDF bytes.
func (r *PDFRenderer) Render(article *core.Article, conv *core.Conversion) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 8, article.Title, "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	if article.Byline != "" {
		pdf.MultiCell(0, 5, article.Byline, "", "L", false)
	}
	if article.BaseURI != "" {
		pdf.MultiCell(0, 5, "Source: "+article.BaseURI, "", "L", false)
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(5)

	inCode := false
	for _, line := range strings.Split(conv.Markdown, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inCode = !inCode
			pdf.Ln(2)
			continue
		}
		if inCode {
			pdf.SetFont("Courier", "", 9)
			pdf.SetFillColor(245, 245, 245)
			pdf.MultiCell(0, 4.5, line, "", "L", true)
			continue
		}

		switch {
		case trimmed == "":
			pdf.Ln(3)
		case strings.HasPrefix(trimmed, "#"):
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			writeHeading(pdf, strings.TrimSpace(strings.TrimLeft(trimmed, "# ")), level)
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, "• "+plainText(trimmed[2:]), "", "L", false)
		case numberedItem.MatchString(trimmed):
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, plainText(trimmed), "", "L", false)
		case strings.HasPrefix(trimmed, "> "):
			pdf.SetFont("Helvetica", "I", 10)
			pdf.SetTextColor(80, 80, 80)
			pdf.MultiCell(0, 5, plainText(strings.TrimPrefix(trimmed, "> ")), "", "L", false)
			pdf.SetTextColor(0, 0, 0)
		default:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, plainText(line), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

func writeHeading(pdf *gofpdf.Fpdf, text string, level int) {
	size := 18.0 - float64(level)*2
	if size < 10 {
		size = 10
	}
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", size)
	pdf.MultiCell(0, size*0.55, plainText(text), "", "L", false)
	pdf.Ln(1)
}

// plainText strips inline Markdown markers for PDF body text.
func plainText(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	text = emphasisRun.ReplaceAllString(text, "$1$2$3")
	text = inlineCode.ReplaceAllString(text, "$1")
	text = inlineLink.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
