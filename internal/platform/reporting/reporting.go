// Package reporting renders simple text documents (the medical summary) to
// PDF with gopdf.
package reporting

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/signintech/gopdf"
)

// ErrNoFont is returned when none of the configured TrueType fonts loads.
var ErrNoFont = errors.New("no usable TTF font for PDF rendering")

// DefaultFontPaths are tried after the configured path.
var DefaultFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
}

const (
	fontFamily  = "body"
	pageMargin  = 40.0
	textWidth   = 595.28 - 2*pageMargin
	pageBottom  = 841.89 - pageMargin
	lineHeight  = 14.0
	titleSize   = 20
	headingSize = 14
	bodySize    = 11
	footerSize  = 8
)

// Section is a heading followed by paragraphs or bullet items.
type Section struct {
	Heading string
	Lines   []string
	Bullets bool
}

// Document is the renderer's input. Empty sections are skipped.
type Document struct {
	Title       string
	Subtitle    []string
	Sections    []Section
	Footer      string
	GeneratedAt time.Time
}

// Renderer writes Documents as A4 PDFs.
type Renderer struct {
	fontPaths []string
}

// NewRenderer tries fontPath first, then DefaultFontPaths.
func NewRenderer(fontPath string) *Renderer {
	paths := make([]string, 0, len(DefaultFontPaths)+1)
	if fontPath != "" {
		paths = append(paths, fontPath)
	}
	return &Renderer{fontPaths: append(paths, DefaultFontPaths...)}
}

func (r *Renderer) loadFont(pdf *gopdf.GoPdf) error {
	var lastErr error
	for _, path := range r.fontPaths {
		if err := pdf.AddTTFFont(fontFamily, path); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("%w: %v", ErrNoFont, lastErr)
}

// Render lays out doc and writes the PDF to w.
func (r *Renderer) Render(doc Document, w io.Writer) error {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.SetMargins(pageMargin, pageMargin, pageMargin, pageMargin)
	if err := r.loadFont(pdf); err != nil {
		return err
	}
	pdf.AddPage()

	l := &layout{pdf: pdf}
	l.text(doc.Title, titleSize, 26)
	for _, line := range doc.Subtitle {
		l.text(line, bodySize, lineHeight)
	}
	if !doc.GeneratedAt.IsZero() {
		l.text("Generated "+doc.GeneratedAt.Format("02 Jan 2006 15:04 MST"), bodySize, lineHeight)
	}
	l.gap(12)

	for _, s := range doc.Sections {
		if len(s.Lines) == 0 {
			continue
		}
		l.text(s.Heading, headingSize, 20)
		for _, line := range s.Lines {
			if s.Bullets {
				line = "• " + line
			}
			l.paragraph(line)
		}
		l.gap(10)
	}

	if doc.Footer != "" {
		l.gap(10)
		l.paragraphSized(doc.Footer, footerSize)
	}
	if l.err != nil {
		return l.err
	}

	if _, err := pdf.WriteTo(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// layout tracks the first error so the render code reads top to bottom.
type layout struct {
	pdf *gopdf.GoPdf
	err error
}

func (l *layout) ensureRoom(h float64) {
	if l.pdf.GetY()+h > pageBottom {
		l.pdf.AddPage()
	}
}

func (l *layout) text(s string, size int, advance float64) {
	if l.err != nil || strings.TrimSpace(s) == "" {
		return
	}
	if l.err = l.pdf.SetFont(fontFamily, "", size); l.err != nil {
		return
	}
	l.ensureRoom(advance)
	if l.err = l.pdf.Cell(nil, s); l.err != nil {
		return
	}
	l.pdf.Br(advance)
}

func (l *layout) paragraph(s string) {
	l.paragraphSized(s, bodySize)
}

func (l *layout) paragraphSized(s string, size int) {
	if l.err != nil {
		return
	}
	if l.err = l.pdf.SetFont(fontFamily, "", size); l.err != nil {
		return
	}
	for _, raw := range strings.Split(s, "\n") {
		if strings.TrimSpace(raw) == "" {
			l.pdf.Br(lineHeight / 2)
			continue
		}
		lines, err := l.pdf.SplitText(raw, textWidth)
		if err != nil {
			l.err = fmt.Errorf("split text: %w", err)
			return
		}
		for _, line := range lines {
			l.ensureRoom(lineHeight)
			if l.err = l.pdf.Cell(nil, line); l.err != nil {
				return
			}
			l.pdf.Br(lineHeight)
		}
	}
}

func (l *layout) gap(h float64) {
	if l.err == nil {
		l.pdf.Br(h)
	}
}
