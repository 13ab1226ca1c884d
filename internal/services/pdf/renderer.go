package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Renderer converts markdown resumes and cover letters into PDF artifacts.
type Renderer struct {
	logger arbor.ILogger
}

var _ interfaces.PDFRenderer = (*Renderer)(nil)

// NewRenderer creates a markdown-to-PDF renderer
func NewRenderer(logger arbor.ILogger) *Renderer {
	return &Renderer{logger: logger}
}

// RenderMarkdown renders markdown to a PDF file and validates the output so
// a corrupt artifact never reaches an application form.
func (r *Renderer) RenderMarkdown(markdown, title, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(title, true)
	doc.SetMargins(15, 15, 15)
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()
	doc.SetFont("Arial", "", 10)

	md := goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)

	source := []byte(stripFrontmatter(markdown))
	root := md.Parser().Parse(text.NewReader(source))

	walker := &docWriter{doc: doc, source: source, font: "Arial", size: 10}
	if err := walker.render(root); err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}

	if err := doc.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("failed to write PDF %s: %w", outPath, err)
	}

	if err := api.ValidateFile(outPath, nil); err != nil {
		return fmt.Errorf("rendered PDF failed validation: %w", err)
	}

	r.logger.Debug().Str("path", outPath).Msg("PDF artifact rendered")
	return nil
}

// docWriter walks the markdown AST and writes it as flowing PDF text.
type docWriter struct {
	doc    *fpdf.Fpdf
	source []byte
	font   string
	size   float64
	bold   bool
	italic bool
	inList bool
	level  int
}

func (w *docWriter) render(node ast.Node) error {
	return ast.Walk(node, w.walk)
}

func (w *docWriter) updateFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.doc.SetFont(w.font, style, w.size)
}

func (w *docWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		return w.handleHeading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			w.doc.Ln(6)
		}
	case ast.KindText:
		if entering {
			w.doc.Write(5, string(n.(*ast.Text).Text(w.source)))
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.updateFont()
	case ast.KindList:
		if entering {
			w.inList = true
			w.level++
		} else {
			w.level--
			if w.level == 0 {
				w.inList = false
				w.doc.Ln(2)
			}
		}
	case ast.KindListItem:
		if entering {
			w.doc.Ln(5)
			w.doc.SetX(15 + float64(w.level)*5)
			w.doc.Write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			w.doc.Ln(3)
			w.doc.Line(15, w.doc.GetY(), 195, w.doc.GetY())
			w.doc.Ln(3)
		}
	}
	return ast.WalkContinue, nil
}

func (w *docWriter) handleHeading(n *ast.Heading, entering bool) (ast.WalkStatus, error) {
	if entering {
		w.doc.Ln(5)
		size := 11.0
		switch n.Level {
		case 1:
			size = 15
		case 2:
			size = 13
		case 3:
			size = 11.5
		}
		w.doc.SetFont(w.font, "B", size)
	} else {
		w.doc.Ln(6)
		w.updateFont()
	}
	return ast.WalkContinue, nil
}

// stripFrontmatter drops a leading YAML block so LLM preamble metadata never
// lands in the rendered document.
func stripFrontmatter(markdown string) string {
	if !strings.HasPrefix(markdown, "---\n") {
		return markdown
	}
	end := strings.Index(markdown[4:], "\n---\n")
	if end == -1 {
		return markdown
	}
	return strings.TrimSpace(markdown[4+end+5:])
}
