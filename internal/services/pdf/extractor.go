package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/interfaces"
)

// maxExtractChars truncates extraction to stay inside LLM context limits.
const maxExtractChars = 50000

// Extractor pulls plain text out of resume PDFs.
type Extractor struct {
	logger arbor.ILogger
}

var _ interfaces.PDFExtractor = (*Extractor)(nil)

// NewExtractor creates a PDF text extractor
func NewExtractor(logger arbor.ILogger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractText reads the PDF at path and returns its plain text.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	totalPages := r.NumPage()

	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn().Err(err).Int("page", i).Str("path", path).Msg("Failed to extract page text")
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")

		if sb.Len() > maxExtractChars {
			break
		}
	}

	result := sb.String()
	if len(result) > maxExtractChars {
		result = result[:maxExtractChars]
	}
	if strings.TrimSpace(result) == "" {
		return "", fmt.Errorf("no text content in PDF %s", path)
	}

	return result, nil
}
