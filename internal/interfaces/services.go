package interfaces

import (
	"context"
)

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// LLMService generates text content for the tailoring pipelines.
type LLMService interface {
	// GenerateContent runs a completion over the given messages and returns
	// the text of the first candidate.
	GenerateContent(ctx context.Context, messages []Message) (string, error)
	// ModelName reports the configured model, recorded on version rows.
	ModelName() string
	Close() error
}

// PDFExtractor extracts plain text from a PDF file on disk.
type PDFExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// PDFRenderer renders markdown content to a PDF artifact on disk.
type PDFRenderer interface {
	RenderMarkdown(markdown, title, outPath string) error
}
