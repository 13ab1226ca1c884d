package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/common"
	"github.com/ternarybob/pursuit/internal/interfaces"
)

const maxRetries = 3

// Compile-time interface assertions
var (
	_ interfaces.LLMService = (*GeminiService)(nil)
	_ interfaces.LLMService = (*ClaudeService)(nil)
)

// NewService builds the configured provider. Unknown providers fall back to
// Gemini, matching the config default.
func NewService(config *common.LLMConfig, logger arbor.ILogger) (interfaces.LLMService, error) {
	timeout := 120 * time.Second
	if config.Timeout != "" {
		parsed, err := time.ParseDuration(config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid llm.timeout %q: %w", config.Timeout, err)
		}
		timeout = parsed
	}

	switch config.Provider {
	case "claude":
		return NewClaudeService(config.AnthropicAPIKey, config.Model, timeout, logger)
	case "gemini", "":
		return NewGeminiService(config.GoogleAPIKey, config.Model, timeout, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", config.Provider)
	}
}

// disabledService stands in when no provider is configured. Pipelines still
// run and surface the configuration problem as a stream error.
type disabledService struct{}

// NewDisabled returns an LLM service whose generate calls always fail with a
// configuration message.
func NewDisabled() interfaces.LLMService {
	return disabledService{}
}

func (disabledService) GenerateContent(ctx context.Context, messages []interfaces.Message) (string, error) {
	return "", fmt.Errorf("no LLM provider configured (set llm.provider and its API key)")
}

func (disabledService) ModelName() string { return "disabled" }
func (disabledService) Close() error      { return nil }
