package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/interfaces"
)

const claudeMaxTokens = 8192

// ClaudeService generates content via the Anthropic API.
type ClaudeService struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	logger  arbor.ILogger
}

// NewClaudeService creates a Claude-backed LLM service
func NewClaudeService(apiKey, model string, timeout time.Duration, logger arbor.ILogger) (*ClaudeService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set llm.anthropic_api_key or PURSUIT_LLM_ANTHROPIC_API_KEY)")
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ClaudeService{client: client, model: model, timeout: timeout, logger: logger}, nil
}

// convertMessagesToClaude splits system messages out for the System parameter
// and maps the rest to Claude message params, preserving order.
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	hasUser := false

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content)))
		default:
			hasUser = true
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content)))
		}
	}

	if !hasUser {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}
	return claudeMessages, systemText, nil
}

// GenerateContent implements interfaces.LLMService.
func (s *ClaudeService) GenerateContent(ctx context.Context, messages []interfaces.Message) (string, error) {
	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	if err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: int64(claudeMaxTokens),
		Messages:  claudeMessages,
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemText}}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var resp *anthropic.Message
	var apiErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, apiErr = s.client.Messages.New(ctx, params)
		if apiErr == nil {
			break
		}
		if attempt == maxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 2 * time.Second
		s.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Claude API call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	if apiErr != nil {
		return "", fmt.Errorf("Claude API call failed after %d retries: %w", maxRetries, apiErr)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Claude API")
	}
	return text.String(), nil
}

// ModelName implements interfaces.LLMService.
func (s *ClaudeService) ModelName() string {
	return s.model
}

// Close implements interfaces.LLMService.
func (s *ClaudeService) Close() error {
	s.client = anthropic.Client{}
	return nil
}
